package transport

import (
	"context"
	"fmt"

	"wisefido-command/internal/config"
	"wisefido-command/internal/models"
	"wisefido-command/internal/mqtt"

	"go.uber.org/zap"
)

// MQTTParams MQTT 投递参数
type MQTTParams struct {
	Topic    string `json:"topic"`
	QoS      byte   `json:"qos"`
	Retained bool   `json:"retained"`
}

// Publisher MQTT 发布接口（便于测试注入）
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
	IsConnected() bool
	Disconnect()
}

// MQTTProvider MQTT 投递提供者（载荷 []byte，参数 MQTTParams）
type MQTTProvider struct {
	cfg    *config.MQTTConfig
	client Publisher
	logger *zap.Logger
}

// NewMQTTProvider 创建 MQTT 投递提供者；连接在目的地启动时建立
func NewMQTTProvider(cfg *config.MQTTConfig, logger *zap.Logger) *MQTTProvider {
	return &MQTTProvider{
		cfg:    cfg,
		logger: logger,
	}
}

// NewMQTTProviderWithPublisher 使用现成的发布器创建提供者（测试用）
func NewMQTTProviderWithPublisher(client Publisher, logger *zap.Logger) *MQTTProvider {
	return &MQTTProvider{
		client: client,
		logger: logger,
	}
}

// Start 建立 MQTT 连接
func (p *MQTTProvider) Start(ctx context.Context) error {
	if p.client != nil {
		return nil
	}

	client, err := mqtt.NewClient(p.cfg, p.logger)
	if err != nil {
		return fmt.Errorf("failed to connect MQTT provider: %w", err)
	}
	p.client = client
	return nil
}

// Stop 断开 MQTT 连接
func (p *MQTTProvider) Stop(ctx context.Context) error {
	if p.client != nil {
		p.client.Disconnect()
		p.client = nil
	}
	return nil
}

// Deliver 发布命令载荷到目标主题
func (p *MQTTProvider) Deliver(ctx context.Context, nesting *models.DeviceNestingContext, assignments []models.DeviceAssignment, encoded []byte, params MQTTParams) error {
	if p.client == nil || !p.client.IsConnected() {
		return fmt.Errorf("MQTT provider is not connected")
	}
	if params.Topic == "" {
		return fmt.Errorf("MQTT delivery requires a topic")
	}

	if err := p.client.Publish(params.Topic, params.QoS, params.Retained, encoded); err != nil {
		return fmt.Errorf("failed to publish command: %w", err)
	}

	p.logger.Debug("Published command over MQTT",
		zap.String("topic", params.Topic),
		zap.Int("payload_bytes", len(encoded)),
	)
	return nil
}

// DeliverSystemCommand 系统命令走同一发布路径
func (p *MQTTProvider) DeliverSystemCommand(ctx context.Context, nesting *models.DeviceNestingContext, assignments []models.DeviceAssignment, encoded []byte, params MQTTParams) error {
	return p.Deliver(ctx, nesting, assignments, encoded, params)
}

// NewMQTTTopicExtractor 默认 MQTT 主题提取器
// 主题格式: {prefix}/{tenant_id}/{device_token}/command
// 设备挂在网关下时，发布到网关设备的主题
func NewMQTTTopicExtractor(prefix string, qos byte) func(ctx context.Context, nesting *models.DeviceNestingContext, assignments []models.DeviceAssignment) (MQTTParams, error) {
	return func(ctx context.Context, nesting *models.DeviceNestingContext, assignments []models.DeviceAssignment) (MQTTParams, error) {
		if len(assignments) == 0 {
			return MQTTParams{}, fmt.Errorf("no assignments to derive MQTT topic from")
		}

		target := assignments[0]
		tenantID := target.TenantID
		deviceToken := target.DeviceToken
		if nesting != nil && nesting.Gateway != nil {
			deviceToken = nesting.Gateway.DeviceToken
		}

		return MQTTParams{
			Topic: fmt.Sprintf("%s/%s/%s/command", prefix, tenantID, deviceToken),
			QoS:   qos,
		}, nil
	}
}

// ConvertMQTTScriptResult 把脚本结果转换为 MQTT 参数（脚本提取器用）
// 支持字符串（主题名）或 {"topic": ..., "qos": ..., "retained": ...} 映射
func ConvertMQTTScriptResult(result interface{}) (MQTTParams, error) {
	switch v := result.(type) {
	case string:
		if v == "" {
			return MQTTParams{}, fmt.Errorf("script returned empty topic")
		}
		return MQTTParams{Topic: v}, nil
	case map[string]interface{}:
		params := MQTTParams{}
		if topic, ok := v["topic"].(string); ok {
			params.Topic = topic
		}
		if qos, ok := v["qos"].(float64); ok {
			params.QoS = byte(qos)
		}
		if retained, ok := v["retained"].(bool); ok {
			params.Retained = retained
		}
		if params.Topic == "" {
			return MQTTParams{}, fmt.Errorf("script result missing topic")
		}
		return params, nil
	default:
		return MQTTParams{}, fmt.Errorf("unsupported script result type %T", result)
	}
}
