package service

import (
	"context"
	"fmt"

	"wisefido-command/internal/config"
	"wisefido-command/internal/destination"
	"wisefido-command/internal/models"
	"wisefido-command/internal/script"
	"wisefido-command/internal/transport"

	"go.uber.org/zap"
)

// BuildDestinations 按配置构建全部命令目的地
// 编码器/提取器与传输通道的组合在此处校验，不兼容的组合是启动期配置错误
func BuildDestinations(cfg *config.Config, engine script.Engine, logger *zap.Logger) ([]destination.CommandDestination, error) {
	destinations := make([]destination.CommandDestination, 0, len(cfg.Command.Destinations))

	for i := range cfg.Command.Destinations {
		dc := &cfg.Command.Destinations[i]

		var (
			dest destination.CommandDestination
			err  error
		)
		switch dc.Transport {
		case "mqtt":
			dest, err = buildMQTTDestination(cfg, dc, engine, logger)
		case "sms":
			dest, err = buildSMSDestination(cfg, dc, engine, logger)
		case "webhook":
			dest, err = buildWebhookDestination(dc, engine, logger)
		default:
			err = fmt.Errorf("unknown transport: %s", dc.Transport)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to build destination %s: %w", dc.ID, err)
		}

		destinations = append(destinations, dest)
	}

	return destinations, nil
}

// buildMQTTDestination MQTT 目的地：字节载荷，JSON 或脚本编码
func buildMQTTDestination(cfg *config.Config, dc *config.DestinationConfig, engine script.Engine, logger *zap.Logger) (destination.CommandDestination, error) {
	var encoder destination.Encoder[[]byte]
	switch dc.Encoder {
	case "json", "":
		encoder = destination.NewJSONEncoder()
	case "scripted":
		if err := requireScript(dc, engine); err != nil {
			return nil, err
		}
		encoder = destination.NewScriptedEncoder(engine, dc.Script)
	default:
		return nil, fmt.Errorf("mqtt transport does not support encoder %q", dc.Encoder)
	}

	var extractor destination.ParameterExtractor[transport.MQTTParams]
	switch dc.Extractor {
	case "default", "":
		extractor = destination.ExtractorFunc[transport.MQTTParams](
			transport.NewMQTTTopicExtractor(cfg.Command.TopicPrefix, cfg.MQTT.QoS))
	case "scripted":
		if err := requireScript(dc, engine); err != nil {
			return nil, err
		}
		extractor = destination.NewScriptedExtractor(engine, dc.Script, transport.ConvertMQTTScriptResult)
	default:
		return nil, fmt.Errorf("mqtt transport does not support extractor %q", dc.Extractor)
	}

	provider := transport.NewMQTTProvider(&cfg.MQTT, logger)
	return destination.New(dc.ID, encoder, extractor, provider, logger)
}

// buildSMSDestination SMS 目的地：文本载荷，发往 SMS 网关
func buildSMSDestination(cfg *config.Config, dc *config.DestinationConfig, engine script.Engine, logger *zap.Logger) (destination.CommandDestination, error) {
	baseURL := cfg.Command.SMSGateway.BaseURL
	if url := dc.Settings["gateway_url"]; url != "" {
		baseURL = url
	}
	if baseURL == "" {
		return nil, fmt.Errorf("sms transport requires a gateway URL")
	}
	apiKey := cfg.Command.SMSGateway.APIKey
	if key := dc.Settings["api_key"]; key != "" {
		apiKey = key
	}

	var encoder destination.Encoder[string]
	switch dc.Encoder {
	case "text", "":
		encoder = destination.NewTextEncoder()
	default:
		// SMS 通道只接受文本载荷
		return nil, fmt.Errorf("sms transport does not support encoder %q", dc.Encoder)
	}

	var extractor destination.ParameterExtractor[transport.SMSParams]
	switch dc.Extractor {
	case "default", "":
		extractor = destination.ExtractorFunc[transport.SMSParams](transport.ExtractSMSParams)
	case "scripted":
		if err := requireScript(dc, engine); err != nil {
			return nil, err
		}
		extractor = destination.NewScriptedExtractor(engine, dc.Script, transport.ConvertSMSScriptResult)
	default:
		return nil, fmt.Errorf("sms transport does not support extractor %q", dc.Extractor)
	}

	provider := transport.NewSMSProvider(baseURL, apiKey, logger)
	return destination.New(dc.ID, encoder, extractor, provider, logger)
}

// buildWebhookDestination Webhook 目的地：字节载荷 POST 到回调地址
func buildWebhookDestination(dc *config.DestinationConfig, engine script.Engine, logger *zap.Logger) (destination.CommandDestination, error) {
	var encoder destination.Encoder[[]byte]
	switch dc.Encoder {
	case "json", "":
		encoder = destination.NewJSONEncoder()
	case "scripted":
		if err := requireScript(dc, engine); err != nil {
			return nil, err
		}
		encoder = destination.NewScriptedEncoder(engine, dc.Script)
	default:
		return nil, fmt.Errorf("webhook transport does not support encoder %q", dc.Encoder)
	}

	var extractor destination.ParameterExtractor[transport.WebhookParams]
	switch dc.Extractor {
	case "default", "":
		// settings.url 配置固定回调地址，否则取分配上登记的回调地址
		if url := dc.Settings["url"]; url != "" {
			extractor = fixedWebhookExtractor(url)
		} else {
			extractor = destination.ExtractorFunc[transport.WebhookParams](transport.ExtractWebhookParams)
		}
	case "scripted":
		if err := requireScript(dc, engine); err != nil {
			return nil, err
		}
		extractor = destination.NewScriptedExtractor(engine, dc.Script, transport.ConvertWebhookScriptResult)
	default:
		return nil, fmt.Errorf("webhook transport does not support extractor %q", dc.Extractor)
	}

	provider := transport.NewWebhookProvider(logger)
	return destination.New(dc.ID, encoder, extractor, provider, logger)
}

// fixedWebhookExtractor 固定回调地址提取器
func fixedWebhookExtractor(url string) destination.ParameterExtractor[transport.WebhookParams] {
	return destination.ExtractorFunc[transport.WebhookParams](
		func(ctx context.Context, nesting *models.DeviceNestingContext, assignments []models.DeviceAssignment) (transport.WebhookParams, error) {
			return transport.WebhookParams{URL: url}, nil
		})
}

// requireScript 校验脚本组件的前置条件
func requireScript(dc *config.DestinationConfig, engine script.Engine) error {
	if dc.Script == "" {
		return fmt.Errorf("scripted component requires a script reference")
	}
	if engine == nil {
		return fmt.Errorf("scripted component requires a script engine")
	}
	return nil
}
