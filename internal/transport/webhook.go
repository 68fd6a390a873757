package transport

import (
	"context"
	"fmt"
	"time"

	"wisefido-command/internal/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// WebhookParams Webhook 投递参数
type WebhookParams struct {
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
}

// WebhookProvider Webhook 投递提供者（载荷 []byte，参数 WebhookParams）
type WebhookProvider struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewWebhookProvider 创建 Webhook 投递提供者
func NewWebhookProvider(logger *zap.Logger) *WebhookProvider {
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Content-Type", "application/json")

	return &WebhookProvider{
		httpClient: client,
		logger:     logger,
	}
}

// Deliver POST 命令载荷到回调地址
func (p *WebhookProvider) Deliver(ctx context.Context, nesting *models.DeviceNestingContext, assignments []models.DeviceAssignment, encoded []byte, params WebhookParams) error {
	if params.URL == "" {
		return fmt.Errorf("webhook delivery requires a URL")
	}

	request := p.httpClient.R().
		SetContext(ctx).
		SetBody(encoded)
	for k, v := range params.Headers {
		request.SetHeader(k, v)
	}

	resp, err := request.Post(params.URL)
	if err != nil {
		return fmt.Errorf("failed to call webhook: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode())
	}

	p.logger.Debug("Delivered command over webhook",
		zap.String("url", params.URL),
		zap.Int("payload_bytes", len(encoded)),
	)
	return nil
}

// DeliverSystemCommand 系统命令走同一发送路径
func (p *WebhookProvider) DeliverSystemCommand(ctx context.Context, nesting *models.DeviceNestingContext, assignments []models.DeviceAssignment, encoded []byte, params WebhookParams) error {
	return p.Deliver(ctx, nesting, assignments, encoded, params)
}

// ExtractWebhookParams 默认 Webhook 参数提取器：取第一个分配上登记的回调地址
func ExtractWebhookParams(ctx context.Context, nesting *models.DeviceNestingContext, assignments []models.DeviceAssignment) (WebhookParams, error) {
	if len(assignments) == 0 {
		return WebhookParams{}, fmt.Errorf("no assignments to derive callback URL from")
	}

	target := assignments[0]
	if target.CallbackURL == nil || *target.CallbackURL == "" {
		return WebhookParams{}, fmt.Errorf("assignment %s has no callback URL", target.AssignmentToken)
	}

	return WebhookParams{URL: *target.CallbackURL}, nil
}

// ConvertWebhookScriptResult 把脚本结果转换为 Webhook 参数（脚本提取器用）
func ConvertWebhookScriptResult(result interface{}) (WebhookParams, error) {
	url, ok := result.(string)
	if !ok || url == "" {
		return WebhookParams{}, fmt.Errorf("script must return a URL string, got %T", result)
	}
	return WebhookParams{URL: url}, nil
}
