package transport

import (
	"context"
	"fmt"
	"time"

	"wisefido-command/internal/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// SMSParams SMS 投递参数
type SMSParams struct {
	PhoneNumber string `json:"phone_number"`
}

// smsRequest SMS 网关发送请求
type smsRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

// smsResponse SMS 网关响应
type smsResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// SMSProvider SMS 网关投递提供者（载荷 string，参数 SMSParams）
type SMSProvider struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewSMSProvider 创建 SMS 网关客户端
func NewSMSProvider(baseURL, apiKey string, logger *zap.Logger) *SMSProvider {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(15 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	if apiKey != "" {
		client.SetHeader("Authorization", "Bearer "+apiKey)
	}

	return &SMSProvider{
		httpClient: client,
		logger:     logger,
	}
}

// Deliver 通过 SMS 网关发送文本命令
func (p *SMSProvider) Deliver(ctx context.Context, nesting *models.DeviceNestingContext, assignments []models.DeviceAssignment, encoded string, params SMSParams) error {
	if params.PhoneNumber == "" {
		return fmt.Errorf("SMS delivery requires a phone number")
	}

	request := smsRequest{
		To:      params.PhoneNumber,
		Message: encoded,
	}

	var response smsResponse
	resp, err := p.httpClient.R().
		SetContext(ctx).
		SetBody(request).
		SetResult(&response).
		Post("/v1/sms/send")

	if err != nil {
		return fmt.Errorf("failed to call SMS gateway: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("SMS gateway returned status %d", resp.StatusCode())
	}
	if response.Status != "" && response.Status != "ok" && response.Status != "queued" {
		return fmt.Errorf("SMS gateway rejected message: %s", response.Message)
	}

	p.logger.Debug("Sent command over SMS",
		zap.String("phone_number", params.PhoneNumber),
		zap.Int("message_length", len(encoded)),
	)
	return nil
}

// DeliverSystemCommand 系统命令走同一发送路径
func (p *SMSProvider) DeliverSystemCommand(ctx context.Context, nesting *models.DeviceNestingContext, assignments []models.DeviceAssignment, encoded string, params SMSParams) error {
	return p.Deliver(ctx, nesting, assignments, encoded, params)
}

// ExtractSMSParams 默认 SMS 参数提取器：取第一个分配上登记的电话号码
func ExtractSMSParams(ctx context.Context, nesting *models.DeviceNestingContext, assignments []models.DeviceAssignment) (SMSParams, error) {
	if len(assignments) == 0 {
		return SMSParams{}, fmt.Errorf("no assignments to derive phone number from")
	}

	target := assignments[0]
	if target.PhoneNumber == nil || *target.PhoneNumber == "" {
		return SMSParams{}, fmt.Errorf("assignment %s has no phone number", target.AssignmentToken)
	}

	return SMSParams{PhoneNumber: *target.PhoneNumber}, nil
}

// ConvertSMSScriptResult 把脚本结果转换为 SMS 参数（脚本提取器用）
func ConvertSMSScriptResult(result interface{}) (SMSParams, error) {
	phone, ok := result.(string)
	if !ok || phone == "" {
		return SMSParams{}, fmt.Errorf("script must return a phone number string, got %T", result)
	}
	return SMSParams{PhoneNumber: phone}, nil
}
