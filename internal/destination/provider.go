package destination

import (
	"context"

	"wisefido-command/internal/models"
)

// DeliveryProvider 传输投递提供者：用提取出的参数 P 把编码载荷 T 发送出去
// 具体传输（MQTT/SMS/Webhook）在 internal/transport 中实现
type DeliveryProvider[T any, P any] interface {
	Deliver(ctx context.Context, nesting *models.DeviceNestingContext, assignments []models.DeviceAssignment, encoded T, params P) error
	DeliverSystemCommand(ctx context.Context, nesting *models.DeviceNestingContext, assignments []models.DeviceAssignment, encoded T, params P) error
}

// ProviderLifecycle 提供者可选的生命周期钩子（如 MQTT 连接建立/断开）
// 目的地启动/停止时会调用实现了该接口的提供者
type ProviderLifecycle interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
