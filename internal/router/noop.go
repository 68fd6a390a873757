package router

import (
	"context"

	"wisefido-command/internal/destination"
	"wisefido-command/internal/lifecycle"
	"wisefido-command/internal/models"

	"go.uber.org/zap"
)

// NoOpRouter 空路由策略：始终返回空目的地列表（命令被有意丢弃）
// 未配置路由时的安全默认值
type NoOpRouter struct {
	lifecycle.Machine

	logger *zap.Logger
}

// NewNoOpRouter 创建空路由器
func NewNoOpRouter(logger *zap.Logger) *NoOpRouter {
	return &NoOpRouter{logger: logger}
}

// Initialize 初始化路由器
func (r *NoOpRouter) Initialize(ctx context.Context) error {
	return r.RunInitialize(ctx, nil)
}

// Start 启动路由器
func (r *NoOpRouter) Start(ctx context.Context) error {
	return r.RunStart(ctx, func(ctx context.Context) error {
		r.logger.Warn("No-op router started: outbound commands will be dropped")
		return nil
	})
}

// Stop 停止路由器
func (r *NoOpRouter) Stop(ctx context.Context) error {
	return r.RunStop(ctx, nil)
}

// GetDestinationsForCommand 始终返回空列表
func (r *NoOpRouter) GetDestinationsForCommand(ctx context.Context, execution *models.DeviceCommandExecution, nesting *models.DeviceNestingContext, assignments []models.DeviceAssignment) ([]destination.CommandDestination, error) {
	return nil, nil
}

// GetDestinationsForSystemCommand 始终返回空列表
func (r *NoOpRouter) GetDestinationsForSystemCommand(ctx context.Context, command *models.SystemCommand, nesting *models.DeviceNestingContext, assignments []models.DeviceAssignment) ([]destination.CommandDestination, error) {
	return nil, nil
}
