package router

import (
	"context"
	"fmt"

	"wisefido-command/internal/destination"
	"wisefido-command/internal/lifecycle"
	"wisefido-command/internal/models"

	"go.uber.org/zap"
)

// SingleChoiceRouter 单一目的地路由策略
// 要求启动时恰好配置了一个目的地，否则启动失败（配置错误，引擎不得进入已启动状态）
type SingleChoiceRouter struct {
	lifecycle.Machine

	resolver DestinationResolver
	choice   destination.CommandDestination
	logger   *zap.Logger
}

// NewSingleChoiceRouter 创建单一目的地路由器
func NewSingleChoiceRouter(resolver DestinationResolver, logger *zap.Logger) *SingleChoiceRouter {
	return &SingleChoiceRouter{
		resolver: resolver,
		logger:   logger,
	}
}

// Initialize 初始化路由器
func (r *SingleChoiceRouter) Initialize(ctx context.Context) error {
	return r.RunInitialize(ctx, nil)
}

// Start 启动路由器并校验"恰好一个目的地"约束
func (r *SingleChoiceRouter) Start(ctx context.Context) error {
	return r.RunStart(ctx, func(ctx context.Context) error {
		destinations := r.resolver.ListDestinations()
		if len(destinations) != 1 {
			return fmt.Errorf("single-choice router requires exactly one configured destination, found %d", len(destinations))
		}
		r.choice = destinations[0]
		r.logger.Info("Single-choice router started",
			zap.String("destination_id", r.choice.ID()),
		)
		return nil
	})
}

// Stop 停止路由器
func (r *SingleChoiceRouter) Stop(ctx context.Context) error {
	return r.RunStop(ctx, nil)
}

// GetDestinationsForCommand 始终返回唯一配置的目的地
func (r *SingleChoiceRouter) GetDestinationsForCommand(ctx context.Context, execution *models.DeviceCommandExecution, nesting *models.DeviceNestingContext, assignments []models.DeviceAssignment) ([]destination.CommandDestination, error) {
	return r.destinations()
}

// GetDestinationsForSystemCommand 始终返回唯一配置的目的地
func (r *SingleChoiceRouter) GetDestinationsForSystemCommand(ctx context.Context, command *models.SystemCommand, nesting *models.DeviceNestingContext, assignments []models.DeviceAssignment) ([]destination.CommandDestination, error) {
	return r.destinations()
}

func (r *SingleChoiceRouter) destinations() ([]destination.CommandDestination, error) {
	if r.choice == nil {
		return nil, fmt.Errorf("single-choice router is not started")
	}
	return []destination.CommandDestination{r.choice}, nil
}
