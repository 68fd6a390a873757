package router

import (
	"context"
	"fmt"

	"wisefido-command/internal/config"
	"wisefido-command/internal/destination"
	"wisefido-command/internal/lifecycle"
	"wisefido-command/internal/models"
	"wisefido-command/internal/script"

	"go.uber.org/zap"
)

// DestinationResolver 目的地ID解析接口（由目的地管理器实现并在构造期注入）
type DestinationResolver interface {
	GetDestination(id string) (destination.CommandDestination, bool)
	ListDestinations() []destination.CommandDestination
}

// Router 出站命令路由器：为命令执行/系统命令选择投递目的地
// 可互换策略: single | device-type-mapping | scripted | noop
type Router interface {
	lifecycle.Component
	GetDestinationsForCommand(ctx context.Context, execution *models.DeviceCommandExecution, nesting *models.DeviceNestingContext, assignments []models.DeviceAssignment) ([]destination.CommandDestination, error)
	GetDestinationsForSystemCommand(ctx context.Context, command *models.SystemCommand, nesting *models.DeviceNestingContext, assignments []models.DeviceAssignment) ([]destination.CommandDestination, error)
}

// NewFromConfig 按配置创建路由器
func NewFromConfig(cfg *config.RouterConfig, resolver DestinationResolver, engine script.Engine, logger *zap.Logger) (Router, error) {
	switch cfg.Strategy {
	case "single":
		return NewSingleChoiceRouter(resolver, logger), nil
	case "device-type-mapping":
		return NewDeviceTypeMappingRouter(resolver, cfg.Mappings, cfg.DefaultDestinationID, logger), nil
	case "scripted":
		if engine == nil {
			return nil, fmt.Errorf("scripted router requires a script engine")
		}
		if cfg.Script == "" {
			return nil, fmt.Errorf("scripted router requires a script reference")
		}
		return NewScriptedRouter(resolver, engine, cfg.Script, logger), nil
	case "noop":
		return NewNoOpRouter(logger), nil
	default:
		return nil, fmt.Errorf("unknown router strategy: %s", cfg.Strategy)
	}
}
