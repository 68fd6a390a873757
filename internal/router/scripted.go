package router

import (
	"context"
	"fmt"

	"wisefido-command/internal/destination"
	"wisefido-command/internal/lifecycle"
	"wisefido-command/internal/models"
	"wisefido-command/internal/script"

	"go.uber.org/zap"
)

// ScriptedRouter 脚本驱动路由策略
// 脚本接收命令执行/系统命令、嵌套上下文与分配的命名绑定，返回单个目的地ID（或空表示不路由）
// 脚本故障（编译/运行时）包装后作为路由失败向上传播，不被静默吞掉
type ScriptedRouter struct {
	lifecycle.Machine

	resolver  DestinationResolver
	engine    script.Engine
	scriptRef string
	logger    *zap.Logger
}

// NewScriptedRouter 创建脚本路由器
func NewScriptedRouter(resolver DestinationResolver, engine script.Engine, scriptRef string, logger *zap.Logger) *ScriptedRouter {
	return &ScriptedRouter{
		resolver:  resolver,
		engine:    engine,
		scriptRef: scriptRef,
		logger:    logger,
	}
}

// Initialize 初始化路由器
func (r *ScriptedRouter) Initialize(ctx context.Context) error {
	return r.RunInitialize(ctx, nil)
}

// Start 启动路由器
func (r *ScriptedRouter) Start(ctx context.Context) error {
	return r.RunStart(ctx, func(ctx context.Context) error {
		r.logger.Info("Scripted router started",
			zap.String("script", r.scriptRef),
		)
		return nil
	})
}

// Stop 停止路由器
func (r *ScriptedRouter) Stop(ctx context.Context) error {
	return r.RunStop(ctx, nil)
}

// GetDestinationsForCommand 执行路由脚本选择目的地
func (r *ScriptedRouter) GetDestinationsForCommand(ctx context.Context, execution *models.DeviceCommandExecution, nesting *models.DeviceNestingContext, assignments []models.DeviceAssignment) ([]destination.CommandDestination, error) {
	bindings := script.Bindings{
		"execution":   execution,
		"nesting":     nesting,
		"assignments": assignments,
		"logger":      r.logger,
	}
	return r.evaluate(ctx, bindings)
}

// GetDestinationsForSystemCommand 执行路由脚本选择目的地
func (r *ScriptedRouter) GetDestinationsForSystemCommand(ctx context.Context, command *models.SystemCommand, nesting *models.DeviceNestingContext, assignments []models.DeviceAssignment) ([]destination.CommandDestination, error) {
	bindings := script.Bindings{
		"command":     command,
		"nesting":     nesting,
		"assignments": assignments,
		"logger":      r.logger,
	}
	return r.evaluate(ctx, bindings)
}

// evaluate 执行脚本并把结果解析为目的地列表
func (r *ScriptedRouter) evaluate(ctx context.Context, bindings script.Bindings) ([]destination.CommandDestination, error) {
	result, err := r.engine.Evaluate(ctx, r.scriptRef, bindings)
	if err != nil {
		return nil, fmt.Errorf("failed to run router script %s: %w", r.scriptRef, err)
	}

	// 脚本返回空表示不路由
	if result == nil {
		return nil, nil
	}
	destinationID, ok := result.(string)
	if !ok {
		return nil, fmt.Errorf("router script %s returned unsupported type %T", r.scriptRef, result)
	}
	if destinationID == "" {
		return nil, nil
	}

	dest, live := r.resolver.GetDestination(destinationID)
	if !live {
		return nil, fmt.Errorf("router script %s selected unknown destination: %s", r.scriptRef, destinationID)
	}

	return []destination.CommandDestination{dest}, nil
}
