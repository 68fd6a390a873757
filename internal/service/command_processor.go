package service

import (
	"context"
	"fmt"

	"wisefido-command/internal/models"
	"wisefido-command/internal/router"

	"go.uber.org/zap"
)

// CommandCatalog 命令定义读取接口（由 repository.CommandRepository 实现）
type CommandCatalog interface {
	GetCommandByToken(tenantID, commandToken string) (*models.DeviceCommand, error)
}

// CommandProcessor 单条命令调用的完整处理流水线
// 目标解析 → 命令定义查找 → 参数绑定 → 嵌套上下文 → 路由投递
type CommandProcessor struct {
	resolver *TargetResolver
	catalog  CommandCatalog
	registry DeviceRegistry
	router   router.Router
	routing  *RoutingLogic
	sink     UndeliveredSink
	logger   *zap.Logger
}

// NewCommandProcessor 创建命令处理器
func NewCommandProcessor(
	resolver *TargetResolver,
	catalog CommandCatalog,
	registry DeviceRegistry,
	rt router.Router,
	routing *RoutingLogic,
	sink UndeliveredSink,
	logger *zap.Logger,
) *CommandProcessor {
	return &CommandProcessor{
		resolver: resolver,
		catalog:  catalog,
		registry: registry,
		router:   rt,
		routing:  routing,
		sink:     sink,
		logger:   logger,
	}
}

// ProcessCommandInvocation 处理一条入站命令调用
func (p *CommandProcessor) ProcessCommandInvocation(ctx context.Context, enriched *models.EnrichedCommandInvocation) error {
	invocation := enriched.Invocation

	assignments, err := p.resolver.ResolveTargets(invocation)
	if err != nil {
		return fmt.Errorf("failed to resolve targets for invocation %s: %w", invocation.InvocationID, err)
	}
	if len(assignments) == 0 {
		// 零匹配合法：无目标即无需投递，也不产生未送达记录
		p.logger.Info("Command invocation resolved no target assignments",
			zap.String("invocation_id", invocation.InvocationID),
			zap.String("target_type", string(invocation.Target.Type)),
		)
		return nil
	}

	command, err := p.catalog.GetCommandByToken(invocation.TenantID, invocation.CommandToken)
	if err != nil {
		return fmt.Errorf("failed to load command definition %s: %w", invocation.CommandToken, err)
	}

	execution, err := BuildExecution(command, invocation)
	if err != nil {
		return fmt.Errorf("failed to build execution for invocation %s: %w", invocation.InvocationID, err)
	}

	nesting, err := p.registry.GetNestingContext(invocation.TenantID, &assignments[0])
	if err != nil {
		return fmt.Errorf("failed to resolve nesting context: %w", err)
	}

	p.logger.Debug("Processing command invocation",
		zap.String("invocation_id", invocation.InvocationID),
		zap.String("command", command.QualifiedName()),
		zap.Int("assignment_count", len(assignments)),
	)

	return p.routing.RouteCommand(ctx, p.router, p.sink, enriched.Context, execution, nesting, assignments)
}

// ProcessSystemCommand 处理一条平台内部命令（按设备ID寻址，跳过执行构建器）
func (p *CommandProcessor) ProcessSystemCommand(ctx context.Context, command *models.SystemCommand) error {
	if command.DeviceID == "" {
		return fmt.Errorf("system command %s requires a device id", command.Kind)
	}

	assignment, err := p.registry.GetAssignmentByDeviceID(command.TenantID, command.DeviceID)
	if err != nil {
		return fmt.Errorf("failed to resolve device for system command: %w", err)
	}

	nesting, err := p.registry.GetNestingContext(command.TenantID, assignment)
	if err != nil {
		return fmt.Errorf("failed to resolve nesting context: %w", err)
	}

	return p.routing.RouteSystemCommand(ctx, p.router, command, nesting, []models.DeviceAssignment{*assignment})
}
