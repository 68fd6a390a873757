package service

import (
	"context"
	"fmt"

	"wisefido-command/internal/destination"
	"wisefido-command/internal/lifecycle"
	"wisefido-command/internal/models"

	"go.uber.org/zap"
)

// DestinationsManager 租户级命令目的地注册表
// 目的地映射在启动时构建完成，运行期只读（并发读取安全）
// 实现 router.DestinationResolver，供路由策略按ID解析存活目的地
type DestinationsManager struct {
	lifecycle.Machine

	tenantID     string
	destinations map[string]destination.CommandDestination
	order        []string
	processor    *CommandProcessor
	logger       *zap.Logger
}

// NewDestinationsManager 创建目的地管理器
func NewDestinationsManager(tenantID string, logger *zap.Logger) *DestinationsManager {
	return &DestinationsManager{
		tenantID:     tenantID,
		destinations: make(map[string]destination.CommandDestination),
		logger:       logger,
	}
}

// Register 注册目的地；目的地ID在租户内必须唯一
func (m *DestinationsManager) Register(dest destination.CommandDestination) error {
	if _, exists := m.destinations[dest.ID()]; exists {
		return fmt.Errorf("duplicate destination id: %s", dest.ID())
	}
	m.destinations[dest.ID()] = dest
	m.order = append(m.order, dest.ID())
	return nil
}

// SetProcessor 绑定命令处理策略（入站消息的委托对象）
func (m *DestinationsManager) SetProcessor(processor *CommandProcessor) {
	m.processor = processor
}

// GetDestination 按ID解析目的地
func (m *DestinationsManager) GetDestination(id string) (destination.CommandDestination, bool) {
	dest, ok := m.destinations[id]
	return dest, ok
}

// ListDestinations 按注册顺序列出全部目的地
func (m *DestinationsManager) ListDestinations() []destination.CommandDestination {
	list := make([]destination.CommandDestination, 0, len(m.order))
	for _, id := range m.order {
		list = append(list, m.destinations[id])
	}
	return list
}

// Initialize 初始化全部目的地
func (m *DestinationsManager) Initialize(ctx context.Context) error {
	return m.RunInitialize(ctx, func(ctx context.Context) error {
		for _, dest := range m.ListDestinations() {
			if err := dest.Initialize(ctx); err != nil {
				return fmt.Errorf("failed to initialize destination %s: %w", dest.ID(), err)
			}
		}
		return nil
	})
}

// Start 启动全部目的地；任一目的地启动失败都是致命的配置错误
func (m *DestinationsManager) Start(ctx context.Context) error {
	return m.RunStart(ctx, func(ctx context.Context) error {
		for _, dest := range m.ListDestinations() {
			if err := dest.Start(ctx); err != nil {
				return fmt.Errorf("failed to start destination %s: %w", dest.ID(), err)
			}
		}
		m.logger.Info("Command destinations manager started",
			zap.String("tenant_id", m.tenantID),
			zap.Int("destination_count", len(m.destinations)),
		)
		return nil
	})
}

// Stop 停止全部目的地（尽力而为，记录但不中断）
func (m *DestinationsManager) Stop(ctx context.Context) error {
	return m.RunStop(ctx, func(ctx context.Context) error {
		for _, dest := range m.ListDestinations() {
			if err := dest.Stop(ctx); err != nil {
				m.logger.Error("Failed to stop destination",
					zap.String("destination_id", dest.ID()),
					zap.Error(err),
				)
			}
		}
		return nil
	})
}

// ProcessCommandInvocation 入站命令调用事件的处理入口（每条调用消息调用一次）
// 反序列化富化载荷后委托给命令处理策略
func (m *DestinationsManager) ProcessCommandInvocation(ctx context.Context, values map[string]interface{}) error {
	if m.processor == nil {
		return fmt.Errorf("destinations manager has no command processor bound")
	}

	enriched, err := models.ParseEnrichedInvocation(values)
	if err != nil {
		return fmt.Errorf("failed to parse enriched invocation: %w", err)
	}

	return m.processor.ProcessCommandInvocation(ctx, enriched)
}
