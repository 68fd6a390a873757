package destination

import (
	"context"
	"fmt"

	"wisefido-command/internal/lifecycle"
	"wisefido-command/internal/models"

	"go.uber.org/zap"
)

// CommandDestination 命令目的地的非泛型视图（路由器与管理器持有）
// 泛型绑定在 Destination[T,P] 构造期完成，编码器输出类型与提供者输入类型由编译器对齐
type CommandDestination interface {
	lifecycle.Component
	ID() string
	DeliverCommand(ctx context.Context, execution *models.DeviceCommandExecution, nesting *models.DeviceNestingContext, assignments []models.DeviceAssignment) error
	DeliverSystemCommand(ctx context.Context, command *models.SystemCommand, nesting *models.DeviceNestingContext, assignments []models.DeviceAssignment) error
}

// Destination 命令目的地：绑定一个编码器、一个参数提取器、一个投递提供者和唯一目的地ID
type Destination[T any, P any] struct {
	lifecycle.Machine

	id        string
	encoder   Encoder[T]
	extractor ParameterExtractor[P]
	provider  DeliveryProvider[T, P]
	logger    *zap.Logger
}

// New 创建命令目的地；任一组件缺失时立即失败
func New[T any, P any](id string, encoder Encoder[T], extractor ParameterExtractor[P], provider DeliveryProvider[T, P], logger *zap.Logger) (*Destination[T, P], error) {
	if id == "" {
		return nil, fmt.Errorf("destination id is required")
	}
	if encoder == nil {
		return nil, fmt.Errorf("destination %s: encoder is required", id)
	}
	if extractor == nil {
		return nil, fmt.Errorf("destination %s: parameter extractor is required", id)
	}
	if provider == nil {
		return nil, fmt.Errorf("destination %s: delivery provider is required", id)
	}

	return &Destination[T, P]{
		id:        id,
		encoder:   encoder,
		extractor: extractor,
		provider:  provider,
		logger:    logger.With(zap.String("destination_id", id)),
	}, nil
}

// ID 返回目的地ID
func (d *Destination[T, P]) ID() string {
	return d.id
}

// Initialize 初始化目的地
func (d *Destination[T, P]) Initialize(ctx context.Context) error {
	return d.RunInitialize(ctx, nil)
}

// Start 启动目的地（提供者实现了生命周期钩子时一并启动）
func (d *Destination[T, P]) Start(ctx context.Context) error {
	return d.RunStart(ctx, func(ctx context.Context) error {
		if pl, ok := any(d.provider).(ProviderLifecycle); ok {
			if err := pl.Start(ctx); err != nil {
				return fmt.Errorf("failed to start provider for destination %s: %w", d.id, err)
			}
		}
		d.logger.Info("Command destination started")
		return nil
	})
}

// Stop 停止目的地
func (d *Destination[T, P]) Stop(ctx context.Context) error {
	return d.RunStop(ctx, func(ctx context.Context) error {
		if pl, ok := any(d.provider).(ProviderLifecycle); ok {
			if err := pl.Stop(ctx); err != nil {
				return fmt.Errorf("failed to stop provider for destination %s: %w", d.id, err)
			}
		}
		d.logger.Info("Command destination stopped")
		return nil
	})
}

// DeliverCommand 投递命令执行：编码 → 提取参数 → 传输发送
// 各阶段失败产生可区分的归因错误
func (d *Destination[T, P]) DeliverCommand(ctx context.Context, execution *models.DeviceCommandExecution, nesting *models.DeviceNestingContext, assignments []models.DeviceAssignment) error {
	encoded, err := d.encoder.EncodeCommand(ctx, execution, nesting, assignments)
	if err != nil {
		return &DeliveryError{DestinationID: d.id, Stage: StageEncode, Err: err}
	}

	params, err := d.extractor.Extract(ctx, nesting, assignments)
	if err != nil {
		return &DeliveryError{DestinationID: d.id, Stage: StageExtract, Err: err}
	}

	if err := d.provider.Deliver(ctx, nesting, assignments, encoded, params); err != nil {
		return &DeliveryError{DestinationID: d.id, Stage: StageDeliver, Err: err}
	}

	d.logger.Debug("Delivered command execution",
		zap.String("execution_id", execution.ExecutionID),
		zap.Int("assignment_count", len(assignments)),
	)
	return nil
}

// DeliverSystemCommand 投递系统命令（与命令执行相同的编码/提取/发送流程）
func (d *Destination[T, P]) DeliverSystemCommand(ctx context.Context, command *models.SystemCommand, nesting *models.DeviceNestingContext, assignments []models.DeviceAssignment) error {
	encoded, err := d.encoder.EncodeSystemCommand(ctx, command, nesting, assignments)
	if err != nil {
		return &DeliveryError{DestinationID: d.id, Stage: StageEncode, Err: err}
	}

	params, err := d.extractor.Extract(ctx, nesting, assignments)
	if err != nil {
		return &DeliveryError{DestinationID: d.id, Stage: StageExtract, Err: err}
	}

	if err := d.provider.DeliverSystemCommand(ctx, nesting, assignments, encoded, params); err != nil {
		return &DeliveryError{DestinationID: d.id, Stage: StageDeliver, Err: err}
	}

	d.logger.Debug("Delivered system command",
		zap.String("system_kind", string(command.Kind)),
		zap.Int("assignment_count", len(assignments)),
	)
	return nil
}
