package service

import (
	"context"
	"time"

	"wisefido-command/internal/lifecycle"
	"wisefido-command/internal/models"
	"wisefido-command/internal/redisbus"
	"wisefido-command/internal/router"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UndeliveredSink 未送达命令发布接口
type UndeliveredSink interface {
	PublishUndelivered(ctx context.Context, record *models.UndeliveredCommandRecord) error
}

// RedisUndeliveredSink 未送达命令的 Redis Streams 发布器（按 device_id 作为路由键）
type RedisUndeliveredSink struct {
	client *redis.Client
	stream string
	logger *zap.Logger
}

// NewRedisUndeliveredSink 创建未送达命令发布器
func NewRedisUndeliveredSink(client *redis.Client, stream string, logger *zap.Logger) *RedisUndeliveredSink {
	return &RedisUndeliveredSink{
		client: client,
		stream: stream,
		logger: logger,
	}
}

// PublishUndelivered 发布未送达命令记录
func (s *RedisUndeliveredSink) PublishUndelivered(ctx context.Context, record *models.UndeliveredCommandRecord) error {
	id, err := redisbus.PublishJSONToStream(ctx, s.client, s.stream, record, map[string]interface{}{
		"device_id": record.Context.DeviceID,
		"tenant_id": record.Context.TenantID,
	})
	if err != nil {
		return err
	}

	s.logger.Info("Published undelivered command record",
		zap.String("stream", s.stream),
		zap.String("message_id", id),
		zap.String("record_id", record.RecordID),
		zap.String("device_id", record.Context.DeviceID),
		zap.String("invocation_id", record.Invocation.InvocationID),
	)
	return nil
}

// RoutingLogic 命令路由编排核心
// 对路由器选出的每个目的地独立尝试投递（顺序、故障开放扇出），
// 任一目的地未成功时，针对原始调用恰好发布一条未送达记录
type RoutingLogic struct {
	logger *zap.Logger
}

// NewRoutingLogic 创建路由编排逻辑
func NewRoutingLogic(logger *zap.Logger) *RoutingLogic {
	return &RoutingLogic{logger: logger}
}

// RouteCommand 投递命令执行到全部路由目的地并聚合结果
func (l *RoutingLogic) RouteCommand(
	ctx context.Context,
	rt router.Router,
	sink UndeliveredSink,
	eventCtx models.EventContext,
	execution *models.DeviceCommandExecution,
	nesting *models.DeviceNestingContext,
	assignments []models.DeviceAssignment,
) error {
	destinations, err := rt.GetDestinationsForCommand(ctx, execution, nesting, assignments)
	if err != nil {
		// 路由选择失败：命令未送达任何目的地
		l.logger.Error("Command routing failed",
			zap.String("invocation_id", execution.Invocation.InvocationID),
			zap.Error(err),
		)
		if publishErr := l.publishUndelivered(ctx, sink, eventCtx, execution.Invocation); publishErr != nil {
			return publishErr
		}
		return err
	}

	fullyDelivered := true
	for _, dest := range destinations {
		// 只有已启动的目的地才尝试投递
		if dest.State() != lifecycle.StateStarted {
			l.logger.Warn("Skipping delivery to destination that is not started",
				zap.String("destination_id", dest.ID()),
				zap.String("state", string(dest.State())),
				zap.String("invocation_id", execution.Invocation.InvocationID),
			)
			fullyDelivered = false
			continue
		}

		if err := dest.DeliverCommand(ctx, execution, nesting, assignments); err != nil {
			// 单个目的地失败不阻止其余目的地的尝试
			l.logger.Error("Failed to deliver command to destination",
				zap.String("destination_id", dest.ID()),
				zap.String("invocation_id", execution.Invocation.InvocationID),
				zap.Error(err),
			)
			fullyDelivered = false
		}
	}

	if !fullyDelivered {
		return l.publishUndelivered(ctx, sink, eventCtx, execution.Invocation)
	}
	return nil
}

// RouteSystemCommand 投递系统命令到全部路由目的地
// TODO: 系统命令目前没有未送达回退，是否补齐需产品确认（系统命令可能自带幂等重发语义）
func (l *RoutingLogic) RouteSystemCommand(
	ctx context.Context,
	rt router.Router,
	command *models.SystemCommand,
	nesting *models.DeviceNestingContext,
	assignments []models.DeviceAssignment,
) error {
	destinations, err := rt.GetDestinationsForSystemCommand(ctx, command, nesting, assignments)
	if err != nil {
		l.logger.Error("System command routing failed",
			zap.String("system_kind", string(command.Kind)),
			zap.Error(err),
		)
		return err
	}

	for _, dest := range destinations {
		if dest.State() != lifecycle.StateStarted {
			l.logger.Warn("Skipping system command delivery to destination that is not started",
				zap.String("destination_id", dest.ID()),
				zap.String("state", string(dest.State())),
			)
			continue
		}

		if err := dest.DeliverSystemCommand(ctx, command, nesting, assignments); err != nil {
			l.logger.Error("Failed to deliver system command to destination",
				zap.String("destination_id", dest.ID()),
				zap.String("system_kind", string(command.Kind)),
				zap.Error(err),
			)
		}
	}

	return nil
}

// publishUndelivered 针对原始调用发布一条未送达记录
func (l *RoutingLogic) publishUndelivered(ctx context.Context, sink UndeliveredSink, eventCtx models.EventContext, invocation *models.DeviceCommandInvocation) error {
	record := &models.UndeliveredCommandRecord{
		RecordID:   uuid.NewString(),
		Context:    eventCtx,
		Invocation: invocation,
		CreatedAt:  time.Now().UTC(),
	}

	if err := sink.PublishUndelivered(ctx, record); err != nil {
		l.logger.Error("Failed to publish undelivered command record",
			zap.String("invocation_id", invocation.InvocationID),
			zap.Error(err),
		)
		return err
	}
	return nil
}
