package consumer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"wisefido-command/internal/redisbus"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// InvocationHandler 命令调用消息处理接口（由 service.DestinationsManager 实现）
type InvocationHandler interface {
	ProcessCommandInvocation(ctx context.Context, values map[string]interface{}) error
}

// StreamConsumer 命令调用流消费者
// 多个工作协程以独立消费者名加入同一消费者组，按至少一次语义消费富化调用事件
type StreamConsumer struct {
	redisClient  *redis.Client
	handler      InvocationHandler
	logger       *zap.Logger
	stream       string
	groupName    string
	consumerName string
	workers      int
	batchSize    int64
}

// NewStreamConsumer 创建流消费者
func NewStreamConsumer(
	redisClient *redis.Client,
	handler InvocationHandler,
	logger *zap.Logger,
	stream string,
	groupName string,
	consumerName string,
	workers int,
	batchSize int64,
) *StreamConsumer {
	return &StreamConsumer{
		redisClient:  redisClient,
		handler:      handler,
		logger:       logger,
		stream:       stream,
		groupName:    groupName,
		consumerName: consumerName,
		workers:      workers,
		batchSize:    batchSize,
	}
}

// Start 启动消费者组工作协程（阻塞直到上下文取消）
func (c *StreamConsumer) Start(ctx context.Context) error {
	// 创建消费者组
	if err := redisbus.CreateConsumerGroup(ctx, c.redisClient, c.stream, c.groupName); err != nil {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	c.logger.Info("Command stream consumer started",
		zap.String("stream", c.stream),
		zap.String("consumer_group", c.groupName),
		zap.Int("workers", c.workers),
	)

	var wg sync.WaitGroup
	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		consumerName := fmt.Sprintf("%s-%d", c.consumerName, i)
		go func() {
			defer wg.Done()
			c.runWorker(ctx, consumerName)
		}()
	}

	wg.Wait()
	c.logger.Info("Command stream consumer stopped")
	return nil
}

// runWorker 单个工作协程的消费循环（带指数退避）
func (c *StreamConsumer) runWorker(ctx context.Context, consumerName string) {
	backoffDuration := time.Second
	maxBackoff := 30 * time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
			if err := c.consumeBatch(ctx, consumerName); err != nil {
				c.logger.Error("Failed to consume command invocations",
					zap.String("consumer", consumerName),
					zap.Error(err),
					zap.Duration("backoff", backoffDuration),
				)

				// 指数退避
				select {
				case <-ctx.Done():
					return
				case <-time.After(backoffDuration):
					backoffDuration *= 2
					if backoffDuration > maxBackoff {
						backoffDuration = maxBackoff
					}
				}
			} else {
				// 成功时重置退避时间
				backoffDuration = time.Second
			}
		}
	}
}

// consumeBatch 读取并处理一批消息
func (c *StreamConsumer) consumeBatch(ctx context.Context, consumerName string) error {
	messages, err := redisbus.ReadFromStream(
		ctx,
		c.redisClient,
		c.stream,
		c.groupName,
		consumerName,
		c.batchSize,
	)
	if err != nil {
		return fmt.Errorf("failed to read from stream: %w", err)
	}

	for _, msg := range messages {
		if err := c.handler.ProcessCommandInvocation(ctx, msg.Values); err != nil {
			// 单条消息失败不中断批次，路由层已保证未送达记录的发布
			c.logger.Error("Failed to process command invocation",
				zap.String("message_id", msg.ID),
				zap.Error(err),
			)
		}

		// 至少一次语义：处理过的消息无论成败都确认，失败由未送达流兜底
		if err := redisbus.AckMessage(ctx, c.redisClient, c.stream, c.groupName, msg.ID); err != nil {
			c.logger.Warn("Failed to ack message",
				zap.String("message_id", msg.ID),
				zap.Error(err),
			)
		}
	}

	return nil
}
