package service

import (
	"context"
	"database/sql"
	"fmt"

	"wisefido-command/internal/config"
	"wisefido-command/internal/consumer"
	"wisefido-command/internal/database"
	"wisefido-command/internal/redisbus"
	"wisefido-command/internal/repository"
	"wisefido-command/internal/router"
	"wisefido-command/internal/script"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// CommandService 命令分发服务（整合各层）
type CommandService struct {
	config      *config.Config
	db          *sql.DB
	redisClient *redis.Client
	logger      *zap.Logger
	tenantID    string

	// 各层组件
	deviceRepo  *repository.DeviceRepository
	commandRepo *repository.CommandRepository
	manager     *DestinationsManager
	router      router.Router
	processor   *CommandProcessor
	consumer    *consumer.StreamConsumer
}

// NewCommandService 创建命令分发服务
// engine 为可选的脚本引擎；未配置脚本化组件时可传 nil
func NewCommandService(cfg *config.Config, engine script.Engine, logger *zap.Logger, tenantID string) (*CommandService, error) {
	// 1. 连接数据库
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		return nil, err
	}

	// 2. 连接 Redis
	redisClient := redisbus.NewRedisClient(&cfg.Redis)
	ctx := context.Background()
	if err := redisbus.Ping(ctx, redisClient); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	// 3. 创建 Repository 层
	deviceRepo := repository.NewDeviceRepository(db, logger)
	commandRepo := repository.NewCommandRepository(db, logger)

	// 4. 构建目的地并注册到管理器
	destinations, err := BuildDestinations(cfg, engine, logger)
	if err != nil {
		return nil, err
	}

	manager := NewDestinationsManager(tenantID, logger)
	for _, dest := range destinations {
		if err := manager.Register(dest); err != nil {
			return nil, err
		}
	}

	// 5. 创建出站路由器（管理器充当目的地注册表）
	rt, err := router.NewFromConfig(&cfg.Command.Router, manager, engine, logger)
	if err != nil {
		return nil, err
	}

	// 6. 创建路由编排与未送达发布器
	sink := NewRedisUndeliveredSink(redisClient, cfg.Command.Streams.Undelivered, logger)
	routing := NewRoutingLogic(logger)
	resolver := NewTargetResolver(deviceRepo, logger)

	processor := NewCommandProcessor(resolver, commandRepo, deviceRepo, rt, routing, sink, logger)
	manager.SetProcessor(processor)

	// 7. 创建入站调用流消费者
	streamConsumer := consumer.NewStreamConsumer(
		redisClient,
		manager,
		logger,
		cfg.Command.Streams.Invocations,
		cfg.Command.ConsumerGroup,
		cfg.Command.ConsumerName,
		cfg.Command.Workers,
		cfg.Command.BatchSize,
	)

	return &CommandService{
		config:      cfg,
		db:          db,
		redisClient: redisClient,
		logger:      logger,
		tenantID:    tenantID,
		deviceRepo:  deviceRepo,
		commandRepo: commandRepo,
		manager:     manager,
		router:      rt,
		processor:   processor,
		consumer:    streamConsumer,
	}, nil
}

// Processor 返回命令处理器（系统命令等内部路径使用）
func (s *CommandService) Processor() *CommandProcessor {
	return s.processor
}

// Start 启动服务（阻塞直到上下文取消）
func (s *CommandService) Start(ctx context.Context) error {
	// 目的地先于路由器启动，路由器的启动校验依赖存活目的地集合
	if err := s.manager.Initialize(ctx); err != nil {
		return err
	}
	if err := s.manager.Start(ctx); err != nil {
		return err
	}

	if err := s.router.Initialize(ctx); err != nil {
		return err
	}
	if err := s.router.Start(ctx); err != nil {
		return err
	}

	s.logger.Info("Command service started",
		zap.String("tenant_id", s.tenantID),
		zap.String("router_strategy", s.config.Command.Router.Strategy),
		zap.Int("destination_count", len(s.manager.ListDestinations())),
	)

	return s.consumer.Start(ctx)
}

// Stop 停止服务并释放连接
func (s *CommandService) Stop() {
	ctx := context.Background()

	if err := s.router.Stop(ctx); err != nil {
		s.logger.Error("Failed to stop router", zap.Error(err))
	}
	if err := s.manager.Stop(ctx); err != nil {
		s.logger.Error("Failed to stop destinations manager", zap.Error(err))
	}

	if err := redisbus.Close(s.redisClient); err != nil {
		s.logger.Error("Failed to close redis client", zap.Error(err))
	}
	if err := database.Close(s.db); err != nil {
		s.logger.Error("Failed to close database", zap.Error(err))
	}

	s.logger.Info("Command service stopped")
}
