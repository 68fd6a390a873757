package router

import (
	"context"

	"wisefido-command/internal/destination"
	"wisefido-command/internal/lifecycle"
	"wisefido-command/internal/models"

	"go.uber.org/zap"
)

// DeviceTypeMappingRouter 设备类型映射路由策略
// 按嵌套网关的设备类型查映射表选目的地；无匹配时回退到默认目的地
// 映射到的ID没有对应存活目的地时只记日志并从结果中省略，不算失败
type DeviceTypeMappingRouter struct {
	lifecycle.Machine

	resolver  DestinationResolver
	mappings  map[string]string // device_type -> destination_id
	defaultID string
	logger    *zap.Logger
}

// NewDeviceTypeMappingRouter 创建设备类型映射路由器
func NewDeviceTypeMappingRouter(resolver DestinationResolver, mappings map[string]string, defaultID string, logger *zap.Logger) *DeviceTypeMappingRouter {
	if mappings == nil {
		mappings = make(map[string]string)
	}
	return &DeviceTypeMappingRouter{
		resolver:  resolver,
		mappings:  mappings,
		defaultID: defaultID,
		logger:    logger,
	}
}

// Initialize 初始化路由器
func (r *DeviceTypeMappingRouter) Initialize(ctx context.Context) error {
	return r.RunInitialize(ctx, nil)
}

// Start 启动路由器
func (r *DeviceTypeMappingRouter) Start(ctx context.Context) error {
	return r.RunStart(ctx, func(ctx context.Context) error {
		r.logger.Info("Device-type mapping router started",
			zap.Int("mapping_count", len(r.mappings)),
			zap.String("default_destination_id", r.defaultID),
		)
		return nil
	})
}

// Stop 停止路由器
func (r *DeviceTypeMappingRouter) Stop(ctx context.Context) error {
	return r.RunStop(ctx, nil)
}

// GetDestinationsForCommand 按网关设备类型选择目的地
func (r *DeviceTypeMappingRouter) GetDestinationsForCommand(ctx context.Context, execution *models.DeviceCommandExecution, nesting *models.DeviceNestingContext, assignments []models.DeviceAssignment) ([]destination.CommandDestination, error) {
	return r.route(nesting), nil
}

// GetDestinationsForSystemCommand 按网关设备类型选择目的地
func (r *DeviceTypeMappingRouter) GetDestinationsForSystemCommand(ctx context.Context, command *models.SystemCommand, nesting *models.DeviceNestingContext, assignments []models.DeviceAssignment) ([]destination.CommandDestination, error) {
	return r.route(nesting), nil
}

// route 映射查找 + 默认回退
func (r *DeviceTypeMappingRouter) route(nesting *models.DeviceNestingContext) []destination.CommandDestination {
	deviceType := ""
	if nesting != nil {
		deviceType = nesting.GatewayDeviceType
	}

	destinationID, ok := r.mappings[deviceType]
	if !ok {
		if r.defaultID == "" {
			r.logger.Warn("No destination mapping for device type and no default configured",
				zap.String("device_type", deviceType),
			)
			return nil
		}
		destinationID = r.defaultID
	}

	dest, live := r.resolver.GetDestination(destinationID)
	if !live {
		r.logger.Warn("Mapped destination is not registered, omitting from route",
			zap.String("device_type", deviceType),
			zap.String("destination_id", destinationID),
		)
		return nil
	}

	return []destination.CommandDestination{dest}
}
