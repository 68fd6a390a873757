package service

import (
	"fmt"

	"wisefido-command/internal/models"

	"go.uber.org/zap"
)

// DeviceRegistry 设备注册中心读取接口（由 repository.DeviceRepository 实现）
type DeviceRegistry interface {
	GetAssignmentByToken(tenantID, assignmentToken string) (*models.DeviceAssignment, error)
	GetAssignmentsByRoom(tenantID, roomID string) ([]models.DeviceAssignment, error)
	GetAssignmentsByDeviceType(tenantID, deviceType, unitID string) ([]models.DeviceAssignment, error)
	GetAssignmentByDeviceID(tenantID, deviceID string) (*models.DeviceAssignment, error)
	GetNestingContext(tenantID string, assignment *models.DeviceAssignment) (*models.DeviceNestingContext, error)
}

// TargetResolver 命令目标解析器：把调用的寻址描述映射为具体设备分配集合
// 只读访问注册中心，无副作用；零匹配是合法结果，不算错误
type TargetResolver struct {
	registry DeviceRegistry
	logger   *zap.Logger
}

// NewTargetResolver 创建目标解析器
func NewTargetResolver(registry DeviceRegistry, logger *zap.Logger) *TargetResolver {
	return &TargetResolver{
		registry: registry,
		logger:   logger,
	}
}

// ResolveTargets 解析命令调用的目标设备分配
func (r *TargetResolver) ResolveTargets(invocation *models.DeviceCommandInvocation) ([]models.DeviceAssignment, error) {
	target := invocation.Target

	switch target.Type {
	case models.TargetAssignment:
		if target.AssignmentToken == "" {
			return nil, fmt.Errorf("assignment target requires an assignment token")
		}
		assignment, err := r.registry.GetAssignmentByToken(invocation.TenantID, target.AssignmentToken)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve assignment target: %w", err)
		}
		return []models.DeviceAssignment{*assignment}, nil

	case models.TargetRoom:
		if target.RoomID == "" {
			return nil, fmt.Errorf("room target requires a room id")
		}
		assignments, err := r.registry.GetAssignmentsByRoom(invocation.TenantID, target.RoomID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve room target: %w", err)
		}
		return assignments, nil

	case models.TargetDeviceTypeCriteria:
		if target.DeviceType == "" || target.UnitID == "" {
			return nil, fmt.Errorf("device-type target requires device type and unit id")
		}
		assignments, err := r.registry.GetAssignmentsByDeviceType(invocation.TenantID, target.DeviceType, target.UnitID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve device-type target: %w", err)
		}
		return assignments, nil

	default:
		// 不支持的寻址方式属于配置错误
		return nil, fmt.Errorf("unsupported addressing mode: %s", target.Type)
	}
}
