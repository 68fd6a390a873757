package repository

import (
	"database/sql"
	"fmt"

	"wisefido-command/internal/models"

	"go.uber.org/zap"
)

// DeviceRepository 设备注册中心仓库（命令目标解析用，只读）
type DeviceRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDeviceRepository 创建设备仓库
func NewDeviceRepository(db *sql.DB, logger *zap.Logger) *DeviceRepository {
	return &DeviceRepository{
		db:     db,
		logger: logger,
	}
}

const assignmentColumns = `
	d.assignment_token,
	d.device_id,
	d.device_token,
	d.tenant_id,
	ds.device_type,
	d.unit_id,
	d.bound_room_id,
	d.gateway_device_id,
	d.phone_number,
	d.callback_url
`

// GetAssignmentByToken 按分配令牌获取设备分配
func (r *DeviceRepository) GetAssignmentByToken(tenantID, assignmentToken string) (*models.DeviceAssignment, error) {
	query := `
		SELECT ` + assignmentColumns + `
		FROM devices d
		JOIN device_store ds ON d.device_store_id = ds.device_store_id
		WHERE d.assignment_token = $1 AND d.tenant_id = $2
	`

	row := r.db.QueryRow(query, assignmentToken, tenantID)
	assignment, err := scanAssignment(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("assignment not found: %s", assignmentToken)
		}
		return nil, fmt.Errorf("failed to query assignment: %w", err)
	}

	return assignment, nil
}

// GetAssignmentsByRoom 获取房间内全部设备分配（分组寻址）
func (r *DeviceRepository) GetAssignmentsByRoom(tenantID, roomID string) ([]models.DeviceAssignment, error) {
	query := `
		SELECT ` + assignmentColumns + `
		FROM devices d
		JOIN device_store ds ON d.device_store_id = ds.device_store_id
		WHERE d.tenant_id = $1
		  AND d.bound_room_id = $2
		  AND d.monitoring_enabled = TRUE
	`

	rows, err := r.db.Query(query, tenantID, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments by room: %w", err)
	}
	defer rows.Close()

	return scanAssignments(rows)
}

// GetAssignmentsByDeviceType 按设备类型 + 单元筛选设备分配
func (r *DeviceRepository) GetAssignmentsByDeviceType(tenantID, deviceType, unitID string) ([]models.DeviceAssignment, error) {
	query := `
		SELECT ` + assignmentColumns + `
		FROM devices d
		JOIN device_store ds ON d.device_store_id = ds.device_store_id
		WHERE d.tenant_id = $1
		  AND ds.device_type = $2
		  AND d.unit_id = $3
		  AND d.monitoring_enabled = TRUE
	`

	rows, err := r.db.Query(query, tenantID, deviceType, unitID)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments by device type: %w", err)
	}
	defer rows.Close()

	return scanAssignments(rows)
}

// GetAssignmentByDeviceID 按设备ID获取分配（网关查询用）
func (r *DeviceRepository) GetAssignmentByDeviceID(tenantID, deviceID string) (*models.DeviceAssignment, error) {
	query := `
		SELECT ` + assignmentColumns + `
		FROM devices d
		JOIN device_store ds ON d.device_store_id = ds.device_store_id
		WHERE d.device_id = $1 AND d.tenant_id = $2
	`

	row := r.db.QueryRow(query, deviceID, tenantID)
	assignment, err := scanAssignment(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("device not found: %s", deviceID)
		}
		return nil, fmt.Errorf("failed to query device: %w", err)
	}

	return assignment, nil
}

// GetNestingContext 获取设备嵌套上下文（网关/父设备信息）
// 设备直连（无网关）时 Gateway 为 nil，GatewayDeviceType 取设备自身类型
func (r *DeviceRepository) GetNestingContext(tenantID string, assignment *models.DeviceAssignment) (*models.DeviceNestingContext, error) {
	if assignment.GatewayDeviceID == nil || *assignment.GatewayDeviceID == "" {
		return &models.DeviceNestingContext{
			Gateway:           nil,
			GatewayDeviceType: assignment.DeviceType,
		}, nil
	}

	gateway, err := r.GetAssignmentByDeviceID(tenantID, *assignment.GatewayDeviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve gateway for device %s: %w", assignment.DeviceID, err)
	}

	return &models.DeviceNestingContext{
		Gateway:           gateway,
		GatewayDeviceType: gateway.DeviceType,
	}, nil
}

// scanner 兼容 *sql.Row 和 *sql.Rows 的 Scan
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanAssignment 扫描单行设备分配
func scanAssignment(s scanner) (*models.DeviceAssignment, error) {
	var assignment models.DeviceAssignment
	var roomID, gatewayDeviceID, phoneNumber, callbackURL sql.NullString

	if err := s.Scan(
		&assignment.AssignmentToken,
		&assignment.DeviceID,
		&assignment.DeviceToken,
		&assignment.TenantID,
		&assignment.DeviceType,
		&assignment.UnitID,
		&roomID,
		&gatewayDeviceID,
		&phoneNumber,
		&callbackURL,
	); err != nil {
		return nil, err
	}

	if roomID.Valid {
		assignment.RoomID = &roomID.String
	}
	if gatewayDeviceID.Valid {
		assignment.GatewayDeviceID = &gatewayDeviceID.String
	}
	if phoneNumber.Valid {
		assignment.PhoneNumber = &phoneNumber.String
	}
	if callbackURL.Valid {
		assignment.CallbackURL = &callbackURL.String
	}

	return &assignment, nil
}

// scanAssignments 扫描多行设备分配
func scanAssignments(rows *sql.Rows) ([]models.DeviceAssignment, error) {
	var assignments []models.DeviceAssignment
	for rows.Next() {
		assignment, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		assignments = append(assignments, *assignment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate assignments: %w", err)
	}
	return assignments, nil
}
