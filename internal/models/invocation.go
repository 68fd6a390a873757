package models

import "time"

// CommandInitiator 命令发起方
type CommandInitiator string

const (
	InitiatorUser      CommandInitiator = "user"
	InitiatorScheduler CommandInitiator = "scheduler"
	InitiatorScript    CommandInitiator = "script"
)

// CommandTargetType 命令寻址方式
type CommandTargetType string

const (
	// TargetAssignment 单个设备分配
	TargetAssignment CommandTargetType = "assignment"
	// TargetRoom 房间内全部设备（分组寻址）
	TargetRoom CommandTargetType = "room"
	// TargetDeviceTypeCriteria 按设备类型 + 单元筛选
	TargetDeviceTypeCriteria CommandTargetType = "device-type-criteria"
)

// CommandTarget 命令目标描述
type CommandTarget struct {
	Type            CommandTargetType `json:"type"`
	AssignmentToken string            `json:"assignment_token,omitempty"`
	RoomID          string            `json:"room_id,omitempty"`
	DeviceType      string            `json:"device_type,omitempty"`
	UnitID          string            `json:"unit_id,omitempty"`
}

// DeviceCommandInvocation 设备命令调用请求（上游 API/调度器产生，本服务消费一次）
type DeviceCommandInvocation struct {
	InvocationID    string            `json:"invocation_id"`
	TenantID        string            `json:"tenant_id"`
	CommandToken    string            `json:"command_token"`
	Target          CommandTarget     `json:"target"`
	ParameterValues map[string]string `json:"parameter_values,omitempty"`
	Initiator       CommandInitiator  `json:"initiator"`
	InitiatorID     string            `json:"initiator_id,omitempty"`
	EventDate       time.Time         `json:"event_date"`
}
