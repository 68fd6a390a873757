package models

import "time"

// DeviceCommandExecution 已校验、参数已绑定的命令执行实例
// 始终携带唯一的来源调用引用（用于响应关联），创建后不再修改
type DeviceCommandExecution struct {
	ExecutionID string                 `json:"execution_id"`
	Invocation  *DeviceCommandInvocation `json:"invocation"`
	Command     *DeviceCommand         `json:"command"`
	Parameters  map[string]interface{} `json:"parameters"`
	CreatedAt   time.Time              `json:"created_at"`
}

// SystemCommandKind 系统命令类型
type SystemCommandKind string

const (
	SystemCommandRegistrationAck SystemCommandKind = "registration-ack"
	SystemCommandDeviceMapping   SystemCommandKind = "device-mapping-ack"
	SystemCommandPing            SystemCommandKind = "ping"
)

// SystemCommand 平台内部命令（不经过用户命令定义，跳过执行构建器）
type SystemCommand struct {
	Kind      SystemCommandKind      `json:"kind"`
	TenantID  string                 `json:"tenant_id"`
	DeviceID  string                 `json:"device_id,omitempty"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}
