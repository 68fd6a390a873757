package models

import "fmt"

// ParameterType 命令参数类型
type ParameterType string

const (
	ParameterTypeString ParameterType = "string"
	ParameterTypeInt    ParameterType = "int"
	ParameterTypeFloat  ParameterType = "float"
	ParameterTypeBool   ParameterType = "bool"
)

// ParameterSpec 命令参数定义
type ParameterSpec struct {
	Name     string        `json:"name"`
	Type     ParameterType `json:"type"`
	Required bool          `json:"required"`
}

// DeviceCommand 设备命令定义（来自设备类型配置，本服务只读）
type DeviceCommand struct {
	CommandID  string          `json:"command_id"`
	TenantID   string          `json:"tenant_id"`
	Namespace  string          `json:"namespace"`
	Name       string          `json:"name"`
	Parameters []ParameterSpec `json:"parameters"`
}

// QualifiedName 返回带命名空间的完整命令名
func (c *DeviceCommand) QualifiedName() string {
	if c.Namespace == "" {
		return c.Name
	}
	return fmt.Sprintf("%s:%s", c.Namespace, c.Name)
}

// FindParameter 按名称查找参数定义
func (c *DeviceCommand) FindParameter(name string) (*ParameterSpec, bool) {
	for i := range c.Parameters {
		if c.Parameters[i].Name == name {
			return &c.Parameters[i], true
		}
	}
	return nil, false
}
