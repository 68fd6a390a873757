package models

import (
	"encoding/json"
	"time"
)

// EventContext 事件上下文（事件总线消息的路由与溯源信息）
type EventContext struct {
	EventID    string    `json:"event_id"`
	TenantID   string    `json:"tenant_id"`
	DeviceID   string    `json:"device_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EnrichedCommandInvocation 入站流消息载荷（调用 + 事件上下文）
type EnrichedCommandInvocation struct {
	Context    EventContext             `json:"context"`
	Invocation *DeviceCommandInvocation `json:"invocation"`
}

// UndeliveredCommandRecord 未送达命令记录（路由逻辑在部分/全部失败时产生，每次调用最多一条）
type UndeliveredCommandRecord struct {
	RecordID   string                   `json:"record_id"`
	Context    EventContext             `json:"context"`
	Invocation *DeviceCommandInvocation `json:"invocation"`
	CreatedAt  time.Time                `json:"created_at"`
}

// ParseEnrichedInvocation 从 Redis Streams 消息解析入站命令调用
func ParseEnrichedInvocation(values map[string]interface{}) (*EnrichedCommandInvocation, error) {
	// 从 Values 中提取 data 字段（JSON 字符串）
	dataStr, ok := values["data"].(string)
	if !ok {
		return nil, ErrInvalidDataFormat
	}

	var enriched EnrichedCommandInvocation
	if err := json.Unmarshal([]byte(dataStr), &enriched); err != nil {
		return nil, err
	}
	if enriched.Invocation == nil {
		return nil, &DataFormatError{Message: "enriched payload missing invocation"}
	}

	return &enriched, nil
}

// ErrInvalidDataFormat 数据格式错误
var ErrInvalidDataFormat = &DataFormatError{Message: "invalid data format"}

// DataFormatError 数据格式错误类型
type DataFormatError struct {
	Message string
}

func (e *DataFormatError) Error() string {
	return e.Message
}
