package destination

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"wisefido-command/internal/models"
	"wisefido-command/internal/script"
)

// Encoder 命令编码器：将命令执行/系统命令序列化为目的地特定的载荷类型 T
type Encoder[T any] interface {
	EncodeCommand(ctx context.Context, execution *models.DeviceCommandExecution, nesting *models.DeviceNestingContext, assignments []models.DeviceAssignment) (T, error)
	EncodeSystemCommand(ctx context.Context, command *models.SystemCommand, nesting *models.DeviceNestingContext, assignments []models.DeviceAssignment) (T, error)
}

// commandEnvelope JSON 编码的命令信封（设备侧解析）
type commandEnvelope struct {
	Type        string                 `json:"type"` // "command" | "system"
	ExecutionID string                 `json:"execution_id,omitempty"`
	Invocation  string                 `json:"invocation_id,omitempty"`
	Command     string                 `json:"command,omitempty"`
	SystemKind  string                 `json:"system_kind,omitempty"`
	Parameters  map[string]interface{} `json:"parameters,omitempty"`
	Targets     []string               `json:"targets,omitempty"`
	IssuedAt    time.Time              `json:"issued_at"`
}

// JSONEncoder JSON 命令编码器（输出 []byte）
type JSONEncoder struct{}

// NewJSONEncoder 创建 JSON 编码器
func NewJSONEncoder() *JSONEncoder {
	return &JSONEncoder{}
}

// EncodeCommand 编码命令执行
func (e *JSONEncoder) EncodeCommand(ctx context.Context, execution *models.DeviceCommandExecution, nesting *models.DeviceNestingContext, assignments []models.DeviceAssignment) ([]byte, error) {
	envelope := commandEnvelope{
		Type:        "command",
		ExecutionID: execution.ExecutionID,
		Invocation:  execution.Invocation.InvocationID,
		Command:     execution.Command.QualifiedName(),
		Parameters:  execution.Parameters,
		Targets:     deviceTokens(assignments),
		IssuedAt:    execution.CreatedAt,
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("failed to encode command execution: %w", err)
	}
	return data, nil
}

// EncodeSystemCommand 编码系统命令
func (e *JSONEncoder) EncodeSystemCommand(ctx context.Context, command *models.SystemCommand, nesting *models.DeviceNestingContext, assignments []models.DeviceAssignment) ([]byte, error) {
	envelope := commandEnvelope{
		Type:       "system",
		SystemKind: string(command.Kind),
		Parameters: command.Payload,
		Targets:    deviceTokens(assignments),
		IssuedAt:   command.CreatedAt,
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("failed to encode system command: %w", err)
	}
	return data, nil
}

// TextEncoder 文本命令编码器（输出 string，用于 SMS 等文本通道）
// 格式: name(p1=v1,p2=v2)，参数按名称排序保证稳定输出
type TextEncoder struct{}

// NewTextEncoder 创建文本编码器
func NewTextEncoder() *TextEncoder {
	return &TextEncoder{}
}

// EncodeCommand 编码命令执行
func (e *TextEncoder) EncodeCommand(ctx context.Context, execution *models.DeviceCommandExecution, nesting *models.DeviceNestingContext, assignments []models.DeviceAssignment) (string, error) {
	return formatTextCommand(execution.Command.QualifiedName(), execution.Parameters), nil
}

// EncodeSystemCommand 编码系统命令
func (e *TextEncoder) EncodeSystemCommand(ctx context.Context, command *models.SystemCommand, nesting *models.DeviceNestingContext, assignments []models.DeviceAssignment) (string, error) {
	return formatTextCommand("system:"+string(command.Kind), command.Payload), nil
}

// formatTextCommand 格式化文本命令
func formatTextCommand(name string, parameters map[string]interface{}) string {
	if len(parameters) == 0 {
		return name + "()"
	}

	keys := make([]string, 0, len(parameters))
	for k := range parameters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, parameters[k]))
	}
	return fmt.Sprintf("%s(%s)", name, strings.Join(parts, ","))
}

// ScriptedEncoder 脚本驱动的命令编码器（输出 []byte）
// 脚本通过命名绑定接收执行/系统命令、嵌套上下文与分配，返回字符串或字节载荷
type ScriptedEncoder struct {
	engine    script.Engine
	scriptRef string
}

// NewScriptedEncoder 创建脚本编码器
func NewScriptedEncoder(engine script.Engine, scriptRef string) *ScriptedEncoder {
	return &ScriptedEncoder{
		engine:    engine,
		scriptRef: scriptRef,
	}
}

// EncodeCommand 编码命令执行
func (e *ScriptedEncoder) EncodeCommand(ctx context.Context, execution *models.DeviceCommandExecution, nesting *models.DeviceNestingContext, assignments []models.DeviceAssignment) ([]byte, error) {
	bindings := script.Bindings{
		"execution":   execution,
		"nesting":     nesting,
		"assignments": assignments,
	}
	return e.evaluate(ctx, bindings)
}

// EncodeSystemCommand 编码系统命令
func (e *ScriptedEncoder) EncodeSystemCommand(ctx context.Context, command *models.SystemCommand, nesting *models.DeviceNestingContext, assignments []models.DeviceAssignment) ([]byte, error) {
	bindings := script.Bindings{
		"command":     command,
		"nesting":     nesting,
		"assignments": assignments,
	}
	return e.evaluate(ctx, bindings)
}

// evaluate 执行脚本并把结果规整为字节载荷
func (e *ScriptedEncoder) evaluate(ctx context.Context, bindings script.Bindings) ([]byte, error) {
	result, err := e.engine.Evaluate(ctx, e.scriptRef, bindings)
	if err != nil {
		return nil, fmt.Errorf("failed to run encoder script %s: %w", e.scriptRef, err)
	}

	switch v := result.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("encoder script %s returned unsupported type %T", e.scriptRef, result)
	}
}

// deviceTokens 提取设备令牌列表
func deviceTokens(assignments []models.DeviceAssignment) []string {
	tokens := make([]string, 0, len(assignments))
	for _, a := range assignments {
		tokens = append(tokens, a.DeviceToken)
	}
	return tokens
}
