package destination

import (
	"context"
	"fmt"

	"wisefido-command/internal/models"
	"wisefido-command/internal/script"
)

// ParameterExtractor 投递参数提取器：从嵌套/分配上下文推导目的地特定的投递参数 P
// （如电话号码、MQTT 主题名）
type ParameterExtractor[P any] interface {
	Extract(ctx context.Context, nesting *models.DeviceNestingContext, assignments []models.DeviceAssignment) (P, error)
}

// ExtractorFunc 函数式提取器适配器
type ExtractorFunc[P any] func(ctx context.Context, nesting *models.DeviceNestingContext, assignments []models.DeviceAssignment) (P, error)

// Extract 实现 ParameterExtractor 接口
func (f ExtractorFunc[P]) Extract(ctx context.Context, nesting *models.DeviceNestingContext, assignments []models.DeviceAssignment) (P, error) {
	return f(ctx, nesting, assignments)
}

// ScriptedExtractor 脚本驱动的参数提取器
// convert 把脚本引擎的结果对象转换为目的地参数类型 P（由各传输通道提供）
type ScriptedExtractor[P any] struct {
	engine    script.Engine
	scriptRef string
	convert   func(result interface{}) (P, error)
}

// NewScriptedExtractor 创建脚本提取器
func NewScriptedExtractor[P any](engine script.Engine, scriptRef string, convert func(result interface{}) (P, error)) *ScriptedExtractor[P] {
	return &ScriptedExtractor[P]{
		engine:    engine,
		scriptRef: scriptRef,
		convert:   convert,
	}
}

// Extract 执行脚本并转换结果
func (e *ScriptedExtractor[P]) Extract(ctx context.Context, nesting *models.DeviceNestingContext, assignments []models.DeviceAssignment) (P, error) {
	var zero P

	bindings := script.Bindings{
		"nesting":     nesting,
		"assignments": assignments,
	}
	result, err := e.engine.Evaluate(ctx, e.scriptRef, bindings)
	if err != nil {
		return zero, fmt.Errorf("failed to run extractor script %s: %w", e.scriptRef, err)
	}

	params, err := e.convert(result)
	if err != nil {
		return zero, fmt.Errorf("extractor script %s returned invalid parameters: %w", e.scriptRef, err)
	}
	return params, nil
}
