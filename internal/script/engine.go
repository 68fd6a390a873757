package script

import (
	"context"
	"fmt"
)

// Bindings 脚本输入变量绑定（按名称注入执行、嵌套上下文、分配、日志器等）
type Bindings map[string]interface{}

// Engine 嵌入式脚本引擎契约
// 引擎本身由平台提供，本服务只依赖其输入/输出约定：
// 给定脚本引用与命名变量绑定，返回引擎定义的结果对象
type Engine interface {
	Evaluate(ctx context.Context, scriptRef string, bindings Bindings) (interface{}, error)
}

// EngineFunc 函数式 Engine 适配器
type EngineFunc func(ctx context.Context, scriptRef string, bindings Bindings) (interface{}, error)

// Evaluate 实现 Engine 接口
func (f EngineFunc) Evaluate(ctx context.Context, scriptRef string, bindings Bindings) (interface{}, error) {
	return f(ctx, scriptRef, bindings)
}

// FaultPhase 脚本故障阶段
type FaultPhase string

const (
	PhaseCompile FaultPhase = "compile"
	PhaseRuntime FaultPhase = "runtime"
)

// Error 脚本引擎错误（编译/运行时故障均以此类型向上传播，不被静默吞掉）
type Error struct {
	ScriptRef string
	Phase     FaultPhase
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("script %s %s error: %v", e.ScriptRef, e.Phase, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewCompileError 包装编译错误
func NewCompileError(scriptRef string, err error) *Error {
	return &Error{ScriptRef: scriptRef, Phase: PhaseCompile, Err: err}
}

// NewRuntimeError 包装运行时错误
func NewRuntimeError(scriptRef string, err error) *Error {
	return &Error{ScriptRef: scriptRef, Phase: PhaseRuntime, Err: err}
}
