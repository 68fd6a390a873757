package service

import (
	"fmt"
	"strconv"
	"time"

	"wisefido-command/internal/models"

	"github.com/google/uuid"
)

// ValidationError 参数校验错误（标明出错的参数名）
type ValidationError struct {
	Parameter string
	Reason    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid command parameter %s: %s", e.Parameter, e.Reason)
}

// BuildExecution 绑定调用的原始参数值到命令定义的参数模式，产出类型化的命令执行实例
// 纯函数，无副作用；必填参数缺失或类型不符时返回校验错误
func BuildExecution(command *models.DeviceCommand, invocation *models.DeviceCommandInvocation) (*models.DeviceCommandExecution, error) {
	bound := make(map[string]interface{})

	for _, spec := range command.Parameters {
		raw, supplied := invocation.ParameterValues[spec.Name]
		if !supplied {
			if spec.Required {
				return nil, &ValidationError{Parameter: spec.Name, Reason: "required parameter not supplied"}
			}
			continue
		}

		value, err := bindParameter(&spec, raw)
		if err != nil {
			return nil, err
		}
		bound[spec.Name] = value
	}

	// 调用提供了命令定义中不存在的参数，视为校验错误
	for name := range invocation.ParameterValues {
		if _, defined := command.FindParameter(name); !defined {
			return nil, &ValidationError{Parameter: name, Reason: "parameter not defined by command"}
		}
	}

	return &models.DeviceCommandExecution{
		ExecutionID: uuid.NewString(),
		Invocation:  invocation,
		Command:     command,
		Parameters:  bound,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// bindParameter 按参数类型转换原始字符串值
func bindParameter(spec *models.ParameterSpec, raw string) (interface{}, error) {
	switch spec.Type {
	case models.ParameterTypeString:
		return raw, nil
	case models.ParameterTypeInt:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, &ValidationError{Parameter: spec.Name, Reason: fmt.Sprintf("expected integer, got %q", raw)}
		}
		return n, nil
	case models.ParameterTypeFloat:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, &ValidationError{Parameter: spec.Name, Reason: fmt.Sprintf("expected float, got %q", raw)}
		}
		return f, nil
	case models.ParameterTypeBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, &ValidationError{Parameter: spec.Name, Reason: fmt.Sprintf("expected bool, got %q", raw)}
		}
		return b, nil
	default:
		return nil, &ValidationError{Parameter: spec.Name, Reason: fmt.Sprintf("unknown parameter type %s", spec.Type)}
	}
}
