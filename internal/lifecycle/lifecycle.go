package lifecycle

import (
	"context"
	"fmt"
	"sync"
)

// State 组件生命周期状态
type State string

const (
	StateStopped      State = "stopped"
	StateInitializing State = "initializing"
	StateInitialized  State = "initialized"
	StateStarting     State = "starting"
	StateStarted      State = "started"
	StateStopping     State = "stopping"
	// StateError 终态：初始化/启动/停止过程中出错
	StateError State = "lifecycle-error"
)

// Component 生命周期组件接口
type Component interface {
	State() State
	Initialize(ctx context.Context) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// TransitionError 非法状态转换错误
type TransitionError struct {
	From State
	To   State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid lifecycle transition from %s to %s", e.From, e.To)
}

// Machine 可嵌入的生命周期状态机
// 初始状态为 stopped；初始化/启动/停止回调出错时进入终态 lifecycle-error
type Machine struct {
	mu    sync.RWMutex
	state State
}

// State 返回当前状态
func (m *Machine) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state == "" {
		return StateStopped
	}
	return m.state
}

// IsStarted 组件是否处于已启动状态
func (m *Machine) IsStarted() bool {
	return m.State() == StateStarted
}

// RunInitialize 执行初始化回调：stopped → initializing → initialized
func (m *Machine) RunInitialize(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := m.transition(StateStopped, StateInitializing); err != nil {
		return err
	}
	if fn != nil {
		if err := fn(ctx); err != nil {
			m.fail()
			return err
		}
	}
	return m.transition(StateInitializing, StateInitialized)
}

// RunStart 执行启动回调：initialized → starting → started
func (m *Machine) RunStart(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := m.transition(StateInitialized, StateStarting); err != nil {
		return err
	}
	if fn != nil {
		if err := fn(ctx); err != nil {
			m.fail()
			return err
		}
	}
	return m.transition(StateStarting, StateStarted)
}

// RunStop 执行停止回调：started → stopping → stopped
func (m *Machine) RunStop(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := m.transition(StateStarted, StateStopping); err != nil {
		return err
	}
	if fn != nil {
		if err := fn(ctx); err != nil {
			m.fail()
			return err
		}
	}
	return m.transition(StateStopping, StateStopped)
}

// transition 从 from 状态转换到 to 状态；当前状态不符时返回错误
func (m *Machine) transition(from, to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current := m.state
	if current == "" {
		current = StateStopped
	}
	if current != from {
		return &TransitionError{From: current, To: to}
	}
	m.state = to
	return nil
}

// fail 进入终态
func (m *Machine) fail() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = StateError
}
