package lifecycle

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMachine_FullCycle(t *testing.T) {
	ctx := context.Background()
	var m Machine

	assert.Equal(t, StateStopped, m.State())
	assert.False(t, m.IsStarted())

	require.NoError(t, m.RunInitialize(ctx, nil))
	assert.Equal(t, StateInitialized, m.State())

	require.NoError(t, m.RunStart(ctx, nil))
	assert.Equal(t, StateStarted, m.State())
	assert.True(t, m.IsStarted())

	require.NoError(t, m.RunStop(ctx, nil))
	assert.Equal(t, StateStopped, m.State())
	assert.False(t, m.IsStarted())
}

func TestMachine_StartWithoutInitialize(t *testing.T) {
	ctx := context.Background()
	var m Machine

	err := m.RunStart(ctx, nil)
	assert.Error(t, err)

	var transitionErr *TransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, StateStopped, transitionErr.From)
	assert.Equal(t, StateStarting, transitionErr.To)
}

func TestMachine_StartCallbackFailure(t *testing.T) {
	ctx := context.Background()
	var m Machine

	require.NoError(t, m.RunInitialize(ctx, nil))

	startErr := errors.New("exactly one destination required")
	err := m.RunStart(ctx, func(ctx context.Context) error {
		return startErr
	})

	// 启动失败不被吞掉，组件进入终态
	assert.ErrorIs(t, err, startErr)
	assert.Equal(t, StateError, m.State())
	assert.False(t, m.IsStarted())

	// 终态后不允许再启动
	err = m.RunStart(ctx, nil)
	assert.Error(t, err)
}

func TestMachine_InitializeCallbackFailure(t *testing.T) {
	ctx := context.Background()
	var m Machine

	initErr := errors.New("bad config")
	err := m.RunInitialize(ctx, func(ctx context.Context) error {
		return initErr
	})

	assert.ErrorIs(t, err, initErr)
	assert.Equal(t, StateError, m.State())
}

func TestMachine_StopWhenNotStarted(t *testing.T) {
	ctx := context.Background()
	var m Machine

	err := m.RunStop(ctx, nil)
	assert.Error(t, err)
	assert.Equal(t, StateStopped, m.State())
}

func TestMachine_CallbackRunsDuringTransitionalState(t *testing.T) {
	ctx := context.Background()
	var m Machine

	require.NoError(t, m.RunInitialize(ctx, nil))

	var observed State
	require.NoError(t, m.RunStart(ctx, func(ctx context.Context) error {
		observed = m.State()
		return nil
	}))

	assert.Equal(t, StateStarting, observed)
	assert.Equal(t, StateStarted, m.State())
}
