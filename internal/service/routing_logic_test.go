package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"wisefido-command/internal/destination"
	"wisefido-command/internal/lifecycle"
	"wisefido-command/internal/models"
	"wisefido-command/internal/router"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeCommandDestination 测试用目的地（记录投递次数）
type fakeCommandDestination struct {
	lifecycle.Machine
	id            string
	deliverErr    error
	delivered     int
	systemCount   int
	lastExecution *models.DeviceCommandExecution
}

func (d *fakeCommandDestination) ID() string { return d.id }

func (d *fakeCommandDestination) Initialize(ctx context.Context) error {
	return d.RunInitialize(ctx, nil)
}

func (d *fakeCommandDestination) Start(ctx context.Context) error {
	return d.RunStart(ctx, nil)
}

func (d *fakeCommandDestination) Stop(ctx context.Context) error {
	return d.RunStop(ctx, nil)
}

func (d *fakeCommandDestination) DeliverCommand(ctx context.Context, execution *models.DeviceCommandExecution, nesting *models.DeviceNestingContext, assignments []models.DeviceAssignment) error {
	d.delivered++
	d.lastExecution = execution
	return d.deliverErr
}

func (d *fakeCommandDestination) DeliverSystemCommand(ctx context.Context, command *models.SystemCommand, nesting *models.DeviceNestingContext, assignments []models.DeviceAssignment) error {
	d.systemCount++
	return d.deliverErr
}

// startedDestination 创建已启动的测试目的地
func startedDestination(t *testing.T, id string, deliverErr error) *fakeCommandDestination {
	t.Helper()
	d := &fakeCommandDestination{id: id, deliverErr: deliverErr}
	ctx := context.Background()
	require.NoError(t, d.Initialize(ctx))
	require.NoError(t, d.Start(ctx))
	return d
}

// fakeRouter 测试用路由器（返回固定目的地集合）
type fakeRouter struct {
	lifecycle.Machine
	destinations []destination.CommandDestination
	err          error
}

func (r *fakeRouter) Initialize(ctx context.Context) error { return r.RunInitialize(ctx, nil) }
func (r *fakeRouter) Start(ctx context.Context) error      { return r.RunStart(ctx, nil) }
func (r *fakeRouter) Stop(ctx context.Context) error       { return r.RunStop(ctx, nil) }

func (r *fakeRouter) GetDestinationsForCommand(ctx context.Context, execution *models.DeviceCommandExecution, nesting *models.DeviceNestingContext, assignments []models.DeviceAssignment) ([]destination.CommandDestination, error) {
	return r.destinations, r.err
}

func (r *fakeRouter) GetDestinationsForSystemCommand(ctx context.Context, command *models.SystemCommand, nesting *models.DeviceNestingContext, assignments []models.DeviceAssignment) ([]destination.CommandDestination, error) {
	return r.destinations, r.err
}

var _ router.Router = (*fakeRouter)(nil)

// fakeSink 测试用未送达发布器
type fakeSink struct {
	records []*models.UndeliveredCommandRecord
	err     error
}

func (s *fakeSink) PublishUndelivered(ctx context.Context, record *models.UndeliveredCommandRecord) error {
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, record)
	return nil
}

func testEventContext() models.EventContext {
	return models.EventContext{
		EventID:  "evt-1",
		TenantID: "tenant-1",
		DeviceID: "device-1",
	}
}

func testRoutedExecution(t *testing.T) *models.DeviceCommandExecution {
	t.Helper()
	execution, err := BuildExecution(testCommand(), testInvocation(map[string]string{"interval": "30"}))
	require.NoError(t, err)
	return execution
}

func TestRouteCommand_AllDelivered(t *testing.T) {
	d1 := startedDestination(t, "d1", nil)
	d2 := startedDestination(t, "d2", nil)
	rt := &fakeRouter{destinations: []destination.CommandDestination{d1, d2}}
	sink := &fakeSink{}

	logic := NewRoutingLogic(zap.NewNop())
	err := logic.RouteCommand(context.Background(), rt, sink, testEventContext(), testRoutedExecution(t), nil, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, d1.delivered)
	assert.Equal(t, 1, d2.delivered)
	assert.Empty(t, sink.records)
}

func TestRouteCommand_PartialFailureFansOutAndPublishesOnce(t *testing.T) {
	failing := startedDestination(t, "d1", errors.New("broker unavailable"))
	healthy := startedDestination(t, "d2", nil)
	rt := &fakeRouter{destinations: []destination.CommandDestination{failing, healthy}}
	sink := &fakeSink{}

	logic := NewRoutingLogic(zap.NewNop())
	err := logic.RouteCommand(context.Background(), rt, sink, testEventContext(), testRoutedExecution(t), nil, nil)

	// 第一个目的地失败不阻止第二个目的地的投递
	require.NoError(t, err)
	assert.Equal(t, 1, failing.delivered)
	assert.Equal(t, 1, healthy.delivered)
	require.Len(t, sink.records, 1)
	assert.Equal(t, "inv-1", sink.records[0].Invocation.InvocationID)
	assert.Equal(t, "device-1", sink.records[0].Context.DeviceID)
}

func TestRouteCommand_MultipleFailuresSinglePublish(t *testing.T) {
	d1 := startedDestination(t, "d1", errors.New("fail"))
	d2 := startedDestination(t, "d2", errors.New("fail"))
	rt := &fakeRouter{destinations: []destination.CommandDestination{d1, d2}}
	sink := &fakeSink{}

	logic := NewRoutingLogic(zap.NewNop())
	err := logic.RouteCommand(context.Background(), rt, sink, testEventContext(), testRoutedExecution(t), nil, nil)

	require.NoError(t, err)
	assert.Len(t, sink.records, 1)
}

func TestRouteCommand_StoppedDestinationSkipped(t *testing.T) {
	stopped := &fakeCommandDestination{id: "d1"}
	healthy := startedDestination(t, "d2", nil)
	rt := &fakeRouter{destinations: []destination.CommandDestination{stopped, healthy}}
	sink := &fakeSink{}

	logic := NewRoutingLogic(zap.NewNop())
	err := logic.RouteCommand(context.Background(), rt, sink, testEventContext(), testRoutedExecution(t), nil, nil)

	require.NoError(t, err)
	assert.Equal(t, 0, stopped.delivered)
	assert.Equal(t, 1, healthy.delivered)
	assert.Len(t, sink.records, 1)
}

func TestRouteCommand_RouterFailurePublishesUndelivered(t *testing.T) {
	rt := &fakeRouter{err: fmt.Errorf("routing script failed")}
	sink := &fakeSink{}

	logic := NewRoutingLogic(zap.NewNop())
	err := logic.RouteCommand(context.Background(), rt, sink, testEventContext(), testRoutedExecution(t), nil, nil)

	require.Error(t, err)
	assert.Len(t, sink.records, 1)
}

func TestRouteCommand_EmptyRouteDeliversNothing(t *testing.T) {
	rt := &fakeRouter{}
	sink := &fakeSink{}

	logic := NewRoutingLogic(zap.NewNop())
	err := logic.RouteCommand(context.Background(), rt, sink, testEventContext(), testRoutedExecution(t), nil, nil)

	// 路由为空不算失败，也不产生未送达记录
	require.NoError(t, err)
	assert.Empty(t, sink.records)
}

func TestRouteCommand_SinkFailureSurfaced(t *testing.T) {
	failing := startedDestination(t, "d1", errors.New("fail"))
	rt := &fakeRouter{destinations: []destination.CommandDestination{failing}}
	sink := &fakeSink{err: errors.New("redis down")}

	logic := NewRoutingLogic(zap.NewNop())
	err := logic.RouteCommand(context.Background(), rt, sink, testEventContext(), testRoutedExecution(t), nil, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis down")
}

func TestRouteSystemCommand_FailureDoesNotPublish(t *testing.T) {
	failing := startedDestination(t, "d1", errors.New("fail"))
	rt := &fakeRouter{destinations: []destination.CommandDestination{failing}}

	logic := NewRoutingLogic(zap.NewNop())
	command := &models.SystemCommand{Kind: models.SystemCommandPing, TenantID: "tenant-1", DeviceID: "device-1"}
	err := logic.RouteSystemCommand(context.Background(), rt, command, nil, nil)

	// 系统命令没有未送达回退，失败只记日志
	require.NoError(t, err)
	assert.Equal(t, 1, failing.systemCount)
}
