package service

import (
	"errors"
	"fmt"
	"testing"

	"wisefido-command/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeRegistry 测试用设备注册中心
type fakeRegistry struct {
	byToken  map[string]*models.DeviceAssignment
	byRoom   map[string][]models.DeviceAssignment
	byType   map[string][]models.DeviceAssignment
	byDevice map[string]*models.DeviceAssignment
	nesting  *models.DeviceNestingContext
	err      error
}

func (r *fakeRegistry) GetAssignmentByToken(tenantID, assignmentToken string) (*models.DeviceAssignment, error) {
	if r.err != nil {
		return nil, r.err
	}
	a, ok := r.byToken[assignmentToken]
	if !ok {
		return nil, fmt.Errorf("assignment not found: %s", assignmentToken)
	}
	return a, nil
}

func (r *fakeRegistry) GetAssignmentsByRoom(tenantID, roomID string) ([]models.DeviceAssignment, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.byRoom[roomID], nil
}

func (r *fakeRegistry) GetAssignmentsByDeviceType(tenantID, deviceType, unitID string) ([]models.DeviceAssignment, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.byType[deviceType], nil
}

func (r *fakeRegistry) GetAssignmentByDeviceID(tenantID, deviceID string) (*models.DeviceAssignment, error) {
	if r.err != nil {
		return nil, r.err
	}
	a, ok := r.byDevice[deviceID]
	if !ok {
		return nil, fmt.Errorf("device not found: %s", deviceID)
	}
	return a, nil
}

func (r *fakeRegistry) GetNestingContext(tenantID string, assignment *models.DeviceAssignment) (*models.DeviceNestingContext, error) {
	if r.nesting != nil {
		return r.nesting, nil
	}
	return &models.DeviceNestingContext{GatewayDeviceType: assignment.DeviceType}, nil
}

func testAssignment(token string) models.DeviceAssignment {
	return models.DeviceAssignment{
		AssignmentToken: token,
		DeviceID:        "device-" + token,
		DeviceToken:     "dt-" + token,
		TenantID:        "tenant-1",
		DeviceType:      "Radar",
		UnitID:          "unit-1",
	}
}

func TestResolveTargets_Assignment(t *testing.T) {
	assignment := testAssignment("a1")
	registry := &fakeRegistry{byToken: map[string]*models.DeviceAssignment{"a1": &assignment}}
	resolver := NewTargetResolver(registry, zap.NewNop())

	invocation := testInvocation(nil)
	invocation.Target = models.CommandTarget{Type: models.TargetAssignment, AssignmentToken: "a1"}

	assignments, err := resolver.ResolveTargets(invocation)
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	assert.Equal(t, "a1", assignments[0].AssignmentToken)
}

func TestResolveTargets_AssignmentMissingToken(t *testing.T) {
	resolver := NewTargetResolver(&fakeRegistry{}, zap.NewNop())

	invocation := testInvocation(nil)
	invocation.Target = models.CommandTarget{Type: models.TargetAssignment}

	_, err := resolver.ResolveTargets(invocation)
	require.Error(t, err)
}

func TestResolveTargets_Room(t *testing.T) {
	registry := &fakeRegistry{byRoom: map[string][]models.DeviceAssignment{
		"room-1": {testAssignment("a1"), testAssignment("a2")},
	}}
	resolver := NewTargetResolver(registry, zap.NewNop())

	invocation := testInvocation(nil)
	invocation.Target = models.CommandTarget{Type: models.TargetRoom, RoomID: "room-1"}

	assignments, err := resolver.ResolveTargets(invocation)
	require.NoError(t, err)
	assert.Len(t, assignments, 2)
}

func TestResolveTargets_RoomEmptyIsValid(t *testing.T) {
	resolver := NewTargetResolver(&fakeRegistry{byRoom: map[string][]models.DeviceAssignment{}}, zap.NewNop())

	invocation := testInvocation(nil)
	invocation.Target = models.CommandTarget{Type: models.TargetRoom, RoomID: "empty-room"}

	assignments, err := resolver.ResolveTargets(invocation)
	require.NoError(t, err)
	assert.Empty(t, assignments)
}

func TestResolveTargets_DeviceTypeCriteria(t *testing.T) {
	registry := &fakeRegistry{byType: map[string][]models.DeviceAssignment{
		"Radar": {testAssignment("a1")},
	}}
	resolver := NewTargetResolver(registry, zap.NewNop())

	invocation := testInvocation(nil)
	invocation.Target = models.CommandTarget{Type: models.TargetDeviceTypeCriteria, DeviceType: "Radar", UnitID: "unit-1"}

	assignments, err := resolver.ResolveTargets(invocation)
	require.NoError(t, err)
	assert.Len(t, assignments, 1)
}

func TestResolveTargets_UnsupportedMode(t *testing.T) {
	resolver := NewTargetResolver(&fakeRegistry{}, zap.NewNop())

	invocation := testInvocation(nil)
	invocation.Target = models.CommandTarget{Type: "area"}

	_, err := resolver.ResolveTargets(invocation)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported addressing mode")
}

func TestResolveTargets_RegistryErrorSurfaced(t *testing.T) {
	resolver := NewTargetResolver(&fakeRegistry{err: errors.New("db down")}, zap.NewNop())

	invocation := testInvocation(nil)
	invocation.Target = models.CommandTarget{Type: models.TargetRoom, RoomID: "room-1"}

	_, err := resolver.ResolveTargets(invocation)
	require.Error(t, err)
}
