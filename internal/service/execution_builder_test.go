package service

import (
	"testing"

	"wisefido-command/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCommand() *models.DeviceCommand {
	return &models.DeviceCommand{
		CommandID: "cmd-1",
		TenantID:  "tenant-1",
		Namespace: "radar",
		Name:      "set-interval",
		Parameters: []models.ParameterSpec{
			{Name: "interval", Type: models.ParameterTypeInt, Required: true},
			{Name: "label", Type: models.ParameterTypeString, Required: false},
			{Name: "threshold", Type: models.ParameterTypeFloat, Required: false},
			{Name: "enabled", Type: models.ParameterTypeBool, Required: false},
		},
	}
}

func testInvocation(values map[string]string) *models.DeviceCommandInvocation {
	return &models.DeviceCommandInvocation{
		InvocationID:    "inv-1",
		TenantID:        "tenant-1",
		CommandToken:    "token-1",
		ParameterValues: values,
		Initiator:       models.InitiatorUser,
	}
}

func TestBuildExecution_BindsTypedParameters(t *testing.T) {
	execution, err := BuildExecution(testCommand(), testInvocation(map[string]string{
		"interval":  "30",
		"label":     "night",
		"threshold": "0.5",
		"enabled":   "true",
	}))

	require.NoError(t, err)
	assert.NotEmpty(t, execution.ExecutionID)
	assert.Equal(t, "inv-1", execution.Invocation.InvocationID)
	assert.Equal(t, int64(30), execution.Parameters["interval"])
	assert.Equal(t, "night", execution.Parameters["label"])
	assert.Equal(t, 0.5, execution.Parameters["threshold"])
	assert.Equal(t, true, execution.Parameters["enabled"])
}

func TestBuildExecution_OmitsUnsuppliedOptionalParameters(t *testing.T) {
	execution, err := BuildExecution(testCommand(), testInvocation(map[string]string{
		"interval": "30",
	}))

	require.NoError(t, err)
	assert.Contains(t, execution.Parameters, "interval")
	assert.NotContains(t, execution.Parameters, "label")
}

func TestBuildExecution_MissingRequiredParameter(t *testing.T) {
	_, err := BuildExecution(testCommand(), testInvocation(nil))

	require.Error(t, err)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "interval", vErr.Parameter)
}

func TestBuildExecution_TypeMismatch(t *testing.T) {
	_, err := BuildExecution(testCommand(), testInvocation(map[string]string{
		"interval": "not-a-number",
	}))

	require.Error(t, err)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "interval", vErr.Parameter)
}

func TestBuildExecution_UndefinedParameterRejected(t *testing.T) {
	_, err := BuildExecution(testCommand(), testInvocation(map[string]string{
		"interval": "30",
		"bogus":    "x",
	}))

	require.Error(t, err)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "bogus", vErr.Parameter)
}

func TestBuildExecution_UniqueExecutionIDs(t *testing.T) {
	invocation := testInvocation(map[string]string{"interval": "30"})

	first, err := BuildExecution(testCommand(), invocation)
	require.NoError(t, err)
	second, err := BuildExecution(testCommand(), invocation)
	require.NoError(t, err)

	assert.NotEqual(t, first.ExecutionID, second.ExecutionID)
}
