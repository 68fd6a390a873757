package repository

import (
	"database/sql"
	"encoding/json"
	"testing"

	"wisefido-command/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupCommandRepo(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *CommandRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	repo := NewCommandRepository(db, zap.NewNop())
	return db, mock, repo
}

func TestGetCommandByToken_Success(t *testing.T) {
	db, mock, repo := setupCommandRepo(t)
	defer db.Close()

	params := []models.ParameterSpec{
		{Name: "delay", Type: models.ParameterTypeInt, Required: true},
		{Name: "reason", Type: models.ParameterTypeString, Required: false},
	}
	paramsJSON, err := json.Marshal(params)
	require.NoError(t, err)

	// PostgreSQL JSONB 字段在 sqlmock 中需要作为 []byte 返回
	rows := sqlmock.NewRows([]string{"command_id", "tenant_id", "namespace", "name", "parameters"}).
		AddRow("cmd-1", "tenant-123", "wisefido", "reboot", paramsJSON)

	mock.ExpectQuery(`SELECT`).
		WithArgs("reboot", "tenant-123").
		WillReturnRows(rows)

	command, err := repo.GetCommandByToken("tenant-123", "reboot")

	require.NoError(t, err)
	assert.Equal(t, "cmd-1", command.CommandID)
	assert.Equal(t, "wisefido", command.Namespace)
	assert.Equal(t, "reboot", command.Name)
	require.Len(t, command.Parameters, 2)
	assert.Equal(t, "delay", command.Parameters[0].Name)
	assert.True(t, command.Parameters[0].Required)
	assert.Equal(t, models.ParameterTypeString, command.Parameters[1].Type)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetCommandByToken_NotFound(t *testing.T) {
	db, mock, repo := setupCommandRepo(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT`).
		WithArgs("missing", "tenant-123").
		WillReturnError(sql.ErrNoRows)

	command, err := repo.GetCommandByToken("tenant-123", "missing")

	assert.Error(t, err)
	assert.Nil(t, command)
	assert.Contains(t, err.Error(), "command not found")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetCommandByToken_NoParameters(t *testing.T) {
	db, mock, repo := setupCommandRepo(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"command_id", "tenant_id", "namespace", "name", "parameters"}).
		AddRow("cmd-2", "tenant-123", "wisefido", "ping", nil)

	mock.ExpectQuery(`SELECT`).
		WithArgs("ping", "tenant-123").
		WillReturnRows(rows)

	command, err := repo.GetCommandByToken("tenant-123", "ping")

	require.NoError(t, err)
	assert.Empty(t, command.Parameters)

	require.NoError(t, mock.ExpectationsWereMet())
}
