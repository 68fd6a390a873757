package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"wisefido-command/internal/models"

	"go.uber.org/zap"
)

// CommandRepository 命令定义仓库（来自设备类型配置，只读）
type CommandRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewCommandRepository 创建命令定义仓库
func NewCommandRepository(db *sql.DB, logger *zap.Logger) *CommandRepository {
	return &CommandRepository{
		db:     db,
		logger: logger,
	}
}

// GetCommandByToken 按命令令牌获取命令定义
func (r *CommandRepository) GetCommandByToken(tenantID, commandToken string) (*models.DeviceCommand, error) {
	query := `
		SELECT command_id, tenant_id, namespace, name, parameters
		FROM device_commands
		WHERE command_token = $1 AND tenant_id = $2
	`

	var command models.DeviceCommand
	var parametersJSON []byte

	err := r.db.QueryRow(query, commandToken, tenantID).Scan(
		&command.CommandID,
		&command.TenantID,
		&command.Namespace,
		&command.Name,
		&parametersJSON,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("command not found: %s", commandToken)
		}
		return nil, fmt.Errorf("failed to query command: %w", err)
	}

	// parameters 为 JSONB 字段
	if len(parametersJSON) > 0 {
		if err := json.Unmarshal(parametersJSON, &command.Parameters); err != nil {
			return nil, fmt.Errorf("failed to parse command parameters: %w", err)
		}
	}

	return &command, nil
}
