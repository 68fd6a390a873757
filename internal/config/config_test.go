package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultValues(t *testing.T) {
	// 清除环境变量
	os.Clearenv()

	cfg, err := Load()
	require.NoError(t, err)
	assert.NotNil(t, cfg)

	// 验证默认值
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "postgres", cfg.Database.User)
	assert.Equal(t, "owlrd", cfg.Database.Database)
	assert.Equal(t, "disable", cfg.Database.SSLMode)

	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 0, cfg.Redis.DB)

	assert.Equal(t, "tcp://localhost:1883", cfg.MQTT.Broker)
	assert.Equal(t, "wisefido-command", cfg.MQTT.ClientID)

	assert.Equal(t, "device:commands:enriched", cfg.Command.Streams.Invocations)
	assert.Equal(t, "device:commands:undelivered", cfg.Command.Streams.Undelivered)
	assert.Equal(t, "wisefido-command", cfg.Command.ConsumerGroup)
	assert.Equal(t, 4, cfg.Command.Workers)
	assert.Equal(t, int64(10), cfg.Command.BatchSize)

	// 未配置路由时默认丢弃命令
	assert.Equal(t, "noop", cfg.Command.Router.Strategy)
	assert.Empty(t, cfg.Command.Destinations)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_DestinationsFromEnv(t *testing.T) {
	os.Clearenv()
	os.Setenv("COMMAND_DESTINATIONS", `[
		{"id": "mqtt-default", "transport": "mqtt", "encoder": "json", "extractor": "default"},
		{"id": "sms-fallback", "transport": "sms", "encoder": "text", "extractor": "default"}
	]`)
	os.Setenv("COMMAND_ROUTER", `{"strategy": "device-type-mapping", "mappings": {"Radar": "mqtt-default"}, "default_destination_id": "sms-fallback"}`)

	cfg, err := Load()
	require.NoError(t, err)

	require.Len(t, cfg.Command.Destinations, 2)
	assert.Equal(t, "mqtt-default", cfg.Command.Destinations[0].ID)
	assert.Equal(t, "mqtt", cfg.Command.Destinations[0].Transport)
	assert.Equal(t, "json", cfg.Command.Destinations[0].Encoder)
	assert.Equal(t, "sms-fallback", cfg.Command.Destinations[1].ID)

	assert.Equal(t, "device-type-mapping", cfg.Command.Router.Strategy)
	assert.Equal(t, "mqtt-default", cfg.Command.Router.Mappings["Radar"])
	assert.Equal(t, "sms-fallback", cfg.Command.Router.DefaultDestinationID)

	os.Clearenv()
}

func TestLoad_DestinationsFromFile(t *testing.T) {
	os.Clearenv()

	path := t.TempDir() + "/destinations.json"
	require.NoError(t, os.WriteFile(path, []byte(`[{"id": "hook", "transport": "webhook", "encoder": "json", "extractor": "default", "settings": {"url": "http://example.com/hook"}}]`), 0o644))
	os.Setenv("COMMAND_DESTINATIONS_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)

	require.Len(t, cfg.Command.Destinations, 1)
	assert.Equal(t, "hook", cfg.Command.Destinations[0].ID)
	assert.Equal(t, "http://example.com/hook", cfg.Command.Destinations[0].Settings["url"])

	os.Clearenv()
}

func TestLoad_DuplicateDestinationID(t *testing.T) {
	os.Clearenv()
	os.Setenv("COMMAND_DESTINATIONS", `[
		{"id": "d1", "transport": "mqtt"},
		{"id": "d1", "transport": "sms"}
	]`)

	cfg, err := Load()
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "duplicate destination id")

	os.Clearenv()
}

func TestLoad_UnknownTransport(t *testing.T) {
	os.Clearenv()
	os.Setenv("COMMAND_DESTINATIONS", `[{"id": "d1", "transport": "pigeon"}]`)

	cfg, err := Load()
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "unknown transport")

	os.Clearenv()
}

func TestLoad_UnknownRouterStrategy(t *testing.T) {
	os.Clearenv()
	os.Setenv("COMMAND_ROUTER", `{"strategy": "round-robin"}`)

	cfg, err := Load()
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "unknown router strategy")

	os.Clearenv()
}

func TestGetEnv(t *testing.T) {
	// 测试默认值
	os.Clearenv()
	value := getEnv("TEST_KEY", "default-value")
	assert.Equal(t, "default-value", value)

	// 测试环境变量存在
	os.Setenv("TEST_KEY", "env-value")
	value = getEnv("TEST_KEY", "default-value")
	assert.Equal(t, "env-value", value)

	os.Unsetenv("TEST_KEY")
}
