package service

import (
	"context"
	"testing"

	"wisefido-command/internal/config"
	"wisefido-command/internal/script"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func factoryConfig(destinations ...config.DestinationConfig) *config.Config {
	cfg := &config.Config{}
	cfg.MQTT.Broker = "tcp://localhost:1883"
	cfg.MQTT.QoS = 1
	cfg.Command.TopicPrefix = "wisefido/commands"
	cfg.Command.SMSGateway.BaseURL = "http://sms.example.com"
	cfg.Command.Destinations = destinations
	return cfg
}

func noopEngine() script.Engine {
	return script.EngineFunc(func(ctx context.Context, scriptRef string, bindings script.Bindings) (interface{}, error) {
		return "", nil
	})
}

func TestBuildDestinations_DefaultCombinations(t *testing.T) {
	cfg := factoryConfig(
		config.DestinationConfig{ID: "mqtt-1", Transport: "mqtt"},
		config.DestinationConfig{ID: "sms-1", Transport: "sms", Encoder: "text"},
		config.DestinationConfig{ID: "hook-1", Transport: "webhook", Encoder: "json"},
	)

	destinations, err := BuildDestinations(cfg, nil, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, destinations, 3)
	assert.Equal(t, "mqtt-1", destinations[0].ID())
	assert.Equal(t, "sms-1", destinations[1].ID())
	assert.Equal(t, "hook-1", destinations[2].ID())
}

func TestBuildDestinations_ScriptedComponents(t *testing.T) {
	cfg := factoryConfig(
		config.DestinationConfig{ID: "mqtt-1", Transport: "mqtt", Encoder: "scripted", Extractor: "scripted", Script: "encode.js"},
	)

	destinations, err := BuildDestinations(cfg, noopEngine(), zap.NewNop())
	require.NoError(t, err)
	require.Len(t, destinations, 1)
}

func TestBuildDestinations_ScriptedWithoutScript(t *testing.T) {
	cfg := factoryConfig(
		config.DestinationConfig{ID: "mqtt-1", Transport: "mqtt", Encoder: "scripted"},
	)

	_, err := BuildDestinations(cfg, noopEngine(), zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "script reference")
}

func TestBuildDestinations_ScriptedWithoutEngine(t *testing.T) {
	cfg := factoryConfig(
		config.DestinationConfig{ID: "mqtt-1", Transport: "mqtt", Encoder: "scripted", Script: "encode.js"},
	)

	_, err := BuildDestinations(cfg, nil, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "script engine")
}

func TestBuildDestinations_SMSRejectsJSONEncoder(t *testing.T) {
	cfg := factoryConfig(
		config.DestinationConfig{ID: "sms-1", Transport: "sms", Encoder: "json"},
	)

	_, err := BuildDestinations(cfg, nil, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not support encoder")
}

func TestBuildDestinations_SMSRequiresGatewayURL(t *testing.T) {
	cfg := factoryConfig(
		config.DestinationConfig{ID: "sms-1", Transport: "sms", Encoder: "text"},
	)
	cfg.Command.SMSGateway.BaseURL = ""

	_, err := BuildDestinations(cfg, nil, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gateway URL")
}

func TestBuildDestinations_SMSGatewayOverridePerDestination(t *testing.T) {
	cfg := factoryConfig(
		config.DestinationConfig{ID: "sms-1", Transport: "sms", Encoder: "text", Settings: map[string]string{
			"gateway_url": "http://other-sms.example.com",
		}},
	)
	cfg.Command.SMSGateway.BaseURL = ""

	destinations, err := BuildDestinations(cfg, nil, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, destinations, 1)
}

func TestBuildDestinations_WebhookFixedURL(t *testing.T) {
	cfg := factoryConfig(
		config.DestinationConfig{ID: "hook-1", Transport: "webhook", Settings: map[string]string{
			"url": "http://callback.example.com/commands",
		}},
	)

	destinations, err := BuildDestinations(cfg, nil, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, destinations, 1)
}

func TestBuildDestinations_MQTTRejectsTextEncoder(t *testing.T) {
	cfg := factoryConfig(
		config.DestinationConfig{ID: "mqtt-1", Transport: "mqtt", Encoder: "text"},
	)

	_, err := BuildDestinations(cfg, nil, zap.NewNop())
	require.Error(t, err)
}
