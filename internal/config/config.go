package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MQTTConfig MQTT配置
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	QoS      byte
}

// DestinationConfig 命令目的地配置（一个目的地对应一个传输通道）
type DestinationConfig struct {
	ID        string            `json:"id"`
	Transport string            `json:"transport"` // "mqtt" | "sms" | "webhook"
	Encoder   string            `json:"encoder"`   // "json" | "text" | "scripted"
	Extractor string            `json:"extractor"` // "default" | "scripted"
	Script    string            `json:"script,omitempty"`
	Settings  map[string]string `json:"settings,omitempty"`
}

// RouterConfig 出站命令路由配置
type RouterConfig struct {
	Strategy             string            `json:"strategy"` // "single" | "device-type-mapping" | "scripted" | "noop"
	DestinationID        string            `json:"destination_id,omitempty"`
	Mappings             map[string]string `json:"mappings,omitempty"` // device_type -> destination_id
	DefaultDestinationID string            `json:"default_destination_id,omitempty"`
	Script               string            `json:"script,omitempty"`
}

// Config 命令分发服务配置
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	MQTT     MQTTConfig

	// 命令分发服务特定配置
	Command struct {
		// Redis Streams 配置
		Streams struct {
			Invocations string // 入站命令调用流，如 "device:commands:enriched"
			Undelivered string // 未送达命令流，如 "device:commands:undelivered"
		}
		ConsumerGroup string
		ConsumerName  string
		Workers       int   // 消费者工作协程数量，默认 4
		BatchSize     int64 // 每次读取消息数量，默认 10

		// 目的地与路由配置（JSON 文档，来自环境变量或文件）
		Destinations []DestinationConfig
		Router       RouterConfig

		// SMS 网关配置
		SMSGateway struct {
			BaseURL string
			APIKey  string
		}

		// MQTT 命令主题前缀，如 "wisefido/commands"
		TopicPrefix string
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 加载配置
func Load() (*Config, error) {
	cfg := &Config{}

	// 从环境变量加载（默认值）
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "owlrd")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 10)
	cfg.Database.MaxIdle = getEnvInt("DB_MAX_IDLE", 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "wisefido-command")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.QoS = byte(getEnvInt("MQTT_QOS", 1))

	// 命令分发服务配置
	cfg.Command.Streams.Invocations = getEnv("COMMAND_STREAM_INVOCATIONS", "device:commands:enriched")
	cfg.Command.Streams.Undelivered = getEnv("COMMAND_STREAM_UNDELIVERED", "device:commands:undelivered")
	cfg.Command.ConsumerGroup = getEnv("COMMAND_CONSUMER_GROUP", "wisefido-command")
	cfg.Command.ConsumerName = getEnv("COMMAND_CONSUMER_NAME", "command-worker")
	cfg.Command.Workers = getEnvInt("COMMAND_WORKERS", 4)
	cfg.Command.BatchSize = int64(getEnvInt("COMMAND_BATCH_SIZE", 10))

	cfg.Command.SMSGateway.BaseURL = getEnv("SMS_GATEWAY_URL", "")
	cfg.Command.SMSGateway.APIKey = getEnv("SMS_GATEWAY_API_KEY", "")
	cfg.Command.TopicPrefix = getEnv("MQTT_COMMAND_TOPIC_PREFIX", "wisefido/commands")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	// 目的地与路由配置（JSON 文档）
	destinationsJSON, err := getEnvDocument("COMMAND_DESTINATIONS")
	if err != nil {
		return nil, err
	}
	if destinationsJSON != "" {
		if err := json.Unmarshal([]byte(destinationsJSON), &cfg.Command.Destinations); err != nil {
			return nil, fmt.Errorf("failed to parse COMMAND_DESTINATIONS: %w", err)
		}
	}

	routerJSON, err := getEnvDocument("COMMAND_ROUTER")
	if err != nil {
		return nil, err
	}
	if routerJSON != "" {
		if err := json.Unmarshal([]byte(routerJSON), &cfg.Command.Router); err != nil {
			return nil, fmt.Errorf("failed to parse COMMAND_ROUTER: %w", err)
		}
	}
	if cfg.Command.Router.Strategy == "" {
		// 未配置路由时默认丢弃命令（安全默认值）
		cfg.Command.Router.Strategy = "noop"
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate 校验配置一致性
func validate(cfg *Config) error {
	seen := make(map[string]bool)
	for i, dest := range cfg.Command.Destinations {
		if dest.ID == "" {
			return fmt.Errorf("destination at index %d has empty id", i)
		}
		if seen[dest.ID] {
			return fmt.Errorf("duplicate destination id: %s", dest.ID)
		}
		seen[dest.ID] = true

		switch dest.Transport {
		case "mqtt", "sms", "webhook":
		default:
			return fmt.Errorf("destination %s has unknown transport: %s", dest.ID, dest.Transport)
		}
	}

	switch cfg.Command.Router.Strategy {
	case "single", "device-type-mapping", "scripted", "noop":
	default:
		return fmt.Errorf("unknown router strategy: %s", cfg.Command.Router.Strategy)
	}

	if cfg.Command.Workers <= 0 {
		return fmt.Errorf("COMMAND_WORKERS must be positive, got %d", cfg.Command.Workers)
	}

	return nil
}

// getEnvDocument 读取 JSON 文档配置：优先使用 <KEY>，其次读取 <KEY>_FILE 指向的文件
func getEnvDocument(key string) (string, error) {
	if value := os.Getenv(key); value != "" {
		return value, nil
	}
	if path := os.Getenv(key + "_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read %s_FILE: %w", key, err)
		}
		return string(data), nil
	}
	return "", nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
