package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/model"
)

const (
	StorageMemory   = "memory"
	StorageRedis    = "redis"
	StorageMongo    = "mongo"
	StoragePostgres = "postgres"
)

const (
	StatsSourceLedger     = "ledger"
	StatsSourceProjection = "projection"
)

type Config struct {
	App       AppConfig
	Server    ServerConfig
	Storage   StorageConfig
	MongoDB   MongoDBConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Shortener ShortenerConfig
	Gate      GateConfig
	Security  SecurityConfig
	Auth      AuthConfig
	Handoff   HandoffConfig
	OTel      OTelConfig

	// Settings seeds the site settings until an admin saves them.
	Settings model.Settings
}

type AppConfig struct {
	Name     string
	Version  string
	Env      string
	LogLevel string
}

type ServerConfig struct {
	Port            string
	Host            string
	ShutdownTimeout time.Duration
	CORSOrigins     []string
}

type StorageConfig struct {
	Backend string
}

type MongoDBConfig struct {
	URI      string
	Database string
}

type PostgresConfig struct {
	URL string
}

type RedisConfig struct {
	URL       string
	KeyPrefix string
	PoolSize  int
}

type KafkaConfig struct {
	Enabled      bool
	Brokers      []string
	ClickTopic   string
	WriteTimeout time.Duration
}

type ShortenerConfig struct {
	BaseURL    string
	SlugLength int

	// StatsSource selects where daily stats are read: the click log in the
	// store, or the Mongo projection fed by the click consumer.
	StatsSource string
}

type GateConfig struct {
	// SessionTTL drops traversals idle for longer. Zero, the default, never
	// expires them, since a verify checkpoint may wait forever.
	SessionTTL time.Duration
}

type SecurityConfig struct {
	// Requests per minute per client on link creation and the token gateway.
	CreateRate  int
	CreateBurst int
}

type AuthConfig struct {
	JWTSecret     string
	JWTIssuer     string
	TokenTTL      time.Duration
	AdminEmail    string
	AdminPassword string
}

type HandoffConfig struct {
	BaseURL string
}

type OTelConfig struct {
	Enabled     bool
	Endpoint    string
	SampleRatio float64
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: .env file not found, using environment variables")
	}

	cfg := &Config{
		App: AppConfig{
			Name:     GetEnv("APP_NAME", "rk-shortner"),
			Version:  GetEnv("APP_VERSION", "0.1.0"),
			Env:      GetEnv("APP_ENV", "development"),
			LogLevel: GetEnv("LOG_LEVEL", "info"),
		},
		Server: ServerConfig{
			Port:            GetEnv("APP_PORT", "8080"),
			Host:            GetEnv("APP_HOST", "localhost"),
			ShutdownTimeout: GetEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
			CORSOrigins:     SplitCSV(GetEnv("CORS_ALLOWED_ORIGINS", "*")),
		},
		Storage: StorageConfig{
			Backend: GetEnvLower("STORAGE_BACKEND", StorageMemory),
		},
		MongoDB: MongoDBConfig{
			URI:      GetEnv("MONGODB_URI", "mongodb://localhost:27017/?replicaSet=rs0"),
			Database: GetEnv("MONGODB_DATABASE", "shortner"),
		},
		Postgres: PostgresConfig{
			URL: GetEnv("DATABASE_URL", DefaultPostgresDSN()),
		},
		Redis: RedisConfig{
			URL:       GetEnv("REDIS_URL", ""),
			KeyPrefix: GetEnv("REDIS_KEY_PREFIX", "shortner"),
			PoolSize:  GetEnvInt("REDIS_POOL_SIZE", 10),
		},
		Kafka: KafkaConfig{
			Enabled:      GetEnvBool("KAFKA_ENABLED", false),
			Brokers:      SplitCSV(GetEnv("KAFKA_BROKERS", "localhost:9092")),
			ClickTopic:   GetEnv("KAFKA_CLICK_TOPIC", "clicks.recorded"),
			WriteTimeout: GetEnvDuration("KAFKA_WRITE_TIMEOUT", 2*time.Second),
		},
		Shortener: ShortenerConfig{
			BaseURL:     GetEnv("SHORTENER_BASE_URL", "http://localhost:8080"),
			SlugLength:  GetEnvInt("SLUG_LENGTH", 6),
			StatsSource: GetEnvLower("STATS_SOURCE", StatsSourceLedger),
		},
		Gate: GateConfig{
			SessionTTL: GetEnvDuration("GATE_SESSION_TTL", 0),
		},
		Security: SecurityConfig{
			CreateRate:  GetEnvInt("CREATE_RATE_PER_MINUTE", 30),
			CreateBurst: GetEnvInt("CREATE_RATE_BURST", 10),
		},
		Auth: AuthConfig{
			JWTSecret:     GetEnv("JWT_SECRET", ""),
			JWTIssuer:     GetEnv("JWT_ISSUER", "rk-shortner"),
			TokenTTL:      GetEnvDuration("JWT_TTL", 24*time.Hour),
			AdminEmail:    GetEnv("ADMIN_EMAIL", ""),
			AdminPassword: GetEnv("ADMIN_PASSWORD", ""),
		},
		Handoff: HandoffConfig{
			BaseURL: GetEnv("HANDOFF_BASE_URL", "https://t.me/rkshortner_support"),
		},
		OTel: OTelConfig{
			Enabled:     GetEnvBool("OTEL_ENABLED", false),
			Endpoint:    GetEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://localhost:4318"),
			SampleRatio: GetEnvFloat("OTEL_SAMPLE_RATIO", 1),
		},
	}

	settings, err := LoadSettings(GetEnv("SETTINGS_FILE", ""))
	if err != nil {
		return nil, err
	}
	cfg.Settings = settings

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Backend {
	case StorageMemory, StorageRedis, StorageMongo, StoragePostgres:
	default:
		return fmt.Errorf("STORAGE_BACKEND must be one of memory, redis, mongo, postgres (got %q)", c.Storage.Backend)
	}
	if c.Storage.Backend == StorageRedis && c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required when STORAGE_BACKEND=redis")
	}
	if c.Shortener.SlugLength < 4 || c.Shortener.SlugLength > 32 {
		return fmt.Errorf("SLUG_LENGTH must be between 4 and 32 (got %d)", c.Shortener.SlugLength)
	}
	switch c.Shortener.StatsSource {
	case StatsSourceLedger:
	case StatsSourceProjection:
		if !c.Kafka.Enabled {
			return fmt.Errorf("STATS_SOURCE=projection requires KAFKA_ENABLED=true")
		}
	default:
		return fmt.Errorf("STATS_SOURCE must be ledger or projection (got %q)", c.Shortener.StatsSource)
	}
	if c.Security.CreateRate <= 0 {
		return fmt.Errorf("CREATE_RATE_PER_MINUTE must be > 0")
	}
	if c.Gate.SessionTTL < 0 {
		return fmt.Errorf("GATE_SESSION_TTL must be >= 0 (0 keeps traversals forever)")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS must contain at least one broker")
	}
	if c.Auth.JWTSecret == "" {
		if c.App.Env == "production" {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		c.Auth.JWTSecret = "dev-secret-" + c.App.Name
	}
	return nil
}
