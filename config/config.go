package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"civicbridge-be/telemetry"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store drivers accepted in store.driver.
const (
	DriverMemory   = "memory"
	DriverMongo    = "mongo"
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

// Config holds all application configuration
type Config struct {
	Env       string           `mapstructure:"env"`
	Server    ServerConfig     `mapstructure:"server"`
	Store     StoreConfig      `mapstructure:"store"`
	Mongo     MongoConfig      `mapstructure:"mongo"`
	Redis     RedisConfig      `mapstructure:"redis"`
	Auth      AuthConfig       `mapstructure:"auth"`
	Logger    LoggerConfig     `mapstructure:"logger"`
	Telemetry telemetry.Config `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	CookieDomain    string        `mapstructure:"cookie_domain"`
}

// StoreConfig selects the persistence backend. DSN is used by the SQL drivers.
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type MongoConfig struct {
	URI            string        `mapstructure:"uri"`
	Database       string        `mapstructure:"database"`
	Transactions   bool          `mapstructure:"transactions"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// RedisConfig backs the issue creation rate limiter. An empty address disables it.
type RedisConfig struct {
	Address         string `mapstructure:"address"`
	Password        string `mapstructure:"password"`
	DB              int    `mapstructure:"db"`
	IssueLimitKey   string `mapstructure:"issue_limit_key"`
	IssueDailyLimit int    `mapstructure:"issue_daily_limit"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// IsProduction reports whether cookies should be marked secure.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// Addr is the listen address for the HTTP server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Load reads .env, then the optional YAML file at configPath, then the environment.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	bindEnvVars(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.request_timeout", 10*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	v.SetDefault("store.driver", DriverMongo)
	v.SetDefault("store.dsn", "data/civicbridge.db")

	v.SetDefault("mongo.database", "mydb")
	v.SetDefault("mongo.transactions", false)
	v.SetDefault("mongo.connect_timeout", 10*time.Second)

	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.issue_limit_key", "issue_limit")
	v.SetDefault("redis.issue_daily_limit", 5)

	v.SetDefault("auth.token_ttl", 72*time.Hour)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.stdout", false)
	v.SetDefault("telemetry.export_interval", 15*time.Second)
}

// bindEnvVars keeps the variable names existing deployments already set.
func bindEnvVars(v *viper.Viper) {
	_ = v.BindEnv("env", "GO_ENV")
	_ = v.BindEnv("server.port", "PORT")
	_ = v.BindEnv("server.cookie_domain", "DOMAIN")
	_ = v.BindEnv("server.allowed_origins", "CORS_ORIGINS")
	_ = v.BindEnv("store.driver", "STORE_DRIVER")
	_ = v.BindEnv("store.dsn", "DATABASE_URL")
	_ = v.BindEnv("mongo.uri", "MONGODB_URI")
	_ = v.BindEnv("mongo.database", "MONGODB_DATABASE")
	_ = v.BindEnv("redis.address", "REDIS_ADDRESS")
	_ = v.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = v.BindEnv("redis.issue_limit_key", "REDIS_QUEUE_FOR_ISSUE_LIMIT")
	_ = v.BindEnv("auth.jwt_secret", "JWT_SECRET")
	_ = v.BindEnv("logger.level", "LOG_LEVEL")
	_ = v.BindEnv("telemetry.otlp_endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.RequestTimeout <= 0 {
		return fmt.Errorf("server.request_timeout must be positive")
	}

	switch c.Store.Driver {
	case DriverMemory:
	case DriverMongo:
		if c.Mongo.URI == "" {
			return fmt.Errorf("mongo.uri is required (MONGODB_URI)")
		}
		if c.Mongo.Database == "" {
			return fmt.Errorf("mongo.database is required")
		}
	case DriverSQLite, DriverPostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for driver %s", c.Store.Driver)
		}
	default:
		return fmt.Errorf("unknown store.driver %q", c.Store.Driver)
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required (JWT_SECRET)")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl must be positive")
	}

	if c.Redis.Address != "" {
		if c.Redis.IssueLimitKey == "" {
			return fmt.Errorf("redis.issue_limit_key is required when redis is configured")
		}
		if c.Redis.IssueDailyLimit < 1 {
			return fmt.Errorf("redis.issue_daily_limit must be at least 1")
		}
	}
	return nil
}
