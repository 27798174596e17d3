package config

import (
	"fmt"
	"log"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config is the full runtime configuration, read from the environment.
type Config struct {
	Env string `env:"APP_ENV" env-default:"local"`

	HTTP     HTTPConfig
	DB       DBConfig
	JWT      JWTConfig
	Kafka    KafkaConfig
	Redis    RedisConfig
	Log      LogConfig
	Invoices InvoiceConfig
	Uploads  UploadConfig
}

type HTTPConfig struct {
	Addr          string `env:"HTTP_ADDR" env-default:":8080"`
	AllowedOrigin string `env:"CORS_ALLOWED_ORIGIN" env-default:"http://localhost:5173"`
}

type DBConfig struct {
	DSN          string `env:"DB_DSN_PRIMARY" env-required:"true"`
	AutoMigrate  bool   `env:"DB_AUTO_MIGRATE" env-default:"true"`
	MaxOpenConns int    `env:"DB_MAX_OPEN_CONNS" env-default:"25"`
}

type JWTConfig struct {
	Secret     string        `env:"JWT_SECRET" env-required:"true"`
	AccessTTL  time.Duration `env:"JWT_ACCESS_TTL" env-default:"72h"`
	RefreshTTL time.Duration `env:"JWT_REFRESH_TTL" env-default:"168h"`
}

// KafkaConfig is optional; with no brokers order events are only logged.
type KafkaConfig struct {
	Brokers    []string `env:"KAFKA_BROKERS" env-separator:","`
	OrderTopic string   `env:"KAFKA_ORDER_TOPIC" env-default:"order-events"`
}

// RedisConfig is optional; with no address product reads go straight to MySQL.
type RedisConfig struct {
	Addr     string        `env:"REDIS_ADDR"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB" env-default:"0"`
	TTL      time.Duration `env:"PRODUCT_CACHE_TTL" env-default:"5m"`
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL" env-default:"info"`
	Format string `env:"LOG_FORMAT" env-default:"text"`
}

type InvoiceConfig struct {
	SweepInterval time.Duration `env:"INVOICE_SWEEP_INTERVAL" env-default:"1h"`
}

// UploadConfig locates product images saved by POST /v1/upload.
type UploadConfig struct {
	Dir     string `env:"UPLOAD_DIR" env-default:"./uploads"`
	BaseURL string `env:"BASE_URL" env-default:"http://localhost:8080"`
	MaxSize int64  `env:"UPLOAD_MAX_BYTES" env-default:"5242880"`
}

// Load reads .env (if present) and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("WARNING: Could not find or load .env file. Relying on system environment variables.")
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read config from env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// MustLoad is Load for main: any error is fatal.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) validate() error {
	if len(c.JWT.Secret) < 16 {
		return fmt.Errorf("JWT_SECRET must be at least 16 characters")
	}
	if c.JWT.AccessTTL <= 0 || c.JWT.RefreshTTL <= 0 {
		return fmt.Errorf("JWT token lifetimes must be positive")
	}
	if c.Invoices.SweepInterval <= 0 {
		return fmt.Errorf("INVOICE_SWEEP_INTERVAL must be positive")
	}
	if c.Uploads.MaxSize <= 0 {
		return fmt.Errorf("UPLOAD_MAX_BYTES must be positive")
	}
	return nil
}
