package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config holds all application configuration.
type Config struct {
	Environment        string        `env:"APP_ENV" envDefault:"development"`
	LogLevel           string        `env:"LOG_LEVEL" envDefault:"info"`
	LogDir             string        `env:"LOG_DIR" envDefault:"logs"`
	FileEnabled        bool          `env:"LOG_FILE_ENABLED" envDefault:"true"`
	ConsoleMode        string        `env:"LOG_CONSOLE" envDefault:"auto"` // auto, on, off
	QueueSize          int           `env:"LOG_QUEUE_SIZE" envDefault:"4096"`
	BackpressurePolicy string        `env:"BACKPRESSURE_POLICY" envDefault:"drop"`
	RetentionDays      int           `env:"LOG_RETENTION_DAYS" envDefault:"30"`
	SweepInterval      time.Duration `env:"LOG_SWEEP_INTERVAL" envDefault:"0s"`
	IntakeServerAddr   string        `env:"INTAKE_SERVER_ADDR" envDefault:":8080"`
	AdminServerAddr    string        `env:"ADMIN_SERVER_ADDR" envDefault:":9091"`
	MaxEventSize       int64         `env:"MAX_EVENT_SIZE_BYTES" envDefault:"65536"` // 64KB
	IntakeRateLimit    float64       `env:"INTAKE_RATE_LIMIT" envDefault:"200"`
	IntakeRateBurst    int           `env:"INTAKE_RATE_BURST" envDefault:"50"`
	PostgresURL        string        `env:"POSTGRES_URL"`
	StaticAPIKey       string        `env:"INTAKE_STATIC_API_KEY"`
	APIKeyCacheTTL     time.Duration `env:"API_KEY_CACHE_TTL" envDefault:"5m"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Attempt to load .env file for local development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects values the logger cannot work with.
func (c *Config) Validate() error {
	if c.Environment == "" {
		c.Environment = EnvDevelopment
	}
	switch c.ConsoleMode {
	case "auto", "on", "off":
	default:
		return fmt.Errorf("LOG_CONSOLE must be auto, on or off, got %q", c.ConsoleMode)
	}
	switch c.BackpressurePolicy {
	case "drop", "block":
	default:
		return fmt.Errorf("BACKPRESSURE_POLICY must be drop or block, got %q", c.BackpressurePolicy)
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("LOG_QUEUE_SIZE must be positive, got %d", c.QueueSize)
	}
	if c.SweepInterval < 0 {
		return fmt.Errorf("LOG_SWEEP_INTERVAL must not be negative, got %s", c.SweepInterval)
	}
	return nil
}

// ConsoleEnabled reports whether entries are echoed to the console. In
// auto mode the console is used everywhere except production.
func (c *Config) ConsoleEnabled() bool {
	switch c.ConsoleMode {
	case "on":
		return true
	case "off":
		return false
	}
	return c.Environment != EnvProduction
}

// IsDevelopment reports whether debug entries are logged.
func (c *Config) IsDevelopment() bool {
	return c.Environment == EnvDevelopment
}
