// Package app wires configuration, logging, middleware, and the router into
// a runnable HTTP application.
package app

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config is loaded from the environment at startup.
type Config struct {
	Addr            string        `envconfig:"APP_ADDR" default:":8080"`
	PostgresDSN     string        `envconfig:"PG_DSN" required:"true"`
	RedisAddr       string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"15s"`
	ReportCacheTTL  time.Duration `envconfig:"REPORT_CACHE_TTL" default:"5m"`
	RateLimit       int           `envconfig:"RATE_LIMIT" default:"120"`
	LogFormat       string        `envconfig:"LOG_FORMAT" default:"json"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
	DevMode         bool          `envconfig:"DEV_MODE" default:"false"`
}

// LoadConfig reads configuration from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
