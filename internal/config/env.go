package config

import (
	"fmt"
	"log/slog"
	internalErrors "payment-router/internal/errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	SelectionBackendShm   = "shm"
	SelectionBackendRedis = "redis"
)

// Config is read once at startup.
type Config struct {
	ServerWorkers        int
	ProcessorWorkers     int
	Database             string
	DatabaseDriver       string
	DatabaseInit         bool
	ListenAddress        string
	ProcessorDefaultURL  string
	ProcessorFallbackURL string
	SelectionBackend     string
	SharedMemoryPath     string
	RedisAddr            string
	PollInterval         time.Duration
	SettleDelay          time.Duration
	LogLevel             slog.Level
}

// SetDefaults registers every known key on v. Keys map to upper case
// environment variables, e.g. processor_workers -> PROCESSOR_WORKERS.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server_workers", 1)
	v.SetDefault("processor_workers", 1)
	v.SetDefault("database", "/data/database")
	v.SetDefault("database_driver", "sqlite3")
	v.SetDefault("database_init", false)
	v.SetDefault("listen_address", "0.0.0.0:8080")
	v.SetDefault("processor_default_url", "http://payment-processor-default:8080")
	v.SetDefault("processor_fallback_url", "http://payment-processor-fallback:8080")
	v.SetDefault("selection_backend", SelectionBackendShm)
	v.SetDefault("shared_memory_path", "/dev/shm/payment-router-gateway")
	v.SetDefault("redis_addr", "redis:6379")
	v.SetDefault("poll_interval", HealthCheckInterval)
	v.SetDefault("settle_delay", SettleDelay)
	v.SetDefault("log_level", "info")

	v.AutomaticEnv()
}

func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		ServerWorkers:        v.GetInt("server_workers"),
		ProcessorWorkers:     v.GetInt("processor_workers"),
		Database:             v.GetString("database"),
		DatabaseDriver:       v.GetString("database_driver"),
		DatabaseInit:         v.GetBool("database_init"),
		ListenAddress:        v.GetString("listen_address"),
		ProcessorDefaultURL:  strings.TrimRight(v.GetString("processor_default_url"), "/"),
		ProcessorFallbackURL: strings.TrimRight(v.GetString("processor_fallback_url"), "/"),
		SelectionBackend:     v.GetString("selection_backend"),
		SharedMemoryPath:     v.GetString("shared_memory_path"),
		RedisAddr:            v.GetString("redis_addr"),
		PollInterval:         v.GetDuration("poll_interval"),
		SettleDelay:          v.GetDuration("settle_delay"),
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(v.GetString("log_level"))); err != nil {
		return nil, fmt.Errorf("parsing log level: %w", err)
	}

	if cfg.ServerWorkers < 1 {
		return nil, fmt.Errorf("server workers must be at least 1, got %d", cfg.ServerWorkers)
	}

	if cfg.ProcessorWorkers < 1 {
		return nil, fmt.Errorf("processor workers must be at least 1, got %d", cfg.ProcessorWorkers)
	}

	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive, got %s", cfg.PollInterval)
	}

	switch cfg.SelectionBackend {
	case SelectionBackendShm, SelectionBackendRedis:
	default:
		return nil, fmt.Errorf("%w: %q", internalErrors.ErrUnsupportedSelectionBackend, cfg.SelectionBackend)
	}

	return cfg, nil
}
