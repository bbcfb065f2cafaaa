package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "sigmagate.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "SIGMAGATE_PORT")
	setString(&cfg.Server.CORSOrigin, "SIGMAGATE_CORS_ORIGIN")
	setFloat64(&cfg.Server.RateLimit, "SIGMAGATE_RATE_LIMIT")
	setInt(&cfg.Server.RateBurst, "SIGMAGATE_RATE_BURST")
	setBool(&cfg.Postgres.Enabled, "SIGMAGATE_PG_ENABLED")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "SIGMAGATE_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "SIGMAGATE_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "SIGMAGATE_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "SIGMAGATE_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "SIGMAGATE_PG_HEALTH_CHECK")
	setBool(&cfg.NATS.Enabled, "SIGMAGATE_NATS_ENABLED")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.Logging.Level, "SIGMAGATE_LOG_LEVEL")
	setString(&cfg.Logging.Service, "SIGMAGATE_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "SIGMAGATE_LOG_ASYNC")
	setInt64(&cfg.Cache.MaxRecords, "SIGMAGATE_CACHE_MAX_RECORDS")
	setDuration(&cfg.Cache.TTL, "SIGMAGATE_CACHE_TTL")
	setFloat64(&cfg.Gate.Threshold, "SIGMAGATE_THRESHOLD")
	setFloat64(&cfg.Gate.AskBand, "SIGMAGATE_ASK_BAND")
	setBool(&cfg.Gate.CriticalValidators, "SIGMAGATE_CRITICAL_VALIDATORS")
	setString(&cfg.Gate.LogFile, "SIGMAGATE_LOG_FILE")
	setString(&cfg.Gate.OTLPEndpoint, "SIGMAGATE_OTLP_ENDPOINT")

	// Ablation flags keep their historical process-wide names. They are
	// only read here; the gate itself sees an explicit Options struct.
	setFlag(&cfg.Gate.AblateNoPreview, "ABLATE_NO_PREVIEW")
	setFlag(&cfg.Gate.AblateNoValidators, "ABLATE_NO_VALIDATORS")
	setFlag(&cfg.Gate.AblateNoGate, "ABLATE_NO_GATE")
}

// validate checks config invariants after all layers are applied.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Gate.Threshold < 0 || cfg.Gate.Threshold > 1 {
		return fmt.Errorf("gate.threshold must be in [0,1], got %v", cfg.Gate.Threshold)
	}
	if cfg.Gate.AskBand < 0 || cfg.Gate.AskBand > cfg.Gate.Threshold {
		return fmt.Errorf("gate.ask_band must be in [0, threshold], got %v", cfg.Gate.AskBand)
	}
	if cfg.Postgres.Enabled && cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required when postgres is enabled")
	}
	if cfg.NATS.Enabled && cfg.NATS.URL == "" {
		return errors.New("nats.url is required when nats is enabled")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

// setFlag treats "1" as true, the convention for the ablation flags.
func setFlag(dst *bool, key string) {
	if os.Getenv(key) == "1" {
		*dst = true
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
