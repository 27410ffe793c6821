package mysqlkit

import (
	"fmt"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// PoolConfig holds settings forwarded to the underlying *sql.DB.
type PoolConfig struct {
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// TelemetryConfig holds tracing configuration.
type TelemetryConfig struct {
	Enabled bool
}

// Config holds connection and behavior configuration for a Pool.
type Config struct {
	// Driver overrides the sql driver ("mysql" in prod, "sqlmock" in tests).
	Driver string
	// DSN, when non-empty, is used verbatim. Otherwise a DSN is built from
	// the field-based values below.
	DSN      string
	Host     string
	Port     int
	Username string
	Password string
	Database string
	Params   map[string]string

	Pool      PoolConfig
	Retry     RetryPolicy
	Telemetry TelemetryConfig

	// SlowQueryThreshold marks queries slower than this for warn-level logging.
	SlowQueryThreshold time.Duration
}

// Environment variable names recognized by applyEnv and NewPoolEnv.
const (
	EnvDSN      = "MYSQLKIT_DSN"
	EnvDriver   = "MYSQLKIT_DRIVER"
	EnvHost     = "MYSQLKIT_HOST"
	EnvPort     = "MYSQLKIT_PORT"
	EnvUsername = "MYSQLKIT_USERNAME"
	EnvPassword = "MYSQLKIT_PASSWORD"
	EnvDatabase = "MYSQLKIT_DATABASE"
	EnvParams   = "MYSQLKIT_PARAMS"
)

// applyEnv overlays MYSQLKIT_* environment variables onto cfg.
// An env DSN takes priority over any configured DSN.
func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvDSN)); v != "" {
		cfg.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvDriver)); v != "" {
		cfg.Driver = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvHost)); v != "" {
		cfg.Host = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvPort)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Port = n
		}
	}
	if v, ok := os.LookupEnv(EnvUsername); ok && v != "" {
		cfg.Username = v
	}
	if v, ok := os.LookupEnv(EnvPassword); ok {
		cfg.Password = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvDatabase)); v != "" {
		cfg.Database = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvParams)); v != "" {
		params := make(map[string]string)
		for _, kv := range strings.Split(v, "&") {
			k, val, found := strings.Cut(kv, "=")
			if !found || k == "" {
				continue
			}
			params[k] = val
		}
		if len(params) > 0 {
			cfg.Params = params
		}
	}
}

// dsnFromConfig returns the DSN for cfg. A non-empty cfg.DSN wins unchanged;
// otherwise the DSN is assembled from the field-based values.
func dsnFromConfig(cfg Config) (string, error) {
	if strings.TrimSpace(cfg.DSN) != "" {
		return cfg.DSN, nil
	}
	if strings.TrimSpace(cfg.Host) == "" {
		return "", fmt.Errorf("mysqlkit: config needs a DSN or a host")
	}
	addr := cfg.Host
	if cfg.Port > 0 {
		addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	}
	// Query params in stable order for test determinism.
	var q string
	if len(cfg.Params) > 0 {
		keys := make([]string, 0, len(cfg.Params))
		for k := range cfg.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%s", k, url.QueryEscape(cfg.Params[k])))
		}
		q = strings.Join(parts, "&")
	}
	// The mysql driver expects the password raw, not URL-encoded.
	auth := ""
	if cfg.Username != "" {
		if cfg.Password != "" {
			auth = fmt.Sprintf("%s:%s@", cfg.Username, cfg.Password)
		} else {
			auth = cfg.Username + "@"
		}
	}
	dsn := fmt.Sprintf("%stcp(%s)/%s", auth, addr, url.PathEscape(cfg.Database))
	if q != "" {
		dsn += "?" + q
	}
	return dsn, nil
}
