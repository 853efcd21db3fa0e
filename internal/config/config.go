package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	defaultDSN               = "host=localhost user=postgres password=postgres dbname=portal port=5432 sslmode=disable"
	defaultCORSOrigins       = "http://localhost:3000"
	defaultVarianceThreshold = 15
)

type Config struct {
	HTTPPort    string `toml:"http_port"`
	DatabaseDSN string `toml:"database_dsn"`
	JWTSecret   string `toml:"jwt_secret"`
	CORSOrigins string `toml:"cors_origins"`

	// VarianceThreshold is the percentage-point gap between financial and
	// physical performance at which a project stops being "aligned".
	VarianceThreshold int64 `toml:"variance_threshold"`

	// AuditMode is "atomic" or "best_effort".
	AuditMode string `toml:"audit_mode"`

	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`

	// UploadDir holds project document files.
	UploadDir string `toml:"upload_dir"`
}

// Load builds the configuration from an optional TOML file named by
// PORTAL_CONFIG, then lets environment variables override each key.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPPort:          "8080",
		DatabaseDSN:       defaultDSN,
		CORSOrigins:       defaultCORSOrigins,
		VarianceThreshold: defaultVarianceThreshold,
		AuditMode:         "atomic",
		LogLevel:          "info",
		LogFormat:         "json",
		UploadDir:         "uploads",
	}

	if path := os.Getenv("PORTAL_CONFIG"); path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	cfg.HTTPPort = getEnv("HTTP_PORT", cfg.HTTPPort)
	cfg.DatabaseDSN = getEnv("DATABASE_DSN", cfg.DatabaseDSN)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.CORSOrigins = getEnv("CORS_ALLOWED_ORIGINS", cfg.CORSOrigins)
	cfg.AuditMode = getEnv("AUDIT_MODE", cfg.AuditMode)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)
	cfg.UploadDir = getEnv("UPLOAD_DIR", cfg.UploadDir)

	if v := os.Getenv("VARIANCE_THRESHOLD"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("VARIANCE_THRESHOLD must be an integer: %w", err)
		}
		cfg.VarianceThreshold = n
	}

	return cfg, nil
}

// Validate checks the settings the HTTP server cannot run without.
// The operator CLI only needs a DSN and skips it.
func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is not set"))
	} else if len(c.JWTSecret) < 32 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 32 characters"))
	}
	if c.VarianceThreshold <= 0 {
		errs = append(errs, fmt.Errorf("variance threshold must be positive, got %d", c.VarianceThreshold))
	}
	switch c.AuditMode {
	case "atomic", "best_effort":
	default:
		errs = append(errs, fmt.Errorf("unknown audit mode %q", c.AuditMode))
	}
	return errors.Join(errs...)
}

// Warnings lists settings still at their development defaults.
func (c *Config) Warnings() []string {
	var w []string
	if c.DatabaseDSN == defaultDSN {
		w = append(w, "DATABASE_DSN is using the development default")
	}
	if c.CORSOrigins == defaultCORSOrigins {
		w = append(w, "CORS_ALLOWED_ORIGINS is using the development default")
	}
	return w
}

// CORSOriginList splits the comma-separated origin setting.
func (c *Config) CORSOriginList() []string {
	parts := strings.Split(c.CORSOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
