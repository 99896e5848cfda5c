package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"http_server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Security      SecurityConfig      `mapstructure:"security" validate:"required"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	BaseURL           string        `mapstructure:"base_url"`
	AllowedOrigins    string        `mapstructure:"allowed_origins"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	ThrottleBurst     int           `mapstructure:"throttle_burst"`
	ThrottlePerSecond int           `mapstructure:"throttle_per_second"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Source          string        `mapstructure:"source"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

type SecurityConfig struct {
	SessionDuration time.Duration `mapstructure:"session_duration"`
	BCryptCost      int           `mapstructure:"bcrypt_cost"`

	// LegacySalt verifies password digests imported from the legacy
	// localStorage-backed deployment. New digests always use bcrypt.
	LegacySalt string `mapstructure:"legacy_salt"`

	EncryptionKey string `mapstructure:"encryption_key"`

	MaxLoginAttempts int           `mapstructure:"max_login_attempts"`
	RateLimitWindow  time.Duration `mapstructure:"rate_limit_window"`

	// NormalizeRateLimitKeys lower-cases and trims lockout keys. Off by
	// default: lockouts have always been keyed on the raw identifier string.
	NormalizeRateLimitKeys bool `mapstructure:"normalize_rate_limit_keys"`

	// StrictSessionValidation fails a session closed when its account row
	// can no longer be found, instead of trusting the stored snapshot.
	StrictSessionValidation bool `mapstructure:"strict_session_validation"`

	ResetTokenSecret   string        `mapstructure:"reset_token_secret"`
	ResetTokenDuration time.Duration `mapstructure:"reset_token_duration"`

	SecurityLogLimit int `mapstructure:"security_log_limit"`
}

type ObservabilityConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ----------------- DEFAULTS -----------------

const (
	DefaultSessionDuration    = 8 * time.Hour
	DefaultMaxLoginAttempts   = 5
	DefaultRateLimitWindow    = 15 * time.Minute
	DefaultResetTokenDuration = 24 * time.Hour
	DefaultSecurityLogLimit   = 1000
)

// ApplyDefaults fills zero-valued security knobs with the stock limits.
func (c *Config) ApplyDefaults() {
	if c.Security.SessionDuration <= 0 {
		c.Security.SessionDuration = DefaultSessionDuration
	}
	if c.Security.MaxLoginAttempts <= 0 {
		c.Security.MaxLoginAttempts = DefaultMaxLoginAttempts
	}
	if c.Security.RateLimitWindow <= 0 {
		c.Security.RateLimitWindow = DefaultRateLimitWindow
	}
	if c.Security.ResetTokenDuration <= 0 {
		c.Security.ResetTokenDuration = DefaultResetTokenDuration
	}
	if c.Security.SecurityLogLimit <= 0 {
		c.Security.SecurityLogLimit = DefaultSecurityLogLimit
	}
	if c.Security.BCryptCost <= 0 {
		c.Security.BCryptCost = 12
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
}

// ----------------- ENV -----------------

func LoadConfigFromEnv() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port:              getEnvAsInt("SERVER_PORT", 8080),
			BaseURL:           getEnv("SERVER_BASE_URL", ""),
			AllowedOrigins:    getEnv("SERVER_ALLOWED_ORIGINS", ""),
			ReadHeaderTimeout: getEnvAsDuration("SERVER_READ_HEADER_TIMEOUT", 5*time.Second),
			ReadTimeout:       getEnvAsDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			IdleTimeout:       getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			WriteTimeout:      getEnvAsDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			ThrottlePerSecond: getEnvAsInt("SERVER_THROTTLE_PER_SECOND", 0),
			ThrottleBurst:     getEnvAsInt("SERVER_THROTTLE_BURST", 0),
		},
		Database: DatabaseConfig{
			Driver:          getEnv("DATABASE_DRIVER", "sqlite"),
			Source:          getEnv("DATABASE_SOURCE", "workshop.db"),
			MaxOpenConns:    getEnvAsInt("DATABASE_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvAsInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DATABASE_CONN_MAX_LIFETIME", time.Hour),
			ConnMaxIdleTime: getEnvAsDuration("DATABASE_CONN_MAX_IDLE_TIME", 10*time.Minute),
		},
		Security: SecurityConfig{
			SessionDuration:         getEnvAsDuration("SECURITY_SESSION_DURATION", DefaultSessionDuration),
			BCryptCost:              getEnvAsInt("SECURITY_BCRYPT_COST", 12),
			LegacySalt:              getEnv("SECURITY_LEGACY_SALT", "roadease_salt_2024"),
			EncryptionKey:           getEnv("SECURITY_ENCRYPTION_KEY", ""),
			MaxLoginAttempts:        getEnvAsInt("SECURITY_MAX_LOGIN_ATTEMPTS", DefaultMaxLoginAttempts),
			RateLimitWindow:         getEnvAsDuration("SECURITY_RATE_LIMIT_WINDOW", DefaultRateLimitWindow),
			NormalizeRateLimitKeys:  getEnvAsBool("SECURITY_NORMALIZE_RATE_LIMIT_KEYS", false),
			StrictSessionValidation: getEnvAsBool("SECURITY_STRICT_SESSION_VALIDATION", false),
			ResetTokenSecret:        getEnv("SECURITY_RESET_TOKEN_SECRET", ""),
			ResetTokenDuration:      getEnvAsDuration("SECURITY_RESET_TOKEN_DURATION", DefaultResetTokenDuration),
			SecurityLogLimit:        getEnvAsInt("SECURITY_LOG_LIMIT", DefaultSecurityLogLimit),
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: getEnvAsBool("METRICS_ENABLED", true),
				Path:    getEnv("METRICS_PATH", "/metrics"),
			},
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "json"),
			},
		},
	}
	return cfg
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.AllowedOrigins != "" {
		origins := strings.Split(c.AllowedOrigins, ",")
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	switch c.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Driver)
	}
	if c.Source == "" {
		return errors.New("database source is required")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}

func (c *SecurityConfig) Validate() error {
	if c.BCryptCost < 10 || c.BCryptCost > 15 {
		return errors.New("bcrypt_cost must be between 10 and 15")
	}
	if len(c.ResetTokenSecret) < 32 {
		return errors.New("reset_token_secret must be at least 32 characters")
	}
	if c.SessionDuration <= 0 {
		return errors.New("session_duration must be positive")
	}
	return nil
}
