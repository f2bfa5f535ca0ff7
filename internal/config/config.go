package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Attempt store backends
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

var gateCodePattern = regexp.MustCompile(`^\d{3}$`)

type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Gate     GateConfig
	Store    StoreConfig
	Alert    AlertConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	PrivateDir     string
}

type GateConfig struct {
	Password        string
	SessionSecret   string
	MaxAttempts     int
	LockoutWindow   time.Duration
	SessionDuration time.Duration
	TimingBase      time.Duration
	TimingRandom    time.Duration
	RateLimitPerMin int
	CookieDomain    string
	CookieSameSite  string
}

type StoreConfig struct {
	Backend       string
	SweepInterval time.Duration
}

// AlertConfig configures lockout alert emails. Alerts are off unless both
// addresses are set.
type AlertConfig struct {
	AWSRegion string
	From      string
	To        []string
	// Interval is the minimum gap between alerts. Zero means the lockout window.
	Interval time.Duration
}

// Enabled reports whether lockout alerts should be sent
func (c AlertConfig) Enabled() bool {
	return c.From != "" && len(c.To) > 0
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	password := getEnv("GATE_PASSWORD", "")
	if password == "" {
		return nil, fmt.Errorf("GATE_PASSWORD is required")
	}
	if !gateCodePattern.MatchString(password) {
		return nil, fmt.Errorf("GATE_PASSWORD must be exactly 3 digits")
	}

	sessionSecret := getEnv("SESSION_SECRET", "")
	if sessionSecret == "" {
		return nil, fmt.Errorf("SESSION_SECRET is required")
	}

	env := getEnv("ENV", "development")

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "sitegate"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 10)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 1)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			AllowedOrigins: parseAllowedOrigins(env),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:    getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			PrivateDir:     getEnv("PRIVATE_DIR", ""),
		},
		Gate: GateConfig{
			Password:        password,
			SessionSecret:   sessionSecret,
			MaxAttempts:     getEnvAsInt("GATE_MAX_ATTEMPTS", 5),
			LockoutWindow:   getEnvAsDuration("GATE_LOCKOUT_WINDOW", 30*time.Second),
			SessionDuration: getEnvAsDuration("GATE_SESSION_DURATION", 24*time.Hour),
			TimingBase:      time.Duration(getEnvAsInt("GATE_TIMING_BASE_MS", 250)) * time.Millisecond,
			TimingRandom:    time.Duration(getEnvAsInt("GATE_TIMING_RANDOM_MS", 100)) * time.Millisecond,
			RateLimitPerMin: getEnvAsInt("GATE_RATE_LIMIT_PER_MIN", 60),
			CookieDomain:    getEnv("COOKIE_DOMAIN", ""),
			CookieSameSite:  strings.ToLower(getEnv("COOKIE_SAMESITE", "strict")),
		},
		Store: StoreConfig{
			Backend:       strings.ToLower(getEnv("ATTEMPT_STORE", StoreMemory)),
			SweepInterval: getEnvAsDuration("ATTEMPT_SWEEP_INTERVAL", 1*time.Minute),
		},
		Alert: AlertConfig{
			AWSRegion: getEnv("AWS_REGION", "us-east-1"),
			From:      getEnv("LOCKOUT_ALERT_FROM", ""),
			To:        splitList(getEnv("LOCKOUT_ALERT_TO", "")),
			Interval:  getEnvAsDuration("LOCKOUT_ALERT_INTERVAL", 0),
		},
	}

	if err := validateSessionSecret(sessionSecret, env); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Backend {
	case StoreMemory:
	case StorePostgres:
		if c.Database.Password == "" {
			return fmt.Errorf("DB_PASSWORD is required when ATTEMPT_STORE=postgres")
		}
	default:
		return fmt.Errorf("ATTEMPT_STORE must be %q or %q (got %q)", StoreMemory, StorePostgres, c.Store.Backend)
	}

	if c.Gate.MaxAttempts < 1 {
		return fmt.Errorf("GATE_MAX_ATTEMPTS must be at least 1")
	}
	if c.Gate.LockoutWindow <= 0 || c.Gate.SessionDuration <= 0 || c.Store.SweepInterval <= 0 {
		return fmt.Errorf("GATE_LOCKOUT_WINDOW, GATE_SESSION_DURATION and ATTEMPT_SWEEP_INTERVAL must be positive")
	}
	if c.Gate.TimingBase < 0 || c.Gate.TimingRandom < 0 {
		return fmt.Errorf("gate timing delays cannot be negative")
	}
	if c.Gate.RateLimitPerMin < 1 {
		return fmt.Errorf("GATE_RATE_LIMIT_PER_MIN must be at least 1")
	}
	// SameSite=None would send the session cookies on cross-site requests
	if c.Gate.CookieSameSite != "strict" && c.Gate.CookieSameSite != "lax" {
		return fmt.Errorf("COOKIE_SAMESITE must be \"strict\" or \"lax\" (got %q)", c.Gate.CookieSameSite)
	}
	if c.Alert.Interval < 0 {
		return fmt.Errorf("LOCKOUT_ALERT_INTERVAL cannot be negative")
	}

	return nil
}

// validateSessionSecret enforces minimum security standards for the session
// signing secret
func validateSessionSecret(secret, env string) error {
	minLength := 16 // Development minimum
	if env == "production" {
		minLength = 32
	}

	if len(secret) < minLength {
		return fmt.Errorf("SESSION_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if strings.Trim(secretLower, "0123456789!-_") == weak {
			return fmt.Errorf("SESSION_SECRET cannot be a common weak value")
		}
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

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

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func parseAllowedOrigins(env string) []string {
	if origins := splitList(getEnv("ALLOWED_ORIGINS", "")); origins != nil || env == "production" {
		return origins
	}

	// Development: allow localhost variants
	return []string{
		"http://localhost:3000",
		"http://localhost:8080",
		"http://localhost:5173",
		"http://127.0.0.1:3000",
		"http://127.0.0.1:8080",
		"http://127.0.0.1:5173",
	}
}
