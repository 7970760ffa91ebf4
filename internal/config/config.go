package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// App holds the runtime configuration for the booking client and the check-in station.
type App struct {
	Env    string `yaml:"env"`
	APIURL string `yaml:"api_url"`
	// Timeout of zero means requests carry no client-enforced deadline.
	Timeout time.Duration `yaml:"timeout"`

	SessionBackend string `yaml:"session_backend"`
	SessionDir     string `yaml:"session_dir"`
	SessionKey     string `yaml:"session_key"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	TimeZone string `yaml:"time_zone"`

	LogLevel  string `yaml:"log_level"`
	LogPretty bool   `yaml:"log_pretty"`

	StationID       string `yaml:"station_id"`
	StationHTTPPort string `yaml:"station_http_port"`
	QueueBackend    string `yaml:"queue_backend"`
	QueueKey        string `yaml:"queue_key"`
	RateLimitPerMin int    `yaml:"rate_limit_per_min"`

	// AllowedOrigins lets browser-based scanner pages on these origins post to the intake.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Load returns configuration from defaults, the optional YAML file named by
// BOOKING_CONFIG, and environment variables, in increasing precedence.
// Variables from a .env file (or BOOKING_ENV_FILE) fill in the environment
// without overriding what is already set.
func Load() (App, error) {
	if err := loadDotEnv(); err != nil {
		return App{}, err
	}
	cfg := defaults()
	if path := os.Getenv("BOOKING_CONFIG"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return App{}, err
		}
	}
	cfg.mergeEnv()
	if err := cfg.Validate(); err != nil {
		return App{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func loadDotEnv() error {
	path := os.Getenv("BOOKING_ENV_FILE")
	if path == "" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load .env: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

func defaults() App {
	return App{
		Env:             "dev",
		APIURL:          "http://localhost:5000/api",
		SessionBackend:  "file",
		SessionDir:      defaultSessionDir(),
		SessionKey:      "booking:session",
		RedisAddr:       "localhost:6379",
		LogLevel:        "info",
		StationHTTPPort: "8090",
		QueueBackend:    "memory",
		QueueKey:        "booking:scans",
		RateLimitPerMin: 120,
	}
}

func defaultSessionDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".booking"
	}
	return filepath.Join(home, ".booking")
}

func (c *App) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	return nil
}

func (c *App) mergeEnv() {
	c.Env = getEnv("APP_ENV", c.Env)
	c.APIURL = strings.TrimRight(getEnv("BOOKING_API_URL", c.APIURL), "/")
	c.Timeout = durationEnv("BOOKING_TIMEOUT", c.Timeout)
	c.SessionBackend = getEnv("BOOKING_SESSION_BACKEND", c.SessionBackend)
	c.SessionDir = getEnv("BOOKING_SESSION_DIR", c.SessionDir)
	c.SessionKey = getEnv("BOOKING_SESSION_KEY", c.SessionKey)
	c.RedisAddr = getEnv("REDIS_ADDR", c.RedisAddr)
	c.RedisPassword = getEnv("REDIS_PASSWORD", c.RedisPassword)
	c.RedisDB = intEnv("REDIS_DB", c.RedisDB)
	c.TimeZone = getEnv("BOOKING_TZ", c.TimeZone)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogPretty = boolEnv("LOG_PRETTY", c.LogPretty)
	c.StationID = getEnv("STATION_ID", c.StationID)
	c.StationHTTPPort = getEnv("STATION_HTTP_PORT", c.StationHTTPPort)
	c.QueueBackend = getEnv("QUEUE_BACKEND", c.QueueBackend)
	c.QueueKey = getEnv("STATION_QUEUE_KEY", c.QueueKey)
	c.RateLimitPerMin = intEnv("RATE_LIMIT_PER_MIN", c.RateLimitPerMin)
	c.AllowedOrigins = listEnv("STATION_ALLOWED_ORIGINS", c.AllowedOrigins)
}

// Validate rejects settings no component can run with.
func (c App) Validate() error {
	if strings.TrimSpace(c.APIURL) == "" {
		return fmt.Errorf("api url is required")
	}
	switch c.SessionBackend {
	case "file", "redis":
	default:
		return fmt.Errorf("unknown session backend %q", c.SessionBackend)
	}
	switch c.QueueBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown queue backend %q", c.QueueBackend)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error", "fatal":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location is the viewer's local time zone used to render and enter timestamps.
func (c App) Location() (*time.Location, error) {
	if c.TimeZone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid time zone %q: %w", c.TimeZone, err)
	}
	return loc, nil
}

// IsProduction reports whether the station should run in release mode.
func (c App) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func listEnv(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			log.Printf("invalid duration for %s: %v, using fallback %s", key, err, fallback)
			return fallback
		}
		return d
	}
	return fallback
}

func boolEnv(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if val == "1" || val == "true" || val == "TRUE" {
			return true
		}
		if val == "0" || val == "false" || val == "FALSE" {
			return false
		}
		log.Printf("invalid bool for %s, using fallback %v", key, fallback)
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var parsed int
		if _, err := fmt.Sscanf(val, "%d", &parsed); err == nil {
			return parsed
		}
		log.Printf("invalid int for %s, using fallback %d", key, fallback)
	}
	return fallback
}
