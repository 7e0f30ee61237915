package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration loaded from the environment.
type Config struct {
	// Logging
	LogLevel   string
	LogConsole bool

	// MetricsAddr is the listen address for the Prometheus /metrics
	// endpoint; empty disables it.
	MetricsAddr string

	// Storage
	DBPath string

	// Price feed
	BinanceAPIKey    string
	BinanceSecretKey string
	BinanceTestnet   bool

	// Simulation engine
	PollInterval    time.Duration
	EntryTimeout    time.Duration
	EntryTolerance  float64
	DefaultSizeUSD  float64
	DefaultLeverage int

	// Dedup
	DedupBackend    string // memory | redis | sqlite
	DedupWindow     time.Duration
	RedisAddr       string
	MaxFingerprints int

	// AI parser (optional, disabled when APIKey is empty)
	AIBaseURL string
	AIAPIKey  string
	AIModel   string
	AITimeout time.Duration
}

// Load reads configuration from the environment, preferring a .env file if
// one is present in the working directory.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		LogConsole: getEnvAsBool("LOG_CONSOLE", false),

		MetricsAddr: getEnv("METRICS_ADDR", ":9090"),

		DBPath: getEnv("DB_PATH", "./signals.db"),

		BinanceAPIKey:    getEnv("BINANCE_API_KEY", ""),
		BinanceSecretKey: getEnv("BINANCE_SECRET_KEY", ""),
		BinanceTestnet:   getEnvAsBool("BINANCE_TESTNET", true),

		PollInterval:    time.Duration(getEnvAsInt("POLL_INTERVAL_SECONDS", 5)) * time.Second,
		EntryTimeout:    time.Duration(getEnvAsInt("ENTRY_TIMEOUT_HOURS", 48)) * time.Hour,
		EntryTolerance:  getEnvAsFloat("ENTRY_TOLERANCE", 0.005),
		DefaultSizeUSD:  getEnvAsFloat("DEFAULT_SIZE_USD", 1000),
		DefaultLeverage: getEnvAsInt("DEFAULT_LEVERAGE", 1),

		DedupBackend:    getEnv("DEDUP_BACKEND", "memory"),
		DedupWindow:     time.Duration(getEnvAsInt("DEDUP_WINDOW_MINUTES", 120)) * time.Minute,
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		MaxFingerprints: getEnvAsInt("MAX_FINGERPRINTS", 10000),

		AIBaseURL: getEnv("AI_BASE_URL", "https://api.openai.com"),
		AIAPIKey:  getEnv("AI_API_KEY", ""),
		AIModel:   getEnv("AI_MODEL", "gpt-4o-mini"),
		AITimeout: time.Duration(getEnvAsInt("AI_TIMEOUT_SECONDS", 20)) * time.Second,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// AIEnabled reports whether the external AI parser should be wired.
func (c *Config) AIEnabled() bool {
	return c.AIAPIKey != ""
}

func (c *Config) validate() error {
	var errs []string

	if c.DBPath == "" {
		errs = append(errs, "DB_PATH is required")
	}
	if c.PollInterval <= 0 {
		errs = append(errs, "POLL_INTERVAL_SECONDS must be positive")
	}
	if c.EntryTimeout <= 0 {
		errs = append(errs, "ENTRY_TIMEOUT_HOURS must be positive")
	}
	if c.EntryTolerance < 0 || c.EntryTolerance > 0.1 {
		errs = append(errs, "ENTRY_TOLERANCE must be in [0, 0.1]")
	}
	if c.DefaultSizeUSD <= 0 {
		errs = append(errs, "DEFAULT_SIZE_USD must be positive")
	}
	if c.DefaultLeverage < 1 {
		errs = append(errs, "DEFAULT_LEVERAGE must be at least 1")
	}
	switch c.DedupBackend {
	case "memory", "redis", "sqlite":
	default:
		errs = append(errs, fmt.Sprintf("DEDUP_BACKEND must be one of memory, redis, sqlite (got %q)", c.DedupBackend))
	}
	if c.DedupBackend == "redis" && c.RedisAddr == "" {
		errs = append(errs, "REDIS_ADDR is required when DEDUP_BACKEND=redis")
	}
	if c.DedupWindow <= 0 {
		errs = append(errs, "DEDUP_WINDOW_MINUTES must be positive")
	}
	if c.MaxFingerprints < 1 {
		errs = append(errs, "MAX_FINGERPRINTS must be at least 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}
