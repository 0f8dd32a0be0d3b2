package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/candlecast/internal/analysis/prediction"
	"github.com/Alias1177/candlecast/internal/calculate"
	"github.com/Alias1177/candlecast/internal/database"
	"github.com/Alias1177/candlecast/internal/weights"
	"github.com/Alias1177/candlecast/models"
)

// Config holds all application configuration
type Config struct {
	TwelveAPIKey    string   `validate:"required"`
	Symbols         []string `validate:"min=1,dive,required"`
	IntervalMinutes int      `validate:"oneof=1 3 5 10 15 30 60"`
	CandleCount     int      `validate:"min=15,max=5000"`
	RequestTimeout  int      `validate:"min=1"` // seconds
	RequestsPerSec  int      `validate:"min=1"`

	RSIPeriod         int     `validate:"min=2"`
	MACDFastPeriod    int     `validate:"min=2"`
	MACDSlowPeriod    int     `validate:"gtfield=MACDFastPeriod"`
	MACDSignalPeriod  int     `validate:"min=2"`
	BBPeriod          int     `validate:"min=2"`
	BBStdDev          float64 `validate:"gt=0"`
	ATRPeriod         int     `validate:"min=1"`
	ADXPeriod         int     `validate:"min=2"`
	AdaptiveIndicator bool

	LearnerBatchSize int     `validate:"min=1"`
	LearnerMaxStep   float64 `validate:"gt=0,lte=1"`
	HistoryLimit     int     `validate:"min=1"`

	BacktestDays int `validate:"min=1"`

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string `validate:"omitempty,oneof=disable require verify-ca verify-full"`
	RedisAddr  string `validate:"omitempty,hostname_port"`

	TelegramToken  string
	TelegramChatID int64 `validate:"required_with=TelegramToken"`

	MetricsAddr string `validate:"omitempty,hostname_port"`

	AccountSize  float64 `validate:"gt=0"`
	RiskFraction float64 `validate:"gt=0,lte=0.1"`

	LogLevel string `validate:"oneof=trace debug info warn error fatal panic disabled"`
}

var validate = validator.New()

// Load initializes configuration from environment variables and validates it
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, relying on actual environment variables")
	}

	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv reads the configuration from the environment without validating it
func FromEnv() *Config {
	var cfg Config

	cfg.TwelveAPIKey = os.Getenv("TWELVE_API_KEY")
	cfg.Symbols = getEnvListWithDefault("SYMBOLS", []string{"EUR/USD"})
	cfg.IntervalMinutes = getEnvIntWithDefault("INTERVAL_MINUTES", 5)
	cfg.CandleCount = getEnvIntWithDefault("CANDLE_COUNT", 100)
	cfg.RequestTimeout = getEnvIntWithDefault("REQUEST_TIMEOUT", 30)
	cfg.RequestsPerSec = getEnvIntWithDefault("REQUESTS_PER_SEC", 5)

	cfg.RSIPeriod = getEnvIntWithDefault("RSI_PERIOD", 14)
	cfg.MACDFastPeriod = getEnvIntWithDefault("MACD_FAST_PERIOD", 12)
	cfg.MACDSlowPeriod = getEnvIntWithDefault("MACD_SLOW_PERIOD", 26)
	cfg.MACDSignalPeriod = getEnvIntWithDefault("MACD_SIGNAL_PERIOD", 9)
	cfg.BBPeriod = getEnvIntWithDefault("BB_PERIOD", 20)
	cfg.BBStdDev = getEnvFloatWithDefault("BB_STD_DEV", 2.0)
	cfg.ATRPeriod = getEnvIntWithDefault("ATR_PERIOD", 14)
	cfg.ADXPeriod = getEnvIntWithDefault("ADX_PERIOD", 14)
	cfg.AdaptiveIndicator = getEnvBoolWithDefault("ADAPTIVE_INDICATOR", false)

	cfg.LearnerBatchSize = getEnvIntWithDefault("LEARNER_BATCH_SIZE", 10)
	cfg.LearnerMaxStep = getEnvFloatWithDefault("LEARNER_MAX_STEP", 0.1)
	cfg.HistoryLimit = getEnvIntWithDefault("HISTORY_LIMIT", prediction.DefaultHistoryLimit)

	cfg.BacktestDays = getEnvIntWithDefault("BACKTEST_DAYS", 5)

	cfg.DBHost = os.Getenv("DB_HOST")
	cfg.DBPort = getEnvWithDefault("DB_PORT", "5432")
	cfg.DBUser = getEnvWithDefault("DB_USER", "postgres")
	cfg.DBPassword = os.Getenv("DB_PASSWORD")
	cfg.DBName = getEnvWithDefault("DB_NAME", "candlecast")
	cfg.DBSSLMode = getEnvWithDefault("DB_SSLMODE", "disable")
	cfg.RedisAddr = os.Getenv("REDIS_ADDR")

	cfg.TelegramToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	cfg.TelegramChatID = getEnvInt64WithDefault("TELEGRAM_CHAT_ID", 0)

	cfg.MetricsAddr = os.Getenv("METRICS_ADDR")

	cfg.AccountSize = getEnvFloatWithDefault("ACCOUNT_SIZE", 10000)
	cfg.RiskFraction = getEnvFloatWithDefault("RISK_FRACTION", 0.02)

	cfg.LogLevel = strings.ToLower(getEnvWithDefault("LOG_LEVEL", "info"))

	return &cfg
}

// Validate checks every field against its constraints
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Interval returns the provider notation of the prediction interval, e.g. "5min"
func (c *Config) Interval() string {
	s, err := models.IntervalString(c.IntervalMinutes)
	if err != nil {
		return ""
	}
	return s
}

// Timeout returns the HTTP request timeout
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// Level returns the configured zerolog level
func (c *Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

// IndicatorParams returns the indicator periods for the engine
func (c *Config) IndicatorParams() calculate.Params {
	p := calculate.DefaultParams()
	p.RSIPeriod = c.RSIPeriod
	p.MACDFastPeriod = c.MACDFastPeriod
	p.MACDSlowPeriod = c.MACDSlowPeriod
	p.MACDSignalPeriod = c.MACDSignalPeriod
	p.BBPeriod = c.BBPeriod
	p.BBStdDev = c.BBStdDev
	p.ATRPeriod = c.ATRPeriod
	p.ADXPeriod = c.ADXPeriod
	p.Adaptive = c.AdaptiveIndicator
	return p
}

// LearnerConfig returns the weight learner settings
func (c *Config) LearnerConfig() weights.LearnerConfig {
	lc := weights.DefaultLearnerConfig()
	lc.BatchSize = c.LearnerBatchSize
	lc.MaxStep = c.LearnerMaxStep
	return lc
}

// DatabaseEnabled reports whether Postgres connection details are set
func (c *Config) DatabaseEnabled() bool {
	return c.DBHost != ""
}

// ConnectionParams returns the Postgres connection parameters
func (c *Config) ConnectionParams() database.ConnectionParams {
	return database.ConnectionParams{
		Host:     c.DBHost,
		Port:     c.DBPort,
		User:     c.DBUser,
		Password: c.DBPassword,
		DBName:   c.DBName,
		SSLMode:  c.DBSSLMode,
	}
}

// Helper functions for environment variable handling
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64WithDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatWithDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolWithDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvListWithDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
