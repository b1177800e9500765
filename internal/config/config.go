package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	App       AppConfig       `yaml:"app"`
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
	Calendar  CalendarConfig  `yaml:"calendar"`
	Index     IndexConfig     `yaml:"index"`
	Screener  ScreenerConfig  `yaml:"screener"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// AppConfig represents application configuration
type AppConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Env     string `yaml:"env"`
}

// ServerConfig represents API server configuration
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	DBName          string        `yaml:"dbname"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpen         int           `yaml:"max_open"`
	MaxIdle         int           `yaml:"max_idle"`
	Timeout         time.Duration `yaml:"timeout"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// RedisConfig represents Redis configuration
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

// RateLimitConfig represents API rate limiting configuration
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
	Burst             int  `yaml:"burst"`
}

// AuthConfig represents API authentication configuration
type AuthConfig struct {
	SecretKey string        `yaml:"secret_key"`
	Duration  time.Duration `yaml:"duration"`
	Username  string        `yaml:"username"`
	Password  string        `yaml:"password"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	Output     string `yaml:"output"`
	Filename   string `yaml:"filename"`
	MaxSize    int    `yaml:"max_size"`
	MaxAge     int    `yaml:"max_age"`
	MaxBackups int    `yaml:"max_backups"`
	Compress   bool   `yaml:"compress"`
}

// CalendarConfig represents trading calendar configuration
type CalendarConfig struct {
	// HolidayFile is an optional JSON file listing non-trading dates,
	// format {"holidays": ["2025-01-01", ...]}
	HolidayFile string `yaml:"holiday_file"`
}

// IndexConfig represents sector index calculation configuration
type IndexConfig struct {
	BaseValue float64 `yaml:"base_value"`
	// HistoryDays is the panel lookback used when cold-starting an index.
	HistoryDays int `yaml:"history_days"`
	// MaxChainDays bounds the incremental chain length before a full
	// recalculation is forced to resync rounding drift.
	MaxChainDays int `yaml:"max_chain_days"`
}

// ScreenerConfig represents active stock screener configuration
type ScreenerConfig struct {
	TurnoverWindow  int     `yaml:"turnover_window"`
	BurstLookback   int     `yaml:"burst_lookback"`
	BurstMultiplier float64 `yaml:"burst_multiplier"`
	SelectRatio     float64 `yaml:"select_ratio"`
	MinSelect       int     `yaml:"min_select"`
	SOEBonus        float64 `yaml:"soe_bonus"`
	HighPriceBonus  float64 `yaml:"high_price_bonus"`
}

// SchedulerConfig represents daily maintenance scheduling configuration
type SchedulerConfig struct {
	Enabled bool `yaml:"enabled"`
	// Spec is a cron expression; default fires after A-share market close.
	Spec string `yaml:"spec"`
}

// Load loads configuration from a YAML file, with environment overrides
// applied on top. A .env file next to the process is honored if present.
func Load(filename string) (*Config, error) {
	// .env 文件存在时优先加载（本地开发环境）
	_ = godotenv.Load()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyDefaults()
	config.applyEnvOverrides()

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Index.BaseValue <= 0 {
		c.Index.BaseValue = 1000
	}
	if c.Index.HistoryDays <= 0 {
		c.Index.HistoryDays = 365
	}
	if c.Index.MaxChainDays <= 0 {
		c.Index.MaxChainDays = 120
	}
	if c.Screener.TurnoverWindow <= 0 {
		c.Screener.TurnoverWindow = 30
	}
	if c.Screener.BurstLookback <= 0 {
		c.Screener.BurstLookback = 126
	}
	if c.Screener.BurstMultiplier <= 0 {
		c.Screener.BurstMultiplier = 1.5
	}
	if c.Screener.SelectRatio <= 0 {
		c.Screener.SelectRatio = 0.2
	}
	if c.Screener.MinSelect <= 0 {
		c.Screener.MinSelect = 3
	}
	if c.Screener.SOEBonus <= 0 {
		c.Screener.SOEBonus = 1.2
	}
	if c.Screener.HighPriceBonus <= 0 {
		c.Screener.HighPriceBonus = 1.2
	}
	if c.Auth.Duration <= 0 {
		c.Auth.Duration = 24 * time.Hour
	}
	if c.Scheduler.Spec == "" {
		c.Scheduler.Spec = "30 16 * * MON-FRI"
	}
}

// applyEnvOverrides overlays ASHARE_* environment variables on top of the
// file configuration, so deployments can keep credentials out of YAML.
func (c *Config) applyEnvOverrides() {
	c.Database.Host = envString("ASHARE_DB_HOST", c.Database.Host)
	c.Database.Port = envInt("ASHARE_DB_PORT", c.Database.Port)
	c.Database.User = envString("ASHARE_DB_USER", c.Database.User)
	c.Database.Password = envString("ASHARE_DB_PASSWORD", c.Database.Password)
	c.Database.DBName = envString("ASHARE_DB_NAME", c.Database.DBName)
	c.Redis.Addr = envString("ASHARE_REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = envString("ASHARE_REDIS_PASSWORD", c.Redis.Password)
	c.Auth.SecretKey = envString("ASHARE_AUTH_SECRET", c.Auth.SecretKey)
	c.Auth.Username = envString("ASHARE_AUTH_USER", c.Auth.Username)
	c.Auth.Password = envString("ASHARE_AUTH_PASSWORD", c.Auth.Password)
}

func envString(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func envInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}
