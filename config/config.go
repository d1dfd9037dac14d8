package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

// DefaultPath is used when no --config flag is given.
const DefaultPath = "config/config.yml"

type Config struct {
	App        AppConfig        `yaml:"app"`
	Okx        OkxConfig        `yaml:"okx"`
	Market     MarketConfig     `yaml:"market"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Journal    JournalConfig    `yaml:"journal"`
	Trade      TradeConfig      `yaml:"trade"`
	Cache      CacheConfig      `yaml:"cache"`
	Dashboard  DashboardConfig  `yaml:"dashboard"`
	Storage    StorageConfig    `yaml:"storage"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Logging    LoggingConfig    `yaml:"logging"`
	UI         UIConfig         `yaml:"ui"`
}

type AppConfig struct {
	Name     string `yaml:"name"`
	Version  string `yaml:"version"`
	Timezone string `yaml:"timezone"`
}

type OkxConfig struct {
	BaseURL   string          `yaml:"base_url"`
	Timeout   time.Duration   `yaml:"timeout"`
	UserAgent string          `yaml:"user_agent"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type RateLimitConfig struct {
	RequestsPerSecond int `yaml:"requests_per_second"`
	BurstSize         int `yaml:"burst_size"`
}

type MarketConfig struct {
	Bar         string        `yaml:"bar"`
	CandleLimit int           `yaml:"candle_limit"`
	OIPeriod    string        `yaml:"oi_period"`
	OILimit     int           `yaml:"oi_limit"`
	CandlesTTL  time.Duration `yaml:"candles_ttl"`
	TickerTTL   time.Duration `yaml:"ticker_ttl"`
	OITTL       time.Duration `yaml:"oi_ttl"`
}

type ClassifierConfig struct {
	OIPolicy   string           `yaml:"oi_policy"`
	Thresholds ThresholdsConfig `yaml:"thresholds"`
}

type ThresholdsConfig struct {
	RVolExpanding  float64 `yaml:"rvol_expanding"`
	RVolCompressed float64 `yaml:"rvol_compressed"`
	RVAbove        float64 `yaml:"rv_above"`
	RVBelow        float64 `yaml:"rv_below"`
}

type JournalConfig struct {
	ContextFile string        `yaml:"context_file"`
	TradeFile   string        `yaml:"trade_file"`
	BackupDir   string        `yaml:"backup_dir"`
	MaxLag      time.Duration `yaml:"max_lag"`
}

type TradeConfig struct {
	Equity          float64 `yaml:"equity"`
	RiskPercent     float64 `yaml:"risk_percent"`
	Leverage        float64 `yaml:"leverage"`
	MinBiasScore    int     `yaml:"min_bias_score"`
	TimeEvalMinutes int     `yaml:"time_eval_minutes"`
	MaxActive       int     `yaml:"max_active"`
}

type CacheConfig struct {
	Redis RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type DashboardConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Address         string        `yaml:"address"`
	PIN             string        `yaml:"pin"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
}

type StorageConfig struct {
	S3 S3Config `yaml:"s3"`
}

type S3Config struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Prefix          string `yaml:"prefix"`
	Endpoint        string `yaml:"endpoint"`
	PathStyle       bool   `yaml:"path_style"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type MetricsConfig struct {
	CloudWatch CloudWatchConfig `yaml:"cloudwatch"`
}

type CloudWatchConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
	Region    string `yaml:"region"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"`
}

type UIConfig struct {
	Language string `yaml:"language"`
}

// Default returns the configuration used when a key is absent from the file.
func Default() Config {
	return Config{
		App: AppConfig{Name: "contextgate", Version: "1.0.0", Timezone: "Asia/Jakarta"},
		Okx: OkxConfig{
			BaseURL:   "https://www.okx.com",
			Timeout:   10 * time.Second,
			UserAgent: "contextgate/1.0",
			RateLimit: RateLimitConfig{RequestsPerSecond: 5, BurstSize: 5},
		},
		Market: MarketConfig{
			Bar:         "15m",
			CandleLimit: 96,
			OIPeriod:    "15m",
			OILimit:     6,
			CandlesTTL:  60 * time.Second,
			TickerTTL:   60 * time.Second,
			OITTL:       300 * time.Second,
		},
		Classifier: ClassifierConfig{
			OIPolicy: "strict",
			Thresholds: ThresholdsConfig{
				RVolExpanding:  1.2,
				RVolCompressed: 0.8,
				RVAbove:        1.3,
				RVBelow:        0.8,
			},
		},
		Journal: JournalConfig{
			ContextFile: "context_gate_journal.csv",
			TradeFile:   "journal.csv",
			BackupDir:   "backups",
			MaxLag:      30 * time.Minute,
		},
		Trade: TradeConfig{
			Equity:          2500,
			RiskPercent:     1,
			Leverage:        5,
			MinBiasScore:    3,
			TimeEvalMinutes: 30,
			MaxActive:       5,
		},
		Dashboard: DashboardConfig{Enabled: true, Address: ":8080", RefreshInterval: time.Minute},
		Metrics:   MetricsConfig{CloudWatch: CloudWatchConfig{Namespace: "ContextGate"}},
		Logging:   LoggingConfig{Level: "info", Format: "json", Output: "stdout"},
		UI:        UIConfig{Language: "id"},
	}
}

// LoadConfig reads the YAML file at path over the defaults, applies
// environment overrides and validates the result. A missing file is an error.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(ResolvePath(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes raw YAML the same way LoadConfig does.
func Parse(data []byte) (*Config, error) {
	config := Default()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnv(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &config, nil
}

func applyEnv(config *Config) {
	if v := os.Getenv("CONTEXTGATE_PIN"); v != "" {
		config.Dashboard.PIN = strings.TrimSpace(v)
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		config.Cache.Redis.Addr = strings.TrimSpace(v)
	}

	// Override S3 settings from environment variables if available
	if config.Storage.S3.Enabled {
		if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
			config.Storage.S3.AccessKeyID = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
			config.Storage.S3.SecretAccessKey = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_REGION"); v != "" {
			config.Storage.S3.Region = strings.TrimSpace(v)
		}
		if v := os.Getenv("S3_BUCKET"); v != "" {
			config.Storage.S3.Bucket = strings.TrimSpace(v)
		}
	}
	config.Storage.S3.Bucket = strings.TrimSpace(config.Storage.S3.Bucket)
}

func validateConfig(cfg *Config) error {
	if cfg.App.Name == "" {
		return fmt.Errorf("app.name is required")
	}
	if _, err := time.LoadLocation(cfg.App.Timezone); err != nil {
		return fmt.Errorf("app.timezone '%s' is invalid: %w", cfg.App.Timezone, err)
	}

	if cfg.Okx.BaseURL == "" {
		return fmt.Errorf("okx.base_url is required")
	}
	if cfg.Okx.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("okx.rate_limit.requests_per_second must be greater than 0")
	}

	if cfg.Market.CandleLimit <= 0 {
		return fmt.Errorf("market.candle_limit must be greater than 0")
	}
	if cfg.Market.OILimit < 2 {
		return fmt.Errorf("market.oi_limit must be at least 2")
	}

	switch cfg.Classifier.OIPolicy {
	case "strict", "inert_fallback":
	default:
		return fmt.Errorf("classifier.oi_policy '%s' is invalid (strict|inert_fallback)", cfg.Classifier.OIPolicy)
	}
	th := cfg.Classifier.Thresholds
	if th.RVolCompressed <= 0 || th.RVolCompressed > th.RVolExpanding {
		return fmt.Errorf("classifier.thresholds: rvol_compressed must be in (0, rvol_expanding]")
	}
	if th.RVBelow <= 0 || th.RVBelow > th.RVAbove {
		return fmt.Errorf("classifier.thresholds: rv_below must be in (0, rv_above]")
	}

	if cfg.Journal.ContextFile == "" || cfg.Journal.TradeFile == "" {
		return fmt.Errorf("journal.context_file and journal.trade_file are required")
	}
	if cfg.Journal.MaxLag <= 0 {
		return fmt.Errorf("journal.max_lag must be greater than 0")
	}

	if cfg.Trade.MinBiasScore < 0 || cfg.Trade.MinBiasScore > 4 {
		return fmt.Errorf("trade.min_bias_score must be between 0 and 4")
	}
	if cfg.Trade.Leverage < 1 {
		return fmt.Errorf("trade.leverage must be at least 1")
	}

	if cfg.Storage.S3.Enabled {
		if cfg.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required when S3 is enabled")
		}
		if cfg.Storage.S3.Region == "" {
			return fmt.Errorf("storage.s3.region is required when S3 is enabled")
		}
		if !isValidS3Bucket(cfg.Storage.S3.Bucket) {
			return fmt.Errorf("storage.s3.bucket '%s' is invalid", cfg.Storage.S3.Bucket)
		}
	}

	return nil
}

var s3BucketRegexp = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)

func isValidS3Bucket(name string) bool {
	if len(name) < 3 || len(name) > 63 {
		return false
	}
	if strings.Contains(name, "..") || strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		return false
	}
	return s3BucketRegexp.MatchString(name)
}
