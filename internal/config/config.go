package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"xparking/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Backup     BackupConfig     `yaml:"backup"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	API        APIConfig        `yaml:"api"`
	Parking    ParkingConfig    `yaml:"parking"`
	Pricing    PricingConfig    `yaml:"pricing"`
	SePay      SePayConfig      `yaml:"sepay"`
	Worker     WorkerConfig     `yaml:"worker"`
	Exports    ExportConfig     `yaml:"exports"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	HTTP      APIHTTPConfig      `yaml:"http"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Port int `yaml:"port"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	HeaderExtra  string         `yaml:"header_extra"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key         string   `yaml:"key"`
	Extra       string   `yaml:"extra"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type ParkingConfig struct {
	Timezone string   `yaml:"timezone"`
	Slots    []string `yaml:"slots"`
}

type PricingConfig struct {
	BaseAmount  int64 `yaml:"base_amount"`
	BaseMinutes int64 `yaml:"base_minutes"`
}

type SePayConfig struct {
	APIURL             string `yaml:"api_url"`
	APIToken           string `yaml:"api_token"`
	BankAccount        string `yaml:"bank_account"`
	BankCode           string `yaml:"bank_code"`
	QRTemplate         string `yaml:"qr_template"`
	FeedLimit          int    `yaml:"feed_limit"`
	MatchWindowMinutes int    `yaml:"match_window_minutes"`
	PaymentTTLMinutes  int    `yaml:"payment_ttl_minutes"`
}

type WorkerConfig struct {
	PollIntervalSeconds int `yaml:"poll_interval_seconds"`
	MaxRetries          int `yaml:"max_retries"`
}

// PollInterval returns the worker poll interval as a duration.
func (w WorkerConfig) PollInterval() time.Duration {
	return time.Duration(w.PollIntervalSeconds) * time.Second
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional; env vars may come from the environment directly.
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Expand ${VAR} references before parsing so secrets stay out of YAML.
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	if c.Pricing.BaseMinutes <= 0 {
		return errors.New("pricing base_minutes must be positive")
	}
	if c.Pricing.BaseAmount <= 0 {
		return errors.New("pricing base_amount must be positive")
	}

	if _, err := time.LoadLocation(c.Parking.Timezone); err != nil {
		return fmt.Errorf("invalid parking timezone %q: %w", c.Parking.Timezone, err)
	}

	return ValidateSlots(c.Parking.Slots)
}

func ValidateSlots(slots []string) error {
	seen := make(map[string]bool, len(slots))
	for _, code := range slots {
		if code == "" {
			return errors.New("slot code must not be empty")
		}
		if seen[code] {
			return fmt.Errorf("duplicate slot code found: %s", code)
		}
		seen[code] = true
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	// auth enabled by default when API is enabled
	if c.API.Enabled && !c.API.Auth.Enabled {
		c.API.Auth.Enabled = true
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.API.Auth.HeaderExtra == "" {
		c.API.Auth.HeaderExtra = "x-api-extra"
	}

	if c.Parking.Timezone == "" {
		c.Parking.Timezone = models.DefaultTimezone
	}
	if c.Pricing.BaseAmount == 0 {
		c.Pricing.BaseAmount = models.DefaultBaseAmount
	}
	if c.Pricing.BaseMinutes == 0 {
		c.Pricing.BaseMinutes = models.DefaultBaseMinutes
	}

	if c.SePay.FeedLimit == 0 {
		c.SePay.FeedLimit = 20
	}
	if c.SePay.MatchWindowMinutes == 0 {
		c.SePay.MatchWindowMinutes = models.DefaultMatchWindowMinutes
	}
	if c.SePay.PaymentTTLMinutes == 0 {
		c.SePay.PaymentTTLMinutes = models.DefaultPaymentTTLMinutes
	}
	if c.SePay.QRTemplate == "" {
		c.SePay.QRTemplate = "compact"
	}

	if c.Worker.PollIntervalSeconds == 0 {
		c.Worker.PollIntervalSeconds = 5
	}
	if c.Worker.MaxRetries == 0 {
		c.Worker.MaxRetries = 5
	}
}
