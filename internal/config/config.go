package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	API        APIConfig        `yaml:"api"`
	Mongo      MongoConfig      `yaml:"mongo"`
	Redis      RedisConfig      `yaml:"redis"`
	CMS        CMSConfig        `yaml:"cms"`
	Email      EmailConfig      `yaml:"email"`
	PDF        PDFConfig        `yaml:"pdf"`
	Pricing    PricingConfig    `yaml:"pricing"`
	Logging    LoggingConfig    `yaml:"logging"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type APIConfig struct {
	Port           int                `yaml:"port"`
	JWTSecret      string             `yaml:"jwt_secret"`
	SessionTTL     int                `yaml:"session_ttl"` // seconds
	AllowedOrigins []string           `yaml:"allowed_origins"`
	RateLimit      APIRateLimitConfig `yaml:"rate_limit"`
	Admins         []AdminCredential  `yaml:"admins"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// AdminCredential is a configured admin login. PasswordHash is a bcrypt-style
// opaque hash compared by the auth layer.
type AdminCredential struct {
	Email        string `yaml:"email"`
	PasswordHash string `yaml:"password_hash"`
	Name         string `yaml:"name"`
}

type MongoConfig struct {
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type CMSConfig struct {
	BaseURL  string `yaml:"base_url"`
	APIToken string `yaml:"api_token"`
	// RentalModelID identifies the rental-request item type in the CMS.
	RentalModelID string `yaml:"rental_model_id"`
	TimeoutSec    int    `yaml:"timeout_sec"`
}

type EmailConfig struct {
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
	FromEmail string `yaml:"from_email"`
	FromName  string `yaml:"from_name"`
}

type PDFConfig struct {
	BaseURL      string `yaml:"base_url"`
	APIKey       string `yaml:"api_key"`
	TemplateID   string `yaml:"template_id"`
	PollAttempts int    `yaml:"poll_attempts"`
	PollInterval string `yaml:"poll_interval"`
	// Local switches to the in-process renderer; no external service needed.
	Local bool `yaml:"local"`
}

// PollIntervalDuration parses PollInterval with a 1s fallback.
func (p PDFConfig) PollIntervalDuration() time.Duration {
	d, err := time.ParseDuration(p.PollInterval)
	if err != nil || d <= 0 {
		return time.Second
	}
	return d
}

type PricingConfig struct {
	// RulesPath points at the rooms/rates yaml; empty means built-in table.
	RulesPath string  `yaml:"rules_path"`
	TaxRate   float64 `yaml:"tax_rate"`
	Timezone  string  `yaml:"timezone"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

// Load reads the yaml config, expanding ${ENV} references after loading an
// optional .env file.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expanded := []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(expanded, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Mongo.URI == "" {
		return errors.New("mongo uri is required")
	}
	if c.API.JWTSecret == "" || c.API.JWTSecret == "CHANGE_ME" {
		return errors.New("api jwt_secret is required")
	}
	if c.Pricing.TaxRate < 0 || c.Pricing.TaxRate >= 1 {
		return fmt.Errorf("pricing tax_rate %v out of range", c.Pricing.TaxRate)
	}
	if !c.PDF.Local && c.PDF.APIKey == "" {
		return errors.New("pdf api_key is required unless pdf.local is set")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "tranzac-admin"
	}
	if c.API.Port == 0 {
		c.API.Port = 8080
	}
	if c.API.SessionTTL == 0 {
		c.API.SessionTTL = 24 * 60 * 60
	}
	if c.API.RateLimit.Burst == 0 {
		c.API.RateLimit.Burst = 5
	}
	if c.Mongo.Database == "" {
		c.Mongo.Database = "tranzac"
	}
	if c.Mongo.Collection == "" {
		c.Mongo.Collection = "costestimates"
	}
	if c.Mongo.TimeoutSec == 0 {
		c.Mongo.TimeoutSec = 10
	}
	if c.CMS.TimeoutSec == 0 {
		c.CMS.TimeoutSec = 15
	}
	if c.Email.BaseURL == "" {
		c.Email.BaseURL = "https://api.sendgrid.com"
	}
	if c.PDF.PollAttempts == 0 {
		c.PDF.PollAttempts = 30
	}
	if c.PDF.PollInterval == "" {
		c.PDF.PollInterval = "1s"
	}
	if c.Pricing.TaxRate == 0 {
		c.Pricing.TaxRate = 0.13
	}
	if c.Pricing.Timezone == "" {
		c.Pricing.Timezone = "America/Toronto"
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
}
