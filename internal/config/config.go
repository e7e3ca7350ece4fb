package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	JWT       JWTConfig       `yaml:"jwt"`
	SendGrid  SendGridConfig  `yaml:"sendgrid"`
	Stripe    StripeConfig    `yaml:"stripe"`
	Canny     CannyConfig     `yaml:"canny"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// BaseURL is the externally visible origin, used to build checkout
	// success/cancel redirect targets.
	BaseURL string `yaml:"base_url"`
}

// DatabaseConfig contains PostgreSQL connection settings
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
}

// JWTConfig contains JWT token settings
type JWTConfig struct {
	Secret             string `yaml:"secret"`
	AccessTokenExpiry  int    `yaml:"access_token_expiry_minutes"`
	RefreshTokenExpiry int    `yaml:"refresh_token_expiry_minutes"`
}

// SendGridConfig contains outbound email settings
type SendGridConfig struct {
	APIKey    string `yaml:"api_key"`
	FromEmail string `yaml:"from_email"`
	FromName  string `yaml:"from_name"`
}

// StripeConfig contains payment processor settings
type StripeConfig struct {
	SecretKey string `yaml:"secret_key"`
	// WebhookSecret signs inbound payment events; unsigned or mis-signed
	// events are rejected before reconciliation.
	WebhookSecret string `yaml:"webhook_secret"`
	APIBaseURL    string `yaml:"api_base_url"`
}

// CannyConfig contains external feature-board settings. The per-company
// API key lives in company settings; this is the shared endpoint.
type CannyConfig struct {
	APIBaseURL string `yaml:"api_base_url"`
}

// RateLimitConfig contains fixed-window limits per client IP
type RateLimitConfig struct {
	AuthAttempts       int `yaml:"auth_attempts"`
	AuthWindowMinutes  int `yaml:"auth_window_minutes"`
	CheckoutAttempts   int `yaml:"checkout_attempts"`
	CheckoutWindowMins int `yaml:"checkout_window_minutes"`
}

// SchedulerConfig contains cron schedule settings
type SchedulerConfig struct {
	SyncCannyBoards     string `yaml:"sync_canny_boards"`
	ExpireCampaigns     string `yaml:"expire_campaigns"`
	FailStalePledges    string `yaml:"fail_stale_pledges"`
	StalePledgeAgeHours int    `yaml:"stale_pledge_age_hours"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// Load reads configuration from a YAML file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.overrideWithEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	// Database
	if val := os.Getenv("DB_HOST"); val != "" {
		c.Database.Host = val
	}
	if val := os.Getenv("DB_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Database.Port)
	}
	if val := os.Getenv("DB_USER"); val != "" {
		c.Database.User = val
	}
	if val := os.Getenv("DB_PASSWORD"); val != "" {
		c.Database.Password = val
	}
	if val := os.Getenv("DB_NAME"); val != "" {
		c.Database.Database = val
	}
	if val := os.Getenv("DB_SSL_MODE"); val != "" {
		c.Database.SSLMode = val
	}

	// JWT
	if val := os.Getenv("JWT_SECRET"); val != "" {
		c.JWT.Secret = val
	}

	// SendGrid
	if val := os.Getenv("SENDGRID_API_KEY"); val != "" {
		c.SendGrid.APIKey = val
	}
	if val := os.Getenv("SENDGRID_FROM_EMAIL"); val != "" {
		c.SendGrid.FromEmail = val
	}

	// Stripe
	if val := os.Getenv("STRIPE_SECRET_KEY"); val != "" {
		c.Stripe.SecretKey = val
	}
	if val := os.Getenv("STRIPE_WEBHOOK_SECRET"); val != "" {
		c.Stripe.WebhookSecret = val
	}

	// Canny
	if val := os.Getenv("CANNY_API_BASE_URL"); val != "" {
		c.Canny.APIBaseURL = val
	}

	// Server
	if val := os.Getenv("SERVER_HOST"); val != "" {
		c.Server.Host = val
	}
	if val := os.Getenv("SERVER_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.Port)
	}
	if val := os.Getenv("SERVER_BASE_URL"); val != "" {
		c.Server.BaseURL = val
	}

	// Log
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = val
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = fmt.Sprintf("http://%s:%d", c.Server.Host, c.Server.Port)
	}

	// Database validation
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}
	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	// JWT validation
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}

	// Stripe validation
	if c.Stripe.SecretKey == "" {
		return fmt.Errorf("stripe secret key is required")
	}
	if c.Stripe.WebhookSecret == "" {
		return fmt.Errorf("stripe webhook signing secret is required")
	}
	if c.Stripe.APIBaseURL == "" {
		c.Stripe.APIBaseURL = "https://api.stripe.com"
	}

	// Canny defaults
	if c.Canny.APIBaseURL == "" {
		c.Canny.APIBaseURL = "https://canny.io/api/v1"
	}

	// Rate limit defaults: 5 auth attempts/hour, 5 checkouts/5 minutes
	if c.RateLimit.AuthAttempts == 0 {
		c.RateLimit.AuthAttempts = 5
	}
	if c.RateLimit.AuthWindowMinutes == 0 {
		c.RateLimit.AuthWindowMinutes = 60
	}
	if c.RateLimit.CheckoutAttempts == 0 {
		c.RateLimit.CheckoutAttempts = 5
	}
	if c.RateLimit.CheckoutWindowMins == 0 {
		c.RateLimit.CheckoutWindowMins = 5
	}

	// Scheduler defaults
	if c.Scheduler.SyncCannyBoards == "" {
		c.Scheduler.SyncCannyBoards = "0 0 1 * * *" // 1 AM UTC
	}
	if c.Scheduler.ExpireCampaigns == "" {
		c.Scheduler.ExpireCampaigns = "0 0 2 * * *" // 2 AM UTC
	}
	if c.Scheduler.FailStalePledges == "" {
		c.Scheduler.FailStalePledges = "0 30 2 * * *" // 2:30 AM UTC
	}
	if c.Scheduler.StalePledgeAgeHours == 0 {
		c.Scheduler.StalePledgeAgeHours = 24
	}

	return nil
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// GetServerAddress returns the HTTP server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
