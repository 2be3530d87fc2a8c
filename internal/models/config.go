package models

import "time"

// Config represents the application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	GitHub   GitHubConfig
	Rates    RatesConfig
	Accrual  AccrualConfig
	Auth     AuthConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Addr            string
	ShutdownTimeout time.Duration
	RateLimitPerSec float64
	RateLimitBurst  int
}

// DatabaseConfig holds SQLite backend settings
type DatabaseConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

// GitHubConfig holds remote document store settings. Owner, Repo and Token
// empty means the SQLite backend is used instead.
type GitHubConfig struct {
	APIBaseURL     string
	Owner          string
	Repo           string
	Branch         string
	Token          string
	DataDir        string
	RequestTimeout time.Duration
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// RatesConfig holds market data settings
type RatesConfig struct {
	APIBaseURL     string
	APIKey         string
	QuoteCurrency  string
	CacheTTL       time.Duration
	RequestTimeout time.Duration
	FallbackFile   string
	AssetsFile     string
}

// AccrualConfig holds daily accrual batch settings
type AccrualConfig struct {
	CronSpec string
	Enabled  bool
}

// AuthConfig holds token signing settings
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}
