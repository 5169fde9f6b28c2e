// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App       AppConfig               `mapstructure:"app"`
	Camunda   CamundaConfig           `mapstructure:"camunda"`
	Database  DatabaseConfig          `mapstructure:"database"`
	Analytics AnalyticsConfig         `mapstructure:"analytics"`
	Directory DirectoryConfig         `mapstructure:"directory"`
	Pipeline  PipelineConfig          `mapstructure:"pipeline"`
	APIs      APIsConfig              `mapstructure:"apis"`
	Workers   map[string]WorkerConfig `mapstructure:"workers"`
	Logging   LoggingConfig           `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AnalyticsConfig holds settings for the financial analytics provider.
type AnalyticsConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	APIKey     string `mapstructure:"api_key"`
	Timeout    int    `mapstructure:"timeout"`        // milliseconds
	RateLimit  int    `mapstructure:"rate_limit"`     // requests per second
	RateBurst  int    `mapstructure:"rate_burst"`     // limiter burst size
	MaxRetries int    `mapstructure:"max_retries"`    // per-request retry cap
	RetryDelay int    `mapstructure:"retry_delay_ms"` // base backoff, milliseconds
}

// DirectoryConfig holds settings for the symbol directory snapshot.
type DirectoryConfig struct {
	CacheTTL        int `mapstructure:"cache_ttl"`        // seconds
	RefreshInterval int `mapstructure:"refresh_interval"` // seconds
}

// PipelineConfig holds the tunables of the query pipeline stages.
type PipelineConfig struct {
	FuzzyThreshold   float64 `mapstructure:"fuzzy_threshold"`   // minimum acceptable name-match score
	FuzzyMargin      float64 `mapstructure:"fuzzy_margin"`      // score lead needed for a decisive fuzzy match
	MaxCandidates    int     `mapstructure:"max_candidates"`    // candidates surfaced on ambiguity
	DefaultYears     int     `mapstructure:"default_years"`     // lookback window when the query names none
	RiskFreeRate     float64 `mapstructure:"risk_free_rate"`    // fallback when the provider has none
	DefaultRebalance string  `mapstructure:"default_rebalance"` // portfolio rebalancing period
	SessionTTL       int     `mapstructure:"session_ttl"`       // seconds a user's hints survive
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// APIsConfig holds settings for external API integrations.
type APIsConfig struct {
	OpenAI struct {
		APIKey    string `mapstructure:"api_key"`
		Model     string `mapstructure:"model"`
		Timeout   int    `mapstructure:"timeout"` // milliseconds
		MaxTokens int    `mapstructure:"max_tokens"`
	} `mapstructure:"openai"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
