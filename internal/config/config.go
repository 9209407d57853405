package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Environment represents the deployment environment
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// Config holds all application configuration
type Config struct {
	// Environment
	Env      Environment `envconfig:"ENV" default:"development"`
	LogLevel string      `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool        `envconfig:"DEBUG" default:"false"`

	// Browser
	Browser BrowserConfig

	// Source adapters
	Sources SourcesConfig

	// Vision model backend
	Vision VisionConfig

	// Claude AI
	Claude ClaudeConfig

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Object storage
	Storage StorageConfig

	// Human review
	Review ReviewConfig
}

// BrowserConfig holds Playwright browser settings
type BrowserConfig struct {
	Headless       bool          `envconfig:"BROWSER_HEADLESS" default:"true"`
	NavTimeout     time.Duration `envconfig:"BROWSER_NAV_TIMEOUT" default:"30s"`
	ActionTimeout  time.Duration `envconfig:"BROWSER_ACTION_TIMEOUT" default:"10s"`
	UserDataDir    string        `envconfig:"BROWSER_USER_DATA_DIR" default:""`
	SlowMo         time.Duration `envconfig:"BROWSER_SLOW_MO" default:"0"`
	ViewportWidth  int           `envconfig:"BROWSER_VIEWPORT_WIDTH" default:"1280"`
	ViewportHeight int           `envconfig:"BROWSER_VIEWPORT_HEIGHT" default:"900"`
}

// SourcesConfig holds source adapter settings
type SourcesConfig struct {
	Enabled        []string      `envconfig:"SOURCES_ENABLED" default:"linkedin,indeed,remoteco,wellfound,stackoverflow"`
	AdapterTimeout time.Duration `envconfig:"SOURCES_ADAPTER_TIMEOUT" default:"90s"`
	MinPageDelay   time.Duration `envconfig:"SOURCES_MIN_PAGE_DELAY" default:"2s"`
	MaxPageDelay   time.Duration `envconfig:"SOURCES_MAX_PAGE_DELAY" default:"5s"`
	MaxPages       int           `envconfig:"SOURCES_MAX_PAGES" default:"3"`
}

// VisionConfig holds the Ollama vision backend settings
type VisionConfig struct {
	Enabled  bool          `envconfig:"VISION_ENABLED" default:"true"`
	Endpoint string        `envconfig:"VISION_ENDPOINT" default:"http://localhost:11434"`
	Model    string        `envconfig:"VISION_MODEL" default:"llava:13b"`
	Timeout  time.Duration `envconfig:"VISION_TIMEOUT" default:"60s"`
}

// ClaudeConfig holds Claude AI settings
type ClaudeConfig struct {
	APIKey        string        `envconfig:"ANTHROPIC_API_KEY" default:""`
	Model         string        `envconfig:"CLAUDE_MODEL" default:"claude-sonnet-4-20250514"`
	MaxTokens     int           `envconfig:"CLAUDE_MAX_TOKENS" default:"1024"`
	Timeout       time.Duration `envconfig:"CLAUDE_TIMEOUT" default:"60s"`
	RateLimitRPM  int           `envconfig:"CLAUDE_RATE_LIMIT_RPM" default:"50"`
	CacheTTL      time.Duration `envconfig:"CLAUDE_CACHE_TTL" default:"24h"`
	CacheSize     int           `envconfig:"CLAUDE_CACHE_SIZE" default:"500"`
	MaxRetries    int           `envconfig:"CLAUDE_MAX_RETRIES" default:"3"`
	EnableCaching bool          `envconfig:"CLAUDE_ENABLE_CACHING" default:"true"`
}

// DatabaseConfig holds PostgreSQL settings
type DatabaseConfig struct {
	Enabled         bool          `envconfig:"DB_ENABLED" default:"false"`
	Host            string        `envconfig:"DB_HOST" default:"localhost"`
	Port            int           `envconfig:"DB_PORT" default:"5432"`
	User            string        `envconfig:"DB_USER" default:"jobreach"`
	Password        string        `envconfig:"DB_PASSWORD" default:""`
	Database        string        `envconfig:"DB_NAME" default:"jobreach"`
	SSLMode         string        `envconfig:"DB_SSL_MODE" default:"disable"`
	MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"5m"`
}

// DSN returns the PostgreSQL connection string
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisConfig holds Redis settings
type RedisConfig struct {
	Enabled      bool          `envconfig:"REDIS_ENABLED" default:"false"`
	Host         string        `envconfig:"REDIS_HOST" default:"localhost"`
	Port         int           `envconfig:"REDIS_PORT" default:"6379"`
	Password     string        `envconfig:"REDIS_PASSWORD" default:""`
	DB           int           `envconfig:"REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"REDIS_POOL_SIZE" default:"10"`
	DialTimeout  time.Duration `envconfig:"REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"REDIS_WRITE_TIMEOUT" default:"3s"`
	SessionTTL   time.Duration `envconfig:"REDIS_SESSION_TTL" default:"12h"`
}

// Addr returns Redis address
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// StorageConfig holds object storage settings for screenshots
type StorageConfig struct {
	Enabled        bool   `envconfig:"STORAGE_ENABLED" default:"false"`
	Endpoint       string `envconfig:"STORAGE_ENDPOINT" default:"localhost:9000"`
	AccessKey      string `envconfig:"STORAGE_ACCESS_KEY" default:"minioadmin"`
	SecretKey      string `envconfig:"STORAGE_SECRET_KEY" default:"minioadmin"`
	Bucket         string `envconfig:"STORAGE_BUCKET" default:"jobreach"`
	Region         string `envconfig:"STORAGE_REGION" default:"us-east-1"`
	UseSSL         bool   `envconfig:"STORAGE_USE_SSL" default:"false"`
	ScreenshotPath string `envconfig:"STORAGE_SCREENSHOT_PATH" default:"screenshots"`
}

// ReviewConfig holds human review and submission settings
type ReviewConfig struct {
	Required bool          `envconfig:"REVIEW_REQUIRED" default:"true"`
	Timeout  time.Duration `envconfig:"REVIEW_TIMEOUT" default:"5m"`
	DryRun   bool          `envconfig:"REVIEW_DRY_RUN" default:"true"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("processing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// LoadWithDefaults loads config with defaults for missing fields (for CLI tools)
func LoadWithDefaults() (*Config, error) {
	var cfg Config

	envconfig.Process("", &cfg)

	if cfg.Claude.APIKey == "" {
		cfg.Claude.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var errors []string

	if len(c.Sources.Enabled) == 0 {
		errors = append(errors, "SOURCES_ENABLED must list at least one adapter")
	}
	if c.Sources.MinPageDelay > c.Sources.MaxPageDelay {
		errors = append(errors, "SOURCES_MIN_PAGE_DELAY must not exceed SOURCES_MAX_PAGE_DELAY")
	}

	if c.Database.Enabled && c.Env != EnvDevelopment && c.Database.Password == "" {
		errors = append(errors, "DB_PASSWORD is required in non-development mode")
	}

	if c.Vision.Enabled && c.Vision.Endpoint == "" {
		errors = append(errors, "VISION_ENDPOINT is required when vision is enabled")
	}

	if !c.Review.DryRun && c.Env == EnvDevelopment {
		errors = append(errors, "REVIEW_DRY_RUN cannot be disabled in development mode")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == EnvDevelopment
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// GetLogLevel returns the appropriate zap log level
func (c *Config) GetLogLevel() string {
	if c.Debug {
		return "debug"
	}
	return c.LogLevel
}
