package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"intranet-lending/internal/storage"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Inventory InventoryConfig `yaml:"inventory"`
	Cache     CacheConfig     `yaml:"cache"`
	Locking   LockingConfig   `yaml:"locking"`
	Alert     AlertConfig     `yaml:"alert"`
	JWT       JWTConfig       `yaml:"jwt"`
	Log       LogConfig       `yaml:"log"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// ServerConfig contains HTTP API server settings
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
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

// InventoryConfig contains remote inventory API settings
type InventoryConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIToken       string `yaml:"api_token"`      // static fallback credential
	TokenFile      string `yaml:"token_file"`     // secondary store for refreshed tokens
	TokenFileKey   string `yaml:"token_file_key"` // line key inside TokenFile
	PageLimit      int    `yaml:"page_limit"`
	ConnectTimeout int    `yaml:"connect_timeout_seconds"`
	RequestTimeout int    `yaml:"request_timeout_seconds"`
	RefreshHeader  string `yaml:"refresh_header"`
	// TokenCacheSeconds bounds how long a token is reused from memory
	// before the settings store is read again
	TokenCacheSeconds int `yaml:"token_cache_seconds"`
}

// CacheConfig contains item cache settings
type CacheConfig struct {
	Dir        string `yaml:"dir"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}

// LockingConfig selects the per-item lock around reservation sequences
type LockingConfig struct {
	Strategy string `yaml:"strategy"` // "none" or "advisory"
}

// AlertConfig contains operator alert settings (SendGrid)
type AlertConfig struct {
	SendGridAPIKey string   `yaml:"sendgrid_api_key"`
	FromEmail      string   `yaml:"from_email"`
	FromName       string   `yaml:"from_name"`
	Recipients     []string `yaml:"recipients"`
}

// JWTConfig contains portal session token settings
type JWTConfig struct {
	Secret string `yaml:"secret"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// SchedulerConfig contains cron schedule settings
type SchedulerConfig struct {
	SyncInventory string `yaml:"sync_inventory"`
}

// Load reads configuration from a YAML file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse builds a configuration from YAML bytes, applying environment
// overrides, the persisted token line and defaults
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.overrideWithEnv()

	if err := cfg.loadPersistedToken(); err != nil {
		return nil, err
	}

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

	// Inventory
	if val := os.Getenv("INVENTORY_BASE_URL"); val != "" {
		c.Inventory.BaseURL = val
	}
	if val := os.Getenv("INVENTORY_API_TOKEN"); val != "" {
		c.Inventory.APIToken = val
	}
	if val := os.Getenv("INVENTORY_TOKEN_FILE"); val != "" {
		c.Inventory.TokenFile = val
	}

	// Alert
	if val := os.Getenv("SENDGRID_API_KEY"); val != "" {
		c.Alert.SendGridAPIKey = val
	}
	if val := os.Getenv("ALERT_RECIPIENTS"); val != "" {
		c.Alert.Recipients = strings.Split(val, ",")
	}

	// JWT
	if val := os.Getenv("JWT_SECRET"); val != "" {
		c.JWT.Secret = val
	}

	// Server
	if val := os.Getenv("SERVER_HOST"); val != "" {
		c.Server.Host = val
	}
	if val := os.Getenv("SERVER_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.Port)
	}

	// Locking
	if val := os.Getenv("LOCKING_STRATEGY"); val != "" {
		c.Locking.Strategy = val
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

// loadPersistedToken prefers a token written to the token file by an earlier
// refresh over the static one from YAML
func (c *Config) loadPersistedToken() error {
	if c.Inventory.TokenFile == "" {
		return nil
	}
	if c.Inventory.TokenFileKey == "" {
		c.Inventory.TokenFileKey = "INVENTORY_API_TOKEN"
	}
	token, found, err := storage.ReadLine(c.Inventory.TokenFile, c.Inventory.TokenFileKey)
	if err != nil {
		return fmt.Errorf("failed to read token file: %w", err)
	}
	if found && token != "" {
		c.Inventory.APIToken = token
	}
	return nil
}

// Validate checks if the configuration is valid and fills defaults
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}
	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}

	if c.Inventory.BaseURL == "" {
		return fmt.Errorf("inventory base URL is required")
	}
	c.Inventory.BaseURL = strings.TrimRight(c.Inventory.BaseURL, "/")

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}

	switch c.Locking.Strategy {
	case "":
		c.Locking.Strategy = "none"
	case "none", "advisory":
	default:
		return fmt.Errorf("unknown locking strategy: %s", c.Locking.Strategy)
	}

	// Inventory defaults
	if c.Inventory.PageLimit <= 0 {
		c.Inventory.PageLimit = 100
	}
	if c.Inventory.ConnectTimeout <= 0 {
		c.Inventory.ConnectTimeout = 10
	}
	if c.Inventory.RequestTimeout <= 0 {
		c.Inventory.RequestTimeout = 30
	}
	if c.Inventory.RefreshHeader == "" {
		c.Inventory.RefreshHeader = "X-Token-Refresh"
	}
	if c.Inventory.TokenFileKey == "" {
		c.Inventory.TokenFileKey = "INVENTORY_API_TOKEN"
	}
	if c.Inventory.TokenCacheSeconds <= 0 {
		c.Inventory.TokenCacheSeconds = 30
	}

	// Cache defaults
	if c.Cache.Dir == "" {
		c.Cache.Dir = os.TempDir()
	}
	if c.Cache.TTLSeconds <= 0 {
		c.Cache.TTLSeconds = 300
	}

	// Alert defaults
	if c.Alert.FromName == "" {
		c.Alert.FromName = "Intranet Verleih"
	}

	// Scheduler defaults
	if c.Scheduler.SyncInventory == "" {
		c.Scheduler.SyncInventory = "0 */15 * * * *" // every 15 minutes
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

// ConnectTimeoutDuration returns the dial timeout for inventory API calls
func (c InventoryConfig) ConnectTimeoutDuration() time.Duration {
	return time.Duration(c.ConnectTimeout) * time.Second
}

// TokenCacheTTL returns how long the in-memory token is trusted
func (c InventoryConfig) TokenCacheTTL() time.Duration {
	return time.Duration(c.TokenCacheSeconds) * time.Second
}

// RequestTimeoutDuration returns the overall timeout for inventory API calls
func (c InventoryConfig) RequestTimeoutDuration() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// TTL returns the item cache lifetime
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}
