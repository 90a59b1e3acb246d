package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Progress backends
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    string
	CatalogID   string // CATALOG_ID: lease key, one in-flight deployment per catalog
	Database    DatabaseConfig
	Shopify     ShopifyConfig
	Auth        AuthConfig
	Progress    ProgressConfig
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN returns the lib/pq connection string
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

type ShopifyConfig struct {
	ShopDomain  string
	AccessToken string
	APIVersion  string
	Endpoint    string // SHOPIFY_GRAPHQL_ENDPOINT: overrides the URL built from domain + version
}

// AuthConfig controls who may run deployments
type AuthConfig struct {
	FirebaseProjectID       string
	FirebaseCredentialsFile string   // empty means application default credentials
	AdminEmails             []string // ADMIN_EMAILS, comma separated
	ServiceKeyHash          string   // SERVICE_KEY_HASH: bcrypt hash of the CLI/automation key
}

type ProgressConfig struct {
	Backend       string
	SQLitePath    string
	Retention     time.Duration
	SweepInterval time.Duration
}

func Load() (*Config, error) {
	viper.SetConfigType("env")
	viper.SetConfigName(".env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("ENVIRONMENT", "development")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("LOG_LEVEL", "info")

	viper.AutomaticEnv()

	// .env is optional
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	retention, err := getDuration("PROGRESS_RETENTION", "1h")
	if err != nil {
		return nil, err
	}
	sweepInterval, err := getDuration("PROGRESS_SWEEP_INTERVAL", "5m")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:        getEnvOrViper("PORT", "8080"),
		Environment: getEnvOrViper("ENVIRONMENT", "development"),
		LogLevel:    getEnvOrViper("LOG_LEVEL", "info"),
		CatalogID:   strings.TrimSpace(getEnvOrViper("CATALOG_ID", "default")),
		Database: DatabaseConfig{
			Host:     getEnvOrViper("DB_HOST", "localhost"),
			Port:     getEnvOrViper("DB_PORT", "5432"),
			User:     getEnvOrViper("DB_USER", "postgres"),
			Password: getEnvOrViper("DB_PASSWORD", "postgres"),
			DBName:   getEnvOrViper("DB_NAME", "candleadmin"),
			SSLMode:  getEnvOrViper("DB_SSLMODE", "disable"),
		},
		Shopify: ShopifyConfig{
			ShopDomain:  strings.TrimSpace(getEnvOrViper("SHOPIFY_SHOP_DOMAIN", "")),
			AccessToken: strings.TrimSpace(getEnvOrViper("SHOPIFY_ACCESS_TOKEN", "")),
			APIVersion:  getEnvOrViper("SHOPIFY_API_VERSION", "2025-07"),
			Endpoint:    strings.TrimSpace(getEnvOrViper("SHOPIFY_GRAPHQL_ENDPOINT", "")),
		},
		Auth: AuthConfig{
			FirebaseProjectID:       strings.TrimSpace(getEnvOrViper("FIREBASE_PROJECT_ID", "")),
			FirebaseCredentialsFile: strings.TrimSpace(getEnvOrViper("FIREBASE_CREDENTIALS_FILE", "")),
			AdminEmails:             splitList(getEnvOrViper("ADMIN_EMAILS", "")),
			ServiceKeyHash:          strings.TrimSpace(getEnvOrViper("SERVICE_KEY_HASH", "")),
		},
		Progress: ProgressConfig{
			Backend:       strings.ToLower(strings.TrimSpace(getEnvOrViper("PROGRESS_BACKEND", BackendMemory))),
			SQLitePath:    getEnvOrViper("SQLITE_PATH", "progress.db"),
			Retention:     retention,
			SweepInterval: sweepInterval,
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Shopify.ShopDomain == "" && c.Shopify.Endpoint == "" {
		return fmt.Errorf("SHOPIFY_SHOP_DOMAIN is required")
	}
	if c.Shopify.AccessToken == "" {
		return fmt.Errorf("SHOPIFY_ACCESS_TOKEN is required")
	}
	if c.CatalogID == "" {
		return fmt.Errorf("CATALOG_ID must not be empty")
	}
	switch c.Progress.Backend {
	case BackendMemory, BackendSQLite, BackendPostgres:
	default:
		return fmt.Errorf("PROGRESS_BACKEND must be one of memory, sqlite, postgres; got %q", c.Progress.Backend)
	}
	if c.Progress.Retention <= 0 || c.Progress.SweepInterval <= 0 {
		return fmt.Errorf("PROGRESS_RETENTION and PROGRESS_SWEEP_INTERVAL must be positive")
	}
	return nil
}

func getEnvOrViper(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	if viper.IsSet(key) {
		return viper.GetString(key)
	}
	return defaultValue
}

func getDuration(key, defaultValue string) (time.Duration, error) {
	raw := getEnvOrViper(key, defaultValue)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, raw, err)
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
