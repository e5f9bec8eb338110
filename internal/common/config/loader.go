// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	// Base config
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable ENV override like DB_PASSWORD
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// Environment-specific overlay
	envConfigFile := fmt.Sprintf("config.%s", env)
	viper.SetConfigName(envConfigFile)
	_ = viper.MergeInConfig() // ignore error if not found

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if cfg.Database.Elasticsearch.URL == "" && len(cfg.Database.Elasticsearch.Addresses) > 0 {
		cfg.Database.Elasticsearch.URL = cfg.Database.Elasticsearch.Addresses[0]
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Load .env from multiple possible locations (running from different directories)
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}

	// Also try to find project root by looking for go.mod
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			break
		}
		dir = parent
	}

	return ""
}

// Expand ${VAR} placeholders left in string values
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		val := v.Get(key)

		if strVal, ok := val.(string); ok {
			if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
				expanded := os.ExpandEnv(strVal)
				if expanded != strVal && expanded != "" {
					v.Set(key, expanded)
				}
			}
		}
	}
}

// Direct override if config values are still empty after expansion
func overrideEmptyConfig(cfg *Config) {
	if cfg.Database.Postgres.User == "" {
		if val := os.Getenv("DB_USER"); val != "" {
			cfg.Database.Postgres.User = val
		}
	}
	if cfg.Database.Postgres.Password == "" {
		if val := os.Getenv("DB_PASSWORD"); val != "" {
			cfg.Database.Postgres.Password = val
		}
	}

	if cfg.Export.Bucket == "" {
		if val := os.Getenv("EXPORT_BUCKET"); val != "" {
			cfg.Export.Bucket = val
		}
	}

	if cfg.Source.BaseURL == "" {
		if val := os.Getenv("SOURCE_BASE_URL"); val != "" {
			cfg.Source.BaseURL = val
		}
	}
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	// Source defaults
	if cfg.Source.Timeout == 0 {
		cfg.Source.Timeout = 30000
	}
	if cfg.Source.RequestTimeout == 0 {
		cfg.Source.RequestTimeout = 30000
	}
	if cfg.Source.RatePerSecond == 0 {
		cfg.Source.RatePerSecond = 1
	}
	if cfg.Source.RateBurst == 0 {
		cfg.Source.RateBurst = 1
	}
	if cfg.Source.MaxRetries == 0 {
		cfg.Source.MaxRetries = 3
	}
	if cfg.Source.UserAgent == "" {
		cfg.Source.UserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36"
	}

	// Database defaults
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Postgres.Table == "" {
		cfg.Database.Postgres.Table = "restaurants_info"
	}

	// Elasticsearch URL fallback
	if cfg.Database.Elasticsearch.URL == "" && len(cfg.Database.Elasticsearch.Addresses) > 0 {
		cfg.Database.Elasticsearch.URL = cfg.Database.Elasticsearch.Addresses[0]
	}

	// Harvest defaults
	if cfg.Harvest.ReviewPageSize == 0 {
		cfg.Harvest.ReviewPageSize = 20
	}
	if cfg.Harvest.ListingPageSize == 0 {
		cfg.Harvest.ListingPageSize = 10
	}
	if cfg.Harvest.MaxListings == 0 {
		cfg.Harvest.MaxListings = 1000
	}
	if cfg.Harvest.ListingErrorCutoff == 0 {
		cfg.Harvest.ListingErrorCutoff = 3
	}
	if cfg.Harvest.UpsertBatchSize == 0 {
		cfg.Harvest.UpsertBatchSize = 1000
	}
	if cfg.Harvest.ReviewLanguage == "" {
		cfg.Harvest.ReviewLanguage = "en"
	}

	// Export defaults
	if cfg.Export.ChunkSize == 0 {
		cfg.Export.ChunkSize = 1000
	}
	if cfg.Export.KeyTemplate == "" {
		cfg.Export.KeyTemplate = "{city}/{chunk}/{time}"
	}
	if cfg.Export.DedupPrefix == "" {
		cfg.Export.DedupPrefix = "exported_reviews"
	}

	// Search defaults
	if cfg.Search.Index == "" {
		cfg.Search.Index = "reviews"
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	// Harvester defaults
	for key, harvester := range cfg.Harvesters {
		if harvester.Concurrency == 0 {
			harvester.Concurrency = 5
		}
		if harvester.Timeout == 0 {
			harvester.Timeout = 30000
		}
		if harvester.MaxRetries == 0 {
			harvester.MaxRetries = 3
		}
		cfg.Harvesters[key] = harvester
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.Source.BaseURL == "" {
		return fmt.Errorf("source.base_url is required")
	}

	if cfg.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if cfg.Database.Postgres.Database == "" {
		return fmt.Errorf("database.postgres.database is required")
	}
	if cfg.Database.Postgres.User == "" {
		return fmt.Errorf("database.postgres.user is required")
	}

	if len(cfg.Harvest.Locations) == 0 {
		return fmt.Errorf("harvest.locations is required")
	}

	if cfg.Export.Enabled && cfg.Export.Bucket == "" {
		return fmt.Errorf("export.bucket is required when export is enabled")
	}

	if cfg.Search.Enabled &&
		len(cfg.Database.Elasticsearch.Addresses) == 0 && cfg.Database.Elasticsearch.URL == "" {
		return fmt.Errorf("database.elasticsearch.addresses or url is required when search is enabled")
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetHarvesterConfig retrieves pass-specific configuration with fallback to defaults
func GetHarvesterConfig(cfg *Config, name string) HarvesterConfig {
	if harvester, exists := cfg.Harvesters[name]; exists {
		return harvester
	}

	return HarvesterConfig{
		Enabled:     true,
		Concurrency: 5,
		Timeout:     30000,
		MaxRetries:  3,
	}
}

// IsHarvesterEnabled checks if a specific harvest pass is enabled
func IsHarvesterEnabled(cfg *Config, name string) bool {
	if harvester, exists := cfg.Harvesters[name]; exists {
		return harvester.Enabled
	}
	return true
}
