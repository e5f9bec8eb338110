// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig                  `mapstructure:"app"`
	Source        SourceConfig               `mapstructure:"source"`
	Database      DatabaseConfig             `mapstructure:"database"`
	Harvest       HarvestConfig              `mapstructure:"harvest"`
	Harvesters    map[string]HarvesterConfig `mapstructure:"harvesters"`
	Export        ExportConfig               `mapstructure:"export"`
	Search        SearchConfig               `mapstructure:"search"`
	Logging       LoggingConfig              `mapstructure:"logging"`
	Notifications NotificationConfig         `mapstructure:"notifications"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// SourceConfig describes the review site being harvested.
type SourceConfig struct {
	BaseURL        string  `mapstructure:"base_url"`
	UserAgent      string  `mapstructure:"user_agent"`
	Timeout        int     `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int     `mapstructure:"request_timeout"` // milliseconds
	RatePerSecond  float64 `mapstructure:"rate_per_second"`
	RateBurst      int     `mapstructure:"rate_burst"`
	MaxRetries     int     `mapstructure:"max_retries"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
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
	Table          string `mapstructure:"table"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses  []string `mapstructure:"addresses"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	SSLEnabled bool     `mapstructure:"ssl_enabled"`
	URL        string   `mapstructure:"url"` // Single URL for backwards compatibility
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// HarvestConfig holds the knobs shared by every harvest pass.
type HarvestConfig struct {
	Locations          []string `mapstructure:"locations"`
	ReviewPageSize     int      `mapstructure:"review_page_size"`
	ListingPageSize    int      `mapstructure:"listing_page_size"`
	MaxListings        int      `mapstructure:"max_listings"`
	ListingErrorCutoff int      `mapstructure:"listing_error_cutoff"`
	UpsertBatchSize    int      `mapstructure:"upsert_batch_size"`
	ReviewLanguage     string   `mapstructure:"review_language"`
}

// HarvesterConfig holds the core settings applicable to every harvest pass.
type HarvesterConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	Concurrency int  `mapstructure:"concurrency"`
	Timeout     int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries  int  `mapstructure:"max_retries"` // For error handling
}

// --- Specific Configuration Sections ---

// ExportConfig holds settings for the bucket export pipeline.
type ExportConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Bucket      string `mapstructure:"bucket"`
	KeyTemplate string `mapstructure:"key_template"`
	ChunkSize   int    `mapstructure:"chunk_size"`
	DedupPrefix string `mapstructure:"dedup_prefix"`
}

// SearchConfig holds settings for the review search indexer.
type SearchConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Index   string `mapstructure:"index"`
}

// NotificationConfig holds settings for the run summary notifier.
type NotificationConfig struct {
	Email struct {
		Enabled   bool     `mapstructure:"enabled"`
		FromEmail string   `mapstructure:"from_email"`
		ToEmails  []string `mapstructure:"to_emails"`
	} `mapstructure:"email"`
	SMS struct {
		Enabled      bool     `mapstructure:"enabled"`
		PhoneNumbers []string `mapstructure:"phone_numbers"`
	} `mapstructure:"sms"`
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
