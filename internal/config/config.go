package config

import (
	"time"

	"github.com/rendis/leadsweep/internal/model"
)

// Config is the full run configuration.
type Config struct {
	Log      LogConfig     `mapstructure:"log"`
	Places   PlacesConfig  `mapstructure:"places"`
	Sweep    SweepConfig   `mapstructure:"sweep"`
	Policy   PolicyConfig  `mapstructure:"policy"`
	Storage  StorageConfig `mapstructure:"storage"`
	Metrics  MetricsConfig `mapstructure:"metrics"`
	Cities   []model.City  `mapstructure:"cities"`
	Keywords []string      `mapstructure:"keywords"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json | console
	File   string `mapstructure:"file"`   // empty = stderr
}

type PlacesConfig struct {
	APIKey         string        `mapstructure:"api_key"`
	BaseURL        string        `mapstructure:"base_url"`
	RadiusMeters   float64       `mapstructure:"radius_m"` // 0 = derived from sweep delta
	PageDelay      time.Duration `mapstructure:"page_delay"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxResults     int           `mapstructure:"max_results"`
	TLSFingerprint string        `mapstructure:"tls_fingerprint"`
}

type SweepConfig struct {
	Delta              float64 `mapstructure:"delta"`
	BucketLimit        int     `mapstructure:"bucket_limit"`
	AbortOnSearchError bool    `mapstructure:"abort_on_search_error"`
}

// PolicyConfig names a preset; any set field overrides the preset's value.
type PolicyConfig struct {
	Preset              string         `mapstructure:"preset"`
	ActivityRequired    *bool          `mapstructure:"activity_required"`
	UnknownStatusPasses *bool          `mapstructure:"unknown_status_passes"`
	ContactRequired     *bool          `mapstructure:"contact_required"`
	MinReviews          *int           `mapstructure:"min_reviews"`
	MinRating           *float64       `mapstructure:"min_rating"`
	WebsiteRule         string         `mapstructure:"website_rule"`
	MinContentBytes     *int           `mapstructure:"min_content_bytes"`
	FetchTimeout        *time.Duration `mapstructure:"fetch_timeout"`
	FreePlatforms       []string       `mapstructure:"free_platforms"`
	SocialDomains       []string       `mapstructure:"social_domains"`
}

type StorageConfig struct {
	SeenLog SeenLogConfig   `mapstructure:"seen_log"`
	Leads   LeadStoreConfig `mapstructure:"leads"`
}

type SeenLogConfig struct {
	Backend string       `mapstructure:"backend"` // sqlite | redis | sheets
	SQLite  SQLiteConfig `mapstructure:"sqlite"`
	Redis   RedisConfig  `mapstructure:"redis"`
	Sheets  SheetsConfig `mapstructure:"sheets"`
}

type LeadStoreConfig struct {
	Backend  string         `mapstructure:"backend"` // sqlite | postgres
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Key      string `mapstructure:"key"`
}

type SheetsConfig struct {
	CredentialsFile string `mapstructure:"credentials_file"`
	SpreadsheetID   string `mapstructure:"spreadsheet_id"`
	Sheet           string `mapstructure:"sheet"`
	Endpoint        string `mapstructure:"endpoint"` // tests only
}

type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"` // empty disables the /metrics server
}
