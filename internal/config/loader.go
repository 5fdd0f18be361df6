package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/rendis/leadsweep/internal/apperr"
	"github.com/rendis/leadsweep/internal/engine/geo"
	"github.com/rendis/leadsweep/internal/engine/places"
	"github.com/rendis/leadsweep/internal/engine/transport"
)

// EnvPrefix prefixes every environment override, e.g. LEADSWEEP_PLACES_API_KEY.
const EnvPrefix = "LEADSWEEP"

// DefaultBucketLimit is how many leads one (city, point, keyword) bucket may admit.
const DefaultBucketLimit = 5

// Load reads the YAML file at path (or ./leadsweep.yaml, ./configs/leadsweep.yaml
// when path is empty), applies env overrides and defaults, and validates.
// Every returned error is a Config error.
func Load(path string) (*Config, error) {
	loadEnvFile(path)

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	bindOptionalEnv(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("leadsweep")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, apperr.Config("read config", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, apperr.Config("decode config", err)
	}
	normalize(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadEnvFile loads the first .env found next to the config file or in the
// working directory. Existing environment variables win.
func loadEnvFile(configPath string) {
	candidates := []string{".env"}
	if configPath != "" {
		candidates = append([]string{filepath.Join(filepath.Dir(configPath), ".env")}, candidates...)
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			if err := godotenv.Load(p); err == nil {
				return
			}
		}
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "")

	v.SetDefault("places.api_key", "")
	v.SetDefault("places.base_url", places.DefaultBaseURL)
	v.SetDefault("places.radius_m", 0)
	v.SetDefault("places.page_delay", places.DefaultPageDelay)
	v.SetDefault("places.timeout", places.DefaultTimeout)
	v.SetDefault("places.max_results", places.DefaultMaxResults)
	v.SetDefault("places.tls_fingerprint", string(transport.FingerprintGo))

	v.SetDefault("sweep.delta", geo.DefaultDelta)
	v.SetDefault("sweep.bucket_limit", DefaultBucketLimit)
	v.SetDefault("sweep.abort_on_search_error", false)

	v.SetDefault("policy.preset", "strict-content")

	v.SetDefault("storage.seen_log.backend", "sqlite")
	v.SetDefault("storage.seen_log.sqlite.path", "leadsweep.db")
	v.SetDefault("storage.seen_log.redis.address", "localhost:6379")
	v.SetDefault("storage.seen_log.redis.password", "")
	v.SetDefault("storage.seen_log.redis.key", "leadsweep:seen")
	v.SetDefault("storage.seen_log.sheets.credentials_file", "")
	v.SetDefault("storage.seen_log.sheets.spreadsheet_id", "")
	v.SetDefault("storage.seen_log.sheets.sheet", "Seen")

	v.SetDefault("storage.leads.backend", "sqlite")
	v.SetDefault("storage.leads.sqlite.path", "leadsweep.db")
	v.SetDefault("storage.leads.postgres.dsn", "")

	v.SetDefault("metrics.addr", "")
}

// optionalKeys have no default, so AutomaticEnv alone never surfaces them
// to Unmarshal. Unset keys stay nil.
var optionalKeys = []string{
	"policy.activity_required",
	"policy.unknown_status_passes",
	"policy.contact_required",
	"policy.min_reviews",
	"policy.min_rating",
	"policy.website_rule",
	"policy.min_content_bytes",
	"policy.fetch_timeout",
	"policy.free_platforms",
	"policy.social_domains",
	"storage.seen_log.redis.db",
	"storage.seen_log.sheets.endpoint",
}

func bindOptionalEnv(v *viper.Viper) {
	for _, k := range optionalKeys {
		_ = v.BindEnv(k)
	}
}

func normalize(cfg *Config) {
	var kws []string
	for _, k := range cfg.Keywords {
		if k = strings.TrimSpace(k); k != "" {
			kws = append(kws, k)
		}
	}
	cfg.Keywords = kws
	for i := range cfg.Cities {
		cfg.Cities[i].Name = strings.TrimSpace(cfg.Cities[i].Name)
	}
	cfg.Storage.SeenLog.Backend = strings.ToLower(cfg.Storage.SeenLog.Backend)
	cfg.Storage.Leads.Backend = strings.ToLower(cfg.Storage.Leads.Backend)
}

// Validate rejects configurations that cannot drive a run.
func Validate(cfg *Config) error {
	const op = "validate config"

	if len(cfg.Cities) == 0 {
		return apperr.Configf(op, "at least one city is required")
	}
	for i, c := range cfg.Cities {
		if c.Name == "" {
			return apperr.Configf(op, "city %d has no name", i)
		}
		lat, lng := c.Center.Lat, c.Center.Lng
		if math.IsNaN(lat) || math.IsNaN(lng) || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
			return apperr.Configf(op, "city %q has invalid center (%v, %v)", c.Name, lat, lng)
		}
	}
	if len(cfg.Keywords) == 0 {
		return apperr.Configf(op, "at least one keyword is required")
	}
	if cfg.Places.APIKey == "" {
		return apperr.Configf(op, "places.api_key is required (or %s_PLACES_API_KEY)", EnvPrefix)
	}
	if cfg.Places.PageDelay < 0 || cfg.Places.Timeout < 0 {
		return apperr.Configf(op, "places durations must not be negative")
	}
	if _, err := transport.ParseFingerprint(cfg.Places.TLSFingerprint); err != nil {
		return apperr.Config(op, err)
	}
	if cfg.Sweep.Delta <= 0 {
		return apperr.Configf(op, "sweep.delta must be > 0")
	}
	if cfg.Sweep.BucketLimit <= 0 {
		return apperr.Configf(op, "sweep.bucket_limit must be > 0")
	}

	switch cfg.Storage.SeenLog.Backend {
	case "sqlite":
		if cfg.Storage.SeenLog.SQLite.Path == "" {
			return apperr.Configf(op, "storage.seen_log.sqlite.path is required")
		}
	case "redis":
		if cfg.Storage.SeenLog.Redis.Address == "" {
			return apperr.Configf(op, "storage.seen_log.redis.address is required")
		}
	case "sheets":
		if cfg.Storage.SeenLog.Sheets.SpreadsheetID == "" {
			return apperr.Configf(op, "storage.seen_log.sheets.spreadsheet_id is required")
		}
	default:
		return apperr.Configf(op, "unknown seen log backend %q", cfg.Storage.SeenLog.Backend)
	}

	switch cfg.Storage.Leads.Backend {
	case "sqlite":
		if cfg.Storage.Leads.SQLite.Path == "" {
			return apperr.Configf(op, "storage.leads.sqlite.path is required")
		}
	case "postgres":
		if cfg.Storage.Leads.Postgres.DSN == "" {
			return apperr.Configf(op, "storage.leads.postgres.dsn is required")
		}
	default:
		return apperr.Configf(op, "unknown lead store backend %q", cfg.Storage.Leads.Backend)
	}

	if _, err := cfg.Policy.Resolve(); err != nil {
		return apperr.Config(op, err)
	}
	return nil
}

// SearchRadius returns the configured radius, or the sweep-derived one.
func (c *Config) SearchRadius() float64 {
	if c.Places.RadiusMeters > 0 {
		return c.Places.RadiusMeters
	}
	if len(c.Cities) == 0 {
		return places.DefaultRadius
	}
	return geo.SweepRadius(c.Cities[0].Center, c.Sweep.Delta)
}

// PlacesClientConfig maps the places section onto the client config.
func (c *Config) PlacesClientConfig() places.Config {
	fp, _ := transport.ParseFingerprint(c.Places.TLSFingerprint)
	return places.Config{
		APIKey:      c.Places.APIKey,
		BaseURL:     c.Places.BaseURL,
		Radius:      c.SearchRadius(),
		PageDelay:   c.Places.PageDelay,
		Timeout:     c.Places.Timeout,
		Fingerprint: fp,
	}
}

// Fingerprint returns the parsed TLS fingerprint.
func (c *Config) Fingerprint() transport.Fingerprint {
	fp, _ := transport.ParseFingerprint(c.Places.TLSFingerprint)
	return fp
}
