package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/leadsweep/internal/apperr"
	"github.com/rendis/leadsweep/internal/engine/qualify"
	"github.com/rendis/leadsweep/internal/model"
)

const sampleYAML = `
places:
  api_key: yaml-key
  page_delay: 1500ms
cities:
  - name: Austin, TX
    center: {lat: 30.2672, lng: -97.7431}
  - name: Dallas, TX
    center: {lat: 32.7767, lng: -96.7970}
keywords:
  - plumber
  - "  roofing contractor "
  - ""
policy:
  preset: no-website
  min_reviews: 8
  unknown_status_passes: true
  fetch_timeout: 3s
sweep:
  bucket_limit: 3
storage:
  seen_log:
    backend: Redis
    redis:
      address: 127.0.0.1:6380
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "leadsweep.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "yaml-key", cfg.Places.APIKey)
	assert.Equal(t, 1500*time.Millisecond, cfg.Places.PageDelay)
	assert.Equal(t, 60, cfg.Places.MaxResults)
	require.Len(t, cfg.Cities, 2)
	assert.Equal(t, model.City{Name: "Austin, TX", Center: model.Coordinate{Lat: 30.2672, Lng: -97.7431}}, cfg.Cities[0])
	assert.Equal(t, []string{"plumber", "roofing contractor"}, cfg.Keywords)
	assert.Equal(t, 0.03, cfg.Sweep.Delta)
	assert.Equal(t, 3, cfg.Sweep.BucketLimit)
	assert.Equal(t, "redis", cfg.Storage.SeenLog.Backend)
	assert.Equal(t, "127.0.0.1:6380", cfg.Storage.SeenLog.Redis.Address)
	assert.Equal(t, "leadsweep:seen", cfg.Storage.SeenLog.Redis.Key)
	assert.Equal(t, "sqlite", cfg.Storage.Leads.Backend)

	pol, err := cfg.Policy.Resolve()
	require.NoError(t, err)
	assert.Equal(t, qualify.RuleNoWebsiteOnly, pol.WebsiteRule)
	assert.Equal(t, 8, pol.MinReviews)
	assert.True(t, pol.UnknownStatusPasses)
	assert.True(t, pol.ContactRequired)
	assert.Equal(t, 3*time.Second, pol.FetchTimeout)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("LEADSWEEP_PLACES_API_KEY", "env-key")
	t.Setenv("LEADSWEEP_SWEEP_BUCKET_LIMIT", "9")

	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.Places.APIKey)
	assert.Equal(t, 9, cfg.Sweep.BucketLimit)
}

func TestLoadEnvOverridesPolicyFields(t *testing.T) {
	t.Setenv("LEADSWEEP_POLICY_MIN_REVIEWS", "1")
	t.Setenv("LEADSWEEP_POLICY_CONTACT_REQUIRED", "false")
	t.Setenv("LEADSWEEP_POLICY_MIN_RATING", "4.2")
	t.Setenv("LEADSWEEP_POLICY_FETCH_TIMEOUT", "750ms")
	path := writeConfig(t, `
places: {api_key: k}
cities: [{name: Austin, center: {lat: 30.2, lng: -97.7}}]
keywords: [plumber]
policy:
  preset: no-website
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.Policy.MinReviews)
	assert.Nil(t, cfg.Policy.UnknownStatusPasses, "unset keys stay unset")

	pol, err := cfg.Policy.Resolve()
	require.NoError(t, err)
	assert.Equal(t, 1, pol.MinReviews)
	assert.False(t, pol.ContactRequired)
	assert.InDelta(t, 4.2, pol.MinRating, 1e-9)
	assert.Equal(t, 750*time.Millisecond, pol.FetchTimeout)
	assert.False(t, pol.UnknownStatusPasses)
}

func TestLoadDotEnvNextToConfig(t *testing.T) {
	path := writeConfig(t, `
cities: [{name: Austin, center: {lat: 30.2, lng: -97.7}}]
keywords: [plumber]
`)
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(path), ".env"), []byte("LEADSWEEP_PLACES_API_KEY=dotenv-key\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("LEADSWEEP_PLACES_API_KEY") })

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "dotenv-key", cfg.Places.APIKey)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Equal(t, apperr.KindConfig, apperr.KindOf(err))
}

func TestValidateErrors(t *testing.T) {
	cases := map[string]string{
		"no cities": `
places: {api_key: k}
keywords: [plumber]`,
		"no keywords": `
places: {api_key: k}
cities: [{name: Austin, center: {lat: 30.2, lng: -97.7}}]`,
		"bad latitude": `
places: {api_key: k}
cities: [{name: Austin, center: {lat: 130.2, lng: -97.7}}]
keywords: [plumber]`,
		"no api key": `
cities: [{name: Austin, center: {lat: 30.2, lng: -97.7}}]
keywords: [plumber]`,
		"unknown backend": `
places: {api_key: k}
cities: [{name: Austin, center: {lat: 30.2, lng: -97.7}}]
keywords: [plumber]
storage: {seen_log: {backend: mongo}}`,
		"postgres without dsn": `
places: {api_key: k}
cities: [{name: Austin, center: {lat: 30.2, lng: -97.7}}]
keywords: [plumber]
storage: {leads: {backend: postgres}}`,
		"unknown preset": `
places: {api_key: k}
cities: [{name: Austin, center: {lat: 30.2, lng: -97.7}}]
keywords: [plumber]
policy: {preset: lenient}`,
		"bad delta": `
places: {api_key: k}
cities: [{name: Austin, center: {lat: 30.2, lng: -97.7}}]
keywords: [plumber]
sweep: {delta: -1}`,
		"bad fingerprint": `
places: {api_key: k, tls_fingerprint: netscape}
cities: [{name: Austin, center: {lat: 30.2, lng: -97.7}}]
keywords: [plumber]`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			require.Error(t, err)
			assert.Equal(t, apperr.KindConfig, apperr.KindOf(err))
		})
	}
}

func TestSearchRadius(t *testing.T) {
	cfg := &Config{
		Cities: []model.City{{Name: "Austin", Center: model.Coordinate{Lat: 30.2672, Lng: -97.7431}}},
		Sweep:  SweepConfig{Delta: 0.03},
	}
	assert.InDelta(t, 3336, cfg.SearchRadius(), 20)

	cfg.Places.RadiusMeters = 1200
	assert.Equal(t, 1200.0, cfg.SearchRadius())
}

func TestResolveDefaultsToStrictContent(t *testing.T) {
	pol, err := PolicyConfig{}.Resolve()
	require.NoError(t, err)
	assert.Equal(t, qualify.PresetStrictContent, pol.Name)
	assert.Equal(t, qualify.RuleStrictContent, pol.WebsiteRule)
}

func TestResolveRejectsInvalidOverride(t *testing.T) {
	bad := 7.5
	_, err := PolicyConfig{MinRating: &bad}.Resolve()
	assert.Error(t, err)
}
