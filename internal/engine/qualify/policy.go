// Package qualify decides which enriched records become leads.
package qualify

import (
	"fmt"
	"time"
)

// WebsiteRule selects how the website-quality rule classifies a record.
type WebsiteRule string

const (
	// RuleStrictContent admits records whose website is absent or low quality.
	RuleStrictContent WebsiteRule = "strict_content"
	// RuleNoWebsiteOnly admits records with no website or only a social/link page.
	RuleNoWebsiteOnly WebsiteRule = "no_website_only"
)

// Website quality tags; also written to the lead store.
const (
	QualityNoWebsite    = "No Website"
	QualityInsecure     = "Insecure (HTTP)"
	QualityFreePlatform = "Free Platform"
	QualityThin         = "Thin Content"
	QualityUnreachable  = "Unreachable"
	QualityGood         = "Good Website"
	QualityHasWebsite   = "Has Website"
)

const (
	DefaultMinContentBytes = 2000
	DefaultFetchTimeout    = 5 * time.Second
)

// DefaultFreePlatforms are matched by substring against the website URL.
var DefaultFreePlatforms = []string{
	"wixsite.com",
	"weebly.com",
	"godaddysites.com",
	"business.site",
	"square.site",
	"blogspot.com",
	"wordpress.com",
	"sites.google.com",
	"jimdosite.com",
	"site123.me",
	"webnode.",
}

// DefaultSocialDomains are matched against the website host.
var DefaultSocialDomains = []string{
	"facebook.com",
	"instagram.com",
	"linktr.ee",
	"twitter.com",
	"x.com",
	"tiktok.com",
	"linkedin.com",
	"youtube.com",
	"yelp.com",
	"nextdoor.com",
}

// Policy is one coherent admission policy selected at startup.
type Policy struct {
	Name                string
	ActivityRequired    bool
	UnknownStatusPasses bool
	ContactRequired     bool
	MinReviews          int
	MinRating           float64
	WebsiteRule         WebsiteRule
	MinContentBytes     int
	FetchTimeout        time.Duration
	FreePlatforms       []string
	SocialDomains       []string
}

// Preset names.
const (
	PresetStrictContent = "strict-content"
	PresetNoWebsite     = "no-website"
)

// Preset returns a named policy.
func Preset(name string) (Policy, error) {
	switch name {
	case PresetStrictContent, "":
		return Policy{
			Name:             PresetStrictContent,
			ActivityRequired: true,
			MinReviews:       5,
			MinRating:        3.0,
			WebsiteRule:      RuleStrictContent,
			MinContentBytes:  DefaultMinContentBytes,
			FetchTimeout:     DefaultFetchTimeout,
			FreePlatforms:    DefaultFreePlatforms,
			SocialDomains:    DefaultSocialDomains,
		}, nil
	case PresetNoWebsite:
		return Policy{
			Name:             PresetNoWebsite,
			ActivityRequired: true,
			ContactRequired:  true,
			MinReviews:       20,
			MinRating:        3.0,
			WebsiteRule:      RuleNoWebsiteOnly,
			MinContentBytes:  DefaultMinContentBytes,
			FetchTimeout:     DefaultFetchTimeout,
			FreePlatforms:    DefaultFreePlatforms,
			SocialDomains:    DefaultSocialDomains,
		}, nil
	}
	return Policy{}, fmt.Errorf("unknown policy preset %q", name)
}

// Validate checks the policy is usable.
func (p Policy) Validate() error {
	switch p.WebsiteRule {
	case RuleStrictContent, RuleNoWebsiteOnly:
	default:
		return fmt.Errorf("unknown website rule %q", p.WebsiteRule)
	}
	if p.MinReviews < 0 {
		return fmt.Errorf("min reviews must be >= 0, got %d", p.MinReviews)
	}
	if p.MinRating < 0 || p.MinRating > 5 {
		return fmt.Errorf("min rating must be within [0, 5], got %.1f", p.MinRating)
	}
	if p.WebsiteRule == RuleStrictContent {
		if p.MinContentBytes <= 0 {
			return fmt.Errorf("min content bytes must be > 0")
		}
		if p.FetchTimeout <= 0 {
			return fmt.Errorf("fetch timeout must be > 0")
		}
	}
	return nil
}
