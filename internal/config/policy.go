package config

import "github.com/rendis/leadsweep/internal/engine/qualify"

// Resolve turns the preset plus overrides into a validated policy.
func (p PolicyConfig) Resolve() (qualify.Policy, error) {
	pol, err := qualify.Preset(p.Preset)
	if err != nil {
		return qualify.Policy{}, err
	}
	if p.ActivityRequired != nil {
		pol.ActivityRequired = *p.ActivityRequired
	}
	if p.UnknownStatusPasses != nil {
		pol.UnknownStatusPasses = *p.UnknownStatusPasses
	}
	if p.ContactRequired != nil {
		pol.ContactRequired = *p.ContactRequired
	}
	if p.MinReviews != nil {
		pol.MinReviews = *p.MinReviews
	}
	if p.MinRating != nil {
		pol.MinRating = *p.MinRating
	}
	if p.WebsiteRule != "" {
		pol.WebsiteRule = qualify.WebsiteRule(p.WebsiteRule)
	}
	if p.MinContentBytes != nil {
		pol.MinContentBytes = *p.MinContentBytes
	}
	if p.FetchTimeout != nil {
		pol.FetchTimeout = *p.FetchTimeout
	}
	if len(p.FreePlatforms) > 0 {
		pol.FreePlatforms = p.FreePlatforms
	}
	if len(p.SocialDomains) > 0 {
		pol.SocialDomains = p.SocialDomains
	}
	if err := pol.Validate(); err != nil {
		return qualify.Policy{}, err
	}
	return pol, nil
}
