package qualify

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/rendis/leadsweep/internal/model"
)

// Rule names the check that produced a Decision.
type Rule string

const (
	CheckActivity Rule = "activity"
	CheckContact  Rule = "contact"
	CheckReviews  Rule = "reviews"
	CheckRating   Rule = "rating"
	CheckWebsite  Rule = "website"
)

// Decision is the outcome of Qualify. For admitted records Reason is the
// website quality tag and Rule is CheckWebsite.
type Decision struct {
	Admit   bool
	Rule    Rule
	Reason  string
	Quality string
}

// Filter applies a Policy. It is safe for sequential reuse; the only side
// effect is the website probe under RuleStrictContent.
type Filter struct {
	policy Policy
	prober Prober
	log    *zap.Logger
}

// NewFilter builds a Filter. prober may be nil when the policy never fetches.
func NewFilter(p Policy, prober Prober, log *zap.Logger) *Filter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Filter{policy: p, prober: prober, log: log}
}

// Policy returns the active policy.
func (f *Filter) Policy() Policy { return f.policy }

// Qualify runs the rules in order and reports the first failure. The website
// rule runs last so a rejected record never costs a fetch.
func (f *Filter) Qualify(ctx context.Context, r model.EnrichedRecord) Decision {
	p := f.policy

	if p.ActivityRequired {
		switch st := r.OperatingStatus(); {
		case st == model.StatusOperational:
		case st == model.StatusUnknown && p.UnknownStatusPasses:
		case st == model.StatusUnknown:
			return reject(CheckActivity, "operating status unknown")
		default:
			return reject(CheckActivity, "not operational: "+string(st))
		}
	}

	if p.ContactRequired && r.Website == "" && r.Phone == "" {
		return reject(CheckContact, "no website or phone")
	}

	if r.ReviewCount == nil {
		return reject(CheckReviews, "review count unknown")
	}
	if *r.ReviewCount < p.MinReviews {
		return reject(CheckReviews, fmt.Sprintf("%d reviews, below minimum %d", *r.ReviewCount, p.MinReviews))
	}

	if r.Rating != nil && *r.Rating < p.MinRating {
		return reject(CheckRating, fmt.Sprintf("rating %.1f below minimum %.1f", *r.Rating, p.MinRating))
	}

	quality := f.ClassifyWebsite(ctx, r.Website)
	switch p.WebsiteRule {
	case RuleNoWebsiteOnly:
		if quality != QualityNoWebsite {
			return Decision{Rule: CheckWebsite, Reason: "has website", Quality: quality}
		}
	default:
		if quality == QualityGood {
			return Decision{Rule: CheckWebsite, Reason: "website looks adequate", Quality: quality}
		}
	}
	return Decision{Admit: true, Rule: CheckWebsite, Reason: quality, Quality: quality}
}

func reject(rule Rule, reason string) Decision {
	return Decision{Rule: rule, Reason: reason}
}

// ClassifyWebsite tags a website under the active rule.
func (f *Filter) ClassifyWebsite(ctx context.Context, website string) string {
	website = strings.TrimSpace(website)
	if f.policy.WebsiteRule == RuleNoWebsiteOnly {
		if website == "" || matchesHost(website, f.policy.SocialDomains) {
			return QualityNoWebsite
		}
		return QualityHasWebsite
	}

	if website == "" {
		return QualityNoWebsite
	}
	lower := strings.ToLower(website)
	if !strings.HasPrefix(lower, "https://") {
		return QualityInsecure
	}
	if containsAny(lower, f.policy.FreePlatforms) {
		return QualityFreePlatform
	}
	return f.probe(ctx, website)
}

func (f *Filter) probe(ctx context.Context, website string) string {
	if f.prober == nil {
		return QualityUnreachable
	}

	ctx, cancel := context.WithTimeout(ctx, f.policy.FetchTimeout)
	defer cancel()

	page, err := f.prober.Probe(ctx, website)
	switch {
	case err != nil:
		f.log.Debug("website probe failed", zap.String("url", website), zap.Error(err))
		return QualityUnreachable
	case page.StatusCode >= 400:
		return QualityUnreachable
	case page.Size < f.policy.MinContentBytes:
		return QualityThin
	case page.Generator != "" && containsAny(strings.ToLower(page.Generator), freeGenerators):
		return QualityFreePlatform
	}
	return QualityGood
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}

// matchesHost reports whether website's host is one of domains or a subdomain of one.
func matchesHost(website string, domains []string) bool {
	raw := website
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return containsAny(strings.ToLower(website), domains)
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	for _, d := range domains {
		d = strings.ToLower(d)
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}
