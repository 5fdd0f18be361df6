package qualify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rendis/leadsweep/internal/model"
)

type fakeProber struct {
	page  PageInfo
	err   error
	calls int
}

func (f *fakeProber) Probe(ctx context.Context, url string) (PageInfo, error) {
	f.calls++
	return f.page, f.err
}

func intp(v int) *int           { return &v }
func floatp(v float64) *float64 { return &v }

func record(status model.OperatingStatus, reviews *int, rating *float64, website string) model.EnrichedRecord {
	return model.EnrichedRecord{
		SearchHit:   model.SearchHit{EntityID: "place-1", Name: "Joe's Plumbing"},
		Website:     website,
		Rating:      rating,
		ReviewCount: reviews,
		Status:      status,
	}
}

func strictFilter(t *testing.T, prober Prober) *Filter {
	p, err := Preset(PresetStrictContent)
	require.NoError(t, err)
	return NewFilter(p, prober, zaptest.NewLogger(t))
}

func noWebsiteFilter(t *testing.T, prober Prober) *Filter {
	p, err := Preset(PresetNoWebsite)
	require.NoError(t, err)
	return NewFilter(p, prober, zaptest.NewLogger(t))
}

func TestStrictAdmitsOperationalBusinessWithoutWebsite(t *testing.T) {
	prober := &fakeProber{}
	d := strictFilter(t, prober).Qualify(context.Background(),
		record(model.StatusOperational, intp(12), floatp(4.2), ""))

	assert.True(t, d.Admit)
	assert.Equal(t, QualityNoWebsite, d.Reason)
	assert.Equal(t, QualityNoWebsite, d.Quality)
	assert.Zero(t, prober.calls)
}

func TestPopularityFloorRejectsRegardlessOfWebsite(t *testing.T) {
	for _, website := range []string{"", "http://joes.example", "https://joes.example", "https://joes.wixsite.com/home"} {
		prober := &fakeProber{page: PageInfo{StatusCode: 200, Size: 50000}}
		d := strictFilter(t, prober).Qualify(context.Background(),
			record(model.StatusOperational, intp(3), floatp(4.2), website))

		assert.False(t, d.Admit, website)
		assert.Equal(t, "3 reviews, below minimum 5", d.Reason, website)
		assert.Zero(t, prober.calls, "website must not be fetched for a rejected record")
	}
}

func TestFreePlatformDetectedWithoutFetch(t *testing.T) {
	prober := &fakeProber{err: errors.New("must not be called")}
	f := strictFilter(t, prober)

	assert.Equal(t, QualityFreePlatform, f.ClassifyWebsite(context.Background(), "https://example.wixsite.com/shop"))
	assert.Zero(t, prober.calls)

	d := f.Qualify(context.Background(), record(model.StatusOperational, intp(40), floatp(4.8), "https://example.wixsite.com/shop"))
	assert.True(t, d.Admit)
	assert.Equal(t, QualityFreePlatform, d.Reason)
	assert.Zero(t, prober.calls)
}

func TestStrictWebsiteClassification(t *testing.T) {
	cases := []struct {
		name    string
		website string
		page    PageInfo
		err     error
		want    string
		fetched bool
	}{
		{name: "absent", website: "", want: QualityNoWebsite},
		{name: "plain http", website: "http://joes.example", want: QualityInsecure},
		{name: "no scheme", website: "joes.example", want: QualityInsecure},
		{name: "free platform", website: "https://joes.godaddysites.com", want: QualityFreePlatform},
		{name: "fetch error", website: "https://joes.example", err: errors.New("timeout"), want: QualityUnreachable, fetched: true},
		{name: "server error", website: "https://joes.example", page: PageInfo{StatusCode: 503, Size: 9000}, want: QualityUnreachable, fetched: true},
		{name: "thin", website: "https://joes.example", page: PageInfo{StatusCode: 200, Size: 1999}, want: QualityThin, fetched: true},
		{name: "generator", website: "https://joes.example", page: PageInfo{StatusCode: 200, Size: 9000, Generator: "Wix.com Website Builder"}, want: QualityFreePlatform, fetched: true},
		{name: "good", website: "https://joes.example", page: PageInfo{StatusCode: 200, Size: 2000}, want: QualityGood, fetched: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			prober := &fakeProber{page: tc.page, err: tc.err}
			got := strictFilter(t, prober).ClassifyWebsite(context.Background(), tc.website)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.fetched, prober.calls == 1)
		})
	}
}

func TestStrictRejectsGoodWebsite(t *testing.T) {
	prober := &fakeProber{page: PageInfo{StatusCode: 200, Size: 30000}}
	d := strictFilter(t, prober).Qualify(context.Background(),
		record(model.StatusOperational, intp(50), floatp(4.5), "https://joes.example"))

	assert.False(t, d.Admit)
	assert.Equal(t, "website looks adequate", d.Reason)
	assert.Equal(t, QualityGood, d.Quality)
}

func TestStrictWithoutProberTreatsSiteAsUnreachable(t *testing.T) {
	d := strictFilter(t, nil).Qualify(context.Background(),
		record(model.StatusOperational, intp(50), nil, "https://joes.example"))
	assert.True(t, d.Admit)
	assert.Equal(t, QualityUnreachable, d.Reason)
}

func TestActivityRule(t *testing.T) {
	f := strictFilter(t, nil)

	d := f.Qualify(context.Background(), record(model.StatusClosedPermanently, intp(50), floatp(4.5), ""))
	assert.False(t, d.Admit)
	assert.Equal(t, "not operational: CLOSED_PERMANENTLY", d.Reason)

	d = f.Qualify(context.Background(), record(model.StatusUnknown, intp(50), floatp(4.5), ""))
	assert.False(t, d.Admit)
	assert.Equal(t, "operating status unknown", d.Reason)

	p := f.Policy()
	p.UnknownStatusPasses = true
	d = NewFilter(p, nil, nil).Qualify(context.Background(), record(model.StatusUnknown, intp(50), floatp(4.5), ""))
	assert.True(t, d.Admit)

	p.ActivityRequired = false
	d = NewFilter(p, nil, nil).Qualify(context.Background(), record(model.StatusClosedTemporarily, intp(50), floatp(4.5), ""))
	assert.True(t, d.Admit)
}

func TestFirstFailingRuleWins(t *testing.T) {
	d := strictFilter(t, nil).Qualify(context.Background(),
		record(model.StatusClosedTemporarily, intp(1), floatp(1.0), "https://joes.example"))
	assert.False(t, d.Admit)
	assert.Equal(t, "not operational: CLOSED_TEMPORARILY", d.Reason)
	assert.Equal(t, CheckActivity, d.Rule)

	d = strictFilter(t, nil).Qualify(context.Background(),
		record(model.StatusOperational, intp(10), floatp(1.0), ""))
	assert.Equal(t, "rating 1.0 below minimum 3.0", d.Reason)
	assert.Equal(t, CheckRating, d.Rule)
}

func TestPopularityAbsentReviewCountRejects(t *testing.T) {
	d := strictFilter(t, nil).Qualify(context.Background(), record(model.StatusOperational, nil, floatp(4.9), ""))
	assert.False(t, d.Admit)
	assert.Equal(t, "review count unknown", d.Reason)
	assert.Equal(t, CheckReviews, d.Rule)
}

func TestRatingAbsentDoesNotReject(t *testing.T) {
	d := strictFilter(t, nil).Qualify(context.Background(), record(model.StatusOperational, intp(5), nil, ""))
	assert.True(t, d.Admit)
}

func TestEmptyRecordIsRejected(t *testing.T) {
	for _, f := range []*Filter{strictFilter(t, nil), noWebsiteFilter(t, nil)} {
		d := f.Qualify(context.Background(), model.EnrichedRecord{SearchHit: model.SearchHit{EntityID: "x"}})
		assert.False(t, d.Admit)
	}
}

func TestContactabilityRule(t *testing.T) {
	f := noWebsiteFilter(t, nil)

	d := f.Qualify(context.Background(), record(model.StatusOperational, intp(30), floatp(4.0), ""))
	assert.False(t, d.Admit)
	assert.Equal(t, "no website or phone", d.Reason)

	r := record(model.StatusOperational, intp(30), floatp(4.0), "")
	r.Phone = "(512) 555-0100"
	d = f.Qualify(context.Background(), r)
	assert.True(t, d.Admit)
	assert.Equal(t, QualityNoWebsite, d.Reason)
}

func TestNoWebsiteRule(t *testing.T) {
	f := noWebsiteFilter(t, &fakeProber{err: errors.New("never fetched")})
	ctx := context.Background()

	assert.Equal(t, QualityNoWebsite, f.ClassifyWebsite(ctx, ""))
	assert.Equal(t, QualityNoWebsite, f.ClassifyWebsite(ctx, "https://www.facebook.com/joesplumbing"))
	assert.Equal(t, QualityNoWebsite, f.ClassifyWebsite(ctx, "https://m.facebook.com/joes"))
	assert.Equal(t, QualityNoWebsite, f.ClassifyWebsite(ctx, "linktr.ee/joes"))
	assert.Equal(t, QualityNoWebsite, f.ClassifyWebsite(ctx, "https://x.com/joes"))
	assert.Equal(t, QualityHasWebsite, f.ClassifyWebsite(ctx, "https://fox.com"))
	assert.Equal(t, QualityHasWebsite, f.ClassifyWebsite(ctx, "http://joes.example"))

	d := f.Qualify(ctx, record(model.StatusOperational, intp(30), floatp(4.0), "https://joes.example"))
	assert.False(t, d.Admit)
	assert.Equal(t, "has website", d.Reason)
}

func TestQualifyIsDeterministic(t *testing.T) {
	prober := &fakeProber{page: PageInfo{StatusCode: 200, Size: 100}}
	f := strictFilter(t, prober)
	records := []model.EnrichedRecord{
		record(model.StatusOperational, intp(12), floatp(4.2), ""),
		record(model.StatusOperational, intp(12), floatp(4.2), "https://joes.example"),
		record(model.StatusUnknown, nil, nil, ""),
		record(model.StatusOperational, intp(3), floatp(2.0), "http://joes.example"),
	}
	for _, r := range records {
		assert.Equal(t, f.Qualify(context.Background(), r), f.Qualify(context.Background(), r))
	}
}

// Every admitted record must satisfy each configured rule.
func TestAdmissionImpliesAllRulesPass(t *testing.T) {
	statuses := []model.OperatingStatus{model.StatusOperational, model.StatusUnknown, model.StatusClosedPermanently}
	reviews := []*int{nil, intp(0), intp(5), intp(19), intp(20), intp(100)}
	ratings := []*float64{nil, floatp(2.9), floatp(3.0), floatp(4.9)}
	websites := []string{"", "http://a.example", "https://a.example", "https://a.wixsite.com", "https://facebook.com/a"}
	phones := []string{"", "555"}

	prober := &fakeProber{page: PageInfo{StatusCode: 200, Size: 500}}
	for _, f := range []*Filter{strictFilter(t, prober), noWebsiteFilter(t, prober)} {
		p := f.Policy()
		for _, st := range statuses {
			for _, rv := range reviews {
				for _, rt := range ratings {
					for _, w := range websites {
						for _, ph := range phones {
							r := record(st, rv, rt, w)
							r.Phone = ph
							d := f.Qualify(context.Background(), r)
							if !d.Admit {
								continue
							}
							assert.Equal(t, model.StatusOperational, st)
							if p.ContactRequired {
								assert.True(t, w != "" || ph != "")
							}
							require.NotNil(t, rv)
							assert.GreaterOrEqual(t, *rv, p.MinReviews)
							if rt != nil {
								assert.GreaterOrEqual(t, *rt, p.MinRating)
							}
							if p.WebsiteRule == RuleNoWebsiteOnly {
								assert.Equal(t, QualityNoWebsite, d.Quality)
							} else {
								assert.NotEqual(t, QualityGood, d.Quality)
							}
						}
					}
				}
			}
		}
	}
}

func TestPresets(t *testing.T) {
	p, err := Preset("")
	require.NoError(t, err)
	assert.Equal(t, PresetStrictContent, p.Name)
	assert.Equal(t, 5, p.MinReviews)
	assert.Equal(t, 3.0, p.MinRating)
	assert.NoError(t, p.Validate())

	p, err = Preset(PresetNoWebsite)
	require.NoError(t, err)
	assert.Equal(t, 20, p.MinReviews)
	assert.True(t, p.ContactRequired)
	assert.Equal(t, RuleNoWebsiteOnly, p.WebsiteRule)
	assert.NoError(t, p.Validate())

	_, err = Preset("lenient")
	assert.Error(t, err)
}

func TestPolicyValidate(t *testing.T) {
	p, _ := Preset(PresetStrictContent)

	bad := p
	bad.WebsiteRule = "vibes"
	assert.Error(t, bad.Validate())

	bad = p
	bad.MinRating = 6
	assert.Error(t, bad.Validate())

	bad = p
	bad.MinReviews = -1
	assert.Error(t, bad.Validate())

	bad = p
	bad.FetchTimeout = 0
	assert.Error(t, bad.Validate())
}
