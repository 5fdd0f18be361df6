// Package pipeline drives a run: city, sweep point, keyword, hit.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/rendis/leadsweep/internal/apperr"
	"github.com/rendis/leadsweep/internal/engine/dedup"
	"github.com/rendis/leadsweep/internal/engine/geo"
	"github.com/rendis/leadsweep/internal/engine/qualify"
	"github.com/rendis/leadsweep/internal/engine/storage"
	"github.com/rendis/leadsweep/internal/metrics"
	"github.com/rendis/leadsweep/internal/model"
)

type Searcher interface {
	Search(ctx context.Context, keyword string, at model.Coordinate, maxResults int) ([]model.SearchHit, error)
}

type Enricher interface {
	Enrich(ctx context.Context, entityID string) model.EnrichedRecord
}

type Qualifier interface {
	Qualify(ctx context.Context, r model.EnrichedRecord) qualify.Decision
}

// Plan is what a run sweeps.
type Plan struct {
	Cities             []model.City
	Keywords           []string
	Delta              float64
	BucketLimit        int
	MaxResults         int
	AbortOnSearchError bool
}

// Deps are the collaborators of a run.
type Deps struct {
	Plan     Plan
	Searcher Searcher
	Enricher Enricher
	Filter   Qualifier
	Cache    *dedup.Cache
	SeenLog  storage.SeenLog
	Leads    storage.LeadStore
	Log      *zap.Logger
	// Now stamps seen-log rows. Defaults to time.Now.
	Now func() time.Time
}

type Stats struct {
	BucketsTotal atomic.Int64
	BucketsDone  atomic.Int64
	Hits         atomic.Int64
	Seen         atomic.Int64
	Processed    atomic.Int64
	Admitted     atomic.Int64
	Rejected     atomic.Int64
	Duplicates   atomic.Int64
	SearchErrors atomic.Int64
	StoreErrors  atomic.Int64

	mu      sync.Mutex
	buckets []BucketResult
}

// Buckets returns a copy of the finished bucket results in run order.
func (s *Stats) Buckets() []BucketResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]BucketResult(nil), s.buckets...)
}

func (s *Stats) addBucket(b BucketResult) {
	s.mu.Lock()
	s.buckets = append(s.buckets, b)
	s.mu.Unlock()
	s.BucketsDone.Add(1)
}

// BucketResult summarises one (city, sweep point, keyword) search.
type BucketResult struct {
	City     string
	Point    int // index into geo.Sweep, 0 is the center
	At       model.Coordinate
	Keyword  string
	Hits     int
	Admitted int
	Capped   bool
	Err      error
}

// DecisionEvent is reported for every enriched and qualified hit.
type DecisionEvent struct {
	City      string
	Keyword   string
	Record    model.EnrichedRecord
	Decision  qualify.Decision
	Forwarded bool
	Duplicate bool
}

// RunOptions provides optional callbacks for the pipeline.
type RunOptions struct {
	OnDecision func(DecisionEvent)
	OnBucket   func(BucketResult)
	// SuppressStderr disables the built-in stderr progress reporter.
	SuppressStderr bool
	// Stats allows passing an external Stats object for live progress tracking.
	// If nil, Run() creates its own.
	Stats *Stats
	// DryRun qualifies without writing to the lead store or the seen log.
	DryRun bool
}

type runner struct {
	deps  Deps
	opts  *RunOptions
	stats *Stats
	log   *zap.Logger
}

// Run executes the sweep. It returns early only on context cancellation, a
// search failure with AbortOnSearchError, or an invalid plan; item level
// persistence failures are logged and the item skipped.
func Run(ctx context.Context, deps Deps, opts *RunOptions) (*Stats, error) {
	if opts == nil {
		opts = &RunOptions{}
	}
	if err := validate(deps); err != nil {
		return nil, err
	}
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	plan := deps.Plan
	total := 0
	for _, c := range plan.Cities {
		total += len(geo.Sweep(c.Center, plan.Delta)) * len(plan.Keywords)
	}

	stats := opts.Stats
	if stats == nil {
		stats = &Stats{}
	}
	stats.BucketsTotal.Store(int64(total))

	r := &runner{deps: deps, opts: opts, stats: stats, log: deps.Log}

	deps.Cache.Load(ctx)

	startTime := time.Now()
	done := make(chan struct{})
	go r.reportProgress(startTime, done)

	err := r.sweep(ctx)
	close(done)

	if !opts.SuppressStderr {
		fmt.Fprintf(os.Stderr, "\r%s\n", r.progressLine(startTime))
	}
	r.logSummary()

	return stats, err
}

func validate(d Deps) error {
	const op = "pipeline"
	switch {
	case len(d.Plan.Cities) == 0:
		return apperr.Configf(op, "no cities to sweep")
	case len(d.Plan.Keywords) == 0:
		return apperr.Configf(op, "no keywords to search")
	case d.Plan.BucketLimit <= 0:
		return apperr.Configf(op, "bucket limit must be > 0")
	case d.Plan.Delta <= 0:
		return apperr.Configf(op, "sweep delta must be > 0")
	case d.Searcher == nil || d.Enricher == nil || d.Filter == nil || d.Cache == nil:
		return apperr.Configf(op, "searcher, enricher, filter and cache are required")
	case d.SeenLog == nil || d.Leads == nil:
		return apperr.Configf(op, "seen log and lead store are required")
	}
	return nil
}

func (r *runner) sweep(ctx context.Context) error {
	plan := r.deps.Plan
	for _, city := range plan.Cities {
		for i, pt := range geo.Sweep(city.Center, plan.Delta) {
			for _, kw := range plan.Keywords {
				if err := ctx.Err(); err != nil {
					return err
				}
				b := BucketResult{City: city.Name, Point: i, At: pt, Keyword: kw}
				err := r.bucket(ctx, city, &b)
				r.stats.addBucket(b)
				if r.opts.OnBucket != nil {
					r.opts.OnBucket(b)
				}
				if err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (r *runner) bucket(ctx context.Context, city model.City, b *BucketResult) error {
	log := r.log.With(zap.String("city", city.Name), zap.Int("point", b.Point), zap.String("keyword", b.Keyword))

	began := time.Now()
	hits, err := r.deps.Searcher.Search(ctx, b.Keyword, b.At, r.deps.Plan.MaxResults)
	metrics.RecordSearch(time.Since(began), err)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		r.stats.SearchErrors.Add(1)
		b.Err = err
		if r.deps.Plan.AbortOnSearchError {
			log.Error("search failed, aborting run", zap.Error(err))
			return err
		}
		log.Warn("search failed, skipping bucket", zap.Error(err), zap.String("kind", string(apperr.KindOf(err))))
		return nil
	}

	b.Hits = len(hits)
	r.stats.Hits.Add(int64(len(hits)))
	log.Debug("search done", zap.Int("hits", len(hits)))

	for _, hit := range hits {
		if b.Admitted >= r.deps.Plan.BucketLimit {
			b.Capped = true
			log.Debug("bucket limit reached", zap.Int("limit", r.deps.Plan.BucketLimit))
			break
		}
		forwarded, err := r.hit(ctx, city, b.Keyword, hit, log)
		if err != nil {
			return err
		}
		if forwarded {
			b.Admitted++
		}
	}
	return nil
}

// hit runs one search hit through dedup, enrichment, qualification and the
// sinks. Only context errors are returned.
func (r *runner) hit(ctx context.Context, city model.City, keyword string, hit model.SearchHit, log *zap.Logger) (bool, error) {
	if hit.EntityID == "" {
		return false, nil
	}
	if r.deps.Cache.Has(hit.EntityID) {
		r.stats.Seen.Add(1)
		metrics.RecordHit(metrics.HitSeen)
		return false, nil
	}

	rec := r.deps.Enricher.Enrich(ctx, hit.EntityID)
	if err := ctx.Err(); err != nil {
		return false, err
	}
	rec.EntityID = hit.EntityID
	if rec.Name == "" {
		rec.Name = hit.Name
	}
	if rec.Address == "" {
		rec.Address = hit.Address
	}

	d := r.deps.Filter.Qualify(ctx, rec)
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.stats.Processed.Add(1)
	metrics.RecordHit(metrics.HitProcessed)
	metrics.RecordDecision(d.Admit, string(d.Rule))

	log = log.With(zap.String("entity_id", rec.EntityID), zap.String("name", rec.Name))
	ev := DecisionEvent{City: city.Name, Keyword: keyword, Record: rec, Decision: d}

	if d.Admit {
		forwarded, dup, ok := r.forward(ctx, city, rec, d, log)
		if !ok {
			// left unmarked so the next run retries it
			if r.opts.OnDecision != nil {
				r.opts.OnDecision(ev)
			}
			return false, nil
		}
		ev.Forwarded, ev.Duplicate = forwarded, dup
	} else {
		r.stats.Rejected.Add(1)
		log.Info("rejected", zap.String("rule", string(d.Rule)), zap.String("reason", d.Reason))
	}

	r.deps.Cache.Mark(rec.EntityID)
	if !r.opts.DryRun {
		entry := model.SeenEntry{
			Name:     rec.Name,
			Address:  rec.Address,
			Date:     r.deps.Now().Format("2006-01-02"),
			EntityID: rec.EntityID,
		}
		if err := r.deps.SeenLog.Append(ctx, entry); err != nil {
			r.storeError("append_seen", err, log)
		}
	}

	if r.opts.OnDecision != nil {
		r.opts.OnDecision(ev)
	}
	return ev.Forwarded, nil
}

// forward writes an admitted record to the lead store. ok is false when a
// store failure means the item must be skipped without marking it seen.
func (r *runner) forward(ctx context.Context, city model.City, rec model.EnrichedRecord, d qualify.Decision, log *zap.Logger) (forwarded, duplicate, ok bool) {
	if r.opts.DryRun {
		r.stats.Admitted.Add(1)
		log.Info("admitted (dry run)", zap.String("quality", d.Quality))
		return true, false, true
	}

	exists, err := r.deps.Leads.Exists(ctx, rec.Name)
	if err != nil {
		r.storeError("lookup_lead", err, log)
		return false, false, false
	}
	if exists {
		r.stats.Duplicates.Add(1)
		metrics.RecordHit(metrics.HitDuplicate)
		log.Info("admitted but already stored under this name", zap.String("quality", d.Quality))
		return false, true, true
	}

	if err := r.deps.Leads.Insert(ctx, model.NewLead(rec, city, d.Quality)); err != nil {
		r.storeError("insert_lead", err, log)
		return false, false, false
	}
	r.stats.Admitted.Add(1)
	metrics.RecordLead()
	log.Info("admitted", zap.String("quality", d.Quality))
	return true, false, true
}

func (r *runner) storeError(op string, err error, log *zap.Logger) {
	r.stats.StoreErrors.Add(1)
	metrics.RecordPersistenceError(op)
	if errors.Is(err, context.Canceled) {
		log.Debug("store call canceled", zap.String("op", op))
		return
	}
	log.Error("store failed, skipping", zap.String("op", op), zap.Error(err))
}

func (r *runner) progressLine(startTime time.Time) string {
	s := r.stats
	return fmt.Sprintf("[%d/%d buckets] %d hits | %d seen | %d admitted | %d rejected | %d errors | %s",
		s.BucketsDone.Load(), s.BucketsTotal.Load(),
		s.Hits.Load(), s.Seen.Load(), s.Admitted.Load(), s.Rejected.Load(),
		s.SearchErrors.Load()+s.StoreErrors.Load(),
		time.Since(startTime).Truncate(time.Second))
}

func (r *runner) reportProgress(startTime time.Time, done <-chan struct{}) {
	ticker := time.NewTicker(2 * time.Second)
	logTicker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	defer logTicker.Stop()
	for {
		select {
		case <-ticker.C:
			if !r.opts.SuppressStderr {
				fmt.Fprintf(os.Stderr, "\r%s", r.progressLine(startTime))
			}
		case <-logTicker.C:
			s := r.stats
			r.log.Info("progress",
				zap.Int64("buckets_done", s.BucketsDone.Load()),
				zap.Int64("buckets_total", s.BucketsTotal.Load()),
				zap.Int64("hits", s.Hits.Load()),
				zap.Int64("admitted", s.Admitted.Load()),
				zap.Int64("rejected", s.Rejected.Load()),
				zap.Duration("elapsed", time.Since(startTime).Truncate(time.Second)),
			)
		case <-done:
			return
		}
	}
}

func (r *runner) logSummary() {
	for _, b := range r.stats.Buckets() {
		if b.Admitted == 0 {
			continue
		}
		r.log.Info("bucket admitted",
			zap.String("city", b.City),
			zap.Int("point", b.Point),
			zap.String("keyword", b.Keyword),
			zap.Int("admitted", b.Admitted),
			zap.Bool("capped", b.Capped),
		)
	}
	s := r.stats
	r.log.Info("run finished",
		zap.Int64("buckets", s.BucketsDone.Load()),
		zap.Int64("hits", s.Hits.Load()),
		zap.Int64("seen", s.Seen.Load()),
		zap.Int64("processed", s.Processed.Load()),
		zap.Int64("admitted", s.Admitted.Load()),
		zap.Int64("rejected", s.Rejected.Load()),
		zap.Int64("duplicates", s.Duplicates.Load()),
		zap.Int64("search_errors", s.SearchErrors.Load()),
		zap.Int64("store_errors", s.StoreErrors.Load()),
	)
}
