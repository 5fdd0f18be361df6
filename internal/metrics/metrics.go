package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SearchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadsweep_search_requests_total",
			Help: "Place searches executed, one per (point, keyword) bucket",
		},
		[]string{"status"},
	)

	SearchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "leadsweep_search_duration_seconds",
			Help:    "Duration of a full paginated search in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30},
		},
	)

	HitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadsweep_hits_total",
			Help: "Search hits by outcome",
		},
		[]string{"outcome"},
	)

	DecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadsweep_decisions_total",
			Help: "Qualification decisions by result and deciding rule",
		},
		[]string{"result", "rule"},
	)

	LeadsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "leadsweep_leads_forwarded_total",
			Help: "Leads written to the record store",
		},
	)

	PersistenceErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadsweep_persistence_errors_total",
			Help: "Seen log and lead store failures",
		},
		[]string{"op"},
	)
)

// Hit outcomes.
const (
	HitSeen      = "seen"
	HitProcessed = "processed"
	HitDuplicate = "duplicate_name"
)

// RecordSearch counts one search and its duration.
func RecordSearch(d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	SearchRequestsTotal.WithLabelValues(status).Inc()
	SearchDuration.Observe(d.Seconds())
}

func RecordHit(outcome string) {
	HitsTotal.WithLabelValues(outcome).Inc()
}

func RecordDecision(admit bool, rule string) {
	result := "rejected"
	if admit {
		result = "admitted"
	}
	DecisionsTotal.WithLabelValues(result, rule).Inc()
}

func RecordLead() {
	LeadsTotal.Inc()
}

func RecordPersistenceError(op string) {
	PersistenceErrors.WithLabelValues(op).Inc()
}

// Server exposes /metrics.
type Server struct {
	srv *http.Server
	ln  net.Listener
}

// Listen binds addr (e.g. ":9100") without serving yet.
func Listen(addr string) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	return &Server{
		srv: &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		ln:  ln,
	}, nil
}

// Addr is the bound address.
func (s *Server) Addr() string { return s.ln.Addr().String() }

// Serve blocks until Stop. A clean shutdown returns nil.
func (s *Server) Serve() error {
	if err := s.srv.Serve(s.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
