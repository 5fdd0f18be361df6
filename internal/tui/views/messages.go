package views

import (
	"context"
	"time"

	"github.com/rendis/leadsweep/internal/engine/pipeline"
	"github.com/rendis/leadsweep/internal/model"
)

// RunFunc starts one pipeline run with the given options.
type RunFunc func(ctx context.Context, dryRun bool, opts *pipeline.RunOptions) error

// LeadsFunc reads the lead store.
type LeadsFunc func(ctx context.Context) ([]model.Lead, error)

// RunRecord is one finished run as shown on the home screen.
type RunRecord struct {
	ConfigPath string    `json:"config_path"`
	FinishedAt time.Time `json:"finished_at"`
	DryRun     bool      `json:"dry_run"`
	Admitted   int64     `json:"admitted"`
	Rejected   int64     `json:"rejected"`
	Seen       int64     `json:"seen"`
	Err        string    `json:"error,omitempty"`
}

// Navigation messages
type NavigateToHome struct{}
type NavigateToLeads struct{}

// StartRunMsg switches to the progress view and starts a run.
type StartRunMsg struct {
	DryRun bool
}

// RunFinishedMsg is sent by the progress view once the pipeline returns.
type RunFinishedMsg struct {
	Record RunRecord
}

// Version is shown on the home screen; set by main.
var Version = "dev"
