package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/rendis/leadsweep/internal/engine/geo"
	"github.com/rendis/leadsweep/internal/engine/pipeline"
	"github.com/rendis/leadsweep/internal/model"
	"github.com/rendis/leadsweep/internal/tui"
)

func runTUI(args []string) error {
	var configPath string
	fs := flag.NewFlagSet("leadsweep", flag.ExitOnError)
	fs.StringVar(&configPath, "config", "", "Path to the YAML config (default: ./leadsweep.yaml)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	// the TUI owns the terminal, so logs go to a file
	rt, err := openRuntime(ctx, configPath, "leadsweep.log")
	if err != nil {
		return err
	}
	defer rt.Close()

	shown := configPath
	if shown == "" {
		shown = "leadsweep.yaml"
	}
	cfg := rt.cfg
	points := len(geo.Sweep(cfg.Cities[0].Center, cfg.Sweep.Delta))

	return tui.Run(tui.Options{
		ConfigPath: shown,
		Summary:    fmt.Sprintf("%d cities × %d points × %d keywords, policy %s", len(cfg.Cities), points, len(cfg.Keywords), cfg.Policy.Preset),
		Cities:     cfg.Cities,
		Delta:      cfg.Sweep.Delta,
		Keywords:   len(cfg.Keywords),
		Run: func(ctx context.Context, dryRun bool, opts *pipeline.RunOptions) error {
			_, err := rt.run(ctx, dryRun, opts)
			return err
		},
		Leads: func(ctx context.Context) ([]model.Lead, error) {
			return rt.stores.Leads.List(ctx)
		},
	})
}
