package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rendis/leadsweep/internal/config"
	"github.com/rendis/leadsweep/internal/engine/dedup"
	"github.com/rendis/leadsweep/internal/engine/pipeline"
	"github.com/rendis/leadsweep/internal/engine/places"
	"github.com/rendis/leadsweep/internal/engine/qualify"
	"github.com/rendis/leadsweep/internal/engine/storage"
	"github.com/rendis/leadsweep/internal/logger"
	"github.com/rendis/leadsweep/internal/metrics"
)

// runtime is a loaded configuration with its logger and open stores.
type runtime struct {
	cfg    *config.Config
	log    *zap.Logger
	stores *storage.Stores
}

// openRuntime loads configPath and opens the stores. defaultLogFile is used
// when the config does not name a log file.
func openRuntime(ctx context.Context, configPath, defaultLogFile string) (*runtime, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logPath := cfg.Log.File
	if logPath == "" {
		logPath = defaultLogFile
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, logPath)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	stores, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		log.Sync()
		return nil, err
	}

	log.Info("config loaded",
		zap.String("path", configPath),
		zap.Int("cities", len(cfg.Cities)),
		zap.Strings("keywords", cfg.Keywords),
		zap.String("seen_log", cfg.Storage.SeenLog.Backend),
		zap.String("leads", cfg.Storage.Leads.Backend),
		zap.String("policy", cfg.Policy.Preset),
	)
	return &runtime{cfg: cfg, log: log, stores: stores}, nil
}

func (rt *runtime) Close() error {
	err := rt.stores.Close()
	rt.log.Sync()
	return err
}

// run executes one pipeline run, serving /metrics alongside when configured.
func (rt *runtime) run(ctx context.Context, dryRun bool, opts *pipeline.RunOptions) (*pipeline.Stats, error) {
	cfg := rt.cfg
	pol, err := cfg.Policy.Resolve()
	if err != nil {
		return nil, err
	}

	if opts == nil {
		opts = &pipeline.RunOptions{}
	}
	opts.DryRun = dryRun

	deps := pipeline.Deps{
		Plan: pipeline.Plan{
			Cities:             cfg.Cities,
			Keywords:           cfg.Keywords,
			Delta:              cfg.Sweep.Delta,
			BucketLimit:        cfg.Sweep.BucketLimit,
			MaxResults:         cfg.Places.MaxResults,
			AbortOnSearchError: cfg.Sweep.AbortOnSearchError,
		},
		Cache:   dedup.New(rt.stores.SeenLog, rt.log),
		SeenLog: rt.stores.SeenLog,
		Leads:   rt.stores.Leads,
		Filter:  qualify.NewFilter(pol, qualify.NewHTTPProber(cfg.Fingerprint()), rt.log),
		Log:     rt.log,
	}
	client := places.NewClient(cfg.PlacesClientConfig(), rt.log)
	deps.Searcher, deps.Enricher = client, client

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	if addr := cfg.Metrics.Addr; addr != "" {
		srv, err := metrics.Listen(addr)
		if err != nil {
			return nil, fmt.Errorf("metrics listener: %w", err)
		}
		rt.log.Info("serving metrics", zap.String("addr", srv.Addr()))
		g.Go(srv.Serve)
		g.Go(func() error {
			<-gctx.Done()
			return srv.Stop(context.Background())
		})
	}

	var stats *pipeline.Stats
	g.Go(func() error {
		defer cancel()
		var runErr error
		stats, runErr = pipeline.Run(gctx, deps, opts)
		return runErr
	})

	err = g.Wait()
	return stats, err
}
