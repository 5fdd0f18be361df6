package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rendis/leadsweep/internal/engine/pipeline"
)

func runHeadless(args []string) error {
	var configPath string
	var dryRun bool

	fs := flag.NewFlagSet("run", flag.ExitOnError)
	fs.StringVar(&configPath, "config", "", "Path to the YAML config (default: ./leadsweep.yaml)")
	fs.BoolVar(&dryRun, "dry-run", false, "Qualify without writing to the lead store or seen log")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: leadsweep run [flags]\n\nFlags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  leadsweep run -config ./configs/leadsweep.yaml\n")
		fmt.Fprintf(os.Stderr, "  LEADSWEEP_PLACES_API_KEY=... leadsweep run -dry-run\n")
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	// Setup context with graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nShutting down gracefully...")
		cancel()
	}()

	rt, err := openRuntime(ctx, configPath, "")
	if err != nil {
		return err
	}
	defer rt.Close()

	startTime := time.Now()
	stats, err := rt.run(ctx, dryRun, nil)
	if stats != nil {
		printSummary(os.Stderr, stats, dryRun, time.Since(startTime))
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run: %w", err)
	}
	return nil
}

func printSummary(w io.Writer, stats *pipeline.Stats, dryRun bool, d time.Duration) {
	title := "leadsweep complete"
	if dryRun {
		title = "leadsweep dry run complete"
	}
	rule := strings.Repeat("═", 30)

	fmt.Fprintf(w, "\n%s\n  %s\n%s\n", rule, title, rule)
	fmt.Fprintf(w, "  Buckets:    %d/%d\n", stats.BucketsDone.Load(), stats.BucketsTotal.Load())
	fmt.Fprintf(w, "  Hits:       %d\n", stats.Hits.Load())
	fmt.Fprintf(w, "  Seen:       %d\n", stats.Seen.Load())
	fmt.Fprintf(w, "  Admitted:   %d\n", stats.Admitted.Load())
	fmt.Fprintf(w, "  Rejected:   %d\n", stats.Rejected.Load())
	if n := stats.Duplicates.Load(); n > 0 {
		fmt.Fprintf(w, "  Dup names:  %d\n", n)
	}
	fmt.Fprintf(w, "  Errors:     %d search, %d store\n", stats.SearchErrors.Load(), stats.StoreErrors.Load())
	fmt.Fprintf(w, "  Duration:   %s\n", d.Truncate(time.Second))

	var admitted []pipeline.BucketResult
	for _, b := range stats.Buckets() {
		if b.Admitted > 0 {
			admitted = append(admitted, b)
		}
	}
	if len(admitted) > 0 {
		fmt.Fprintf(w, "%s\n", rule)
		for _, b := range admitted {
			capped := ""
			if b.Capped {
				capped = " (limit)"
			}
			fmt.Fprintf(w, "  %s #%d %q: %d%s\n", b.City, b.Point, b.Keyword, b.Admitted, capped)
		}
	}
	fmt.Fprintf(w, "%s\n", rule)
}
