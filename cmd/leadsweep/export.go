package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/rendis/leadsweep/internal/model"
)

var leadColumns = []string{
	"lead_name", "contact_profile_url", "platform", "business_name",
	"business_url", "city_state", "business_number", "website_quality",
}

func runExport(args []string) error {
	var configPath, outputPath string

	fs := flag.NewFlagSet("export", flag.ExitOnError)
	fs.StringVar(&configPath, "config", "", "Path to the YAML config (default: ./leadsweep.yaml)")
	fs.StringVar(&outputPath, "output", "leads.csv", "Output file path, - for stdout")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: leadsweep export [flags]\n\nFlags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  leadsweep export -config ./configs/leadsweep.yaml\n")
		fmt.Fprintf(os.Stderr, "  leadsweep export -output - | head\n")
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	rt, err := openRuntime(ctx, configPath, "")
	if err != nil {
		return err
	}
	defer rt.Close()

	leads, err := rt.stores.Leads.List(ctx)
	if err != nil {
		return fmt.Errorf("loading leads: %w", err)
	}
	if len(leads) == 0 {
		return fmt.Errorf("no leads found in the lead store")
	}

	var out io.Writer = os.Stdout
	if outputPath != "-" {
		f, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("creating output: %w", err)
		}
		defer f.Close()
		out = f
	}

	if err := writeLeadsCSV(out, leads); err != nil {
		return fmt.Errorf("writing csv: %w", err)
	}
	if outputPath != "-" {
		fmt.Fprintf(os.Stderr, "Exported %d leads to %s\n", len(leads), outputPath)
	}
	return nil
}

func writeLeadsCSV(out io.Writer, leads []model.Lead) error {
	w := csv.NewWriter(out)
	if err := w.Write(leadColumns); err != nil {
		return err
	}
	for _, l := range leads {
		if err := w.Write([]string{
			l.LeadName,
			l.ContactProfileURL,
			l.Platform,
			l.BusinessName,
			l.BusinessURL,
			l.CityState,
			l.BusinessNumber,
			l.WebsiteQuality,
		}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
