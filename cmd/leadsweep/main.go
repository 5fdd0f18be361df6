package main

import (
	"fmt"
	"os"

	"github.com/rendis/leadsweep/internal/tui/views"
)

var version = "dev"

func main() {
	views.Version = version

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "run":
			if err := runHeadless(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				os.Exit(1)
			}
			return
		case "export":
			if err := runExport(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				os.Exit(1)
			}
			return
		case "version":
			fmt.Println("leadsweep " + version)
			return
		case "help", "--help", "-h":
			printUsage()
			return
		}
	}

	// No subcommand → launch TUI
	if err := runTUI(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `leadsweep - lead discovery and qualification

Usage:
  leadsweep [-config file]    Launch interactive TUI
  leadsweep run [flags]       Run a headless sweep
  leadsweep export [flags]    Export the lead store to CSV
  leadsweep version           Show version

Run 'leadsweep run --help' or 'leadsweep export --help' for flags.
`)
}
