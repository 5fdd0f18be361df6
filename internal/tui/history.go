package tui

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/rendis/leadsweep/internal/tui/views"
)

const maxHistory = 10

func historyFilePath() string {
	cfg, _ := os.UserConfigDir()
	return filepath.Join(cfg, "leadsweep", "runs.json")
}

// LoadHistory returns past runs, newest first. A missing or corrupt file is
// an empty history.
func LoadHistory() []views.RunRecord {
	data, err := os.ReadFile(historyFilePath())
	if err != nil {
		return nil
	}
	var records []views.RunRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil
	}
	return records
}

// SaveRun prepends rec and keeps the newest maxHistory runs.
func SaveRun(rec views.RunRecord) error {
	if rec.FinishedAt.IsZero() {
		rec.FinishedAt = time.Now()
	}
	records := append([]views.RunRecord{rec}, LoadHistory()...)
	if len(records) > maxHistory {
		records = records[:maxHistory]
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(historyFilePath()), 0o755); err != nil {
		return err
	}
	return os.WriteFile(historyFilePath(), data, 0o644)
}
