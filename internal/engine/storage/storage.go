// Package storage holds the two persistence collaborators of a run: the
// append-only seen log and the lead record store.
package storage

import (
	"context"

	"github.com/rendis/leadsweep/internal/model"
)

// SeenLog is the durable record of every entity id handled by any run.
type SeenLog interface {
	// SeenIDs returns every logged entity id in one bulk read.
	SeenIDs(ctx context.Context) ([]string, error)
	Append(ctx context.Context, e model.SeenEntry) error
}

// LeadStore is the sink for admitted leads.
type LeadStore interface {
	// Exists reports whether a lead with this business name was stored before.
	Exists(ctx context.Context, businessName string) (bool, error)
	Insert(ctx context.Context, l model.Lead) error
	List(ctx context.Context) ([]model.Lead, error)
}
