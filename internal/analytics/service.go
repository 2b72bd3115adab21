// Package analytics turns raw sale records into KPI summaries, daily time
// series, and monthly rollups. All computation happens per request over the
// record set returned by the store; nothing is cached or persisted.
package analytics

import (
	"context"
	"time"

	"github.com/datapulse/datapulse/internal/sales"
)

// Repository exposes the sale record queries the engine relies on.
type Repository interface {
	ListSales(ctx context.Context, ownerID int64, from, to *time.Time) ([]sales.Sale, error)
}

// Filter scopes an aggregation query to one owner and an optional inclusive
// date range. A From bound after the To bound yields an empty result, not an
// error.
type Filter struct {
	OwnerID int64
	From    *time.Time
	To      *time.Time
}

// matchesNothing reports whether the bounds are inverted. The store would
// return no rows for such a range anyway; callers use this to skip the
// round-trip.
func (f Filter) matchesNothing() bool {
	return f.From != nil && f.To != nil && f.From.After(*f.To)
}

// Service coordinates aggregation query execution against the record store.
type Service struct {
	repo Repository
}

// NewService wires a Repository into the aggregation engine.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}
