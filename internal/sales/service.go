package sales

import (
	"context"
	"fmt"
	"time"

	"github.com/datapulse/datapulse/internal/platform/httpx"
)

// Store abstracts persistence so the ingestion gate can be tested without a
// database.
type Store interface {
	InsertSale(ctx context.Context, sale Sale) (int64, error)
}

// Service implements the ingestion gate: it maps validated payloads onto
// sale records, stamps the owning user, and delegates persistence.
type Service struct {
	store Store
}

// NewService constructs a sales service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Upload attaches the submission to ownerID and persists it. Field mapping is
// explicit: nothing from the payload besides the five sale fields reaches the
// stored record.
func (s *Service) Upload(ctx context.Context, ownerID int64, req CreateSaleRequest) (int64, error) {
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return 0, fmt.Errorf("parse sale date %q: %w", req.Date, httpx.ErrValidation)
	}

	sale := Sale{
		OwnerID:   ownerID,
		Date:      date,
		ItemName:  req.ItemName,
		Quantity:  req.Quantity,
		UnitPrice: req.UnitPrice,
		CostPrice: req.CostPrice,
	}
	id, err := s.store.InsertSale(ctx, sale)
	if err != nil {
		return 0, fmt.Errorf("insert sale: %w", err)
	}
	return id, nil
}
