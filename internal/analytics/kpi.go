package analytics

import "context"

// KPISummary contains the flat indicators surfaced on the dashboard.
// MarginPercent is rounded to two decimals for presentation; everything else
// carries full float precision.
type KPISummary struct {
	TotalRevenue    float64 `json:"total_revenue"`
	TotalCost       float64 `json:"total_cost"`
	TotalProfit     float64 `json:"total_profit"`
	MarginPercent   float64 `json:"margin_percent"`
	TotalSalesCount int     `json:"total_sales_count"`
}

// GetKPISummary aggregates every matching record into a single summary. No
// matching records yields an all-zero summary.
func (s *Service) GetKPISummary(ctx context.Context, filter Filter) (KPISummary, error) {
	if filter.matchesNothing() {
		return KPISummary{}, nil
	}
	records, err := s.repo.ListSales(ctx, filter.OwnerID, filter.From, filter.To)
	if err != nil {
		return KPISummary{}, err
	}

	totals := Sum(records)
	return KPISummary{
		TotalRevenue:    totals.Revenue,
		TotalCost:       totals.Cost,
		TotalProfit:     totals.Profit(),
		MarginPercent:   round2(totals.MarginPercent()),
		TotalSalesCount: len(records),
	}, nil
}
