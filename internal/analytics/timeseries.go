package analytics

import (
	"context"
	"sort"
)

// TimePoint conveys one day of revenue, cost, and profit movement. Values
// are unrounded.
type TimePoint struct {
	Date    string  `json:"date"`
	Revenue float64 `json:"revenue"`
	Cost    float64 `json:"cost"`
	Profit  float64 `json:"profit"`
}

// GetDailySeries buckets matching records per calendar date, ascending. Days
// with no records are absent; there is no gap filling.
func (s *Service) GetDailySeries(ctx context.Context, filter Filter) ([]TimePoint, error) {
	if filter.matchesNothing() {
		return nil, nil
	}
	records, err := s.repo.ListSales(ctx, filter.OwnerID, filter.From, filter.To)
	if err != nil {
		return nil, err
	}

	buckets := make(map[string]*Totals)
	for _, rec := range records {
		key := rec.Date.Format("2006-01-02")
		t := buckets[key]
		if t == nil {
			t = &Totals{}
			buckets[key] = t
		}
		t.Add(rec)
	}

	dates := make([]string, 0, len(buckets))
	for date := range buckets {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	points := make([]TimePoint, 0, len(dates))
	for _, date := range dates {
		t := buckets[date]
		points = append(points, TimePoint{
			Date:    date,
			Revenue: t.Revenue,
			Cost:    t.Cost,
			Profit:  t.Profit(),
		})
	}
	return points, nil
}
