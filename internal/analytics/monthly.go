package analytics

import (
	"context"
	"sort"
	"time"
)

// MonthlyRow summarises one (year, month) bucket. Money fields and the
// margin are rounded to two decimals for presentation.
type MonthlyRow struct {
	Year         int     `json:"year"`
	Month        int     `json:"month_number"`
	MonthName    string  `json:"month_name"`
	Revenue      float64 `json:"revenue"`
	Cost         float64 `json:"cost"`
	Profit       float64 `json:"profit"`
	ProfitMargin float64 `json:"profit_margin"`
}

type monthKey struct {
	year  int
	month time.Month
}

// GetMonthlyRollup buckets matching records per (year, month), ascending.
// Months with no records are absent.
func (s *Service) GetMonthlyRollup(ctx context.Context, filter Filter) ([]MonthlyRow, error) {
	if filter.matchesNothing() {
		return nil, nil
	}
	records, err := s.repo.ListSales(ctx, filter.OwnerID, filter.From, filter.To)
	if err != nil {
		return nil, err
	}

	buckets := make(map[monthKey]*Totals)
	for _, rec := range records {
		key := monthKey{year: rec.Date.Year(), month: rec.Date.Month()}
		t := buckets[key]
		if t == nil {
			t = &Totals{}
			buckets[key] = t
		}
		t.Add(rec)
	}

	keys := make([]monthKey, 0, len(buckets))
	for key := range buckets {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].year != keys[j].year {
			return keys[i].year < keys[j].year
		}
		return keys[i].month < keys[j].month
	})

	rows := make([]MonthlyRow, 0, len(keys))
	for _, key := range keys {
		t := buckets[key]
		rows = append(rows, MonthlyRow{
			Year:         key.year,
			Month:        int(key.month),
			MonthName:    key.month.String(),
			Revenue:      round2(t.Revenue),
			Cost:         round2(t.Cost),
			Profit:       round2(t.Profit()),
			ProfitMargin: round2(t.MarginPercent()),
		})
	}
	return rows, nil
}
