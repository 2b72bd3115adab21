package sales

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed persistence for sale records.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// InsertSale appends one sale record and returns its assigned ID.
func (r *Repository) InsertSale(ctx context.Context, sale Sale) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO sales (user_id, sale_date, item_name, quantity, unit_price, cost_price)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		sale.OwnerID, sale.Date, sale.ItemName, sale.Quantity, sale.UnitPrice, sale.CostPrice,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// ListSales returns every record for the owner, optionally bounded by an
// inclusive date range. A from bound after the to bound simply matches
// nothing. No pagination: aggregation consumes the full matching set.
func (r *Repository) ListSales(ctx context.Context, ownerID int64, from, to *time.Time) ([]Sale, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, sale_date, item_name, quantity, unit_price, cost_price
		 FROM sales
		 WHERE user_id = $1
		   AND ($2::date IS NULL OR sale_date >= $2)
		   AND ($3::date IS NULL OR sale_date <= $3)
		 ORDER BY sale_date, id`,
		ownerID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sales []Sale
	for rows.Next() {
		var s Sale
		if err := rows.Scan(&s.ID, &s.OwnerID, &s.Date, &s.ItemName, &s.Quantity, &s.UnitPrice, &s.CostPrice); err != nil {
			return nil, err
		}
		sales = append(sales, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sales, nil
}
