package sales

import "time"

// Sale is one immutable sale fact owned by a single user. Records are
// append-only: there are no update or delete operations.
type Sale struct {
	ID        int64     `json:"id" db:"id"`
	OwnerID   int64     `json:"user_id" db:"user_id"`
	Date      time.Time `json:"date" db:"sale_date"`
	ItemName  string    `json:"item_name" db:"item_name"`
	Quantity  int64     `json:"quantity" db:"quantity"`
	UnitPrice float64   `json:"unit_price" db:"unit_price"`
	CostPrice float64   `json:"cost_price" db:"cost_price"`
}

// CreateSaleRequest is the upload payload. The owner is never taken from the
// payload; it is stamped from the authenticated session.
type CreateSaleRequest struct {
	Date      string  `json:"date" validate:"required,datetime=2006-01-02"`
	ItemName  string  `json:"item_name" validate:"required,max=200"`
	Quantity  int64   `json:"quantity" validate:"gte=0"`
	UnitPrice float64 `json:"unit_price" validate:"gte=0"`
	CostPrice float64 `json:"cost_price" validate:"gte=0"`
}
