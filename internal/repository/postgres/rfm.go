package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ignite/retail-rfm/internal/domain"
)

// RFMRepo implements rfm.Repository against PostgreSQL.
type RFMRepo struct{ db *sql.DB }

// NewRFMRepo creates a Postgres-backed activity reader.
func NewRFMRepo(db *sql.DB) *RFMRepo { return &RFMRepo{db: db} }

// Inner joins drop customers without invoices and invoices without items.
const activityQuery = `
SELECT
	c.customer_id,
	COALESCE(c.country, ''),
	MIN(i.invoice_date),
	MAX(i.invoice_date),
	COUNT(DISTINCT i.invoice_id),
	SUM(oi.line_total)
FROM customers c
JOIN invoices i ON i.customer_id = c.customer_id
JOIN order_items oi ON oi.invoice_id = i.invoice_id
GROUP BY c.customer_id, c.country
ORDER BY c.customer_id`

// CustomerActivity returns per-customer purchase aggregates.
func (r *RFMRepo) CustomerActivity(ctx context.Context) ([]domain.CustomerActivity, error) {
	rows, err := r.db.QueryContext(ctx, activityQuery)
	if err != nil {
		return nil, fmt.Errorf("activity query: %w", err)
	}
	defer rows.Close()

	var out []domain.CustomerActivity
	for rows.Next() {
		var a domain.CustomerActivity
		if err := rows.Scan(&a.CustomerID, &a.Country, &a.FirstPurchase, &a.LastPurchase, &a.Frequency, &a.Monetary); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		a.FirstPurchase = a.FirstPurchase.UTC()
		a.LastPurchase = a.LastPurchase.UTC()
		out = append(out, a)
	}
	return out, rows.Err()
}
