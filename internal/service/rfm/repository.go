package rfm

import (
	"context"

	"github.com/ignite/retail-rfm/internal/domain"
)

// Repository defines the read contract for metric aggregation.
type Repository interface {
	// CustomerActivity returns one row per customer that has at least one
	// invoice with at least one line item: first and last invoice date,
	// distinct invoice count and the unrounded sum of line totals.
	CustomerActivity(ctx context.Context) ([]domain.CustomerActivity, error)
}
