package loader

import (
	"context"

	"github.com/ignite/retail-rfm/internal/domain"
)

// BatchSize caps the rows of a single multi-row INSERT.
const BatchSize = 500

// Repository defines the data access contract for loading.
type Repository interface {
	// WithTx runs fn in a single transaction. The transaction commits when
	// fn returns nil and rolls back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Verify runs the post-load integrity query.
	Verify(ctx context.Context) (domain.IntegrityReport, error)
}

// Tx is the write side of one load transaction. Insert methods receive at
// most BatchSize rows and never rows whose key already exists.
type Tx interface {
	ExistingCustomers(ctx context.Context, ids []int64) (map[int64]bool, error)
	ExistingProducts(ctx context.Context, codes []string) (map[string]bool, error)
	ExistingInvoices(ctx context.Context, ids []string) (map[string]bool, error)

	InsertCustomers(ctx context.Context, rows []domain.Customer) error
	InsertProducts(ctx context.Context, rows []domain.Product) error
	InsertInvoices(ctx context.Context, rows []domain.Invoice) error
	InsertLineItems(ctx context.Context, rows []domain.LineItem) error
}
