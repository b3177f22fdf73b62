package loader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ignite/retail-rfm/internal/domain"
	"github.com/ignite/retail-rfm/internal/pkg/distlock"
	"github.com/ignite/retail-rfm/internal/pkg/logger"
)

// LockKey is the distributed lock key shared by every loader.
const LockKey = "rfm-load"

// Service implements the load and verify operations. It is safe for
// concurrent use; concurrent loads are serialized by the store's
// transactions and, when configured, by the distributed lock.
type Service struct {
	repo Repository
	lock distlock.DistLock
}

// Option configures a Service.
type Option func(*Service)

// WithLock makes every load hold lock for its duration.
func WithLock(lock distlock.DistLock) Option {
	return func(s *Service) { s.lock = lock }
}

// NewService creates a loader backed by the given repository.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{repo: repo}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load writes the entities derived from records in one transaction, in the
// order customers, products, invoices, line items. Existing keys are
// skipped. Any error rolls the whole load back.
func (s *Service) Load(ctx context.Context, records []domain.Record) (domain.LoadStats, error) {
	if s.lock == nil {
		return s.load(ctx, records)
	}

	var stats domain.LoadStats
	err := distlock.WithLock(ctx, s.lock, func(ctx context.Context) error {
		var err error
		stats, err = s.load(ctx, records)
		return err
	})
	if errors.Is(err, distlock.ErrLockHeld) {
		return domain.LoadStats{}, ErrLoadInProgress
	}
	return stats, err
}

func (s *Service) load(ctx context.Context, records []domain.Record) (domain.LoadStats, error) {
	start := time.Now()
	batch := Derive(records)
	if err := batch.CheckReferences(); err != nil {
		return domain.LoadStats{}, err
	}

	stats := domain.NewLoadStats()
	err := s.repo.WithTx(ctx, func(tx Tx) error {
		customers, err := newCustomers(ctx, tx, batch.Customers)
		if err != nil {
			return err
		}
		products, err := newProducts(ctx, tx, batch.Products)
		if err != nil {
			return err
		}
		invoices, owned, err := newInvoices(ctx, tx, batch.Invoices)
		if err != nil {
			return err
		}
		var items []domain.LineItem
		for _, li := range batch.LineItems {
			if owned[li.InvoiceID] {
				items = append(items, li)
			}
		}

		if err := inBatches(ctx, customers, tx.InsertCustomers); err != nil {
			return fmt.Errorf("insert customers: %w", err)
		}
		if err := inBatches(ctx, products, tx.InsertProducts); err != nil {
			return fmt.Errorf("insert products: %w", err)
		}
		if err := inBatches(ctx, invoices, tx.InsertInvoices); err != nil {
			return fmt.Errorf("insert invoices: %w", err)
		}
		if err := inBatches(ctx, items, tx.InsertLineItems); err != nil {
			return fmt.Errorf("insert line items: %w", err)
		}

		stats.Inserted[domain.EntityCustomer] = len(customers)
		stats.Inserted[domain.EntityProduct] = len(products)
		stats.Inserted[domain.EntityInvoice] = len(invoices)
		stats.Inserted[domain.EntityLineItem] = len(items)
		stats.Skipped[domain.EntityCustomer] = len(batch.Customers) - len(customers)
		stats.Skipped[domain.EntityProduct] = len(batch.Products) - len(products)
		stats.Skipped[domain.EntityInvoice] = len(batch.Invoices) - len(invoices)
		stats.Skipped[domain.EntityLineItem] = len(batch.LineItems) - len(items)
		return nil
	})
	if err != nil {
		return domain.LoadStats{}, err
	}

	logger.Info("load complete",
		"component", "loader",
		"customers", stats.Inserted[domain.EntityCustomer],
		"products", stats.Inserted[domain.EntityProduct],
		"invoices", stats.Inserted[domain.EntityInvoice],
		"line_items", stats.Inserted[domain.EntityLineItem],
		"skipped_invoices", stats.Skipped[domain.EntityInvoice],
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return stats, nil
}

// Verify runs the integrity query against the store.
func (s *Service) Verify(ctx context.Context) (domain.IntegrityReport, error) {
	report, err := s.repo.Verify(ctx)
	if err != nil {
		return domain.IntegrityReport{}, fmt.Errorf("verify: %w", err)
	}
	if !report.Clean() {
		logger.Warn("integrity check failed",
			"component", "loader",
			"orphan_line_items_invoice", report.OrphanLineItemsInvoice,
			"orphan_line_items_product", report.OrphanLineItemsProduct,
			"orphan_invoices", report.OrphanInvoices,
			"total_mismatches", report.TotalMismatches,
		)
	}
	return report, nil
}

func newCustomers(ctx context.Context, tx Tx, all []domain.Customer) ([]domain.Customer, error) {
	ids := make([]int64, len(all))
	for i, c := range all {
		ids[i] = c.CustomerID
	}
	existing, err := tx.ExistingCustomers(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("existing customers: %w", err)
	}
	var out []domain.Customer
	for _, c := range all {
		if !existing[c.CustomerID] {
			out = append(out, c)
		}
	}
	return out, nil
}

func newProducts(ctx context.Context, tx Tx, all []domain.Product) ([]domain.Product, error) {
	codes := make([]string, len(all))
	for i, p := range all {
		codes[i] = p.StockCode
	}
	existing, err := tx.ExistingProducts(ctx, codes)
	if err != nil {
		return nil, fmt.Errorf("existing products: %w", err)
	}
	var out []domain.Product
	for _, p := range all {
		if !existing[p.StockCode] {
			out = append(out, p)
		}
	}
	return out, nil
}

// newInvoices returns the absent invoices and the set of their ids; only
// those invoices receive line items in this load.
func newInvoices(ctx context.Context, tx Tx, all []domain.Invoice) ([]domain.Invoice, map[string]bool, error) {
	ids := make([]string, len(all))
	for i, inv := range all {
		ids[i] = inv.InvoiceID
	}
	existing, err := tx.ExistingInvoices(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("existing invoices: %w", err)
	}
	var out []domain.Invoice
	owned := make(map[string]bool)
	for _, inv := range all {
		if !existing[inv.InvoiceID] {
			out = append(out, inv)
			owned[inv.InvoiceID] = true
		}
	}
	return out, owned, nil
}

// inBatches calls insert with consecutive slices of at most BatchSize rows.
func inBatches[T any](ctx context.Context, rows []T, insert func(context.Context, []T) error) error {
	for start := 0; start < len(rows); start += BatchSize {
		end := min(start+BatchSize, len(rows))
		if err := insert(ctx, rows[start:end]); err != nil {
			return err
		}
	}
	return nil
}
