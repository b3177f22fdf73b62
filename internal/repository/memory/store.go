// Package memory is an in-process store with the same contracts as the
// Postgres repositories. It backs dry runs and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/ignite/retail-rfm/internal/domain"
	"github.com/ignite/retail-rfm/internal/service/loader"
)

// Store implements loader.Repository and rfm.Repository. Transactions
// are serialized and work on a copy that replaces the tables on commit.
type Store struct {
	mu     sync.Mutex
	tables tables
}

type tables struct {
	customers map[int64]domain.Customer
	products  map[string]domain.Product
	invoices  map[string]domain.Invoice
	items     []domain.LineItem
	nextItem  int64
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{tables: tables{
		customers: map[int64]domain.Customer{},
		products:  map[string]domain.Product{},
		invoices:  map[string]domain.Invoice{},
		nextItem:  1,
	}}
}

func (t tables) clone() tables {
	c := tables{
		customers: make(map[int64]domain.Customer, len(t.customers)),
		products:  make(map[string]domain.Product, len(t.products)),
		invoices:  make(map[string]domain.Invoice, len(t.invoices)),
		items:     append([]domain.LineItem(nil), t.items...),
		nextItem:  t.nextItem,
	}
	for k, v := range t.customers {
		c.customers[k] = v
	}
	for k, v := range t.products {
		c.products[k] = v
	}
	for k, v := range t.invoices {
		c.invoices[k] = v
	}
	return c
}

// WithTx runs fn against a private copy of the tables and publishes it
// when fn succeeds.
func (s *Store) WithTx(ctx context.Context, fn func(tx loader.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &memTx{t: s.tables.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	s.tables = tx.t
	return nil
}

type memTx struct{ t tables }

func (tx *memTx) ExistingCustomers(_ context.Context, ids []int64) (map[int64]bool, error) {
	out := map[int64]bool{}
	for _, id := range ids {
		if _, ok := tx.t.customers[id]; ok {
			out[id] = true
		}
	}
	return out, nil
}

func (tx *memTx) ExistingProducts(_ context.Context, codes []string) (map[string]bool, error) {
	out := map[string]bool{}
	for _, c := range codes {
		if _, ok := tx.t.products[c]; ok {
			out[c] = true
		}
	}
	return out, nil
}

func (tx *memTx) ExistingInvoices(_ context.Context, ids []string) (map[string]bool, error) {
	out := map[string]bool{}
	for _, id := range ids {
		if _, ok := tx.t.invoices[id]; ok {
			out[id] = true
		}
	}
	return out, nil
}

func (tx *memTx) InsertCustomers(_ context.Context, rows []domain.Customer) error {
	for _, r := range rows {
		if _, dup := tx.t.customers[r.CustomerID]; dup {
			return fmt.Errorf("duplicate key customers.customer_id=%d", r.CustomerID)
		}
		tx.t.customers[r.CustomerID] = r
	}
	return nil
}

func (tx *memTx) InsertProducts(_ context.Context, rows []domain.Product) error {
	for _, r := range rows {
		if _, dup := tx.t.products[r.StockCode]; dup {
			return fmt.Errorf("duplicate key products.stock_code=%s", r.StockCode)
		}
		tx.t.products[r.StockCode] = r
	}
	return nil
}

func (tx *memTx) InsertInvoices(_ context.Context, rows []domain.Invoice) error {
	for _, r := range rows {
		if _, dup := tx.t.invoices[r.InvoiceID]; dup {
			return fmt.Errorf("duplicate key invoices.invoice_id=%s", r.InvoiceID)
		}
		if _, ok := tx.t.customers[r.CustomerID]; !ok {
			return fmt.Errorf("%w: invoice %s references missing customer %d", loader.ErrIntegrity, r.InvoiceID, r.CustomerID)
		}
		tx.t.invoices[r.InvoiceID] = r
	}
	return nil
}

func (tx *memTx) InsertLineItems(_ context.Context, rows []domain.LineItem) error {
	for _, r := range rows {
		if _, ok := tx.t.invoices[r.InvoiceID]; !ok {
			return fmt.Errorf("%w: line item references missing invoice %s", loader.ErrIntegrity, r.InvoiceID)
		}
		if _, ok := tx.t.products[r.StockCode]; !ok {
			return fmt.Errorf("%w: line item references missing product %s", loader.ErrIntegrity, r.StockCode)
		}
		r.ID = tx.t.nextItem
		tx.t.nextItem++
		tx.t.items = append(tx.t.items, r)
	}
	return nil
}

// Verify computes the integrity report over the committed tables.
func (s *Store) Verify(ctx context.Context) (domain.IntegrityReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.tables
	rep := domain.IntegrityReport{TotalRevenue: decimal.Zero}
	sums := make(map[string]decimal.Decimal, len(t.invoices))
	for _, li := range t.items {
		if _, ok := t.invoices[li.InvoiceID]; !ok {
			rep.OrphanLineItemsInvoice++
		}
		if _, ok := t.products[li.StockCode]; !ok {
			rep.OrphanLineItemsProduct++
		}
		sums[li.InvoiceID] = sums[li.InvoiceID].Add(li.LineTotal)
	}
	for id, inv := range t.invoices {
		if _, ok := t.customers[inv.CustomerID]; !ok {
			rep.OrphanInvoices++
		}
		if !sums[id].Round(2).Equal(inv.TotalAmount) {
			rep.TotalMismatches++
		}
		rep.TotalRevenue = rep.TotalRevenue.Add(inv.TotalAmount)
	}
	rep.Counts = map[domain.Entity]int64{
		domain.EntityCustomer: int64(len(t.customers)),
		domain.EntityProduct:  int64(len(t.products)),
		domain.EntityInvoice:  int64(len(t.invoices)),
		domain.EntityLineItem: int64(len(t.items)),
	}
	return rep, nil
}

// CustomerActivity aggregates committed purchases per customer. Only
// invoices with at least one line item count.
func (s *Store) CustomerActivity(ctx context.Context) ([]domain.CustomerActivity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.tables
	byCustomer := map[int64]*domain.CustomerActivity{}
	invoicesSeen := map[string]bool{}
	for _, li := range t.items {
		inv, ok := t.invoices[li.InvoiceID]
		if !ok {
			continue
		}
		c, ok := t.customers[inv.CustomerID]
		if !ok {
			continue
		}
		a := byCustomer[c.CustomerID]
		if a == nil {
			a = &domain.CustomerActivity{
				CustomerID:    c.CustomerID,
				Country:       c.Country,
				FirstPurchase: inv.InvoiceDate,
				LastPurchase:  inv.InvoiceDate,
				Monetary:      decimal.Zero,
			}
			byCustomer[c.CustomerID] = a
		}
		if inv.InvoiceDate.Before(a.FirstPurchase) {
			a.FirstPurchase = inv.InvoiceDate
		}
		if inv.InvoiceDate.After(a.LastPurchase) {
			a.LastPurchase = inv.InvoiceDate
		}
		if !invoicesSeen[inv.InvoiceID] {
			invoicesSeen[inv.InvoiceID] = true
			a.Frequency++
		}
		a.Monetary = a.Monetary.Add(li.LineTotal)
	}

	out := make([]domain.CustomerActivity, 0, len(byCustomer))
	for _, a := range byCustomer {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CustomerID < out[j].CustomerID })
	return out, nil
}

// LineItems returns a copy of the committed line items in insert order.
func (s *Store) LineItems() []domain.LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.LineItem(nil), s.tables.items...)
}

// Invoice returns a committed invoice.
func (s *Store) Invoice(id string) (domain.Invoice, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.tables.invoices[id]
	return inv, ok
}
