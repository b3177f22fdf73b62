package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Customer is a buyer identified by the source system's numeric id.
type Customer struct {
	CustomerID int64  `json:"customer_id" db:"customer_id"`
	Country    string `json:"country,omitempty" db:"country"`
}

// Product is a catalogue item keyed by stock code. The description is the
// one seen first for that code.
type Product struct {
	StockCode   string `json:"stock_code" db:"stock_code"`
	Description string `json:"description" db:"description"`
}

// Invoice groups the line items of one purchase. TotalAmount always equals
// the rounded sum of its line totals.
type Invoice struct {
	InvoiceID   string          `json:"invoice_id" db:"invoice_id"`
	CustomerID  int64           `json:"customer_id" db:"customer_id"`
	InvoiceDate time.Time       `json:"invoice_date" db:"invoice_date"`
	TotalAmount decimal.Decimal `json:"total_amount" db:"total_amount"`
}

// LineItem is a single product line on an invoice.
type LineItem struct {
	ID        int64           `json:"id,omitempty" db:"order_item_id"`
	InvoiceID string          `json:"invoice_id" db:"invoice_id"`
	StockCode string          `json:"stock_code" db:"stock_code"`
	Quantity  int64           `json:"quantity" db:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price" db:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total" db:"line_total"`
}

// Entity names one of the four persisted tables.
type Entity string

const (
	EntityCustomer Entity = "customers"
	EntityProduct  Entity = "products"
	EntityInvoice  Entity = "invoices"
	EntityLineItem Entity = "order_items"
)

// Entities lists the tables in load order.
var Entities = []Entity{EntityCustomer, EntityProduct, EntityInvoice, EntityLineItem}

// LoadStats counts rows written and rows skipped because the key already existed.
type LoadStats struct {
	Inserted map[Entity]int `json:"inserted"`
	Skipped  map[Entity]int `json:"skipped"`
}

// NewLoadStats returns zeroed counters for every entity.
func NewLoadStats() LoadStats {
	s := LoadStats{Inserted: make(map[Entity]int), Skipped: make(map[Entity]int)}
	for _, e := range Entities {
		s.Inserted[e] = 0
		s.Skipped[e] = 0
	}
	return s
}

// IntegrityReport is the result of the post-load integrity query.
type IntegrityReport struct {
	OrphanLineItemsInvoice int              `json:"orphan_line_items_invoice"`
	OrphanLineItemsProduct int              `json:"orphan_line_items_product"`
	OrphanInvoices         int              `json:"orphan_invoices"`
	TotalMismatches        int              `json:"total_mismatches"`
	Counts                 map[Entity]int64 `json:"counts"`
	TotalRevenue           decimal.Decimal  `json:"total_revenue"`
}

// Clean reports whether no orphan rows and no invoice total mismatches exist.
func (r IntegrityReport) Clean() bool {
	return r.OrphanLineItemsInvoice == 0 &&
		r.OrphanLineItemsProduct == 0 &&
		r.OrphanInvoices == 0 &&
		r.TotalMismatches == 0
}
