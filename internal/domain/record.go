package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RawRecord is one transaction row as it arrives from a spreadsheet export,
// CSV file or warehouse table. Every field is loosely typed text; an empty
// value means the field is absent.
type RawRecord struct {
	CustomerID  string `json:"customer_id"`
	Description string `json:"description"`
	StockCode   string `json:"stock_code"`
	Quantity    string `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	InvoiceID   string `json:"invoice_id"`
	InvoiceDate string `json:"invoice_date"`
	Country     string `json:"country"`
}

// Record is a validated, typed transaction row. Quantity and UnitPrice are
// always strictly positive.
type Record struct {
	CustomerID  int64           `json:"customer_id"`
	Description string          `json:"description"`
	StockCode   string          `json:"stock_code"`
	Quantity    int64           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
	InvoiceID   string          `json:"invoice_id"`
	InvoiceDate time.Time       `json:"invoice_date"`
	Country     string          `json:"country,omitempty"`
}

// RejectReason names why the normalizer dropped a raw record.
type RejectReason string

const (
	RejectMissingField      RejectReason = "missing_field"
	RejectDuplicate         RejectReason = "duplicate"
	RejectInvalidQuantity   RejectReason = "invalid_quantity"
	RejectInvalidPrice      RejectReason = "invalid_price"
	RejectInvalidCustomerID RejectReason = "invalid_customer_id"
	RejectInvalidDate       RejectReason = "invalid_date"
)

// RejectReasons lists every reason in rule evaluation order.
var RejectReasons = []RejectReason{
	RejectMissingField,
	RejectDuplicate,
	RejectInvalidQuantity,
	RejectInvalidPrice,
	RejectInvalidCustomerID,
	RejectInvalidDate,
}

// NormalizeStats reports the outcome of one normalization pass.
type NormalizeStats struct {
	Total    int                  `json:"total"`
	Accepted int                  `json:"accepted"`
	Rejected map[RejectReason]int `json:"rejected"`
}

// RejectedTotal sums the rejection counters.
func (s NormalizeStats) RejectedTotal() int {
	n := 0
	for _, c := range s.Rejected {
		n += c
	}
	return n
}

// Balanced reports whether accepted plus rejected rows account for every input row.
func (s NormalizeStats) Balanced() bool {
	return s.Accepted+s.RejectedTotal() == s.Total
}

// QualityImprovement is the share of input rows removed by cleaning, in percent.
func (s NormalizeStats) QualityImprovement() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.RejectedTotal()) / float64(s.Total) * 100
}
