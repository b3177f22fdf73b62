package datanorm

import (
	"fmt"
	"strings"
)

// CanonicalField is a normalized field name used across all import sources.
type CanonicalField string

const (
	FieldCustomerID  CanonicalField = "customer_id"
	FieldDescription CanonicalField = "description"
	FieldStockCode   CanonicalField = "stock_code"
	FieldQuantity    CanonicalField = "quantity"
	FieldUnitPrice   CanonicalField = "unit_price"
	FieldInvoiceID   CanonicalField = "invoice_id"
	FieldInvoiceDate CanonicalField = "invoice_date"
	FieldCountry     CanonicalField = "country"
)

// requiredFields must be present in a header for the file to be readable.
// Country is optional on the customer entity, so a file may omit it.
var requiredFields = []CanonicalField{
	FieldCustomerID,
	FieldDescription,
	FieldStockCode,
	FieldQuantity,
	FieldUnitPrice,
	FieldInvoiceID,
	FieldInvoiceDate,
}

// columnAliases maps lowercase header names to canonical fields.
// When multiple raw headers mean the same thing, they all map here.
var columnAliases = map[string]CanonicalField{
	// Customer
	"customer id": FieldCustomerID,
	"customerid":  FieldCustomerID,
	"customer_id": FieldCustomerID,
	"customer":    FieldCustomerID,

	// Product
	"description": FieldDescription,
	"product":     FieldDescription,
	"stockcode":   FieldStockCode,
	"stock code":  FieldStockCode,
	"stock_code":  FieldStockCode,
	"sku":         FieldStockCode,

	// Line
	"quantity":   FieldQuantity,
	"qty":        FieldQuantity,
	"price":      FieldUnitPrice,
	"unitprice":  FieldUnitPrice,
	"unit price": FieldUnitPrice,
	"unit_price": FieldUnitPrice,

	// Invoice
	"invoice":      FieldInvoiceID,
	"invoiceno":    FieldInvoiceID,
	"invoice no":   FieldInvoiceID,
	"invoice_id":   FieldInvoiceID,
	"invoicedate":  FieldInvoiceDate,
	"invoice date": FieldInvoiceDate,
	"invoice_date": FieldInvoiceDate,

	// Location
	"country":      FieldCountry,
	"country_name": FieldCountry,
}

// ColumnMapping holds the resolved mapping from CSV column indices to canonical fields.
type ColumnMapping struct {
	Index    map[CanonicalField]int // canonical field -> column index
	RawNames []string               // original header names
}

// MapColumns takes a raw CSV header row and returns a resolved mapping.
// The first column mapping to a field wins. It fails when a required
// field has no column.
func MapColumns(header []string) (*ColumnMapping, error) {
	m := &ColumnMapping{
		Index:    make(map[CanonicalField]int, len(header)),
		RawNames: header,
	}

	for i, h := range header {
		field, ok := columnAliases[normalizeHeader(h)]
		if !ok {
			continue
		}
		if _, seen := m.Index[field]; !seen {
			m.Index[field] = i
		}
	}

	var missing []string
	for _, f := range requiredFields {
		if _, ok := m.Index[f]; !ok {
			missing = append(missing, string(f))
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("header %v has no column for: %s", header, strings.Join(missing, ", "))
	}
	return m, nil
}

// value projects one CSV row onto the canonical fields. Short rows yield
// empty values, which the normalizer treats as missing.
func (m *ColumnMapping) value(row []string, f CanonicalField) string {
	i, ok := m.Index[f]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

func normalizeHeader(h string) string {
	normalized := strings.ToLower(strings.TrimSpace(h))
	// Remove surrounding quotes
	normalized = strings.Trim(normalized, "\"'")
	return strings.Join(strings.Fields(normalized), " ")
}
