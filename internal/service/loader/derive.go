package loader

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ignite/retail-rfm/internal/domain"
)

// Batch is the entity set derived from one record set, each slice in order
// of first appearance.
type Batch struct {
	Customers []domain.Customer
	Products  []domain.Product
	Invoices  []domain.Invoice
	LineItems []domain.LineItem
}

// Derive builds the entities of a record set. The first record seen for a
// key fixes its attributes: a customer's country, a product's description,
// an invoice's customer and date. Later differing values are ignored.
// Each record becomes one line item.
func Derive(records []domain.Record) Batch {
	var b Batch
	customerSeen := make(map[int64]bool)
	productSeen := make(map[string]bool)
	invoiceIdx := make(map[string]int)

	for _, r := range records {
		if !customerSeen[r.CustomerID] {
			customerSeen[r.CustomerID] = true
			b.Customers = append(b.Customers, domain.Customer{CustomerID: r.CustomerID, Country: r.Country})
		}
		if !productSeen[r.StockCode] {
			productSeen[r.StockCode] = true
			b.Products = append(b.Products, domain.Product{StockCode: r.StockCode, Description: r.Description})
		}
		idx, ok := invoiceIdx[r.InvoiceID]
		if !ok {
			idx = len(b.Invoices)
			invoiceIdx[r.InvoiceID] = idx
			b.Invoices = append(b.Invoices, domain.Invoice{
				InvoiceID:   r.InvoiceID,
				CustomerID:  r.CustomerID,
				InvoiceDate: r.InvoiceDate,
				TotalAmount: decimal.Zero,
			})
		}
		b.Invoices[idx].TotalAmount = b.Invoices[idx].TotalAmount.Add(r.LineTotal)
		b.LineItems = append(b.LineItems, domain.LineItem{
			InvoiceID: r.InvoiceID,
			StockCode: r.StockCode,
			Quantity:  r.Quantity,
			UnitPrice: r.UnitPrice,
			LineTotal: r.LineTotal,
		})
	}

	for i := range b.Invoices {
		b.Invoices[i].TotalAmount = b.Invoices[i].TotalAmount.Round(2)
	}
	return b
}

// CheckReferences verifies that every foreign key in the batch resolves
// inside the batch itself.
func (b Batch) CheckReferences() error {
	customers := make(map[int64]bool, len(b.Customers))
	for _, c := range b.Customers {
		customers[c.CustomerID] = true
	}
	products := make(map[string]bool, len(b.Products))
	for _, p := range b.Products {
		products[p.StockCode] = true
	}
	invoices := make(map[string]bool, len(b.Invoices))
	for _, inv := range b.Invoices {
		if !customers[inv.CustomerID] {
			return fmt.Errorf("%w: invoice %s references unknown customer %d", ErrIntegrity, inv.InvoiceID, inv.CustomerID)
		}
		invoices[inv.InvoiceID] = true
	}
	for _, li := range b.LineItems {
		if !invoices[li.InvoiceID] {
			return fmt.Errorf("%w: line item references unknown invoice %s", ErrIntegrity, li.InvoiceID)
		}
		if !products[li.StockCode] {
			return fmt.Errorf("%w: line item references unknown product %s", ErrIntegrity, li.StockCode)
		}
	}
	return nil
}
