package datanorm

// Layout identifies which export a header row came from. It is logged so
// operators can tell the two public retail datasets apart.
type Layout string

const (
	// LayoutRetailII is the 2009-2011 export: Invoice, Price, Customer ID.
	LayoutRetailII Layout = "online_retail_ii"
	// LayoutRetailLegacy is the older export: InvoiceNo, UnitPrice, CustomerID.
	LayoutRetailLegacy Layout = "online_retail"
	// LayoutCustom is any other header set that still maps every field.
	LayoutCustom Layout = "custom"
)

var (
	retailIIHeaders     = []string{"invoice", "price", "customer id"}
	retailLegacyHeaders = []string{"invoiceno", "unitprice", "customerid"}
)

// ClassifyHeader determines the export layout from a CSV header row.
func ClassifyHeader(header []string) Layout {
	seen := make(map[string]bool, len(header))
	for _, h := range header {
		seen[normalizeHeader(h)] = true
	}
	if hasAll(seen, retailIIHeaders) {
		return LayoutRetailII
	}
	if hasAll(seen, retailLegacyHeaders) {
		return LayoutRetailLegacy
	}
	return LayoutCustom
}

func hasAll(seen map[string]bool, names []string) bool {
	for _, n := range names {
		if !seen[n] {
			return false
		}
	}
	return true
}
