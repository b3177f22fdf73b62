package datanorm

import (
	"strings"

	"github.com/ignite/retail-rfm/internal/domain"
	"github.com/ignite/retail-rfm/internal/pkg/logger"
)

// Normalizer validates raw transaction rows and coerces them into typed
// records. Rules run in a fixed order and the first failing rule decides
// the reason a row is counted under:
//
//  1. missing_field: customer id, description, stock code, invoice id or date absent
//  2. duplicate: same trimmed fields as an earlier row that passed rule 1
//  3. invalid_quantity
//  4. invalid_price
//  5. invalid_customer_id
//  6. invalid_date
//
// A Normalizer is stateless between calls and safe for concurrent use.
type Normalizer struct{}

// NewNormalizer creates a Normalizer.
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// NewStats returns zeroed stats with a counter for every reason.
func NewStats() domain.NormalizeStats {
	stats := domain.NormalizeStats{Rejected: make(map[domain.RejectReason]int, len(domain.RejectReasons))}
	for _, r := range domain.RejectReasons {
		stats.Rejected[r] = 0
	}
	return stats
}

// Normalize returns the accepted records in input order together with
// per-reason rejection counts. It never fails: bad rows are counted and
// dropped.
func (n *Normalizer) Normalize(raw []domain.RawRecord) ([]domain.Record, domain.NormalizeStats) {
	stats := NewStats()
	stats.Total = len(raw)

	records := make([]domain.Record, 0, len(raw))
	seen := make(map[dedupKey]struct{}, len(raw))

	for i := range raw {
		rec, reason, ok := n.normalizeOne(&raw[i], seen)
		if !ok {
			stats.Rejected[reason]++
			continue
		}
		records = append(records, rec)
	}
	stats.Accepted = len(records)

	logger.Info("normalize complete",
		"component", "datanorm",
		"total", stats.Total,
		"accepted", stats.Accepted,
		"missing_field", stats.Rejected[domain.RejectMissingField],
		"duplicate", stats.Rejected[domain.RejectDuplicate],
		"invalid_quantity", stats.Rejected[domain.RejectInvalidQuantity],
		"invalid_price", stats.Rejected[domain.RejectInvalidPrice],
		"invalid_customer_id", stats.Rejected[domain.RejectInvalidCustomerID],
		"invalid_date", stats.Rejected[domain.RejectInvalidDate],
	)
	return records, stats
}

func (n *Normalizer) normalizeOne(r *domain.RawRecord, seen map[dedupKey]struct{}) (domain.Record, domain.RejectReason, bool) {
	if isMissing(r.CustomerID) || isMissing(r.Description) ||
		isMissing(r.StockCode) || isMissing(r.InvoiceID) || isMissing(r.InvoiceDate) {
		return domain.Record{}, domain.RejectMissingField, false
	}

	key := keyOf(r.CustomerID, r.Description, r.StockCode, r.Quantity, r.UnitPrice, r.InvoiceID, r.InvoiceDate, r.Country)
	if _, dup := seen[key]; dup {
		return domain.Record{}, domain.RejectDuplicate, false
	}
	seen[key] = struct{}{}

	qty, err := parseQuantity(r.Quantity)
	if err != nil {
		return domain.Record{}, domain.RejectInvalidQuantity, false
	}
	price, err := parsePrice(r.UnitPrice)
	if err != nil {
		return domain.Record{}, domain.RejectInvalidPrice, false
	}
	customerID, err := parseCustomerID(r.CustomerID)
	if err != nil {
		return domain.Record{}, domain.RejectInvalidCustomerID, false
	}
	date, err := parseInvoiceDate(r.InvoiceDate)
	if err != nil {
		return domain.Record{}, domain.RejectInvalidDate, false
	}

	return domain.Record{
		CustomerID:  customerID,
		Description: strings.TrimSpace(r.Description),
		StockCode:   strings.TrimSpace(r.StockCode),
		Quantity:    qty,
		UnitPrice:   roundMoney(price),
		LineTotal:   LineTotal(qty, price),
		InvoiceID:   strings.TrimSpace(r.InvoiceID),
		InvoiceDate: date,
		Country:     strings.TrimSpace(r.Country),
	}, "", true
}
