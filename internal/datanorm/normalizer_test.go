package datanorm

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/retail-rfm/internal/domain"
)

func raw(customer, desc, stock, qty, price, invoice, date, country string) domain.RawRecord {
	return domain.RawRecord{
		CustomerID:  customer,
		Description: desc,
		StockCode:   stock,
		Quantity:    qty,
		UnitPrice:   price,
		InvoiceID:   invoice,
		InvoiceDate: date,
		Country:     country,
	}
}

func TestNormalize_LampMugDeskScenario(t *testing.T) {
	input := []domain.RawRecord{
		raw("1", "Lamp", "L-1", "2", "5.00", "A1", "2011-12-01 10:00:00", "United Kingdom"),
		raw("1", "Lamp", "L-1", "2", "5.00", "A1", "2011-12-01 10:00:00", "United Kingdom"),
		raw("2", "Mug", "M-1", "0", "3.00", "A2", "2011-12-02 10:00:00", "France"),
		raw("", "Desk", "D-1", "1", "50.0", "A3", "2011-12-03 10:00:00", "Germany"),
	}

	records, stats := NewNormalizer().Normalize(input)

	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, int64(1), rec.CustomerID)
	assert.Equal(t, "Lamp", rec.Description)
	assert.Equal(t, int64(2), rec.Quantity)
	assert.True(t, decimal.RequireFromString("5.00").Equal(rec.UnitPrice))
	assert.True(t, decimal.RequireFromString("10.00").Equal(rec.LineTotal))
	assert.Equal(t, time.Date(2011, 12, 1, 10, 0, 0, 0, time.UTC), rec.InvoiceDate)

	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 1, stats.Accepted)
	assert.Equal(t, 1, stats.Rejected[domain.RejectMissingField])
	assert.Equal(t, 1, stats.Rejected[domain.RejectDuplicate])
	assert.Equal(t, 1, stats.Rejected[domain.RejectInvalidQuantity])
	assert.Equal(t, 0, stats.Rejected[domain.RejectInvalidPrice])
	assert.True(t, stats.Balanced())
	assert.InDelta(t, 75.0, stats.QualityImprovement(), 0.001)
}

func TestNormalize_RuleOrder(t *testing.T) {
	tests := []struct {
		name string
		rec  domain.RawRecord
		want domain.RejectReason
	}{
		{"missing customer beats bad quantity", raw(" ", "Lamp", "L-1", "-1", "5", "A1", "2011-12-01", ""), domain.RejectMissingField},
		{"missing description", raw("1", "", "L-1", "1", "5", "A1", "2011-12-01", ""), domain.RejectMissingField},
		{"missing stock code", raw("1", "Lamp", "", "1", "5", "A1", "2011-12-01", ""), domain.RejectMissingField},
		{"missing invoice", raw("1", "Lamp", "L-1", "1", "5", "", "2011-12-01", ""), domain.RejectMissingField},
		{"missing date", raw("1", "Lamp", "L-1", "1", "5", "A1", "", ""), domain.RejectMissingField},
		{"negative quantity", raw("1", "Lamp", "L-1", "-3", "5", "A1", "2011-12-01", ""), domain.RejectInvalidQuantity},
		{"fractional quantity", raw("1", "Lamp", "L-1", "1.5", "5", "A1", "2011-12-01", ""), domain.RejectInvalidQuantity},
		{"text quantity", raw("1", "Lamp", "L-1", "two", "5", "A1", "2011-12-01", ""), domain.RejectInvalidQuantity},
		{"bad quantity beats bad price", raw("1", "Lamp", "L-1", "0", "0", "A1", "2011-12-01", ""), domain.RejectInvalidQuantity},
		{"zero price", raw("1", "Lamp", "L-1", "1", "0.00", "A1", "2011-12-01", ""), domain.RejectInvalidPrice},
		{"text price", raw("1", "Lamp", "L-1", "1", "free", "A1", "2011-12-01", ""), domain.RejectInvalidPrice},
		{"text customer", raw("abc", "Lamp", "L-1", "1", "5", "A1", "2011-12-01", ""), domain.RejectInvalidCustomerID},
		{"fractional customer", raw("1.5", "Lamp", "L-1", "1", "5", "A1", "2011-12-01", ""), domain.RejectInvalidCustomerID},
		{"bad date", raw("1", "Lamp", "L-1", "1", "5", "A1", "yesterday", ""), domain.RejectInvalidDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, stats := NewNormalizer().Normalize([]domain.RawRecord{tt.rec})
			assert.Empty(t, records)
			assert.Equal(t, 1, stats.Rejected[tt.want], "rejected: %v", stats.Rejected)
			assert.True(t, stats.Balanced())
		})
	}
}

func TestNormalize_DuplicateOfLaterRejectedRow(t *testing.T) {
	// A duplicate is detected before value checks, so the second copy of an
	// invalid row counts as a duplicate, not as a second invalid quantity.
	bad := raw("7", "Mug", "M-1", "0", "3", "B1", "2011-01-01", "")
	_, stats := NewNormalizer().Normalize([]domain.RawRecord{bad, bad})

	assert.Equal(t, 1, stats.Rejected[domain.RejectInvalidQuantity])
	assert.Equal(t, 1, stats.Rejected[domain.RejectDuplicate])
}

func TestNormalize_DuplicateIgnoresPadding(t *testing.T) {
	a := raw("7", "Mug", "M-1", "1", "3", "B1", "2011-01-01", "France")
	b := raw(" 7 ", "Mug ", "M-1", "1", "3", "B1", "2011-01-01", " France")
	records, stats := NewNormalizer().Normalize([]domain.RawRecord{a, b})

	assert.Len(t, records, 1)
	assert.Equal(t, 1, stats.Rejected[domain.RejectDuplicate])
}

func TestNormalize_MissingRowsDoNotSeedDuplicates(t *testing.T) {
	missing := raw("", "Desk", "D-1", "1", "50", "A3", "2011-01-01", "")
	_, stats := NewNormalizer().Normalize([]domain.RawRecord{missing, missing})

	assert.Equal(t, 2, stats.Rejected[domain.RejectMissingField])
	assert.Equal(t, 0, stats.Rejected[domain.RejectDuplicate])
}

func TestNormalize_Coercion(t *testing.T) {
	input := []domain.RawRecord{
		raw("12346.0", "  WHITE HANGING HEART  ", " 85123A ", "3", "2.555", " 536365 ", "12/1/2010 8:26", " United Kingdom "),
	}
	records, stats := NewNormalizer().Normalize(input)
	require.Len(t, records, 1)
	assert.Equal(t, 1, stats.Accepted)

	rec := records[0]
	assert.Equal(t, int64(12346), rec.CustomerID)
	assert.Equal(t, "WHITE HANGING HEART", rec.Description)
	assert.Equal(t, "85123A", rec.StockCode)
	assert.Equal(t, "536365", rec.InvoiceID)
	assert.Equal(t, "United Kingdom", rec.Country)
	assert.Equal(t, time.Date(2010, 12, 1, 8, 26, 0, 0, time.UTC), rec.InvoiceDate)
	// 2.555 rounds half away from zero; the line total uses the raw price
	assert.Equal(t, "2.56", rec.UnitPrice.StringFixed(2))
	assert.Equal(t, "7.67", rec.LineTotal.StringFixed(2))
}

func TestNormalize_Balanced(t *testing.T) {
	var input []domain.RawRecord
	for i := 0; i < 200; i++ {
		qty := fmt.Sprint(i%5 - 1) // -1..3
		price := fmt.Sprint(i % 4) // 0..3
		customer := fmt.Sprint(i % 9)
		if i%11 == 0 {
			customer = ""
		}
		input = append(input, raw(customer, "Item", fmt.Sprint("S", i%7), qty, price, fmt.Sprint("I", i%13), "2011-06-01", "UK"))
	}

	records, stats := NewNormalizer().Normalize(input)
	assert.Equal(t, len(input), stats.Total)
	assert.Equal(t, len(records), stats.Accepted)
	assert.True(t, stats.Balanced())
	for _, r := range records {
		assert.Positive(t, r.Quantity)
		assert.True(t, r.UnitPrice.IsPositive())
	}
}

func TestNormalize_WideValuesPassThrough(t *testing.T) {
	longDesc := strings.Repeat("GLASS BALL ", 40)
	input := []domain.RawRecord{
		raw("1", longDesc, "SKU-"+strings.Repeat("9", 60), "9000000000", "123456789.99", "INV-000000000000000001", "2011-12-01", "United Kingdom of Great Britain"),
	}

	records, stats := NewNormalizer().Normalize(input)

	require.Len(t, records, 1)
	assert.Equal(t, 0, stats.RejectedTotal())
	rec := records[0]
	assert.Equal(t, "INV-000000000000000001", rec.InvoiceID)
	assert.Equal(t, strings.TrimSpace(longDesc), rec.Description)
	assert.Equal(t, int64(9000000000), rec.Quantity)
	assert.Equal(t, "1111111109910000000.00", rec.LineTotal.StringFixed(2))
}

func TestNormalize_SerialDateOutOfRange(t *testing.T) {
	input := []domain.RawRecord{
		raw("1", "Lamp", "L-1", "1", "5.00", "A1", "1e12", "UK"),
		raw("1", "Lamp", "L-1", "1", "5.00", "A2", "99999999999", "UK"),
		raw("1", "Lamp", "L-1", "1", "5.00", "A3", "40513", "UK"),
	}

	records, stats := NewNormalizer().Normalize(input)

	require.Len(t, records, 1)
	assert.Equal(t, "A3", records[0].InvoiceID)
	assert.Equal(t, 2, stats.Rejected[domain.RejectInvalidDate])
}

func TestNormalize_Empty(t *testing.T) {
	records, stats := NewNormalizer().Normalize(nil)
	assert.Empty(t, records)
	assert.Equal(t, 0, stats.Total)
	assert.Len(t, stats.Rejected, len(domain.RejectReasons))
	assert.True(t, stats.Balanced())
}
