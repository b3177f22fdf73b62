package datanorm

import (
	"errors"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	errNotNumeric  = errors.New("not numeric")
	errNotIntegral = errors.New("not integral")
	errNotPositive = errors.New("not positive")
	errOutOfRange  = errors.New("out of range")
)

// moneyPlaces is the scale of every stored monetary amount.
const moneyPlaces = 2

var (
	maxInt64 = decimal.NewFromInt(math.MaxInt64)

	// spreadsheetEpoch is day zero of spreadsheet serial dates. It absorbs
	// the 1900 leap-year bug, so serials after February 1900 map correctly.
	spreadsheetEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)
	secondsPerDay    = decimal.NewFromInt(86400)
	// maxSerial is 9999-12-31, the last day spreadsheets can represent.
	maxSerial = decimal.NewFromInt(2958465)
)

// dateLayouts are tried in order. Timestamps without a zone are UTC.
var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04",
	"2006-01-02",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"1/2/2006",
}

// isMissing reports whether a raw value is absent.
func isMissing(v string) bool {
	return strings.TrimSpace(v) == ""
}

// parseInteger parses an integral, strictly positive value that fits int64.
// Integral decimals such as "12346.0" are accepted.
func parseInteger(raw string) (int64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return 0, errNotNumeric
	}
	if !d.IsInteger() {
		return 0, errNotIntegral
	}
	if !d.IsPositive() {
		return 0, errNotPositive
	}
	if d.GreaterThan(maxInt64) {
		return 0, errOutOfRange
	}
	return d.IntPart(), nil
}

// parseQuantity parses an item count.
func parseQuantity(raw string) (int64, error) {
	return parseInteger(raw)
}

// parseCustomerID parses a customer key.
func parseCustomerID(raw string) (int64, error) {
	return parseInteger(raw)
}

// parsePrice parses a unit price at full precision. Rounding happens after
// the line total is computed.
func parsePrice(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, errNotNumeric
	}
	if !d.IsPositive() {
		return decimal.Zero, errNotPositive
	}
	return d, nil
}

// parseInvoiceDate accepts the textual layouts above and spreadsheet
// serial day numbers, rounded to the second.
func parseInvoiceDate(raw string) (time.Time, error) {
	v := strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, v, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}

	serial, err := decimal.NewFromString(v)
	if err != nil || !serial.IsPositive() {
		return time.Time{}, errors.New("unrecognized date format")
	}
	if serial.LessThan(decimal.NewFromInt(1)) || serial.GreaterThanOrEqual(maxSerial.Add(decimal.NewFromInt(1))) {
		return time.Time{}, errOutOfRange
	}
	days := serial.Truncate(0)
	seconds := serial.Sub(days).Mul(secondsPerDay).Round(0).IntPart()
	return spreadsheetEpoch.AddDate(0, 0, int(days.IntPart())).Add(time.Duration(seconds) * time.Second), nil
}

// roundMoney rounds half away from zero to the stored scale.
func roundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(moneyPlaces)
}

// dedupKey is the structural identity of a raw record: every field, trimmed.
type dedupKey [8]string

func keyOf(customerID, description, stockCode, quantity, unitPrice, invoiceID, invoiceDate, country string) dedupKey {
	return dedupKey{
		strings.TrimSpace(customerID),
		strings.TrimSpace(description),
		strings.TrimSpace(stockCode),
		strings.TrimSpace(quantity),
		strings.TrimSpace(unitPrice),
		strings.TrimSpace(invoiceID),
		strings.TrimSpace(invoiceDate),
		strings.TrimSpace(country),
	}
}

// LineTotal is quantity times the unrounded unit price, rounded to cents.
func LineTotal(qty int64, unitPrice decimal.Decimal) decimal.Decimal {
	return roundMoney(decimal.NewFromInt(qty).Mul(unitPrice))
}
