package datanorm

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ignite/retail-rfm/internal/domain"
	"github.com/ignite/retail-rfm/internal/pkg/logger"
)

// ctxCheckEvery is how many read attempts pass between cancellation checks.
const ctxCheckEvery = 500

// ReadCSV reads a transaction export with a header row into raw records.
// Columns are matched by alias, so both public retail layouts and
// snake_case warehouse dumps are accepted. Rows with broken quoting are
// skipped and counted in the result; any other read error aborts.
func ReadCSV(ctx context.Context, r io.Reader, source string) ([]domain.RawRecord, ReadResult, error) {
	res := ReadResult{Source: source}

	reader := csv.NewReader(stripBOM(r))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, res, nil
		}
		return nil, res, fmt.Errorf("read header: %w", err)
	}

	mapping, err := MapColumns(header)
	if err != nil {
		return nil, res, err
	}
	res.Layout = ClassifyHeader(header)

	var records []domain.RawRecord
	for attempt := 0; ; attempt++ {
		if attempt%ctxCheckEvery == 0 && ctx.Err() != nil {
			return nil, res, ctx.Err()
		}
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if !errors.As(err, &parseErr) {
				return nil, res, fmt.Errorf("read row %d: %w", res.Rows+res.SkippedRows+1, err)
			}
			res.SkippedRows++
			continue
		}
		records = append(records, domain.RawRecord{
			CustomerID:  mapping.value(row, FieldCustomerID),
			Description: mapping.value(row, FieldDescription),
			StockCode:   mapping.value(row, FieldStockCode),
			Quantity:    mapping.value(row, FieldQuantity),
			UnitPrice:   mapping.value(row, FieldUnitPrice),
			InvoiceID:   mapping.value(row, FieldInvoiceID),
			InvoiceDate: mapping.value(row, FieldInvoiceDate),
			Country:     mapping.value(row, FieldCountry),
		})
		res.Rows++
	}

	logger.Info("csv read",
		"component", "datanorm",
		"source", source,
		"layout", string(res.Layout),
		"rows", res.Rows,
		"skipped_rows", res.SkippedRows,
	)
	return records, res, nil
}

// CSVSource reads raw records from a local CSV file.
type CSVSource struct {
	path     string
	unparsed int
}

// NewCSVSource creates a source for the file at path.
func NewCSVSource(path string) *CSVSource {
	return &CSVSource{path: path}
}

// Name identifies the source in logs and reports.
func (s *CSVSource) Name() string { return "csv:" + s.path }

// Records reads every row of the file.
func (s *CSVSource) Records(ctx context.Context) ([]domain.RawRecord, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.path, err)
	}
	defer f.Close()

	records, res, err := ReadCSV(ctx, f, s.path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	s.unparsed = res.SkippedRows
	return records, nil
}

// UnparsedRows is how many rows the last Records call skipped as malformed.
func (s *CSVSource) UnparsedRows() int { return s.unparsed }

// stripBOM wraps a reader to strip a UTF-8 BOM if present.
func stripBOM(r io.Reader) io.Reader {
	buf := make([]byte, 3)
	n, err := io.ReadFull(r, buf)
	if err != nil || n < 3 {
		return io.MultiReader(strings.NewReader(string(buf[:n])), r)
	}
	if buf[0] == 0xEF && buf[1] == 0xBB && buf[2] == 0xBF {
		return r
	}
	return io.MultiReader(strings.NewReader(string(buf[:n])), r)
}
