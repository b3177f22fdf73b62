package snowflake

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strconv"
	"time"

	sf "github.com/snowflakedb/gosnowflake"

	"github.com/ignite/retail-rfm/internal/domain"
	"github.com/ignite/retail-rfm/internal/pkg/logger"
)

// DefaultTable holds raw retail transactions in the warehouse.
const DefaultTable = "ONLINE_RETAIL_TRANSACTIONS"

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*(\.[A-Za-z_][A-Za-z0-9_$]*){0,2}$`)

// Source reads raw transaction rows from a Snowflake table.
type Source struct {
	db    *sql.DB
	table string
}

// NewSource opens a Snowflake connection for cfg.
func NewSource(cfg Config) (*Source, error) {
	dsn, err := sf.DSN(&sf.Config{
		Account:   cfg.Account,
		User:      cfg.User,
		Password:  cfg.Password,
		Database:  cfg.Database,
		Schema:    cfg.Schema,
		Warehouse: cfg.Warehouse,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build snowflake dsn: %w", err)
	}

	db, err := sql.Open("snowflake", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open snowflake connection: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	src, err := NewSourceWithDB(db, cfg.Table)
	if err != nil {
		db.Close()
		return nil, err
	}
	return src, nil
}

// NewSourceWithDB creates a source over an open connection. An empty
// table selects DefaultTable.
func NewSourceWithDB(db *sql.DB, table string) (*Source, error) {
	if table == "" {
		table = DefaultTable
	}
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid snowflake table name %q", table)
	}
	return &Source{db: db, table: table}, nil
}

// Close closes the database connection
func (s *Source) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping tests the database connection
func (s *Source) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Name identifies the source in logs and reports.
func (s *Source) Name() string { return "snowflake:" + s.table }

// Records reads every row of the table as loosely typed text so the
// normalizer applies the same rules as for file input.
func (s *Source) Records(ctx context.Context) ([]domain.RawRecord, error) {
	query := `SELECT CUSTOMER_ID, DESCRIPTION, STOCK_CODE, QUANTITY, UNIT_PRICE,
		INVOICE_ID, INVOICE_DATE, COUNTRY FROM ` + s.table

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", s.table, err)
	}
	defer rows.Close()

	var out []domain.RawRecord
	for rows.Next() {
		var vals [8]any
		ptrs := make([]any, len(vals))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, domain.RawRecord{
			CustomerID:  toText(vals[0]),
			Description: toText(vals[1]),
			StockCode:   toText(vals[2]),
			Quantity:    toText(vals[3]),
			UnitPrice:   toText(vals[4]),
			InvoiceID:   toText(vals[5]),
			InvoiceDate: toText(vals[6]),
			Country:     toText(vals[7]),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	logger.Info("snowflake read", "component", "snowflake", "table", s.table, "rows", len(out))
	return out, nil
}

// toText renders a driver value the way a CSV export would. NULL becomes "".
func toText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case time.Time:
		return x.UTC().Format("2006-01-02 15:04:05")
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
