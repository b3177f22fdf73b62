package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/ignite/retail-rfm/internal/domain"
	"github.com/ignite/retail-rfm/internal/service/loader"
)

// pqForeignKeyViolation is SQLSTATE foreign_key_violation.
const pqForeignKeyViolation = "23503"

// LoaderRepo implements loader.Repository against PostgreSQL.
type LoaderRepo struct{ db *sql.DB }

// NewLoaderRepo creates a Postgres-backed loader repository.
func NewLoaderRepo(db *sql.DB) *LoaderRepo { return &LoaderRepo{db: db} }

// WithTx runs fn in one transaction, rolling back on any error.
func (r *LoaderRepo) WithTx(ctx context.Context, fn func(tx loader.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin load: %w", err)
	}
	if err := fn(&loadTx{tx: tx}); err != nil {
		tx.Rollback()
		return mapError(err)
	}
	if err := tx.Commit(); err != nil {
		return mapError(fmt.Errorf("commit load: %w", err))
	}
	return nil
}

// mapError turns a store foreign-key violation into loader.ErrIntegrity.
func mapError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqForeignKeyViolation {
		return fmt.Errorf("%w: %w", loader.ErrIntegrity, err)
	}
	return err
}

type loadTx struct{ tx *sql.Tx }

func (t *loadTx) ExistingCustomers(ctx context.Context, ids []int64) (map[int64]bool, error) {
	out := make(map[int64]bool)
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := t.tx.QueryContext(ctx,
		`SELECT customer_id FROM customers WHERE customer_id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}

func (t *loadTx) ExistingProducts(ctx context.Context, codes []string) (map[string]bool, error) {
	return t.existingStrings(ctx, `SELECT stock_code FROM products WHERE stock_code = ANY($1)`, codes)
}

func (t *loadTx) ExistingInvoices(ctx context.Context, ids []string) (map[string]bool, error) {
	return t.existingStrings(ctx, `SELECT invoice_id FROM invoices WHERE invoice_id = ANY($1)`, ids)
}

func (t *loadTx) existingStrings(ctx context.Context, query string, keys []string) (map[string]bool, error) {
	out := make(map[string]bool)
	if len(keys) == 0 {
		return out, nil
	}
	rows, err := t.tx.QueryContext(ctx, query, pq.Array(keys))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		out[k] = true
	}
	return out, rows.Err()
}

func (t *loadTx) InsertCustomers(ctx context.Context, rows []domain.Customer) error {
	args := make([]any, 0, len(rows)*2)
	for _, c := range rows {
		args = append(args, c.CustomerID, nullString(c.Country))
	}
	return t.insert(ctx, "customers", []string{"customer_id", "country"}, len(rows), args)
}

func (t *loadTx) InsertProducts(ctx context.Context, rows []domain.Product) error {
	args := make([]any, 0, len(rows)*2)
	for _, p := range rows {
		args = append(args, p.StockCode, p.Description)
	}
	return t.insert(ctx, "products", []string{"stock_code", "description"}, len(rows), args)
}

func (t *loadTx) InsertInvoices(ctx context.Context, rows []domain.Invoice) error {
	args := make([]any, 0, len(rows)*4)
	for _, inv := range rows {
		args = append(args, inv.InvoiceID, inv.CustomerID, inv.InvoiceDate.UTC(), inv.TotalAmount)
	}
	return t.insert(ctx, "invoices", []string{"invoice_id", "customer_id", "invoice_date", "total_amount"}, len(rows), args)
}

func (t *loadTx) InsertLineItems(ctx context.Context, rows []domain.LineItem) error {
	args := make([]any, 0, len(rows)*5)
	for _, li := range rows {
		args = append(args, li.InvoiceID, li.StockCode, li.Quantity, li.UnitPrice, li.LineTotal)
	}
	return t.insert(ctx, "order_items", []string{"invoice_id", "stock_code", "quantity", "unit_price", "line_total"}, len(rows), args)
}

// insert writes n rows with one multi-row INSERT.
func (t *loadTx) insert(ctx context.Context, table string, cols []string, n int, args []any) error {
	if n == 0 {
		return nil
	}
	_, err := t.tx.ExecContext(ctx, insertSQL(table, cols, n), args...)
	if err != nil {
		return fmt.Errorf("insert %s: %w", table, err)
	}
	return nil
}

// insertSQL builds "INSERT INTO t (a, b) VALUES ($1, $2), ($3, $4)".
func insertSQL(table string, cols []string, n int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", table, strings.Join(cols, ", "))
	p := 1
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for j := range cols {
			if j > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "$%d", p)
			p++
		}
		b.WriteByte(')')
	}
	return b.String()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// integrityQuery counts orphans and invoice total mismatches, plus table
// sizes and revenue, in one round trip.
const integrityQuery = `
SELECT
	(SELECT COUNT(*) FROM order_items oi
		LEFT JOIN invoices i ON i.invoice_id = oi.invoice_id
		WHERE i.invoice_id IS NULL),
	(SELECT COUNT(*) FROM order_items oi
		LEFT JOIN products p ON p.stock_code = oi.stock_code
		WHERE p.stock_code IS NULL),
	(SELECT COUNT(*) FROM invoices i
		LEFT JOIN customers c ON c.customer_id = i.customer_id
		WHERE c.customer_id IS NULL),
	(SELECT COUNT(*) FROM invoices i
		LEFT JOIN (
			SELECT invoice_id, ROUND(SUM(line_total), 2) AS line_sum
			FROM order_items GROUP BY invoice_id
		) t ON t.invoice_id = i.invoice_id
		WHERE i.total_amount <> COALESCE(t.line_sum, 0)),
	(SELECT COUNT(*) FROM customers),
	(SELECT COUNT(*) FROM products),
	(SELECT COUNT(*) FROM invoices),
	(SELECT COUNT(*) FROM order_items),
	(SELECT COALESCE(SUM(total_amount), 0) FROM invoices)`

// Verify runs the integrity query.
func (r *LoaderRepo) Verify(ctx context.Context) (domain.IntegrityReport, error) {
	var rep domain.IntegrityReport
	var customers, products, invoices, items int64
	err := r.db.QueryRowContext(ctx, integrityQuery).Scan(
		&rep.OrphanLineItemsInvoice,
		&rep.OrphanLineItemsProduct,
		&rep.OrphanInvoices,
		&rep.TotalMismatches,
		&customers, &products, &invoices, &items,
		&rep.TotalRevenue,
	)
	if err != nil {
		return domain.IntegrityReport{}, fmt.Errorf("integrity query: %w", err)
	}
	rep.Counts = map[domain.Entity]int64{
		domain.EntityCustomer: customers,
		domain.EntityProduct:  products,
		domain.EntityInvoice:  invoices,
		domain.EntityLineItem: items,
	}
	return rep, nil
}
