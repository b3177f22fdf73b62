// Package loader writes validated transaction records into the relational
// store as customers, products, invoices and line items.
//
// The loader is the only writer. Every load runs in one transaction and is
// idempotent: keys that already exist are skipped by set difference, and
// line items are written only together with the invoice that owns them, so
// reloading the same records changes nothing.
//
// The service layer depends on the Repository interface defined in
// repository.go. It never imports database/sql directly.
package loader
