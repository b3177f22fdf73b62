package snowflake

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestParseConnectionString(t *testing.T) {
	connStr := "scheme=https;ACCOUNT=HZDABLB-WLB56571;HOST=HZDABLB-WLB56571.azure.snowflakecomputing.com;port=443;USER=testuser;PASSWORD=testpass;DB=RETAIL_LAKE.RAW;"

	cfg := ParseConnectionString(connStr)

	if cfg.Account != "HZDABLB-WLB56571" {
		t.Errorf("Expected Account 'HZDABLB-WLB56571', got '%s'", cfg.Account)
	}
	if cfg.User != "testuser" {
		t.Errorf("Expected User 'testuser', got '%s'", cfg.User)
	}
	if cfg.Password != "testpass" {
		t.Errorf("Expected Password 'testpass', got '%s'", cfg.Password)
	}
	if cfg.Database != "RETAIL_LAKE" {
		t.Errorf("Expected Database 'RETAIL_LAKE', got '%s'", cfg.Database)
	}
	if cfg.Schema != "RAW" {
		t.Errorf("Expected Schema 'RAW', got '%s'", cfg.Schema)
	}
}

func TestParseConnectionStringNoTrailingSemicolon(t *testing.T) {
	cfg := ParseConnectionString("ACCOUNT=test;USER=user;PASSWORD=p=ss;DB=mydb")

	if cfg.Account != "test" {
		t.Errorf("Expected Account 'test', got '%s'", cfg.Account)
	}
	if cfg.Database != "mydb" {
		t.Errorf("Expected Database 'mydb', got '%s'", cfg.Database)
	}
	if cfg.Password != "p=ss" {
		t.Errorf("Expected Password 'p=ss', got '%s'", cfg.Password)
	}
}

func TestNewSourceWithDB_TableValidation(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	src, err := NewSourceWithDB(db, "")
	if err != nil {
		t.Fatalf("default table: %v", err)
	}
	if src.Name() != "snowflake:"+DefaultTable {
		t.Errorf("unexpected name %q", src.Name())
	}
	if _, err := NewSourceWithDB(db, "RETAIL.RAW.TXNS"); err != nil {
		t.Errorf("qualified table rejected: %v", err)
	}
	if _, err := NewSourceWithDB(db, "TXNS; DROP TABLE X"); err == nil {
		t.Error("expected injection attempt to be rejected")
	}
}

func TestRecords(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	date := time.Date(2010, 12, 1, 8, 26, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT CUSTOMER_ID, DESCRIPTION").WillReturnRows(
		sqlmock.NewRows([]string{"CUSTOMER_ID", "DESCRIPTION", "STOCK_CODE", "QUANTITY", "UNIT_PRICE", "INVOICE_ID", "INVOICE_DATE", "COUNTRY"}).
			AddRow(float64(17850), "WHITE HANGING HEART", "85123A", int64(6), "2.55", "536365", date, "United Kingdom").
			AddRow(nil, "JUMBO BAG", "85099B", int64(10), 1.65, "536366", "2010-12-01 08:28:00", nil),
	)

	src, err := NewSourceWithDB(db, "")
	if err != nil {
		t.Fatalf("NewSourceWithDB: %v", err)
	}
	records, err := src.Records(context.Background())
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	r := records[0]
	if r.CustomerID != "17850" || r.Quantity != "6" || r.InvoiceDate != "2010-12-01 08:26:00" {
		t.Errorf("unexpected first record: %+v", r)
	}
	if records[1].CustomerID != "" || records[1].Country != "" {
		t.Errorf("NULLs should become empty strings: %+v", records[1])
	}
	if records[1].UnitPrice != "1.65" {
		t.Errorf("expected price 1.65, got %q", records[1].UnitPrice)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
