package localfs

import (
	"context"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestRecordStoreCreateAndAppend(t *testing.T) {
	rs := NewRecordStore(t.TempDir(), nil)
	ctx := context.Background()

	id, err := rs.CreateCollection(ctx, "inv-001", "Sheet1")
	if err != nil {
		t.Fatalf("create collection: %v", err)
	}
	if !strings.HasSuffix(id, "inv-001.xlsx") {
		t.Fatalf("collection id = %q", id)
	}

	header := [][]any{{"Date", "VoucherType", "InvoiceNumber"}}
	if _, err := rs.AppendRows(ctx, id, "Sheet1!A:K", header); err != nil {
		t.Fatalf("append header: %v", err)
	}
	cells, err := rs.AppendRows(ctx, id, "Sheet1!A:K", [][]any{
		{"01/08/2026", "Sales", "INV001"},
		{"02/08/2026", "Sales", "INV002"},
	})
	if err != nil {
		t.Fatalf("append rows: %v", err)
	}
	if cells != 6 {
		t.Fatalf("cells = %d, want 6", cells)
	}

	f, err := excelize.OpenFile(id)
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows("Sheet1")
	if err != nil {
		t.Fatalf("get rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	if rows[0][0] != "Date" || rows[2][2] != "INV002" {
		t.Fatalf("unexpected sheet content: %v", rows)
	}
}

func TestRecordStoreAppendCreatesMissingSheet(t *testing.T) {
	rs := NewRecordStore(t.TempDir(), nil)
	ctx := context.Background()

	id, err := rs.CreateCollection(ctx, "logbook", "Sheet1")
	if err != nil {
		t.Fatalf("create collection: %v", err)
	}
	if _, err := rs.AppendRows(ctx, id, "Invoices Successes!A:J", [][]any{{"ts", "name"}}); err != nil {
		t.Fatalf("append to new sheet: %v", err)
	}

	f, err := excelize.OpenFile(id)
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows("Invoices Successes")
	if err != nil {
		t.Fatalf("get rows: %v", err)
	}
	if len(rows) != 1 || rows[0][0] != "ts" {
		t.Fatalf("unexpected sheet content: %v", rows)
	}
}
