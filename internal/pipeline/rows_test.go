package pipeline

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseRowsFlatRowBecomesOneRowTable(t *testing.T) {
	flat := `["01/01/2022", "Sales", "INV001", "ABC Corp", "1000", "Dr", "Product A", "10", "pcs", "100", "1000"]`
	nested := `[` + flat + `]`

	fromFlat, err := ParseRows(flat)
	if err != nil {
		t.Fatalf("parse flat row: %v", err)
	}
	fromNested, err := ParseRows(nested)
	if err != nil {
		t.Fatalf("parse nested row: %v", err)
	}
	if !reflect.DeepEqual(fromFlat, fromNested) {
		t.Fatalf("flat row not equivalent to one-row table: %v vs %v", fromFlat, fromNested)
	}
	if len(fromFlat) != 1 || len(fromFlat[0]) != 11 {
		t.Fatalf("expected 1 row of 11 fields, got %dx%d", len(fromFlat), len(fromFlat[0]))
	}
}

func TestParseRowsNoDataSentinel(t *testing.T) {
	for _, raw := range []string{"no data", `"no data"`, "  No Data \n"} {
		if _, err := ParseRows(raw); !errors.Is(err, ErrNoData) {
			t.Fatalf("expected ErrNoData for %q, got %v", raw, err)
		}
	}
}

func TestParseRowsRejectsShortRow(t *testing.T) {
	short := `[["01/01/2022", "Sales", "INV001"]]`
	if _, err := ParseRows(short); err == nil {
		t.Fatal("expected error for 3-field row")
	}
}

func TestParseRowsRejectsProse(t *testing.T) {
	if _, err := ParseRows("Here is your table: [[...]]"); err == nil {
		t.Fatal("expected error for non-JSON output")
	}
}

func TestParseRowsRoundTripPreservesCountAndOrder(t *testing.T) {
	raw := `[
		["01/01/2022", "Sales", "INV001", "ABC Corp", "1000", "Dr", "Product A", "10", "pcs", "100", "1000"],
		["02/01/2022", "Purchase", "INV002", "XYZ Ltd", "500", "Cr", "Product B", "5", "pcs", "100", "500"]
	]`
	rows, err := ParseRows(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	payload := rowsToAny(rows)
	if len(payload) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(payload))
	}
	for i, row := range payload {
		if len(row) != 11 {
			t.Fatalf("row %d: expected 11 fields, got %d", i, len(row))
		}
		for j, cell := range row {
			if cell != rows[i][j] {
				t.Fatalf("row %d field %d: got %v want %v", i, j, cell, rows[i][j])
			}
		}
	}
	if payload[0][3] != "ABC Corp" || payload[1][3] != "XYZ Ltd" {
		t.Fatalf("field order not preserved: %v", payload)
	}
}

func TestParseRowsCoercesNumbers(t *testing.T) {
	raw := `[["01/01/2022", "Sales", "INV001", "ABC Corp", 1000, "Dr", "Product A", 10, "pcs", 100, 1000]]`
	rows, err := ParseRows(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if rows[0][4] != "1000" {
		t.Fatalf("expected numeric cell coerced to %q, got %q", "1000", rows[0][4])
	}
}

func TestParseRowsStripsEmbeddedNewlines(t *testing.T) {
	raw := "[[\"01/01/2022\",\n \"Sales\",\n \"INV001\", \"ABC Corp\", \"1000\", \"Dr\", \"Product A\", \"10\", \"pcs\", \"100\", \"1000\"]]"
	if _, err := ParseRows(raw); err != nil {
		t.Fatalf("parse with newlines: %v", err)
	}
}
