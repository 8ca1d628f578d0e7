package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/tallyops/invoice-ingest/constants"
)

// ErrNoData is returned by ParseRows when the normalizer replied with the
// whole-document "no data" sentinel.
var ErrNoData = errors.New("normalizer returned no data")

// rowsSchema enforces the table shape: one or more rows of exactly 11
// values each. Numbers are tolerated and coerced to strings afterwards;
// a short or long row fails validation rather than being padded.
const rowsSchema = `{
	"type": "array",
	"minItems": 1,
	"items": {
		"type": "array",
		"minItems": 11,
		"maxItems": 11,
		"items": {"type": ["string", "number"]}
	}
}`

var rowsValidator = jsonschema.MustCompileString("rows.json", rowsSchema)

// ParseRows interprets the normalizer's text output as a table. Any error
// it returns is a parse failure, a business outcome, not a system error.
//
// Shape rule: a single flat row becomes a one-row table; a list of rows is
// used as-is.
func ParseRows(raw string) ([][]string, error) {
	clean := strings.TrimSpace(strings.ReplaceAll(raw, "\n", " "))
	if isNoData(clean) {
		return nil, ErrNoData
	}

	var v any
	if err := json.Unmarshal([]byte(clean), &v); err != nil {
		return nil, fmt.Errorf("parse rows: %w", err)
	}

	arr, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("parse rows: expected a list, got %T", v)
	}
	if len(arr) > 0 {
		if _, nested := arr[0].([]any); !nested {
			v = []any{arr}
		}
	}

	if err := rowsValidator.Validate(v); err != nil {
		return nil, fmt.Errorf("invalid row shape: %w", err)
	}

	table := v.([]any)
	rows := make([][]string, 0, len(table))
	for _, r := range table {
		cells := r.([]any)
		row := make([]string, 0, constants.NumInvoiceColumns)
		for _, c := range cells {
			row = append(row, cellString(c))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func isNoData(s string) bool {
	s = strings.Trim(s, `"'`)
	return strings.EqualFold(strings.TrimSpace(s), constants.NoDataSentinel)
}

func cellString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// rowsToAny converts parsed rows into a record-store append payload,
// preserving row count and field order.
func rowsToAny(rows [][]string) [][]any {
	out := make([][]any, len(rows))
	for i, r := range rows {
		row := make([]any, len(r))
		for j, c := range r {
			row[j] = c
		}
		out[i] = row
	}
	return out
}

// headerRow is the 11 column names as an append payload.
func headerRow() [][]any {
	row := make([]any, len(constants.InvoiceColumns))
	for i, c := range constants.InvoiceColumns {
		row[i] = c
	}
	return [][]any{row}
}
