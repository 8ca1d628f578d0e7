package constants

// InvoiceColumns is the fixed output schema. Every normalized row carries
// exactly one value per column; missing values are the "-" sentinel.
var InvoiceColumns = []string{
	"Date",
	"Voucher Type",
	"Invoice Number",
	"Ledger Name",
	"Ledger Amt",
	"Dr/Cr",
	"Item Name",
	"Quantity",
	"UOM",
	"Rate",
	"Value",
}

// NumInvoiceColumns is the required row width.
const NumInvoiceColumns = 11

// MissingValue marks a column the normalizer could not fill.
const MissingValue = "-"

// NoDataSentinel is the normalizer's whole-document "nothing extractable"
// reply.
const NoDataSentinel = "no data"

// Sheet titles and A1 ranges for the record collections.
const (
	DefaultSheetTitle = "Sheet1"

	DataRange       = "Sheet1!A:K"
	SuccessLogRange = "Invoices Successes!A:J"
	FailureLogRange = "Invoices Failed!A:J"
	IntakeLogRange  = "Gmail Logs!A:F"
	ErrorLogRange   = "Code Errors!A:E"
)
