package llm

// NormalizeInstruction is the fixed schema-and-example instruction sent
// with every document. The output contract is strict: a JSON array of
// 11-field rows, or the literal "no data", with no surrounding prose or
// markup.
const NormalizeInstruction = `From the above text return the following data as a table:

Date
Voucher Type
Invoice Number
Ledger/Vendor Name
Ledger Amt
Dr/Cr
Item Name
Quantity
UOM
Rate
Value

Ledger name should always be the vendor name, NOT the customer name. If there is no vendor name mark it as "-".

Line item name/description should be captured completely, never partially.

If anything doesn't exist mark it as "-".

Example output:

[
["01/01/2022", "Sales", "INV001", "ABC Corp", "1000", "Dr", "Product A", "10", "pcs", "100", "1000"],
["02/01/2022", "Purchase", "INV002", "XYZ Ltd", "500", "Cr", "Product B", "5", "pcs", "100", "500"],
["03/01/2022", "Sales", "INV003", "LMN Inc", "1500", "Dr", "Product C", "15", "pcs", "100", "1500"]
]

This is just an example, be flexible as per the input data. But follow the format at any cost: every row must have exactly 11 values.

Output ONLY a JSON array, no other text. Do not wrap it in a markdown code fence or add any commentary.

If no data can be fetched, output exactly "no data".`
