package core

// Native ledger column names, in persisted order.
const (
	ColDate      = "日期"
	ColProject   = "專案"
	ColCategory  = "類別"
	ColItem      = "項目內容"
	ColUnit      = "單位"
	ColQuantity  = "數量"
	ColPrice     = "單價"
	ColTotal     = "總價"
	ColLocation  = "購買地點"
	ColHandler   = "經手人"
	ColVoucher   = "憑證類型"
	ColInvoiceNo = "發票號碼"
	ColNote      = "備註"
)

var header = []string{
	ColDate, ColProject, ColCategory, ColItem, ColUnit, ColQuantity, ColPrice,
	ColTotal, ColLocation, ColHandler, ColVoucher, ColInvoiceNo, ColNote,
}

// Header returns a fresh copy of the ledger header row.
func Header() []string {
	out := make([]string, len(header))
	copy(out, header)
	return out
}

// NumericColumn reports whether a column holds a decimal value.
func NumericColumn(name string) bool {
	return name == ColQuantity || name == ColPrice || name == ColTotal
}
