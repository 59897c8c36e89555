package ledger

import (
	"strings"

	"sitebook/internal/core"
)

// RecordFromRow decodes one header-keyed row. Unparseable numbers read as
// zero and an unparseable date is kept verbatim so a rewrite does not lose it.
func RecordFromRow(row map[string]string) core.Record {
	get := func(col string) string { return strings.TrimSpace(row[col]) }

	r := core.Record{
		Project:   get(core.ColProject),
		Category:  get(core.ColCategory),
		Item:      get(core.ColItem),
		Unit:      get(core.ColUnit),
		Quantity:  core.LenientAmount(get(core.ColQuantity)),
		Price:     core.LenientAmount(get(core.ColPrice)),
		Location:  get(core.ColLocation),
		Handler:   get(core.ColHandler),
		Voucher:   core.ParseVoucher(get(core.ColVoucher)),
		InvoiceNo: get(core.ColInvoiceNo),
		Note:      get(core.ColNote),
	}
	if d, err := core.ParseDate(get(core.ColDate)); err == nil {
		r.Date = d
	} else {
		r.RawDate = get(core.ColDate)
	}
	r.Normalize()
	return r
}

// RowFromRecord encodes a record in core.Header order.
func RowFromRecord(r core.Record) []string {
	return []string{
		r.DateString(),
		r.Project,
		r.Category,
		r.Item,
		r.Unit,
		core.FormatNumber(r.Quantity),
		core.FormatNumber(r.Price),
		core.FormatNumber(r.Total),
		r.Location,
		r.Handler,
		string(r.Voucher),
		r.InvoiceNo,
		r.Note,
	}
}

// DecodeRows converts table rows to records.
func DecodeRows(rows []map[string]string) []core.Record {
	out := make([]core.Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, RecordFromRow(row))
	}
	return out
}

// EncodeRows converts records to table rows, recomputing totals first.
func EncodeRows(records []core.Record) [][]string {
	out := make([][]string, 0, len(records))
	for _, r := range records {
		r.Normalize()
		out = append(out, RowFromRecord(r))
	}
	return out
}
