package http

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"sitebook/internal/core"
	"sitebook/internal/ledger"
	"sitebook/internal/services"
)

// projectCookie remembers the last project the user looked at.
const projectCookie = "sitebook_project"

// maxEditorRows bounds the indexed rows accepted from one editor block.
const maxEditorRows = 5000

// ParsePeriod reads project, year and month from query or form values.
// Missing or malformed numbers become 0, which the service resolves to the
// latest year with data and the whole year respectively.
func ParsePeriod(values url.Values) services.Period {
	return services.Period{
		Project: sanitizeInput(values.Get("project")),
		Year:    atoiOrZero(values.Get("year")),
		Month:   atoiOrZero(values.Get("month")),
	}
}

// requestProject resolves the project for a request: the explicit query or
// form value first, then the cookie. An empty result lets the service fall
// back to the first configured project.
func requestProject(r *http.Request) string {
	if p := sanitizeInput(r.FormValue("project")); p != "" {
		return p
	}
	if c, err := r.Cookie(projectCookie); err == nil {
		if v, err := url.QueryUnescape(c.Value); err == nil {
			return sanitizeInput(v)
		}
	}
	return ""
}

func rememberProject(w http.ResponseWriter, project string) {
	if project == "" {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     projectCookie,
		Value:    url.QueryEscape(project),
		Path:     "/",
		MaxAge:   365 * 24 * 3600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ParseRecordForm builds a record from the entry form.
func ParseRecordForm(form url.Values) (core.Record, error) {
	date, err := core.ParseDate(form.Get("date"))
	if err != nil {
		return core.Record{}, err
	}
	qty, err := parseQuantity(form.Get("qty"))
	if err != nil {
		return core.Record{}, fmt.Errorf("數量: %w", err)
	}
	price, err := core.ParseAmount(form.Get("price"))
	if err != nil {
		return core.Record{}, fmt.Errorf("單價: %w", err)
	}
	r := core.Record{
		Date:      date,
		Project:   sanitizeInput(form.Get("project")),
		Category:  sanitizeInput(form.Get("category")),
		Item:      sanitizeInput(form.Get("item")),
		Unit:      sanitizeInput(form.Get("unit")),
		Quantity:  qty,
		Price:     price,
		Location:  sanitizeInput(form.Get("location")),
		Handler:   sanitizeInput(form.Get("handler")),
		Voucher:   core.ParseVoucher(sanitizeInput(form.Get("voucher"))),
		InvoiceNo: sanitizeInput(form.Get("invoice_no")),
		Note:      sanitizeInput(form.Get("note")),
	}
	r.Normalize()
	return r, nil
}

// ParseEdit reads one submitted editor block. Rows travel as indexed fields
// (date.0, item.0, ..., delete.0) with the row count in "rows". Rows that
// are completely blank are skipped.
func ParseEdit(form url.Values) (ledger.Edit, error) {
	e := ledger.Edit{
		Selection: ledger.Selection{
			Project:  sanitizeInput(form.Get("project")),
			Category: sanitizeInput(form.Get("category")),
			Year:     atoiOrZero(form.Get("year")),
			Month:    atoiOrZero(form.Get("month")),
		},
		Search: sanitizeInput(form.Get("search")),
	}

	n := atoiOrZero(form.Get("rows"))
	if n < 0 || n > maxEditorRows {
		return e, fmt.Errorf("%w: %d rows", ledger.ErrInvalidSelection, n)
	}
	for i := 0; i < n; i++ {
		row, blank, err := parseEditedRow(form, i)
		if err != nil {
			return e, fmt.Errorf("第 %d 列: %w", i+1, err)
		}
		if blank {
			continue
		}
		e.Rows = append(e.Rows, row)
	}
	return e, nil
}

func parseEditedRow(form url.Values, i int) (ledger.EditedRow, bool, error) {
	get := func(field string) string {
		return sanitizeInput(form.Get(field + "." + strconv.Itoa(i)))
	}

	fields := []string{"date", "item", "unit", "qty", "price", "location", "handler", "invoice_no", "note"}
	blank := true
	for _, f := range fields {
		if get(f) != "" {
			blank = false
			break
		}
	}
	del := get("delete") != ""
	if blank {
		return ledger.EditedRow{}, true, nil
	}

	date, err := core.ParseDate(get("date"))
	if err != nil {
		return ledger.EditedRow{}, false, err
	}
	qty, err := parseQuantity(get("qty"))
	if err != nil {
		return ledger.EditedRow{}, false, err
	}
	price, err := core.ParseAmount(get("price"))
	if err != nil {
		return ledger.EditedRow{}, false, err
	}
	row := ledger.EditedRow{
		Record: core.Record{
			Date:      date,
			Item:      get("item"),
			Unit:      get("unit"),
			Quantity:  qty,
			Price:     price,
			Location:  get("location"),
			Handler:   get("handler"),
			Voucher:   core.ParseVoucher(get("voucher")),
			InvoiceNo: get("invoice_no"),
			Note:      get("note"),
		},
		Delete: del,
	}
	if !del {
		if err := row.ValidateValues(); err != nil {
			return ledger.EditedRow{}, false, err
		}
	}
	return row, false, nil
}

// parseQuantity treats a blank quantity as 1.
func parseQuantity(s string) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return decimal.NewFromInt(1), nil
	}
	return core.ParseAmount(s)
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
