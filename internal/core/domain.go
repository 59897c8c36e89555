package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  CategoryType = "income"
	Expense CategoryType = "expense"
)

const (
	VoucherNone    VoucherType = "無"
	VoucherReceipt VoucherType = "收據"
	VoucherInvoice VoucherType = "發票"
)

type (
	CategoryType string

	// VoucherType is kept as free text so values written by other tools survive a round trip.
	VoucherType string

	Date struct {
		time.Time
	}

	Category struct {
		Key     string       `json:"key"`
		Display string       `json:"display"`
		Type    CategoryType `json:"type"`
	}

	Record struct {
		Date      Date
		RawDate   string // verbatim cell when Date could not be parsed
		Project   string
		Category  string
		Item      string
		Unit      string
		Quantity  decimal.Decimal
		Price     decimal.Decimal
		Total     decimal.Decimal
		Location  string
		Handler   string
		Voucher   VoucherType
		InvoiceNo string
		Note      string
	}
)

var (
	ErrInvalidDate     = errors.New("invalid date")
	ErrEmptyProject    = errors.New("empty project")
	ErrEmptyCategory   = errors.New("empty category")
	ErrEmptyItem       = errors.New("empty item")
	ErrNegativeAmount  = errors.New("quantity and unit price must not be negative")
	ErrMissingInvoice  = errors.New("invoice number required for invoice vouchers")
	ErrInvalidCategory = errors.New("invalid category type")
)

func (t CategoryType) Valid() bool {
	return t == Income || t == Expense
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Key) == "" {
		return ErrEmptyCategory
	}
	if strings.TrimSpace(c.Display) == "" {
		return errors.New("empty category display name")
	}
	if !c.Type.Valid() {
		return ErrInvalidCategory
	}
	return nil
}

// ParseVoucher maps blank cells to VoucherNone and leaves anything else untouched.
func ParseVoucher(s string) VoucherType {
	s = strings.TrimSpace(s)
	if s == "" {
		return VoucherNone
	}
	return VoucherType(s)
}

// Normalize recomputes the derived total. Stored totals are never trusted.
func (r *Record) Normalize() {
	r.Total = r.Quantity.Mul(r.Price)
}

// DateString returns the persisted form of the record date.
func (r Record) DateString() string {
	if r.Date.IsZero() {
		return r.RawDate
	}
	return r.Date.String()
}

// Validate checks a record about to be appended from the entry form.
func (r Record) Validate() error {
	if r.Date.IsZero() {
		return ErrInvalidDate
	}
	if strings.TrimSpace(r.Project) == "" {
		return ErrEmptyProject
	}
	if strings.TrimSpace(r.Category) == "" {
		return ErrEmptyCategory
	}
	if strings.TrimSpace(r.Item) == "" {
		return ErrEmptyItem
	}
	return r.ValidateValues()
}

// ValidateValues checks the amount and voucher rules every stored record
// must satisfy, including rows saved from the records editor.
func (r Record) ValidateValues() error {
	if r.Quantity.IsNegative() || r.Price.IsNegative() {
		return ErrNegativeAmount
	}
	if r.Voucher == VoucherInvoice && strings.TrimSpace(r.InvoiceNo) == "" {
		return ErrMissingInvoice
	}
	return nil
}

// Equal compares every persisted field. Decimals compare by value.
func (r Record) Equal(o Record) bool {
	return r.DateString() == o.DateString() &&
		r.Project == o.Project &&
		r.Category == o.Category &&
		r.Item == o.Item &&
		r.Unit == o.Unit &&
		r.Quantity.Equal(o.Quantity) &&
		r.Price.Equal(o.Price) &&
		r.Total.Equal(o.Total) &&
		r.Location == o.Location &&
		r.Handler == o.Handler &&
		r.Voucher == o.Voucher &&
		r.InvoiceNo == o.InvoiceNo &&
		r.Note == o.Note
}
