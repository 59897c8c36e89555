package core

import (
	"fmt"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

var dateLayouts = []string{
	DateLayout,
	"2006/01/02",
	"2006/1/2",
	"2006-1-2",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

var weekdayLabels = [...]string{"(週日)", "(週一)", "(週二)", "(週三)", "(週四)", "(週五)", "(週六)"}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts the ISO form the app writes plus the variants a spreadsheet
// tends to produce after manual editing.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, ErrInvalidDate
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return NewDate(t.Year(), int(t.Month()), t.Day()), nil
		}
	}
	return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// MonthKey returns the YYYY-MM bucket used by period filters.
func (d Date) MonthKey() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01")
}

// WeekdayLabel returns the short Chinese weekday, e.g. "(週三)".
func (d Date) WeekdayLabel() string {
	if d.IsZero() {
		return ""
	}
	return weekdayLabels[d.Weekday()]
}

// Holiday returns the national holiday name for the date, if any.
func (d Date) Holiday() (string, bool) {
	if d.IsZero() {
		return "", false
	}
	name, ok := holidays[d.Format(DateLayout)]
	return name, ok
}

// DayOff reports weekends and national holidays.
func (d Date) DayOff() bool {
	if d.IsZero() {
		return false
	}
	if _, ok := d.Holiday(); ok {
		return true
	}
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// DayLabel is the display-only weekday column shown next to ledger rows.
// It is never persisted.
func (d Date) DayLabel() string {
	if d.IsZero() {
		return ""
	}
	label := d.WeekdayLabel()
	if name, ok := d.Holiday(); ok {
		return "🔴 " + label + " ★" + name
	}
	if d.DayOff() {
		return "🔴 " + label
	}
	return label
}
