package report

import (
	"strings"
	"time"

	"sitebook/internal/core"
	"sitebook/internal/ledger"

	"github.com/shopspring/decimal"
)

const DefaultTitle = "勁翔營造工地支出報表"

// Input is everything a report needs. Records must already be filtered to
// the project and period in Selection; Selection.Category is ignored.
type Input struct {
	Title      string
	Project    string
	Selection  ledger.Selection
	Printed    time.Time
	Records    []core.Record
	Categories []core.Category
	// Font is a TrueType font with CJK coverage. Nil falls back to Helvetica.
	Font []byte
}

func (in Input) title() string {
	if strings.TrimSpace(in.Title) == "" {
		return DefaultTitle
	}
	return in.Title
}

// plainAmount is FormatAmount without the currency sign, for table cells.
func plainAmount(d decimal.Decimal) string {
	return strings.Replace(core.FormatAmount(d), "$", "", 1)
}
