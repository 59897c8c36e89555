package report

import (
	"fmt"
	"io"

	"sitebook/internal/core"

	"github.com/go-pdf/fpdf"
)

var (
	colorAccent  = [3]int{0x00, 0x33, 0x66}
	colorSummary = [3]int{0xF0, 0xF4, 0xF8}
	colorZebra   = [3]int{0xF9, 0xF9, 0xF9}
	colorWhite   = [3]int{0xFF, 0xFF, 0xFF}
	colorGrid    = [3]int{0xD3, 0xD3, 0xD3}
	colorRed     = [3]int{0xCC, 0x00, 0x00}
	colorBlack   = [3]int{0, 0, 0}
)

const (
	marginSide   = 28.35 // 1cm in points
	marginTopBot = 42.52 // 1.5cm
	cellPad      = 3.0
	fontFamily   = "report"
)

var (
	detailHeaders = []string{"日期", "星期", "項目內容", "單位", "數量", "單價", "總價", "地點", "經手", "憑證", "發票", "備註"}
	detailWidths  = []float64{55, 25, 85, 25, 25, 40, 50, 45, 35, 30, 50, 65}
	detailAligns  = []string{"L", "L", "L", "L", "R", "R", "R", "L", "L", "L", "L", "L"}
)

type pdfDoc struct {
	pdf    *fpdf.Fpdf
	family string
	style  string
	size   float64
	tr     func(string) string
}

// RenderPDF writes the A4 report for in. fallback reports whether the
// embedded font could not be used and Helvetica was substituted.
func RenderPDF(w io.Writer, in Input) (fallback bool, err error) {
	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetMargins(marginSide, marginTopBot, marginSide)
	pdf.SetAutoPageBreak(false, marginTopBot)
	pdf.SetTitle(in.title(), true)

	d := &pdfDoc{pdf: pdf, family: "Helvetica", tr: asciiOnly}
	if len(in.Font) > 0 {
		if err := loadFont(pdf, in.Font); err == nil {
			d.family = fontFamily
			d.tr = func(s string) string { return s }
		}
	}
	fallback = d.family != fontFamily

	pdf.AddPage()
	d.header(in)
	ov := Summarize(in.Records, in.Categories)
	d.summary(ov)
	d.breakdown(ov)
	d.details(Sections(in.Records, in.Categories))

	if err := pdf.Output(w); err != nil {
		return fallback, fmt.Errorf("render pdf: %w", err)
	}
	return fallback, nil
}

// loadFont registers the TTF for regular and bold. A broken font file can
// make the parser panic, or be skipped with only a printed warning, so both
// styles are selected once to confirm they were registered.
func loadFont(pdf *fpdf.Fpdf, font []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("load font: %v", r)
		}
		if err != nil {
			pdf.ClearError()
		}
	}()
	pdf.AddUTF8FontFromBytes(fontFamily, "", font)
	pdf.AddUTF8FontFromBytes(fontFamily, "B", font)
	if err := pdf.Error(); err != nil {
		return err
	}
	for _, style := range []string{"", "B"} {
		pdf.SetFont(fontFamily, style, 10)
		if err := pdf.Error(); err != nil {
			return fmt.Errorf("load font: %w", err)
		}
	}
	return nil
}

// asciiOnly keeps the core-font fallback from emitting bytes it cannot encode.
func asciiOnly(s string) string {
	out := []rune(s)
	for i, r := range out {
		if r >= 0x80 {
			out[i] = '?'
		}
	}
	return string(out)
}

func (d *pdfDoc) font(style string, size float64) {
	d.style, d.size = style, size
	d.pdf.SetFont(d.family, style, size)
}

func (d *pdfDoc) text(c [3]int) { d.pdf.SetTextColor(c[0], c[1], c[2]) }
func (d *pdfDoc) fill(c [3]int) { d.pdf.SetFillColor(c[0], c[1], c[2]) }
func (d *pdfDoc) draw(c [3]int) { d.pdf.SetDrawColor(c[0], c[1], c[2]) }

func (d *pdfDoc) contentWidth() float64 {
	w, _ := d.pdf.GetPageSize()
	return w - 2*marginSide
}

// ensure starts a new page unless h points still fit on this one.
func (d *pdfDoc) ensure(h float64) bool {
	_, pageH := d.pdf.GetPageSize()
	if d.pdf.GetY()+h <= pageH-marginTopBot {
		return false
	}
	d.pdf.AddPage()
	return true
}

func (d *pdfDoc) header(in Input) {
	p := d.pdf
	d.font("B", 24)
	d.text(colorAccent)
	p.CellFormat(0, 32, d.tr(in.title()), "", 1, "C", false, 0, "")

	d.font("", 14)
	d.text(colorBlack)
	p.CellFormat(0, 18, d.tr(in.Selection.PeriodLabel()), "", 1, "C", false, 0, "")
	p.Ln(20)

	d.font("", 10)
	p.CellFormat(300, 14, d.tr("專案名稱："+in.Project), "", 0, "L", false, 0, "")
	p.CellFormat(0, 14, d.tr("列印時間："+in.Printed.Format("2006-01-02 15:04")), "", 1, "R", false, 0, "")

	y := p.GetY() + 5
	d.draw(colorAccent)
	p.SetLineWidth(2)
	p.Line(marginSide, y, marginSide+d.contentWidth(), y)
	p.SetLineWidth(0.5)
	p.SetY(y + 15)
}

func (d *pdfDoc) heading(s string, size float64, c [3]int, before, after float64) {
	d.ensure(before + size + after + 40)
	d.pdf.Ln(before)
	d.font("B", size)
	d.text(c)
	d.pdf.CellFormat(0, size+4, d.tr(s), "", 1, "L", false, 0, "")
	d.pdf.Ln(after)
}

func (d *pdfDoc) summary(ov Overview) {
	d.heading("一、財務總覽", 16, colorAccent, 15, 10)
	widths := []float64{100, 140, 140, 140}
	d.tableHeader([]string{"項目", "總入帳", "總支出", "目前結餘"}, widths, 11, 16, "C")

	balanceColor := colorAccent
	if ov.Balance.IsNegative() {
		balanceColor = colorRed
	}
	d.font("", 11)
	d.row(rowSpec{
		cells:  []string{"金額", core.FormatAmount(ov.Income), core.FormatAmount(ov.Expense), core.FormatAmount(ov.Balance)},
		widths: widths,
		aligns: []string{"L", "R", "R", "R"},
		bg:     colorSummary,
		lineH:  16,
		colors: map[int][3]int{3: balanceColor},
		bold:   map[int]bool{3: true},
	})
	d.pdf.Ln(20)
}

func (d *pdfDoc) breakdown(ov Overview) {
	d.heading("二、支出結構分析", 16, colorAccent, 15, 10)
	if len(ov.Expenses) > 0 {
		widths := []float64{200, 120, 80}
		d.tableHeader([]string{"支出大項", "金額", "佔比"}, widths, 10, 14, "L")
		for i, ca := range ov.Expenses {
			d.font("", 10)
			d.row(rowSpec{
				cells:  []string{ca.Display, core.FormatAmount(ca.Amount), fmt.Sprintf("%.1f%%", ca.Percent)},
				widths: widths,
				aligns: []string{"L", "R", "R"},
				bg:     zebra(i),
				lineH:  14,
			})
		}
	}
	d.pdf.Ln(20)
}

func (d *pdfDoc) details(sections []Section) {
	d.heading("三、各分類詳細支出表", 16, colorAccent, 15, 10)
	for _, s := range sections {
		d.heading(fmt.Sprintf("%s (小計: %s)", s.Category.Display, core.FormatAmount(s.Category.Amount)), 12, colorBlack, 12, 6)
		d.tableHeader(detailHeaders, detailWidths, 10, 12, "L")
		for i, r := range s.Records {
			d.font("", 10)
			spec := rowSpec{
				cells:  detailCells(r),
				widths: detailWidths,
				aligns: detailAligns,
				bg:     zebra(i),
				lineH:  12,
			}
			if d.ensure(d.rowHeight(spec)) {
				d.tableHeader(detailHeaders, detailWidths, 10, 12, "L")
				d.font("", 10)
			}
			d.row(spec)
		}
		d.pdf.Ln(20)
	}
}

func detailCells(r core.Record) []string {
	day := r.Date.WeekdayLabel()
	if name, ok := r.Date.Holiday(); ok {
		day += " ★" + name
	}
	handler := []rune(r.Handler)
	if len(handler) > 4 {
		handler = handler[:4]
	}
	return []string{
		r.DateString(),
		day,
		r.Item,
		r.Unit,
		core.FormatNumber(r.Quantity),
		plainAmount(r.Price),
		plainAmount(r.Total),
		r.Location,
		string(handler),
		string(r.Voucher),
		r.InvoiceNo,
		r.Note,
	}
}

func zebra(i int) [3]int {
	if i%2 == 0 {
		return colorZebra
	}
	return colorWhite
}

type rowSpec struct {
	cells  []string
	widths []float64
	aligns []string
	bg     [3]int
	fg     [3]int
	lineH  float64
	colors map[int][3]int
	bold   map[int]bool
}

func (d *pdfDoc) tableHeader(cells []string, widths []float64, size, lineH float64, align string) {
	aligns := make([]string, len(cells))
	for i := range aligns {
		aligns[i] = align
	}
	d.font("B", size)
	spec := rowSpec{cells: cells, widths: widths, aligns: aligns, bg: colorAccent, fg: colorWhite, lineH: lineH}
	d.ensure(d.rowHeight(spec) * 2)
	d.row(spec)
}

// wrap splits s into lines no wider than w in the current font. CJK text has
// no spaces to break on, so this breaks between any two runes.
func (d *pdfDoc) wrap(s string, w float64) []string {
	if s == "" {
		return []string{""}
	}
	var lines []string
	var cur []rune
	width := 0.0
	for _, r := range s {
		rw := d.pdf.GetStringWidth(d.tr(string(r)))
		if len(cur) > 0 && width+rw > w {
			lines = append(lines, string(cur))
			cur, width = cur[:0:0], 0
		}
		cur = append(cur, r)
		width += rw
	}
	return append(lines, string(cur))
}

func (d *pdfDoc) rowHeight(spec rowSpec) float64 {
	maxLines := 1
	for i, c := range spec.cells {
		if n := len(d.wrap(c, spec.widths[i]-2*cellPad)); n > maxLines {
			maxLines = n
		}
	}
	return float64(maxLines)*spec.lineH + 2*cellPad
}

func (d *pdfDoc) row(spec rowSpec) {
	p := d.pdf
	style, size := d.style, d.size
	h := d.rowHeight(spec)
	x, y := marginSide, p.GetY()

	d.draw(colorGrid)
	p.SetLineWidth(0.5)
	for i, c := range spec.cells {
		w := spec.widths[i]
		d.fill(spec.bg)
		p.Rect(x, y, w, h, "FD")

		fg := spec.fg
		if col, ok := spec.colors[i]; ok {
			fg = col
		}
		d.text(fg)
		if spec.bold[i] {
			d.font("B", size)
		}
		for j, line := range d.wrap(c, w-2*cellPad) {
			p.SetXY(x+cellPad, y+cellPad+float64(j)*spec.lineH)
			p.CellFormat(w-2*cellPad, spec.lineH, d.tr(line), "", 0, spec.aligns[i], false, 0, "")
		}
		if spec.bold[i] {
			d.font(style, size)
		}
		x += w
	}
	d.text(colorBlack)
	p.SetXY(marginSide, y+h)
}
