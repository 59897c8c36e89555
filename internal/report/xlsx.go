package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const (
	SheetDetail  = "明細"
	SheetSummary = "總覽"
)

// RenderXLSX writes a workbook with the summary on one sheet and every
// record on another, newest first per category like the PDF.
func RenderXLSX(w io.Writer, in Input) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetDetail); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	head, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"003366"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	if err := writeSummarySheet(f, in, head); err != nil {
		return err
	}
	if err := writeDetailSheet(f, in, head); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func writeSummarySheet(f *excelize.File, in Input, head int) error {
	ov := Summarize(in.Records, in.Categories)
	rows := [][]any{
		{in.title()},
		{"專案名稱", in.Project, "期間", in.Selection.PeriodLabel()},
		{},
		{"總入帳", "總支出", "目前結餘"},
		{ov.Income.InexactFloat64(), ov.Expense.InexactFloat64(), ov.Balance.InexactFloat64()},
		{},
		{"支出大項", "金額", "佔比"},
	}
	for _, ca := range ov.Expenses {
		rows = append(rows, []any{ca.Display, ca.Amount.InexactFloat64(), fmt.Sprintf("%.1f%%", ca.Percent)})
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(SheetSummary, cell, &row); err != nil {
			return fmt.Errorf("summary row %d: %w", i+1, err)
		}
	}
	for _, r := range [][2]string{{"A4", "C4"}, {"A7", "C7"}} {
		if err := f.SetCellStyle(SheetSummary, r[0], r[1], head); err != nil {
			return fmt.Errorf("summary style: %w", err)
		}
	}
	return f.SetColWidth(SheetSummary, "A", "D", 18)
}

func writeDetailSheet(f *excelize.File, in Input, head int) error {
	header := []any{"分類", "日期", "星期"}
	for _, h := range detailHeaders[2:] {
		header = append(header, h)
	}
	if err := f.SetSheetRow(SheetDetail, "A1", &header); err != nil {
		return fmt.Errorf("detail header: %w", err)
	}
	last, _ := excelize.CoordinatesToCellName(len(header), 1)
	if err := f.SetCellStyle(SheetDetail, "A1", last, head); err != nil {
		return fmt.Errorf("detail style: %w", err)
	}

	n := 2
	for _, s := range Sections(in.Records, in.Categories) {
		for _, r := range s.Records {
			cells := detailCells(r)
			row := []any{
				s.Category.Display,
				cells[0],
				cells[1],
				r.Item,
				r.Unit,
				r.Quantity.InexactFloat64(),
				r.Price.InexactFloat64(),
				r.Total.InexactFloat64(),
				r.Location,
				r.Handler,
				string(r.Voucher),
				r.InvoiceNo,
				r.Note,
			}
			cell, _ := excelize.CoordinatesToCellName(1, n)
			if err := f.SetSheetRow(SheetDetail, cell, &row); err != nil {
				return fmt.Errorf("detail row %d: %w", n, err)
			}
			n++
		}
	}
	if err := f.SetColWidth(SheetDetail, "A", "C", 12); err != nil {
		return err
	}
	return f.SetColWidth(SheetDetail, "D", "M", 16)
}
