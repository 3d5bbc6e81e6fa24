package services

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

const reportSheet = "Candidates"

var reportHeaders = []string{
	"File",
	"Status",
	"First Name",
	"Last Name",
	"Email",
	"Phone",
	"Current Title",
	"Current Employer",
	"Tags",
	"Source",
	"Adapter",
	"Confidence",
	"Error",
}

// WriteBatchReport writes one row per batch result as an xlsx workbook.
func WriteBatchReport(w io.Writer, results []BatchResult) error {
	f := excelize.NewFile()
	defer f.Close()

	if index, _ := f.GetSheetIndex(reportSheet); index == -1 {
		if _, err := f.NewSheet(reportSheet); err != nil {
			return fmt.Errorf("failed to create sheet: %w", err)
		}
	}
	_ = f.DeleteSheet("Sheet1")
	activeIndex, _ := f.GetSheetIndex(reportSheet)
	f.SetActiveSheet(activeIndex)

	for i, h := range reportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(reportSheet, cell, h)
	}

	for i, r := range results {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(reportSheet, cell, v)
		}

		if r.Job.Doc != nil {
			write(1, r.Job.Doc.FileName)
		}
		write(2, batchStatus(r))
		if r.Result != nil && r.Result.Candidate != nil {
			c := r.Result.Candidate
			write(3, c.FirstName)
			write(4, c.LastName)
			write(5, c.Email)
			write(6, c.Phone)
			write(7, c.CurrentTitle)
			write(8, c.CurrentEmployer)
			write(9, strings.Join(c.Tags, ", "))
			write(10, string(c.Source))
			write(11, r.Result.Adapter)
			write(12, c.Confidence)
		}
		if r.Err != nil {
			write(13, r.Err.Error())
		}
	}

	_ = f.SetColWidth(reportSheet, "A", "A", 28)
	_ = f.SetColWidth(reportSheet, "C", "H", 22)
	_ = f.SetColWidth(reportSheet, "I", "I", 36)
	_ = f.SetColWidth(reportSheet, "M", "M", 48)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func batchStatus(r BatchResult) string {
	if r.Err == nil {
		return "ok"
	}
	if code := CodeOf(r.Err); code != "" {
		return string(code)
	}
	return "error"
}
