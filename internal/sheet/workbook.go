// Package sheet writes reconstructed page grids to an XLSX workbook, one
// worksheet per page.
package sheet

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/adverant/nexus/pdf-extractor/internal/reconstruct"
)

// EmptyPagePlaceholder is written to pages that yielded no text.
const EmptyPagePlaceholder = "No content found"

// ContentType is the MIME type of the XLSX output.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const defaultSheet = "Sheet1"

// Workbook accumulates pages and renders them as XLSX.
type Workbook struct {
	file  *excelize.File
	pages int
}

// NewWorkbook creates an empty workbook.
func NewWorkbook() *Workbook {
	return &Workbook{file: excelize.NewFile()}
}

// SheetName returns the worksheet name of a one-based page number.
func SheetName(page int) string {
	return fmt.Sprintf("Page_%d", page)
}

// AddPage writes grid to a new worksheet for the one-based page number.
// Cells are sanitized before writing. An empty grid produces a single
// placeholder row.
func (w *Workbook) AddPage(page int, grid reconstruct.Grid) error {
	name := SheetName(page)

	if w.pages == 0 {
		if err := w.file.SetSheetName(defaultSheet, name); err != nil {
			return fmt.Errorf("rename sheet: %w", err)
		}
	} else if _, err := w.file.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %s: %w", name, err)
	}
	w.pages++

	if grid.IsEmpty() {
		return w.file.SetCellStr(name, "A1", EmptyPagePlaceholder)
	}

	grid = reconstruct.SanitizeGrid(grid).Pad()
	for i, row := range grid {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := w.file.SetSheetRow(name, cell, &values); err != nil {
			return fmt.Errorf("write %s row %d: %w", name, i+1, err)
		}
	}
	return nil
}

// Pages returns the number of worksheets written.
func (w *Workbook) Pages() int { return w.pages }

// Bytes renders the workbook. A workbook without pages gets one empty
// placeholder sheet.
func (w *Workbook) Bytes() ([]byte, error) {
	if w.pages == 0 {
		if err := w.AddPage(1, nil); err != nil {
			return nil, err
		}
	}
	buf, err := w.file.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// Close releases workbook resources.
func (w *Workbook) Close() error {
	return w.file.Close()
}

// OutputFilename derives the download name from the uploaded filename.
func OutputFilename(input string) string {
	base := filepath.Base(input)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." || base == "/" {
		base = "document"
	}
	return base + "_OCR.xlsx"
}

// ReadGrids reads every worksheet of an XLSX back into grids, keyed by
// sheet name in workbook order.
func ReadGrids(data []byte) ([]string, map[string]reconstruct.Grid, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	names := f.GetSheetList()
	grids := make(map[string]reconstruct.Grid, len(names))
	for _, name := range names {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, nil, fmt.Errorf("read %s: %w", name, err)
		}
		grids[name] = reconstruct.Grid(rows)
	}
	return names, grids, nil
}
