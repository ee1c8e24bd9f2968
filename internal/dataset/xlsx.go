package dataset

import (
	"fmt"

	"github.com/KaramelBytes/recipetrends/internal/recipe"
	"github.com/xuri/excelize/v2"
)

// loadXLSX reads the first sheet (or opt.Sheet). The first row is the header.
func loadXLSX(path string, opt LoadOptions) ([]recipe.Record, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheet := opt.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, &recipe.InputError{Reason: "workbook has no sheets"}
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, &recipe.InputError{Field: "sheet", Reason: fmt.Sprintf("%q is empty", sheet)}
	}
	lines := make([]int, len(rows)-1)
	for i := range lines {
		lines[i] = i + 2
	}
	return fromRows(rows[0], rows[1:], lines, opt)
}
