package excel

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"learnerdash/domain/markbook"
)

// DefaultSheet is the sheet name excelize gives a new workbook
const DefaultSheet = "Sheet1"

// WriteWorkbook renders a RawTable into .xlsx bytes on Sheet1. Number cells
// are written as numbers so a round trip through ReadBytes keeps their kind.
func WriteWorkbook(table *markbook.RawTable) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	for i, row := range table.Rows {
		values := make([]interface{}, len(row))
		for j, c := range row {
			switch c.Kind {
			case markbook.CellNumber:
				values[j] = c.Number
			case markbook.CellText:
				values[j] = c.Text
			default:
				values[j] = nil
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, fmt.Errorf("cell name for row %d: %w", i+1, err)
		}
		if err := f.SetSheetRow(DefaultSheet, cell, &values); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}
