package ingest

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"

	"sales-forecast-lab/internal/domain"
)

// readWorkbook loads the first sheet that has any rows. Raw cell values are
// requested so date cells keep their serial-day numbers.
func readWorkbook(filename string, data []byte) (*domain.RawTable, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Filename: filename, Err: fmt.Errorf("open workbook: %w", err)}
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, &DecodeError{Filename: filename, Err: fmt.Errorf("read sheet %s: %w", sheet, err)}
		}
		if blankSheet(rows) {
			continue
		}
		table, err := buildTable(filename, rows)
		if err != nil {
			return nil, &DecodeError{Filename: filename, Err: err}
		}
		return table, nil
	}
	return nil, &DecodeError{Filename: filename, Err: errors.New("workbook has no data")}
}

func blankSheet(rows [][]string) bool {
	for _, r := range rows {
		if !blank(r) {
			return false
		}
	}
	return true
}
