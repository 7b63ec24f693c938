package ingest

import (
	"errors"

	"sales-forecast-lab/internal/domain"
)

// ReadFile parses one uploaded file into a raw table.
// Returns *FormatError or *DecodeError when the file cannot be used.
func ReadFile(filename string, data []byte) (*domain.RawTable, error) {
	format, err := DetectFormat(filename, data)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatDelimited:
		return readDelimited(filename, data)
	case FormatWorkbook:
		return readWorkbook(filename, data)
	case FormatLegacyWorkbook:
		return nil, &DecodeError{Filename: filename, Err: errors.New("legacy .xls workbooks are not supported, save as .xlsx")}
	}
	return nil, &FormatError{Filename: filename, Reason: format.String()}
}
