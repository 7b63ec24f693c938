package ingest

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Format is a supported input container.
type Format int

const (
	FormatUnknown Format = iota
	FormatDelimited
	FormatWorkbook
	FormatLegacyWorkbook
)

// String returns the format name used in logs.
func (f Format) String() string {
	switch f {
	case FormatDelimited:
		return "delimited"
	case FormatWorkbook:
		return "workbook"
	case FormatLegacyWorkbook:
		return "legacy_workbook"
	}
	return "unknown"
}

var extensionFormats = map[string]Format{
	".csv":  FormatDelimited,
	".txt":  FormatDelimited,
	".tsv":  FormatDelimited,
	".xlsx": FormatWorkbook,
	".xlsm": FormatWorkbook,
	".xls":  FormatLegacyWorkbook,
}

// DetectFormat resolves the container format from the file extension, falling
// back to content sniffing when the name carries no known extension.
func DetectFormat(filename string, data []byte) (Format, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if f, ok := extensionFormats[ext]; ok {
		return f, nil
	}
	if ext != "" && ext != "." {
		return FormatUnknown, &FormatError{Filename: filename, Reason: "extension " + ext}
	}
	if len(data) == 0 {
		return FormatUnknown, &FormatError{Filename: filename, Reason: "empty input"}
	}

	mt := mimetype.Detect(data)
	switch {
	case mt.Is("application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"):
		return FormatWorkbook, nil
	case mt.Is("application/vnd.ms-excel"), mt.Is("application/x-ole-storage"):
		return FormatLegacyWorkbook, nil
	case mt.Is("text/csv"), mt.Is("text/tab-separated-values"), mt.Is("text/plain"):
		return FormatDelimited, nil
	}
	return FormatUnknown, &FormatError{Filename: filename, Reason: "content type " + mt.String()}
}
