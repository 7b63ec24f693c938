package coerce

import (
	"math"
	"strconv"
	"strings"
	"time"

	"sales-forecast-lab/internal/domain"
)

// Spreadsheet serial day 0. Serial 60 is the phantom 1900-02-29, which this
// epoch absorbs for every date after it.
var serialEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

const (
	minSerial = 1
	maxSerial = 2958465 // 9999-12-31
)

// Layouts tried in order after "/" and "." separators become "-".
var dateLayouts = []string{
	"2006-01-02",
	"2006-1-2",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"01-02-2006",
	"1-2-2006",
	"20060102",
	"2006년 1월 2일",
}

// Dates coerces a whole column to calendar dates; nil marks a missing date.
//
// Structured times pass through. A column whose non-null values are all
// numeric is read as spreadsheet serial days. Otherwise values are parsed as
// text; when that yields no date at all, or every parsed date falls in the
// Unix epoch year (integers misread as epoch offsets), values that parse as
// numbers are re-read as serial days. A value keeps its text date when the
// serial reading fails.
func Dates(values []domain.Value) []*time.Time {
	out := make([]*time.Time, len(values))

	allNumeric, anyValue := true, false
	for _, v := range values {
		if v.IsNull() || v.Kind == domain.KindTime {
			continue
		}
		anyValue = true
		if v.Kind != domain.KindNumber {
			allNumeric = false
		}
	}

	if anyValue && allNumeric {
		for i, v := range values {
			out[i] = numericDate(v)
		}
		return out
	}

	years := make(map[int]bool)
	valid := 0
	for i, v := range values {
		switch {
		case v.Kind == domain.KindTime:
			t := domain.Day(v.Time)
			out[i] = &t
		case v.IsNull():
		default:
			out[i] = parseText(v.Text())
		}
		if out[i] != nil {
			valid++
			years[out[i].Year()] = true
		}
	}

	if valid == 0 || epochMisread(years) {
		for i, v := range values {
			if v.Kind == domain.KindTime {
				continue
			}
			if t := serialFromText(v); t != nil {
				out[i] = t
			}
		}
	}
	return out
}

func epochMisread(years map[int]bool) bool {
	return len(years) == 1 && years[1970]
}

func parseText(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	normalized := normalizeSeparators(s)
	for _, layout := range dateLayouts {
		layoutInput := normalized
		if strings.ContainsRune(layout, '년') || layout == time.RFC3339 {
			layoutInput = s
		}
		if t, err := time.Parse(layout, layoutInput); err == nil {
			d := domain.Day(t)
			return &d
		}
	}
	return nil
}

// normalizeSeparators rewrites "2024/1/5", "2024.01.05" and "2024. 1. 5." as
// dash-separated dates.
func normalizeSeparators(s string) string {
	parts := strings.Split(strings.NewReplacer("/", "-", ".", "-").Replace(s), "-")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return strings.TrimSuffix(strings.Join(parts, "-"), "-")
}

// numericDate reads a number as a serial day. Eight-digit integers outside
// the serial range are tried as YYYYMMDD.
func numericDate(v domain.Value) *time.Time {
	if v.Kind != domain.KindNumber {
		return nil
	}
	if t := serial(v.Num); t != nil {
		return t
	}
	if v.Num == math.Trunc(v.Num) && v.Num >= 10000101 && v.Num <= 99991231 {
		if t, err := time.Parse("20060102", strconv.FormatInt(int64(v.Num), 10)); err == nil {
			return &t
		}
	}
	return nil
}

func serialFromText(v domain.Value) *time.Time {
	switch v.Kind {
	case domain.KindNumber:
		return serial(v.Num)
	case domain.KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil {
			return nil
		}
		return serial(f)
	}
	return nil
}

func serial(days float64) *time.Time {
	if math.IsNaN(days) || days < minSerial || days > maxSerial {
		return nil
	}
	t := serialEpoch.AddDate(0, 0, int(math.Floor(days)))
	return &t
}
