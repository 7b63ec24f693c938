package domain

import (
	"strconv"
	"strings"
	"time"
)

// ValueKind identifies which field of a Value is populated.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindString
	KindNumber
	KindTime
)

// Value is one untyped cell of a raw table.
type Value struct {
	Kind ValueKind
	Str  string
	Num  float64
	Time time.Time
}

// Null returns an empty cell.
func Null() Value { return Value{Kind: KindNull} }

// String returns a text cell.
func String(s string) Value { return Value{Kind: KindString, Str: s} }

// Number returns a numeric cell.
func Number(f float64) Value { return Value{Kind: KindNumber, Num: f} }

// Time returns an already structured date cell.
func Time(t time.Time) Value { return Value{Kind: KindTime, Time: t} }

// IsNull reports whether the cell is empty. Blank strings count as empty.
func (v Value) IsNull() bool {
	switch v.Kind {
	case KindNull:
		return true
	case KindString:
		return strings.TrimSpace(v.Str) == ""
	}
	return false
}

// Text renders the cell the way it would appear in a delimited file.
func (v Value) Text() string {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindTime:
		return v.Time.Format("2006-01-02")
	}
	return ""
}

// Equal compares kind and content.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindString:
		return v.Str == o.Str
	case KindNumber:
		return v.Num == o.Num
	case KindTime:
		return v.Time.Equal(o.Time)
	}
	return true
}

// Interface converts the cell back to a JSON-friendly scalar.
func (v Value) Interface() any {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindNumber:
		return v.Num
	case KindTime:
		return v.Time.Format("2006-01-02")
	}
	return nil
}
