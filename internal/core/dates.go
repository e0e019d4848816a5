package core

import (
	"math"
	"strings"
	"time"
)

// Spreadsheet serial dates count days from 1899-12-30; 25569 is 1970-01-01.
const serialEpochOffset = 25569

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006-1-2",
	"2006/1/2",
	"2006.01.02",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"1/2/06",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006/01/02 15:04:05",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2006年1月2日",
}

// ParseDate converts a cell into a calendar date. It accepts spreadsheet
// serial numbers, native time values and a set of ISO-like and US layouts.
// Anything else yields the zero Date, meaning absent.
func ParseDate(v any) Date {
	switch x := v.(type) {
	case nil:
		return Date{}
	case time.Time:
		if x.IsZero() {
			return Date{}
		}
		return DateOf(x.UTC())
	case Date:
		return x
	case float64:
		return fromSerial(x)
	case int:
		return fromSerial(float64(x))
	case int64:
		return fromSerial(float64(x))
	case string:
		return parseDateString(x)
	default:
		return Date{}
	}
}

func fromSerial(serial float64) Date {
	if serial <= 0 || math.IsNaN(serial) || math.IsInf(serial, 0) {
		return Date{}
	}
	secs := int64(math.Round((serial - serialEpochOffset) * 86400))
	return DateOf(time.Unix(secs, 0).UTC())
}

func parseDateString(s string) Date {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t)
		}
	}
	// Some exports store serials as text.
	if isSerialText(s) {
		return fromSerial(ParseAmount(s).InexactFloat64())
	}
	return Date{}
}

func isSerialText(s string) bool {
	dot := false
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r == '.' && !dot && i > 0:
			dot = true
		default:
			return false
		}
	}
	return true
}
