package schema

import (
	"errors"
	"fmt"
	"strings"

	"payouts/internal/core"
	"payouts/internal/sheets"
)

var (
	ErrNoHeaderFound     = errors.New("no header row found")
	ErrMonthUndetermined = errors.New("report month undetermined")
)

// ScanRows is how many leading rows are inspected for the header and for
// embedded dates.
const ScanRows = 10

// HeaderKeywords mark a row as the header when its lowercased text contains
// any of them.
var HeaderKeywords = []string{
	"start", "end", "guest", "nick", "earning", "gross", "check", "listing",
	"confirmation", "nights",
	"开始", "结束", "房源", "内部名称", "昵称", "预订", "晚数", "入住", "退房", "收入",
}

type (
	DetectOptions struct {
		// MonthOverride skips inference when set.
		MonthOverride core.Month
		// Mapping locates the date columns scanned for a month. Nil means
		// DefaultMapping.
		Mapping FieldMapping
	}

	// Layout is what Detect learned about a table.
	Layout struct {
		HeaderRow   int
		Headers     []string
		ReportMonth core.Month
		MonthSource MonthSource
		// DataStart is the index of the first data row. Any title rows sit
		// above the header and are never part of the data.
		DataStart int
		// TitleRows are the non-blank rows above the header.
		TitleRows []string
	}
)

// HasMonth reports whether a report month is known.
func (l Layout) HasMonth() bool {
	return !l.ReportMonth.IsZero()
}

// WithMonth returns a copy of l carrying a month supplied by the caller.
func (l Layout) WithMonth(m core.Month) Layout {
	l.ReportMonth = m
	l.MonthSource = MonthSourceOverride
	return l
}

// Detect finds the header row and the report month of t.
//
// When no header is found it returns ErrNoHeaderFound. When the header is
// found but no month can be inferred it returns the partial layout together
// with ErrMonthUndetermined so the caller can supply one with WithMonth.
func Detect(t sheets.Table, opts DetectOptions) (Layout, error) {
	hdr := findHeader(t.Rows)
	if hdr < 0 {
		return Layout{}, fmt.Errorf("%s: %w", t.Name, ErrNoHeaderFound)
	}

	l := Layout{
		HeaderRow: hdr,
		Headers:   t.Rows[hdr].Texts(),
		DataStart: hdr + 1,
	}
	for _, r := range t.Rows[:hdr] {
		if !r.IsBlank() {
			l.TitleRows = append(l.TitleRows, r.Joined())
		}
	}

	m, src := inferMonth(t, l, opts)
	l.ReportMonth, l.MonthSource = m, src
	if m.IsZero() {
		return l, fmt.Errorf("%s: %w", t.Name, ErrMonthUndetermined)
	}
	return l, nil
}

func findHeader(rows []sheets.Row) int {
	n := min(len(rows), ScanRows)
	for i := 0; i < n; i++ {
		// A single-cell row is a title, never a header.
		if filled(rows[i]) < 2 {
			continue
		}
		text := strings.ToLower(rows[i].Joined())
		for _, kw := range HeaderKeywords {
			if strings.Contains(text, kw) {
				return i
			}
		}
	}
	return -1
}

func filled(r sheets.Row) int {
	n := 0
	for _, c := range r.Texts() {
		if c != "" {
			n++
		}
	}
	return n
}

func inferMonth(t sheets.Table, l Layout, opts DetectOptions) (core.Month, MonthSource) {
	if !opts.MonthOverride.IsZero() && opts.MonthOverride.Validate() == nil {
		return opts.MonthOverride, MonthSourceOverride
	}
	if m, ok := MonthFromFilename(t.Name); ok {
		return m, MonthSourceFilename
	}
	for _, title := range l.TitleRows {
		if !IsTitle(title) {
			continue
		}
		if m, ok := MonthFromText(title); ok {
			return m, MonthSourceTitle
		}
	}

	end := min(len(t.Rows), l.DataStart+ScanRows)
	rows := t.Rows[l.DataStart:end]
	if m, ok := monthFromDateColumns(rows, l.Headers, opts.Mapping); ok {
		return m, MonthSourceContent
	}
	var texts []string
	for _, r := range rows {
		texts = append(texts, r.Texts()...)
	}
	if m, ok := monthFromContent(texts); ok {
		return m, MonthSourceContent
	}
	return core.Month{}, MonthSourceUnknown
}

// monthFromDateColumns parses the start and end date cells of rows the way
// the normalizer will, so US dates and spreadsheet serials count too.
func monthFromDateColumns(rows []sheets.Row, headers []string, mapping FieldMapping) (core.Month, bool) {
	if mapping == nil {
		mapping = DefaultMapping()
	}
	cols := Resolve(headers, mapping)
	for _, r := range rows {
		for _, f := range []Field{StartDate, EndDate} {
			if !cols.Has(f) {
				continue
			}
			m := core.ParseDate(r.Cell(cols.Index(f))).MonthOf()
			if !m.IsZero() && m.Year >= MinYear && m.Year <= MaxYear {
				return m, true
			}
		}
	}
	return core.Month{}, false
}
