package core

import (
	"fmt"
	"strconv"
	"strings"
)

// Filterable is implemented by records the filter engine can select from.
type Filterable interface {
	MonthKey() string
	SearchKey() string
	SearchFields() []string
}

// Criteria holds the user's month and keyword predicates. Empty values match
// everything.
type Criteria struct {
	Month   string
	Keyword string
	// AllFields matches the keyword against every field instead of the
	// internal name only.
	AllFields bool
}

// ParseCriteria trims the inputs and normalizes "YYYY/MM" to "YYYY-MM".
func ParseCriteria(month, keyword string, allFields bool) Criteria {
	month = strings.TrimSpace(month)
	month = strings.ReplaceAll(month, "/", "-")
	return Criteria{
		Month:     month,
		Keyword:   strings.TrimSpace(keyword),
		AllFields: allFields,
	}
}

// ParseMonthFilter checks a month predicate and returns it in the form month
// keys use: a bare year ("2024") selects the whole year, a month ("2024-2",
// "2024/02") is zero-padded.
func ParseMonthFilter(s string) (string, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), "/", "-")
	if len(s) == 4 {
		if y, err := strconv.Atoi(s); err == nil && y > 0 {
			return s, nil
		}
		return "", fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	m, err := ParseMonth(s)
	if err != nil {
		return "", err
	}
	return m.String(), nil
}

// IsEmpty reports whether the criteria select everything.
func (c Criteria) IsEmpty() bool {
	return c.Month == "" && c.Keyword == ""
}

// Match applies both predicates to one record.
func (c Criteria) Match(r Filterable) bool {
	if c.Month != "" && !strings.Contains(r.MonthKey(), c.Month) {
		return false
	}
	if c.Keyword == "" {
		return true
	}
	kw := strings.ToLower(c.Keyword)
	if strings.Contains(strings.ToLower(r.SearchKey()), kw) {
		return true
	}
	if !c.AllFields {
		return false
	}
	for _, f := range r.SearchFields() {
		if strings.Contains(strings.ToLower(f), kw) {
			return true
		}
	}
	return false
}

// Filter returns the records matching c in their original order. The input is
// never modified.
func Filter[T Filterable](records []T, c Criteria) []T {
	out := make([]T, 0, len(records))
	for _, r := range records {
		if c.Match(r) {
			out = append(out, r)
		}
	}
	return out
}
