package schema

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"payouts/internal/core"
)

// Accepted report years.
const (
	MinYear = 2020
	MaxYear = 2030
)

// MonthSource tells where a report month came from.
type MonthSource string

const (
	MonthSourceOverride MonthSource = "override"
	MonthSourceFilename MonthSource = "filename"
	MonthSourceTitle    MonthSource = "title"
	MonthSourceContent  MonthSource = "content"
	MonthSourceUnknown  MonthSource = ""
)

var (
	reYearMonthCJK = regexp.MustCompile(`(\d{4})\s*年\s*(\d{1,2})\s*月`)
	reYearMonth    = regexp.MustCompile(`(?:^|\D)(\d{4})[-_/.](\d{1,2})(?:\D|$)`)
	reMonthYear    = regexp.MustCompile(`(?:^|\D)(\d{1,2})[-_/](\d{4})(?:\D|$)`)
	// Only ISO-like dates count when scanning content.
	reContentDate = regexp.MustCompile(`(?:^|\D)(\d{4})[-/](\d{1,2})(?:\D|$)`)

	reportPhrases = []string{"的月度报告", "月度报告", "报告", "report", "statement"}
)

// monthCandidate validates a year/month pair.
func monthCandidate(ys, ms string) (core.Month, bool) {
	y, err := strconv.Atoi(ys)
	if err != nil || y < MinYear || y > MaxYear {
		return core.Month{}, false
	}
	m, err := strconv.Atoi(ms)
	if err != nil || m < 1 || m > 12 {
		return core.Month{}, false
	}
	return core.NewMonth(y, m), true
}

func firstMatch(re *regexp.Regexp, s string, yearFirst bool) (core.Month, bool) {
	for _, sm := range re.FindAllStringSubmatch(s, -1) {
		ys, ms := sm[1], sm[2]
		if !yearFirst {
			ys, ms = sm[2], sm[1]
		}
		if m, ok := monthCandidate(ys, ms); ok {
			return m, true
		}
	}
	return core.Month{}, false
}

// MonthFromText finds the first valid YYYY年MM月, YYYY-MM (with -, _, / or
// . as separator) or MM-YYYY month in s.
func MonthFromText(s string) (core.Month, bool) {
	if m, ok := firstMatch(reYearMonthCJK, s, true); ok {
		return m, true
	}
	if m, ok := firstMatch(reYearMonth, s, true); ok {
		return m, true
	}
	return firstMatch(reMonthYear, s, false)
}

// MonthFromFilename looks at the base name of a path only.
func MonthFromFilename(name string) (core.Month, bool) {
	if name == "" {
		return core.Month{}, false
	}
	base := filepath.Base(name)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return MonthFromText(base)
}

// IsTitle reports whether a row above the header reads like a report title.
func IsTitle(text string) bool {
	lower := strings.ToLower(text)
	if strings.Contains(lower, "从") && strings.Contains(lower, "的月度报告") {
		return true
	}
	for _, p := range reportPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return reYearMonthCJK.MatchString(text)
}

func monthFromContent(texts []string) (core.Month, bool) {
	for _, t := range texts {
		if m, ok := firstMatch(reContentDate, t, true); ok {
			return m, true
		}
	}
	return core.Month{}, false
}
