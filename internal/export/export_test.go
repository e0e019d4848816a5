package export

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"payouts/internal/core"
)

func summaries() []core.PropertyMonthSummary {
	return []core.PropertyMonthSummary{{
		ListingName:    "Loft, Old Town",
		InternalName:   "L1",
		Month:          core.NewMonth(2024, 1),
		Currency:       "CNY",
		TotalRevenue:   decimal.RequireFromString("1234.5"),
		OccupiedNights: 10,
		DaysInMonth:    31,
		OccupancyRate:  32.258064,
		BookingCount:   3,
	}}
}

func TestFormatOf(t *testing.T) {
	cases := map[string]Format{"a.csv": FormatCSV, "out/B.XLSX": FormatXLSX, "r.db": FormatSQLite, "r.sqlite": FormatSQLite}
	for path, want := range cases {
		got, err := FormatOf(path)
		require.NoError(t, err, path)
		assert.Equal(t, want, got, path)
	}
	_, err := FormatOf("report.pdf")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, SummarySheet(summaries())))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "Listing,Internal name,Month"))
	assert.Equal(t, `"Loft, Old Town",L1,2024-01,CNY,1234.50,10,31,32.26,3,false`, lines[1])
}

func TestWriteXLSX(t *testing.T) {
	bookings := []core.CanonicalBooking{{
		ID: "a.csv#2", SourceFile: "a.csv", ListingName: "Loft", InternalName: "L1",
		StartDate: core.NewDate(2024, 1, 1), EndDate: core.NewDate(2024, 1, 3),
		GrossEarning: decimal.NewFromInt(300), CleaningFee: decimal.NewFromInt(30),
		TotalNights: 3, ReportMonth: core.NewMonth(2024, 1),
	}}
	files := []core.FileReport{{File: "a.csv", Bookings: 1}, {File: "b.xlsx", Err: errors.New("bad zip")}}

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, SummarySheet(summaries()), BookingSheet(bookings), FileSheet(files)))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Summary", "Bookings", "Files"}, f.GetSheetList())

	rows, err := f.GetRows("Bookings")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "a.csv#2", rows[1][0])
	assert.Equal(t, "270", rows[1][14])

	rows, err = f.GetRows("Files")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "bad zip", rows[2][7])
}

func TestWriteXLSXNoSheets(t *testing.T) {
	assert.Error(t, WriteXLSX(&bytes.Buffer{}))
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "summary.csv")
	require.NoError(t, WriteFile(path, SummarySheet(summaries())))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "L1")

	assert.ErrorIs(t, WriteFile(filepath.Join(dir, "r.db"), SummarySheet(nil)), ErrUnknownFormat)
}
