package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payouts/internal/core"
	"payouts/internal/schema"
	"payouts/internal/sheets"
	"payouts/internal/sheets/csvfile"
	"payouts/internal/sheets/memory"
)

const header = "Listing,Internal name,Currency,Start date,End date,Nights,Gross earnings,Cleaning fee,Service fee"

// monthCSV builds n valid rows for listing L<i%3> inside the month plus any
// extra raw lines.
func monthCSV(year, month, n int, extra ...string) string {
	var b strings.Builder
	b.WriteString(header + "\n")
	for i := 0; i < n; i++ {
		day := 1 + i*2
		fmt.Fprintf(&b, "Loft %d,L%d,CNY,%04d-%02d-%02d,%04d-%02d-%02d,2,500,50,20\n",
			i%3, i%3, year, month, day, year, month, day+1)
	}
	for _, e := range extra {
		b.WriteString(e + "\n")
	}
	return b.String()
}

func reader(name, content string) sheets.TableReader {
	return csvfile.NewReader(name, strings.NewReader(content))
}

func TestParseBatchTwoMonths(t *testing.T) {
	jan := monthCSV(2024, 1, 10, "Loft 9,,CNY,2024-01-25,2024-01-26,1,100,0,0")
	feb := monthCSV(2024, 2, 8)

	in := NewIngester(IngesterConfig{Workers: 2})
	batch, err := in.ParseBatch(context.Background(), []sheets.TableReader{
		reader("report_2024-01.csv", jan),
		reader("report_2024-02.csv", feb),
	})
	require.NoError(t, err)

	assert.NotEmpty(t, batch.ID)
	assert.Len(t, batch.Bookings, 18)
	assert.Equal(t, []core.Month{core.NewMonth(2024, 1), core.NewMonth(2024, 2)}, batch.Months())
	require.Len(t, batch.Files, 2)
	assert.Equal(t, 1, batch.Files[0].Diagnostics.Dropped[core.DropMissingInternal])
	assert.Empty(t, batch.Skipped())

	// Input order is preserved across the join.
	assert.Equal(t, "report_2024-01.csv#2", batch.Bookings[0].ID)
	assert.Equal(t, "report_2024-02.csv", batch.Bookings[17].SourceFile)

	summaries := core.Aggregate(batch.Bookings, core.AllocateReportMonth)
	months := map[string]int{}
	for _, s := range summaries {
		months[s.Month.String()]++
		assert.LessOrEqual(t, s.OccupancyRate, 100.0)
	}
	assert.Equal(t, 3, months["2024-01"])
	assert.Equal(t, 3, months["2024-02"])
}

func TestParseBatchIsolatesFailures(t *testing.T) {
	in := NewIngester(IngesterConfig{})
	batch, err := in.ParseBatch(context.Background(), []sheets.TableReader{
		memory.Failing("broken.xlsx", errors.New("zip: not a valid zip file")),
		reader("notes.csv", "foo,bar\n1,2\n"),
		reader("export.csv", "Listing,Internal name,Start date\nLoft,L1,06/14/2019\n"),
		reader("report_2024-03.csv", monthCSV(2024, 3, 2)),
	})
	require.NoError(t, err)

	assert.Len(t, batch.Bookings, 2)
	skipped := batch.Skipped()
	require.Len(t, skipped, 3)

	var fe *FileError
	require.True(t, errors.As(skipped[0].Err, &fe))
	assert.Equal(t, StageRead, fe.Stage)
	assert.ErrorIs(t, skipped[0].Err, sheets.ErrUnreadable)
	assert.ErrorIs(t, skipped[1].Err, schema.ErrNoHeaderFound)
	assert.ErrorIs(t, skipped[2].Err, schema.ErrMonthUndetermined)
}

func TestParseBatchMonthResolverAndOverrides(t *testing.T) {
	asked := []string{}
	resolver := MonthResolverFunc(func(_ context.Context, file string, l schema.Layout) (core.Month, bool) {
		asked = append(asked, file)
		return core.NewMonth(2025, 6), true
	})
	in := NewIngester(IngesterConfig{
		Workers:   1,
		Resolver:  resolver,
		Overrides: map[string]core.Month{"REPORT_2024-03.csv": core.NewMonth(2024, 4)},
	})

	batch, err := in.ParseBatch(context.Background(), []sheets.TableReader{
		reader("export.csv", "Listing,Internal name,Start date\nLoft,L1,06/14/2019\n"),
		reader("report_2024-03.csv", monthCSV(2024, 3, 1)),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"export.csv"}, asked)
	require.Len(t, batch.Bookings, 2)
	assert.Equal(t, "2025-06", batch.Bookings[0].ReportMonth.String())
	assert.Equal(t, "2024-04", batch.Bookings[1].ReportMonth.String())
	assert.Equal(t, "override", batch.Files[1].MonthSource)
}

func TestParseBatchDuplicateNames(t *testing.T) {
	in := NewIngester(IngesterConfig{})
	batch, err := in.ParseBatch(context.Background(), []sheets.TableReader{
		reader("report_2024-01.csv", monthCSV(2024, 1, 1)),
		reader("report_2024-01.csv", monthCSV(2024, 1, 1)),
	})
	require.NoError(t, err)
	require.Len(t, batch.Bookings, 2)
	assert.NotEqual(t, batch.Bookings[0].ID, batch.Bookings[1].ID)
	assert.Equal(t, "report_2024-01.csv~2#2", batch.Bookings[1].ID)
}

func TestParseBatchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewIngester(IngesterConfig{}).ParseBatch(ctx, []sheets.TableReader{
		reader("report_2024-01.csv", monthCSV(2024, 1, 1)),
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSessionReplaceAndAppend(t *testing.T) {
	s := NewSession(NewIngester(IngesterConfig{}))
	ctx := context.Background()

	b, err := s.Upload(ctx, []sheets.TableReader{reader("report_2024-01.csv", monthCSV(2024, 1, 3))}, ModeReplace)
	require.NoError(t, err)
	assert.Len(t, b.Bookings, 3)
	first := b.ID

	b, err = s.Upload(ctx, []sheets.TableReader{reader("report_2024-01.csv", monthCSV(2024, 1, 2))}, ModeAppend)
	require.NoError(t, err)
	assert.Len(t, b.Bookings, 5)
	assert.Equal(t, first, b.ID)
	assert.Equal(t, "report_2024-01.csv~2", b.Files[1].File)

	b, err = s.Upload(ctx, []sheets.TableReader{reader("report_2024-02.csv", monthCSV(2024, 2, 1))}, ModeReplace)
	require.NoError(t, err)
	assert.Len(t, b.Bookings, 1)
	assert.Len(t, s.Current().Bookings, 1)

	s.Clear()
	assert.Empty(t, s.Current().Bookings)
}

func TestParseUploadMode(t *testing.T) {
	m, err := ParseUploadMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeReplace, m)
	_, err = ParseUploadMode("merge")
	assert.Error(t, err)
}
