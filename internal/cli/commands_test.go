package cli

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"payouts/internal/amqp"
	"payouts/internal/config"
	"payouts/internal/log"
	"payouts/internal/sheets"
	"payouts/internal/sheets/csvfile"
	"payouts/internal/sheets/memory"
	"payouts/internal/storage"
)

var files = map[string]string{
	"report_2024-01.csv": "从2024-01-01到2024-01-31的月度报告\n" +
		"房源名称,内部名称,货币,入住日期,退房日期,晚数,总收入,清洁费,服务费\n" +
		"Loft,L1,CNY,2024-01-01,2024-01-04,3,900,60,30\n" +
		"Villa,V1,CNY,2024-01-10,2024-01-11,1,500,0,15\n" +
		"Villa,,CNY,2024-01-12,2024-01-13,1,500,0,15\n",
	"report_2024-02.csv": "Listing,Internal name,Currency,Start date,End date,Nights,Gross earnings\n" +
		"Loft,L1,CNY,2024-02-03,2024-02-04,2,300\n",
	"export.csv": "Listing,Internal name,Start date,End date,Gross earnings\n" +
		"Loft,L1,06/14/2019,06/15/2019,200\n",
}

type fakeNotifier struct {
	sent   []*amqp.BatchReadyMessage
	closed bool
}

func (f *fakeNotifier) PublishBatchReady(_ context.Context, m *amqp.BatchReadyMessage) error {
	f.sent = append(f.sent, m)
	return nil
}

func (f *fakeNotifier) Close() error {
	f.closed = true
	return nil
}

func testApp(t *testing.T, stdin string) (*App, *bytes.Buffer, *bytes.Buffer, *fakeNotifier) {
	t.Helper()
	var out, errOut bytes.Buffer
	notifier := &fakeNotifier{}
	cfg := &config.Config{
		Workers: 2, Policy: "report-month", Currency: "CNY", Locale: "en", Sort: "occupancy",
		LogLevel: "error", AMQPURL: "amqp://localhost:5672/", AMQPExchange: "payouts", AMQPQueue: "batch_ready",
		SheetsCacheSize: 1,
	}
	app := &App{
		In:     strings.NewReader(stdin),
		Out:    &out,
		Err:    &errOut,
		Config: cfg,
		Logger: log.Discard(),
		Open: func(_ context.Context, refs []string) []sheets.TableReader {
			var rs []sheets.TableReader
			for _, ref := range refs {
				content, ok := files[ref]
				if !ok {
					rs = append(rs, memory.Failing(ref, errors.New("no such file")))
					continue
				}
				rs = append(rs, csvfile.NewReader(ref, strings.NewReader(content)))
			}
			return rs
		},
		Notify: func(*config.Config, *log.Logger) (Notifier, error) { return notifier, nil },
	}
	return app, &out, &errOut, notifier
}

func run(app *App, args ...string) error {
	root := NewRootCmd(app)
	root.SetArgs(args)
	return root.Execute()
}

func TestReportCommand(t *testing.T) {
	app, out, errOut, notifier := testApp(t, "")
	xlsx := filepath.Join(t.TempDir(), "report.xlsx")

	err := run(app, "report", "report_2024-01.csv", "report_2024-02.csv", "missing.csv",
		"--export", xlsx, "--notify")
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "LISTING")
	assert.Contains(t, text, "2024-01")
	assert.Contains(t, text, "2024-02")
	assert.Contains(t, text, "3 rows, total revenue")
	assert.Contains(t, errOut.String(), "warning: skipped missing.csv")
	assert.Contains(t, errOut.String(), "missing_internal_name=1")

	f, err := excelize.OpenFile(xlsx)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Bookings")
	require.NoError(t, err)
	assert.Len(t, rows, 4)

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, 3, notifier.sent[0].Bookings)
	assert.Equal(t, []string{"2024-01", "2024-02"}, notifier.sent[0].Months)
	assert.True(t, notifier.closed)
}

func TestReportCommandFilterAndSQLiteExport(t *testing.T) {
	app, out, _, _ := testApp(t, "")
	db := filepath.Join(t.TempDir(), "report.db")

	err := run(app, "report", "report_2024-01.csv", "report_2024-02.csv",
		"--month", "2024/02", "--keyword", "l1", "--export", db)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "1 rows, total revenue ¥300.00")

	repo, err := storage.NewSQLiteRepository(db, nil)
	require.NoError(t, err)
	defer repo.Close()
	ids, err := repo.BatchIDs(context.Background())
	require.NoError(t, err)
	require.Len(t, ids, 1)
	n, err := repo.CountBookings(context.Background(), ids[0])
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestReportCommandYearFilter(t *testing.T) {
	app, out, _, _ := testApp(t, "")
	err := run(app, "report", "report_2024-01.csv", "report_2024-02.csv", "--month", "2024")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "3 rows, total revenue")

	out.Reset()
	require.NoError(t, run(app, "report", "report_2024-01.csv", "--month", "2024/1"))
	assert.Contains(t, out.String(), "2 rows, total revenue")
}

func TestReportCommandMonthOverrideAndPrompt(t *testing.T) {
	app, out, _, _ := testApp(t, "2025-06\n")
	err := run(app, "bookings", "export.csv", "report_2024-02.csv", "--prompt-month",
		"--month-for", "data/report_2024-02.csv=2024-03")
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "export.csv#2")
	assert.Contains(t, text, "2025-06")
	assert.Contains(t, text, "2024-03")
	assert.Contains(t, text, "2 bookings, total booking amount")
}

func TestAppendUpload(t *testing.T) {
	app, out, _, _ := testApp(t, "")
	err := run(app, "bookings", "report_2024-01.csv", "--append", "report_2024-01.csv")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "report_2024-01.csv~2#3")
	assert.Contains(t, out.String(), "4 bookings")
}

func TestDetectCommand(t *testing.T) {
	app, out, _, _ := testApp(t, "")
	require.NoError(t, run(app, "detect", "report_2024-01.csv", "export.csv"))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "report_2024-01.csv")
	assert.Contains(t, lines[1], "filename")
	assert.Contains(t, lines[2], "month undetermined")
}

func TestReportCommandRejectsBadFlags(t *testing.T) {
	app, _, _, _ := testApp(t, "")
	assert.Error(t, run(app, "report", "report_2024-01.csv", "--policy", "weekly"))
	assert.Error(t, run(app, "report", "report_2024-01.csv", "--month", "January"))
	assert.Error(t, run(app, "report", "report_2024-01.csv", "--month-for", "nomonth"))
	assert.Error(t, run(app, "report"))
}

func TestNotifyNeedsAMQP(t *testing.T) {
	app, _, _, _ := testApp(t, "")
	app.Config.AMQPURL = ""
	err := run(app, "report", "report_2024-01.csv", "--notify")
	assert.ErrorContains(t, err, "AMQP_URL")
}
