package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"payouts/internal/core"
	"payouts/internal/log"
	"payouts/internal/services"

	_ "modernc.org/sqlite"
)

var ErrBatchNotFound = errors.New("batch not found")

// SQLiteRepository stores finished reports in a standalone SQLite file.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	logger  *log.Logger
}

func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentStorage)

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, err
	}
	logger.Debug("report database ready", log.FieldPath, dbPath, "schema_version", version)

	return &SQLiteRepository{db: db, queries: New(db), logger: logger}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SaveReport writes the batch header, its files, the filtered bookings and the
// summaries of rep in one transaction. Saving the same batch again replaces
// the earlier copy.
func (r *SQLiteRepository) SaveReport(ctx context.Context, rep services.Report) error {
	if rep.BatchID == "" {
		return errors.New("report has no batch id")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()
	q := r.queries.WithTx(tx)

	if err := q.DeleteBatch(ctx, rep.BatchID); err != nil {
		return fmt.Errorf("clear batch %s: %w", rep.BatchID, err)
	}

	created := rep.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	if err := q.CreateBatch(ctx, BatchRow{
		ID:        rep.BatchID,
		CreatedAt: created,
		Policy:    string(rep.Policy),
		Month:     rep.Criteria.Month,
		Keyword:   rep.Criteria.Keyword,
		Currency:  rep.Currency,
		Total:     rep.Total.String(),
		Bookings:  int64(rep.BatchBookings),
	}); err != nil {
		return fmt.Errorf("create batch: %w", err)
	}

	for _, f := range rep.Files {
		msg := ""
		if f.Err != nil {
			msg = f.Err.Error()
		}
		if err := q.CreateFile(ctx, FileRow{
			BatchID:     rep.BatchID,
			Name:        f.File,
			ReportMonth: f.ReportMonth.String(),
			MonthSource: f.MonthSource,
			HeaderRow:   int64(f.HeaderRow),
			Rows:        int64(f.Diagnostics.Rows),
			Bookings:    int64(f.Bookings),
			Dropped:     int64(f.Diagnostics.TotalDropped()),
			Error:       msg,
		}); err != nil {
			return fmt.Errorf("create file %s: %w", f.File, err)
		}
	}

	for _, b := range rep.Bookings {
		if err := q.CreateBooking(ctx, bookingRow(rep.BatchID, b)); err != nil {
			return fmt.Errorf("create booking %s: %w", b.ID, err)
		}
	}

	for i, s := range rep.Summaries {
		if err := q.CreateSummary(ctx, SummaryRow{
			BatchID:        rep.BatchID,
			ListingName:    s.ListingName,
			InternalName:   s.InternalName,
			Month:          s.Month.String(),
			Currency:       s.Currency,
			TotalRevenue:   s.TotalRevenue.String(),
			OccupiedNights: int64(s.OccupiedNights),
			DaysInMonth:    int64(s.DaysInMonth),
			OccupancyRate:  s.OccupancyRate,
			BookingCount:   int64(s.BookingCount),
			Overbooked:     s.Overbooked,
			Position:       int64(i),
		}); err != nil {
			return fmt.Errorf("create summary %s %s: %w", s.InternalName, s.Month, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit report: %w", err)
	}

	r.logger.InfoContext(ctx, "report saved",
		log.FieldBatchID, rep.BatchID,
		log.FieldBookings, len(rep.Bookings),
		"summaries", len(rep.Summaries),
		log.FieldFiles, len(rep.Files))
	return nil
}

func bookingRow(batchID string, b core.CanonicalBooking) BookingRow {
	return BookingRow{
		BatchID:          batchID,
		ID:               b.ID,
		SourceFile:       b.SourceFile,
		RowNumber:        int64(b.Row),
		ListingName:      b.ListingName,
		InternalName:     b.InternalName,
		Currency:         b.Currency,
		StartDate:        b.StartDate.String(),
		EndDate:          b.EndDate.String(),
		TotalNights:      int64(b.TotalNights),
		GrossEarning:     b.GrossEarning.String(),
		CleaningFee:      b.CleaningFee.String(),
		ServiceFee:       b.ServiceFee.String(),
		PetFee:           b.PetFee.String(),
		BookingAmount:    b.BookingAmount.String(),
		ReportMonth:      b.ReportMonth.String(),
		ConfirmationCode: b.ConfirmationCode,
		GuestName:        b.GuestName,
	}
}

// Summaries reads back the saved summaries of a batch in report order.
func (r *SQLiteRepository) Summaries(ctx context.Context, batchID string) ([]core.PropertyMonthSummary, error) {
	if _, err := r.queries.GetBatch(ctx, batchID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", batchID, ErrBatchNotFound)
		}
		return nil, fmt.Errorf("get batch: %w", err)
	}

	rows, err := r.queries.ListSummaries(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("list summaries: %w", err)
	}
	out := make([]core.PropertyMonthSummary, 0, len(rows))
	for _, s := range rows {
		month, err := core.ParseMonth(s.Month)
		if err != nil {
			return nil, fmt.Errorf("summary month %q: %w", s.Month, err)
		}
		revenue, err := decimal.NewFromString(s.TotalRevenue)
		if err != nil {
			return nil, fmt.Errorf("summary revenue %q: %w", s.TotalRevenue, err)
		}
		out = append(out, core.PropertyMonthSummary{
			ListingName:    s.ListingName,
			InternalName:   s.InternalName,
			Month:          month,
			Currency:       s.Currency,
			TotalRevenue:   revenue,
			OccupiedNights: int(s.OccupiedNights),
			DaysInMonth:    int(s.DaysInMonth),
			OccupancyRate:  s.OccupancyRate,
			BookingCount:   int(s.BookingCount),
			Overbooked:     s.Overbooked,
		})
	}
	return out, nil
}

// CountBookings returns how many bookings were saved for a batch.
func (r *SQLiteRepository) CountBookings(ctx context.Context, batchID string) (int, error) {
	n, err := r.queries.CountBookings(ctx, batchID)
	if err != nil {
		return 0, fmt.Errorf("count bookings: %w", err)
	}
	return int(n), nil
}

// BatchBookings returns the number of bookings the saved batch held before
// the report filters were applied.
func (r *SQLiteRepository) BatchBookings(ctx context.Context, batchID string) (int, error) {
	b, err := r.queries.GetBatch(ctx, batchID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("%s: %w", batchID, ErrBatchNotFound)
		}
		return 0, fmt.Errorf("get batch: %w", err)
	}
	return int(b.Bookings), nil
}

// Files returns the per-file outcome stored with a batch.
func (r *SQLiteRepository) Files(ctx context.Context, batchID string) ([]FileRow, error) {
	files, err := r.queries.ListFiles(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	return files, nil
}

// BatchIDs lists the saved batches, oldest first.
func (r *SQLiteRepository) BatchIDs(ctx context.Context) ([]string, error) {
	ids, err := r.queries.ListBatchIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	return ids, nil
}
