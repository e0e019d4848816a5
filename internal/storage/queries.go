package storage

import (
	"context"
	"database/sql"
	"time"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type BatchRow struct {
	ID        string
	CreatedAt time.Time
	Policy    string
	Month     string
	Keyword   string
	Currency  string
	Total     string
	Bookings  int64
}

type FileRow struct {
	BatchID     string
	Name        string
	ReportMonth string
	MonthSource string
	HeaderRow   int64
	Rows        int64
	Bookings    int64
	Dropped     int64
	Error       string
}

type BookingRow struct {
	BatchID          string
	ID               string
	SourceFile       string
	RowNumber        int64
	ListingName      string
	InternalName     string
	Currency         string
	StartDate        string
	EndDate          string
	TotalNights      int64
	GrossEarning     string
	CleaningFee      string
	ServiceFee       string
	PetFee           string
	BookingAmount    string
	ReportMonth      string
	ConfirmationCode string
	GuestName        string
}

type SummaryRow struct {
	BatchID        string
	ListingName    string
	InternalName   string
	Month          string
	Currency       string
	TotalRevenue   string
	OccupiedNights int64
	DaysInMonth    int64
	OccupancyRate  float64
	BookingCount   int64
	Overbooked     bool
	Position       int64
}

var deleteBatch = []string{
	`DELETE FROM summaries WHERE batch_id = ?`,
	`DELETE FROM bookings WHERE batch_id = ?`,
	`DELETE FROM files WHERE batch_id = ?`,
	`DELETE FROM batches WHERE id = ?`,
}

func (q *Queries) DeleteBatch(ctx context.Context, id string) error {
	for _, stmt := range deleteBatch {
		if _, err := q.db.ExecContext(ctx, stmt, id); err != nil {
			return err
		}
	}
	return nil
}

const createBatch = `INSERT INTO batches (id, created_at, policy, month, keyword, currency, total, batch_bookings)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateBatch(ctx context.Context, b BatchRow) error {
	_, err := q.db.ExecContext(ctx, createBatch,
		b.ID, b.CreatedAt, b.Policy, b.Month, b.Keyword, b.Currency, b.Total, b.Bookings)
	return err
}

const getBatch = `SELECT id, created_at, policy, month, keyword, currency, total, batch_bookings
FROM batches WHERE id = ?`

func (q *Queries) GetBatch(ctx context.Context, id string) (BatchRow, error) {
	var b BatchRow
	err := q.db.QueryRowContext(ctx, getBatch, id).Scan(
		&b.ID, &b.CreatedAt, &b.Policy, &b.Month, &b.Keyword, &b.Currency, &b.Total, &b.Bookings)
	return b, err
}

const createFile = `INSERT INTO files (batch_id, name, report_month, month_source, header_row, rows, bookings, dropped, error)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateFile(ctx context.Context, f FileRow) error {
	_, err := q.db.ExecContext(ctx, createFile,
		f.BatchID, f.Name, f.ReportMonth, f.MonthSource, f.HeaderRow, f.Rows, f.Bookings, f.Dropped, f.Error)
	return err
}

const listFiles = `SELECT batch_id, name, report_month, month_source, header_row, rows, bookings, dropped, error
FROM files WHERE batch_id = ? ORDER BY id`

func (q *Queries) ListFiles(ctx context.Context, batchID string) ([]FileRow, error) {
	rows, err := q.db.QueryContext(ctx, listFiles, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []FileRow
	for rows.Next() {
		var f FileRow
		if err := rows.Scan(&f.BatchID, &f.Name, &f.ReportMonth, &f.MonthSource,
			&f.HeaderRow, &f.Rows, &f.Bookings, &f.Dropped, &f.Error); err != nil {
			return nil, err
		}
		items = append(items, f)
	}
	return items, rows.Err()
}

const createBooking = `INSERT INTO bookings (
    batch_id, id, source_file, row_number, listing_name, internal_name, currency,
    start_date, end_date, total_nights, gross_earning, cleaning_fee, service_fee,
    pet_fee, booking_amount, report_month, confirmation_code, guest_name
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateBooking(ctx context.Context, b BookingRow) error {
	_, err := q.db.ExecContext(ctx, createBooking,
		b.BatchID, b.ID, b.SourceFile, b.RowNumber, b.ListingName, b.InternalName, b.Currency,
		b.StartDate, b.EndDate, b.TotalNights, b.GrossEarning, b.CleaningFee, b.ServiceFee,
		b.PetFee, b.BookingAmount, b.ReportMonth, b.ConfirmationCode, b.GuestName)
	return err
}

const countBookings = `SELECT COUNT(*) FROM bookings WHERE batch_id = ?`

func (q *Queries) CountBookings(ctx context.Context, batchID string) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countBookings, batchID).Scan(&n)
	return n, err
}

const createSummary = `INSERT INTO summaries (
    batch_id, listing_name, internal_name, month, currency, total_revenue,
    occupied_nights, days_in_month, occupancy_rate, booking_count, overbooked, position
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateSummary(ctx context.Context, s SummaryRow) error {
	_, err := q.db.ExecContext(ctx, createSummary,
		s.BatchID, s.ListingName, s.InternalName, s.Month, s.Currency, s.TotalRevenue,
		s.OccupiedNights, s.DaysInMonth, s.OccupancyRate, s.BookingCount, s.Overbooked, s.Position)
	return err
}

const listSummaries = `SELECT batch_id, listing_name, internal_name, month, currency, total_revenue,
    occupied_nights, days_in_month, occupancy_rate, booking_count, overbooked, position
FROM summaries WHERE batch_id = ? ORDER BY position`

func (q *Queries) ListSummaries(ctx context.Context, batchID string) ([]SummaryRow, error) {
	rows, err := q.db.QueryContext(ctx, listSummaries, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SummaryRow
	for rows.Next() {
		var s SummaryRow
		if err := rows.Scan(&s.BatchID, &s.ListingName, &s.InternalName, &s.Month, &s.Currency,
			&s.TotalRevenue, &s.OccupiedNights, &s.DaysInMonth, &s.OccupancyRate,
			&s.BookingCount, &s.Overbooked, &s.Position); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

const listBatchIDs = `SELECT id FROM batches ORDER BY saved_at, id`

func (q *Queries) ListBatchIDs(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listBatchIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
