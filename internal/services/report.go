package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"payouts/internal/core"
	"payouts/internal/log"
)

// AllocationRow is one allocation together with the booking it came from.
type AllocationRow struct {
	core.MonthlyAllocation
	Booking core.CanonicalBooking
}

func (a AllocationRow) MonthKey() string  { return a.Month.String() }
func (a AllocationRow) SearchKey() string { return a.Booking.InternalName }
func (a AllocationRow) SearchFields() []string {
	return append(a.Booking.SearchFields(), a.Month.String(), a.Revenue.String())
}

// Report is the display-ready view of a batch under one set of criteria.
type Report struct {
	BatchID   string
	CreatedAt time.Time
	Criteria  core.Criteria
	Policy    core.Policy
	Currency  string

	// BatchBookings counts every booking of the batch, before filtering.
	BatchBookings int

	Summaries   []core.PropertyMonthSummary
	Bookings    []core.CanonicalBooking
	Allocations []AllocationRow

	// Total is the revenue of the filtered summaries, BookingTotal the
	// booking amount of the filtered bookings.
	Total            decimal.Decimal
	TotalText        string
	BookingTotal     decimal.Decimal
	BookingTotalText string

	Files       []core.FileReport
	Diagnostics core.Diagnostics
	Warnings    []string
}

type ReporterConfig struct {
	Currency string
	Locale   string
	Sort     core.SortKey
	Logger   *log.Logger
}

// Reporter turns a batch into a Report.
type Reporter struct {
	cfg    ReporterConfig
	logger *log.Logger
}

func NewReporter(cfg ReporterConfig) *Reporter {
	if cfg.Locale == "" {
		cfg.Locale = "en"
	}
	if cfg.Sort == "" {
		cfg.Sort = core.SortByOccupancy
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Discard()
	}
	return &Reporter{cfg: cfg, logger: cfg.Logger.WithComponent(log.ComponentReport)}
}

// Build aggregates every booking of b under policy and then filters both the
// summaries and the bookings by c. Aggregating before filtering keeps stays
// allocated to months other than their report month visible.
func (r *Reporter) Build(ctx context.Context, b core.Batch, c core.Criteria, policy core.Policy) Report {
	if policy == "" {
		policy = core.AllocateReportMonth
	}
	all := core.Aggregate(b.Bookings, policy)
	summaries := core.Filter(all, c)
	core.SortSummaries(summaries, r.cfg.Sort)

	bookings := core.Filter(b.Bookings, c)

	var rows []AllocationRow
	for _, bk := range b.Bookings {
		for _, m := range policy.TargetMonths(bk) {
			rows = append(rows, AllocationRow{MonthlyAllocation: core.AllocateBooking(bk, m), Booking: bk})
		}
	}
	rows = core.Filter(rows, c)

	currency := r.currency(bookings)
	rep := Report{
		BatchID:       b.ID,
		CreatedAt:     b.CreatedAt,
		Criteria:      c,
		Policy:        policy,
		Currency:      currency,
		BatchBookings: len(b.Bookings),
		Summaries:     summaries,
		Bookings:      bookings,
		Allocations:   rows,
		Total:         core.TotalRevenue(summaries),
		BookingTotal:  core.TotalBookingAmount(bookings),
		Files:         b.Files,
		Diagnostics:   b.Diagnostics(),
	}
	rep.TotalText = core.FormatMoney(rep.Total, currency, r.cfg.Locale)
	rep.BookingTotalText = core.FormatMoney(rep.BookingTotal, currency, r.cfg.Locale)
	rep.Warnings = warnings(b, summaries, bookings)

	for _, w := range rep.Warnings {
		r.logger.WarnContext(ctx, w, log.FieldBatchID, b.ID)
	}
	r.logger.InfoContext(ctx, "report built",
		log.FieldBatchID, b.ID,
		log.FieldPolicy, string(policy),
		"summaries", len(summaries),
		log.FieldBookings, len(bookings))
	return rep
}

// currency picks the single currency of the bookings, falling back to the
// configured one when there is none or several.
func (r *Reporter) currency(bookings []core.CanonicalBooking) string {
	seen := ""
	for _, b := range bookings {
		if b.Currency == "" {
			continue
		}
		if seen == "" {
			seen = b.Currency
		} else if seen != b.Currency {
			return r.cfg.Currency
		}
	}
	if seen == "" {
		return r.cfg.Currency
	}
	return seen
}

func warnings(b core.Batch, summaries []core.PropertyMonthSummary, bookings []core.CanonicalBooking) []string {
	var out []string
	for _, f := range b.Skipped() {
		out = append(out, fmt.Sprintf("skipped %s: %v", f.File, f.Err))
	}
	for _, f := range b.Files {
		if d := f.Diagnostics.TotalDropped(); d > 0 {
			var parts []string
			for _, reason := range f.Diagnostics.Reasons() {
				parts = append(parts, fmt.Sprintf("%s=%d", reason, f.Diagnostics.Dropped[reason]))
			}
			out = append(out, fmt.Sprintf("%s: dropped %d rows (%s)", f.File, d, strings.Join(parts, ", ")))
		}
	}
	for _, s := range summaries {
		if s.Overbooked {
			out = append(out, fmt.Sprintf("%s %s: bookings overlap on the calendar, %d occupied nights counted once",
				s.InternalName, s.Month, s.OccupiedNights))
		}
	}
	currencies := map[string]struct{}{}
	for _, bk := range bookings {
		if bk.Currency != "" {
			currencies[bk.Currency] = struct{}{}
		}
	}
	if len(currencies) > 1 {
		out = append(out, fmt.Sprintf("bookings use %d currencies; totals mix them", len(currencies)))
	}
	return out
}
