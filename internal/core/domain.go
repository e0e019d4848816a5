package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type (
	Date struct {
		time.Time
	}

	// Month is a calendar month (YYYY-MM). The zero value means "unknown".
	Month struct {
		Year  int
		Month int
	}

	// CanonicalBooking is one payout row normalized into the fixed internal
	// schema, whatever the column naming of the file it came from.
	CanonicalBooking struct {
		ID           string
		SourceFile   string
		Row          int
		ListingName  string
		InternalName string
		Currency     string

		StartDate Date
		EndDate   Date

		GrossEarning decimal.Decimal
		CleaningFee  decimal.Decimal
		ServiceFee   decimal.Decimal
		PetFee       decimal.Decimal
		TotalNights  int

		ReportMonth Month

		// Display-only columns carried through from the export.
		ConfirmationCode string
		GuestName        string
		BookingAmount    decimal.Decimal
		NightsBooked     int
		DailyRate        decimal.Decimal
		NightlyRate      decimal.Decimal
	}

	// MonthlyAllocation is the share of one booking attributed to one month.
	MonthlyAllocation struct {
		BookingID string
		Month     Month
		NetAmount decimal.Decimal
		DailyRate decimal.Decimal
		Nights    int
		Revenue   decimal.Decimal
	}

	PropertyMonthSummary struct {
		ListingName    string
		InternalName   string
		Month          Month
		Currency       string
		TotalRevenue   decimal.Decimal
		OccupiedNights int
		DaysInMonth    int
		OccupancyRate  float64
		BookingCount   int
		// Overbooked is set when bookings of the group overlap on the
		// calendar, so the allocated nights exceed OccupiedNights.
		Overbooked bool
	}
)

var (
	ErrInvalidMonth    = errors.New("invalid month")
	ErrEmptyListing    = errors.New("empty listing name")
	ErrEmptyInternal   = errors.New("empty internal name")
	ErrMissingDates    = errors.New("missing start and end date")
	ErrInvalidNights   = errors.New("total nights must be at least 1")
	ErrNegativeAmount  = errors.New("negative amount")
	ErrMonthOutOfRange = errors.New("month out of range")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date in UTC.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// IsEmpty returns true if the date is absent.
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// String renders the date as YYYY-MM-DD, or "" when absent.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01-02")
}

// MonthOf returns the calendar month containing d.
func (d Date) MonthOf() Month {
	if d.IsZero() {
		return Month{}
	}
	return Month{Year: d.Year(), Month: int(d.Time.Month())}
}

func NewMonth(year, month int) Month {
	return Month{Year: year, Month: month}
}

// ParseMonth accepts "YYYY-MM" and "YYYY/MM".
func ParseMonth(s string) (Month, error) {
	s = strings.TrimSpace(s)
	var y, m int
	if _, err := fmt.Sscanf(strings.ReplaceAll(s, "/", "-"), "%4d-%2d", &y, &m); err != nil {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	mo := Month{Year: y, Month: m}
	if err := mo.Validate(); err != nil {
		return Month{}, err
	}
	return mo, nil
}

func (m Month) Validate() error {
	if m.Month < 1 || m.Month > 12 || m.Year < 1 {
		return fmt.Errorf("%w: %04d-%02d", ErrInvalidMonth, m.Year, m.Month)
	}
	return nil
}

// IsZero reports whether the month is unknown.
func (m Month) IsZero() bool {
	return m.Year == 0 && m.Month == 0
}

func (m Month) String() string {
	if m.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d", m.Year, m.Month)
}

// Days returns the number of calendar days in the month (28-31).
func (m Month) Days() int {
	return time.Date(m.Year, time.Month(m.Month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Next returns the following calendar month.
func (m Month) Next() Month {
	if m.Month == 12 {
		return Month{Year: m.Year + 1, Month: 1}
	}
	return Month{Year: m.Year, Month: m.Month + 1}
}

// Before reports whether m is strictly earlier than o.
func (m Month) Before(o Month) bool {
	if m.Year != o.Year {
		return m.Year < o.Year
	}
	return m.Month < o.Month
}

// Validate checks the invariants every canonical booking must hold.
func (b CanonicalBooking) Validate() error {
	if strings.TrimSpace(b.ListingName) == "" {
		return ErrEmptyListing
	}
	if strings.TrimSpace(b.InternalName) == "" {
		return ErrEmptyInternal
	}
	if b.StartDate.IsEmpty() && b.EndDate.IsEmpty() {
		return ErrMissingDates
	}
	if b.TotalNights < 1 {
		return ErrInvalidNights
	}
	for _, amt := range []decimal.Decimal{b.GrossEarning, b.CleaningFee, b.ServiceFee, b.PetFee} {
		if amt.IsNegative() {
			return ErrNegativeAmount
		}
	}
	return nil
}

// NetAmount is gross earnings minus every fee. It may be negative.
func (b CanonicalBooking) NetAmount() decimal.Decimal {
	return b.GrossEarning.Sub(b.CleaningFee).Sub(b.ServiceFee).Sub(b.PetFee)
}

// Stay returns the booking's interval with a missing bound replaced by the
// other one.
func (b CanonicalBooking) Stay() (Date, Date) {
	start, end := b.StartDate, b.EndDate
	if start.IsEmpty() {
		start = end
	}
	if end.IsEmpty() {
		end = start
	}
	return start, end
}

// StayMonths lists every calendar month the stay touches, in order.
func (b CanonicalBooking) StayMonths() []Month {
	start, end := b.Stay()
	if start.IsEmpty() || end.Before(start.Time) {
		return nil
	}
	var out []Month
	last := end.MonthOf()
	for m := start.MonthOf(); !last.Before(m); m = m.Next() {
		out = append(out, m)
	}
	return out
}

func (b CanonicalBooking) MonthKey() string {
	return b.ReportMonth.String()
}

func (b CanonicalBooking) SearchKey() string {
	return b.InternalName
}

func (b CanonicalBooking) SearchFields() []string {
	return []string{
		b.ID, b.SourceFile, b.ListingName, b.InternalName, b.Currency,
		b.StartDate.String(), b.EndDate.String(),
		b.GrossEarning.String(), b.CleaningFee.String(), b.ServiceFee.String(), b.PetFee.String(),
		fmt.Sprint(b.TotalNights), b.ReportMonth.String(),
		b.ConfirmationCode, b.GuestName, b.BookingAmount.String(),
	}
}

func (s PropertyMonthSummary) MonthKey() string {
	return s.Month.String()
}

func (s PropertyMonthSummary) SearchKey() string {
	return s.InternalName
}

func (s PropertyMonthSummary) SearchFields() []string {
	return []string{
		s.ListingName, s.InternalName, s.Month.String(), s.Currency,
		s.TotalRevenue.String(), fmt.Sprint(s.OccupiedNights), fmt.Sprint(s.BookingCount),
	}
}

// Months returns the distinct report months present in the bookings, sorted.
func Months(bookings []CanonicalBooking) []Month {
	seen := map[Month]struct{}{}
	var out []Month
	for _, b := range bookings {
		if b.ReportMonth.IsZero() {
			continue
		}
		if _, ok := seen[b.ReportMonth]; ok {
			continue
		}
		seen[b.ReportMonth] = struct{}{}
		out = append(out, b.ReportMonth)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
