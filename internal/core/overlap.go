package core

import (
	"time"

	"github.com/jinzhu/now"
	"github.com/shopspring/decimal"
)

const day = 24 * time.Hour

// Bounds returns the first and the last instant of the month in UTC.
func (m Month) Bounds() (time.Time, time.Time) {
	first := time.Date(m.Year, time.Month(m.Month), 1, 0, 0, 0, 0, time.UTC)
	n := now.With(first)
	return n.BeginningOfMonth(), n.EndOfMonth()
}

// clip intersects [start, end] with the month. ok is false when they do not
// overlap.
func clip(start, end Date, m Month) (time.Time, time.Time, bool) {
	if start.IsEmpty() {
		start = end
	}
	if end.IsEmpty() {
		end = start
	}
	if start.IsEmpty() || m.Validate() != nil {
		return time.Time{}, time.Time{}, false
	}
	monthStart, monthEnd := m.Bounds()
	from := start.Time
	if monthStart.After(from) {
		from = monthStart
	}
	to := end.Time
	if monthEnd.Before(to) {
		to = monthEnd
	}
	if from.After(to) {
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}

// Allocate counts the calendar days of [start, end] that fall inside month.
// Both boundary days are counted, so a stay that starts and ends on the same
// day counts one. A missing bound is replaced by the other one. Stays outside
// the month yield 0.
func Allocate(start, end Date, month Month) int {
	from, to, ok := clip(start, end, month)
	if !ok {
		return 0
	}
	n := int(to.Sub(from)/day) + 1
	if n < 0 {
		return 0
	}
	if days := month.Days(); n > days {
		return days
	}
	return n
}

// OverlapDays lists the dates of [start, end] inside month, in order.
func OverlapDays(start, end Date, month Month) []Date {
	n := Allocate(start, end, month)
	if n == 0 {
		return nil
	}
	from, _, _ := clip(start, end, month)
	first := DateOf(from)
	out := make([]Date, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, Date{Time: first.AddDate(0, 0, i)})
	}
	return out
}

// AllocateBooking apportions the booking's net amount to month at its daily
// rate.
func AllocateBooking(b CanonicalBooking, month Month) MonthlyAllocation {
	net := b.NetAmount()
	rate := decimal.Zero
	if b.TotalNights > 0 {
		rate = net.Div(decimal.NewFromInt(int64(b.TotalNights)))
	}
	nights := Allocate(b.StartDate, b.EndDate, month)
	return MonthlyAllocation{
		BookingID: b.ID,
		Month:     month,
		NetAmount: net,
		DailyRate: rate,
		Nights:    nights,
		Revenue:   rate.Mul(decimal.NewFromInt(int64(nights))),
	}
}
