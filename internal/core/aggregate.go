package core

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Policy selects which calendar months a booking is allocated to.
type Policy string

const (
	// AllocateReportMonth intersects the stay with the month the booking's
	// file was declared for.
	AllocateReportMonth Policy = "report-month"
	// AllocateStayMonths spreads the stay over every month it touches.
	AllocateStayMonths Policy = "stay-months"
)

func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", AllocateReportMonth, "report":
		return AllocateReportMonth, nil
	case AllocateStayMonths, "stay":
		return AllocateStayMonths, nil
	default:
		return "", fmt.Errorf("unknown allocation policy %q", s)
	}
}

// TargetMonths returns the months a booking is allocated to under p.
func (p Policy) TargetMonths(b CanonicalBooking) []Month {
	if p == AllocateStayMonths || b.ReportMonth.IsZero() {
		return b.StayMonths()
	}
	return []Month{b.ReportMonth}
}

type groupKey struct {
	listing  string
	internal string
	month    Month
}

type group struct {
	summary PropertyMonthSummary
	days    map[string]struct{}
	raw     int
}

// Allocations lists every booking-month allocation under p, in booking order.
func Allocations(bookings []CanonicalBooking, p Policy) []MonthlyAllocation {
	var out []MonthlyAllocation
	for _, b := range bookings {
		for _, m := range p.TargetMonths(b) {
			out = append(out, AllocateBooking(b, m))
		}
	}
	return out
}

// Aggregate groups bookings by listing, internal name and target month.
//
// OccupiedNights counts distinct calendar days so overlapping bookings of the
// same property never count a day twice, while TotalRevenue sums every
// allocation. Counting distinct days keeps the occupancy rate within 100;
// Overbooked records that some day was booked more than once. The result has no defined
// order; see SortSummaries.
func Aggregate(bookings []CanonicalBooking, p Policy) []PropertyMonthSummary {
	groups := map[groupKey]*group{}
	var order []groupKey

	for _, b := range bookings {
		for _, m := range p.TargetMonths(b) {
			k := groupKey{listing: b.ListingName, internal: b.InternalName, month: m}
			g, ok := groups[k]
			if !ok {
				g = &group{
					summary: PropertyMonthSummary{
						ListingName:  b.ListingName,
						InternalName: b.InternalName,
						Month:        m,
						Currency:     b.Currency,
						TotalRevenue: decimal.Zero,
						DaysInMonth:  m.Days(),
					},
					days: map[string]struct{}{},
				}
				groups[k] = g
				order = append(order, k)
			}
			if g.summary.Currency == "" {
				g.summary.Currency = b.Currency
			}

			alloc := AllocateBooking(b, m)
			g.summary.TotalRevenue = g.summary.TotalRevenue.Add(alloc.Revenue)
			g.summary.BookingCount++
			g.raw += alloc.Nights
			for _, d := range OverlapDays(b.StartDate, b.EndDate, m) {
				g.days[d.String()] = struct{}{}
			}
		}
	}

	out := make([]PropertyMonthSummary, 0, len(order))
	for _, k := range order {
		g := groups[k]
		s := g.summary
		s.OccupiedNights = len(g.days)
		if s.DaysInMonth > 0 {
			s.OccupancyRate = float64(s.OccupiedNights) / float64(s.DaysInMonth) * 100
		}
		s.Overbooked = g.raw > s.OccupiedNights
		out = append(out, s)
	}
	return out
}

// SortKey names a presentation order for summaries.
type SortKey string

const (
	SortByOccupancy SortKey = "occupancy"
	SortByRevenue   SortKey = "revenue"
	SortByListing   SortKey = "listing"
	SortByMonth     SortKey = "month"
)

func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return SortByOccupancy, nil
	case SortByOccupancy, SortByRevenue, SortByListing, SortByMonth:
		return k, nil
	default:
		return "", fmt.Errorf("unknown sort key %q", s)
	}
}

// SortSummaries orders summaries in place. Ties fall back to occupancy desc,
// revenue desc, listing asc, month asc.
func SortSummaries(s []PropertyMonthSummary, key SortKey) {
	sort.SliceStable(s, func(i, j int) bool {
		a, b := s[i], s[j]
		switch key {
		case SortByRevenue:
			if c := a.TotalRevenue.Cmp(b.TotalRevenue); c != 0 {
				return c > 0
			}
		case SortByListing:
			if a.InternalName != b.InternalName {
				return a.InternalName < b.InternalName
			}
		case SortByMonth:
			if a.Month != b.Month {
				return a.Month.Before(b.Month)
			}
		}
		return defaultLess(a, b)
	})
}

func defaultLess(a, b PropertyMonthSummary) bool {
	if a.OccupancyRate != b.OccupancyRate {
		return a.OccupancyRate > b.OccupancyRate
	}
	if c := a.TotalRevenue.Cmp(b.TotalRevenue); c != 0 {
		return c > 0
	}
	if a.ListingName != b.ListingName {
		return a.ListingName < b.ListingName
	}
	if a.InternalName != b.InternalName {
		return a.InternalName < b.InternalName
	}
	return a.Month.Before(b.Month)
}

// TotalRevenue sums the revenue of the given summaries.
func TotalRevenue(s []PropertyMonthSummary) decimal.Decimal {
	total := decimal.Zero
	for _, x := range s {
		total = total.Add(x.TotalRevenue)
	}
	return total
}

// TotalBookingAmount sums the booking amount column, falling back to gross
// earnings for rows that have none.
func TotalBookingAmount(b []CanonicalBooking) decimal.Decimal {
	total := decimal.Zero
	for _, x := range b {
		amt := x.BookingAmount
		if amt.IsZero() {
			amt = x.GrossEarning
		}
		total = total.Add(amt)
	}
	return total
}
