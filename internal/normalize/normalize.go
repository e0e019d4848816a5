// Package normalize turns the data rows of a detected table into canonical
// bookings.
package normalize

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"payouts/internal/core"
	"payouts/internal/schema"
	"payouts/internal/sheets"
)

// reservationTypes are the values of the type column that denote a booking.
var reservationTypes = map[string]struct{}{
	"reservation": {},
	"预订":          {},
	"预订确认":        {},
}

type Normalizer struct {
	mapping schema.FieldMapping
}

// New returns a Normalizer over mapping, or over the default mapping when
// mapping is nil.
func New(mapping schema.FieldMapping) *Normalizer {
	if mapping == nil {
		mapping = schema.DefaultMapping()
	}
	return &Normalizer{mapping: mapping}
}

// Result holds the bookings of one table and the row counts behind them.
type Result struct {
	Bookings    []core.CanonicalBooking
	Columns     schema.Columns
	Diagnostics core.Diagnostics
}

// Normalize converts every data row of t below the header described by l.
// Rows that cannot form a booking are counted per reason, never returned.
func (n *Normalizer) Normalize(t sheets.Table, l schema.Layout) Result {
	res := Result{Columns: schema.Resolve(l.Headers, n.mapping)}
	if l.DataStart >= len(t.Rows) {
		return res
	}
	for i, row := range t.Rows[l.DataStart:] {
		res.Diagnostics.Rows++
		b, reason := n.Row(row, res.Columns, l.ReportMonth)
		if reason != "" {
			res.Diagnostics.Drop(reason)
			continue
		}
		line := l.DataStart + i + 1
		b.SourceFile = t.Name
		b.Row = line
		b.ID = fmt.Sprintf("%s#%d", t.Name, line)
		res.Diagnostics.Kept++
		res.Bookings = append(res.Bookings, b)
	}
	return res
}

// Row maps one raw row onto a booking. A non-empty reason means the row was
// dropped. month is used unless the row carries a month column of its own.
func (n *Normalizer) Row(row sheets.Row, cols schema.Columns, month core.Month) (core.CanonicalBooking, string) {
	if row.IsBlank() {
		return core.CanonicalBooking{}, core.DropBlankRow
	}
	text := func(f schema.Field) string { return sheets.Text(row.Cell(cols.Index(f))) }
	cell := func(f schema.Field) any { return row.Cell(cols.Index(f)) }

	if cols.Has(schema.Type) {
		if typ := strings.ToLower(text(schema.Type)); typ != "" {
			if _, ok := reservationTypes[typ]; !ok {
				return core.CanonicalBooking{}, core.DropNotReservation
			}
		}
	}

	b := core.CanonicalBooking{
		ListingName:      text(schema.ListingName),
		InternalName:     text(schema.InternalName),
		Currency:         strings.ToUpper(text(schema.Currency)),
		StartDate:        core.ParseDate(cell(schema.StartDate)),
		EndDate:          core.ParseDate(cell(schema.EndDate)),
		CleaningFee:      nonNegative(core.ParseAmount(cell(schema.CleaningFee))),
		ServiceFee:       nonNegative(core.ParseAmount(cell(schema.ServiceFee))),
		PetFee:           nonNegative(core.ParseAmount(cell(schema.PetFee))),
		BookingAmount:    nonNegative(core.ParseAmount(cell(schema.BookingAmount))),
		ConfirmationCode: text(schema.ConfirmationCode),
		GuestName:        text(schema.GuestName),
		NightsBooked:     max(core.ParseInt(cell(schema.NightsBooked)), 0),
		DailyRate:        core.ParseAmount(cell(schema.DailyRate)),
		NightlyRate:      core.ParseAmount(cell(schema.NightlyRate)),
		ReportMonth:      month,
	}

	// Transaction exports carry no internal name; the confirmation code
	// identifies the row instead.
	if !cols.Has(schema.InternalName) {
		b.InternalName = b.ConfirmationCode
	}

	switch {
	case b.ListingName == "":
		return core.CanonicalBooking{}, core.DropMissingListing
	case b.InternalName == "":
		return core.CanonicalBooking{}, core.DropMissingInternal
	case b.StartDate.IsEmpty() && b.EndDate.IsEmpty():
		return core.CanonicalBooking{}, core.DropMissingDates
	}

	if cols.Has(schema.GrossEarning) {
		b.GrossEarning = nonNegative(core.ParseAmount(cell(schema.GrossEarning)))
	} else {
		b.GrossEarning = b.BookingAmount
	}

	if cols.Has(schema.Month) {
		if m, ok := rowMonth(text(schema.Month)); ok {
			b.ReportMonth = m
		}
	}

	b.TotalNights = totalNights(core.ParseInt(cell(schema.TotalNights)), b.NightsBooked, b.StartDate, b.EndDate)
	return b, ""
}

// totalNights prefers an explicit count, then the booked nights, then the
// length of the stay. The result is at least 1.
func totalNights(explicit, booked int, start, end core.Date) int {
	n := explicit
	if n <= 0 {
		n = booked
	}
	if n <= 0 && !start.IsEmpty() && !end.IsEmpty() {
		n = int(math.Ceil(end.Sub(start.Time).Hours() / 24))
	}
	return max(n, 1)
}

func rowMonth(s string) (core.Month, bool) {
	if s == "" {
		return core.Month{}, false
	}
	if m, err := core.ParseMonth(s); err == nil {
		return m, true
	}
	return schema.MonthFromText(s)
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
