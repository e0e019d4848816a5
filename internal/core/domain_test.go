package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestBookingValidate(t *testing.T) {
	good := CanonicalBooking{
		ListingName:  "Loft",
		InternalName: "L1",
		StartDate:    NewDate(2024, 1, 1),
		TotalNights:  1,
	}
	assert.NoError(t, good.Validate())

	cases := []struct {
		mut  func(*CanonicalBooking)
		want error
	}{
		{func(b *CanonicalBooking) { b.ListingName = " " }, ErrEmptyListing},
		{func(b *CanonicalBooking) { b.InternalName = "" }, ErrEmptyInternal},
		{func(b *CanonicalBooking) { b.StartDate = Date{} }, ErrMissingDates},
		{func(b *CanonicalBooking) { b.TotalNights = 0 }, ErrInvalidNights},
		{func(b *CanonicalBooking) { b.PetFee = decimal.NewFromInt(-1) }, ErrNegativeAmount},
	}
	for i, tc := range cases {
		b := good
		tc.mut(&b)
		if err := b.Validate(); !errors.Is(err, tc.want) {
			t.Fatalf("case %d: expected %v, got %v", i, tc.want, err)
		}
	}
}

func TestStayMonths(t *testing.T) {
	b := CanonicalBooking{StartDate: NewDate(2023, 12, 28), EndDate: NewDate(2024, 2, 1)}
	got := b.StayMonths()
	assert.Equal(t, []Month{NewMonth(2023, 12), NewMonth(2024, 1), NewMonth(2024, 2)}, got)

	b = CanonicalBooking{EndDate: NewDate(2024, 5, 3)}
	assert.Equal(t, []Month{NewMonth(2024, 5)}, b.StayMonths())

	b = CanonicalBooking{StartDate: NewDate(2024, 5, 3), EndDate: NewDate(2024, 4, 1)}
	assert.Empty(t, b.StayMonths())
}

func TestBatchAppend(t *testing.T) {
	a := Batch{ID: "one", Bookings: []CanonicalBooking{{ID: "x#1"}}, Files: []FileReport{{File: "x"}}}
	b := Batch{ID: "two", Bookings: []CanonicalBooking{{ID: "y#1"}}, Files: []FileReport{{File: "y", Err: errors.New("bad")}}}

	got := a.Append(b)
	assert.Equal(t, "one", got.ID)
	assert.Len(t, got.Bookings, 2)
	assert.Len(t, got.Skipped(), 1)
	assert.Len(t, a.Bookings, 1)
}

func TestDiagnosticsMerge(t *testing.T) {
	var d Diagnostics
	d.Merge(Diagnostics{Rows: 3, Kept: 2, Dropped: map[string]int{DropMissingInternal: 1}})
	d.Merge(Diagnostics{Rows: 2, Kept: 1, Dropped: map[string]int{DropMissingInternal: 1}})
	assert.Equal(t, 5, d.Rows)
	assert.Equal(t, 2, d.TotalDropped())
	assert.Equal(t, []string{DropMissingInternal}, d.Reasons())
}

func TestMonths(t *testing.T) {
	b := []CanonicalBooking{
		{ReportMonth: NewMonth(2024, 2)},
		{ReportMonth: NewMonth(2024, 1)},
		{ReportMonth: NewMonth(2024, 2)},
		{},
	}
	assert.Equal(t, []Month{NewMonth(2024, 1), NewMonth(2024, 2)}, Months(b))
}
