package core

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocateAcrossMonthBoundary(t *testing.T) {
	start, end := NewDate(2024, 1, 30), NewDate(2024, 2, 2)

	jan := Allocate(start, end, NewMonth(2024, 1))
	feb := Allocate(start, end, NewMonth(2024, 2))

	assert.Equal(t, 2, jan)
	assert.Equal(t, 2, feb)
	stay := int(end.Sub(start.Time)/day) + 1
	assert.Equal(t, stay, jan+feb)
}

func TestAllocate(t *testing.T) {
	cases := []struct {
		name       string
		start, end Date
		month      Month
		want       int
	}{
		{"no overlap", NewDate(2024, 1, 5), NewDate(2024, 1, 10), NewMonth(2024, 3), 0},
		{"inside", NewDate(2024, 3, 5), NewDate(2024, 3, 10), NewMonth(2024, 3), 6},
		{"zero length", NewDate(2024, 3, 5), NewDate(2024, 3, 5), NewMonth(2024, 3), 1},
		{"missing end", NewDate(2024, 3, 5), Date{}, NewMonth(2024, 3), 1},
		{"missing start", Date{}, NewDate(2024, 3, 31), NewMonth(2024, 3), 1},
		{"both missing", Date{}, Date{}, NewMonth(2024, 3), 0},
		{"reversed", NewDate(2024, 3, 10), NewDate(2024, 3, 5), NewMonth(2024, 3), 0},
		{"covers month", NewDate(2024, 1, 20), NewDate(2024, 3, 10), NewMonth(2024, 2), 29},
		{"leap day", NewDate(2024, 2, 29), NewDate(2024, 3, 1), NewMonth(2024, 2), 1},
		{"invalid month", NewDate(2024, 3, 5), NewDate(2024, 3, 6), NewMonth(2024, 13), 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Allocate(tc.start, tc.end, tc.month))
		})
	}
}

func TestOverlapDays(t *testing.T) {
	days := OverlapDays(NewDate(2024, 1, 30), NewDate(2024, 2, 2), NewMonth(2024, 1))
	require.Len(t, days, 2)
	assert.Equal(t, "2024-01-30", days[0].String())
	assert.Equal(t, "2024-01-31", days[1].String())

	assert.Empty(t, OverlapDays(NewDate(2024, 1, 5), NewDate(2024, 1, 10), NewMonth(2024, 3)))
}

func TestAllocateBooking(t *testing.T) {
	b := CanonicalBooking{
		ID:           "a.csv#1",
		StartDate:    NewDate(2024, 1, 30),
		EndDate:      NewDate(2024, 2, 2),
		GrossEarning: decimal.NewFromInt(500),
		CleaningFee:  decimal.NewFromInt(60),
		ServiceFee:   decimal.NewFromInt(30),
		PetFee:       decimal.NewFromInt(10),
		TotalNights:  4,
	}

	a := AllocateBooking(b, NewMonth(2024, 1))
	assert.Equal(t, "a.csv#1", a.BookingID)
	assert.True(t, a.NetAmount.Equal(decimal.NewFromInt(400)))
	assert.True(t, a.DailyRate.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, 2, a.Nights)
	assert.True(t, a.Revenue.Equal(decimal.NewFromInt(200)), a.Revenue.String())

	b.TotalNights = 0
	a = AllocateBooking(b, NewMonth(2024, 1))
	assert.True(t, a.DailyRate.IsZero())
	assert.True(t, a.Revenue.IsZero())
}

func TestNetAmountMayBeNegative(t *testing.T) {
	b := CanonicalBooking{GrossEarning: decimal.NewFromInt(10), CleaningFee: decimal.NewFromInt(25)}
	assert.True(t, b.NetAmount().Equal(decimal.NewFromInt(-15)))
}

func TestMonthBounds(t *testing.T) {
	first, last := NewMonth(2023, 2).Bounds()
	assert.Equal(t, "2023-02-01", DateOf(first).String())
	assert.Equal(t, "2023-02-28", DateOf(last).String())
	assert.Equal(t, 28, NewMonth(2023, 2).Days())
	assert.Equal(t, 29, NewMonth(2024, 2).Days())
	assert.Equal(t, 31, NewMonth(2024, 12).Days())
}
