package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sampleBookings() []CanonicalBooking {
	return []CanonicalBooking{
		{ID: "a#1", ListingName: "Sea View", InternalName: "SV-01", ReportMonth: NewMonth(2024, 1), ConfirmationCode: "HMX1"},
		{ID: "a#2", ListingName: "Old Town", InternalName: "OT-02", ReportMonth: NewMonth(2024, 1), ConfirmationCode: "HMX2"},
		{ID: "b#1", ListingName: "Sea View", InternalName: "sv-01", ReportMonth: NewMonth(2024, 2)},
		{ID: "c#1", ListingName: "Garden", InternalName: "GD-03", ReportMonth: NewMonth(2023, 12)},
	}
}

func ids(b []CanonicalBooking) []string {
	out := make([]string, len(b))
	for i, x := range b {
		out[i] = x.ID
	}
	return out
}

func TestFilter(t *testing.T) {
	in := sampleBookings()
	cases := []struct {
		name string
		c    Criteria
		want []string
	}{
		{"empty matches all", Criteria{}, []string{"a#1", "a#2", "b#1", "c#1"}},
		{"month", Criteria{Month: "2024-01"}, []string{"a#1", "a#2"}},
		{"year substring", Criteria{Month: "2024"}, []string{"a#1", "a#2", "b#1"}},
		{"keyword case-insensitive", Criteria{Keyword: "SV"}, []string{"a#1", "b#1"}},
		{"and", Criteria{Month: "2024-02", Keyword: "sv"}, []string{"b#1"}},
		{"keyword misses listing name", Criteria{Keyword: "garden"}, []string{}},
		{"all fields", Criteria{Keyword: "garden", AllFields: true}, []string{"c#1"}},
		{"confirmation code", Criteria{Keyword: "hmx2", AllFields: true}, []string{"a#2"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ids(Filter(in, tc.c)))
		})
	}
}

func TestFilterIsIdempotent(t *testing.T) {
	in := sampleBookings()
	for _, c := range []Criteria{
		{},
		{Month: "2024"},
		{Keyword: "sv"},
		{Month: "01", Keyword: "o", AllFields: true},
	} {
		once := Filter(in, c)
		twice := Filter(once, c)
		assert.Equal(t, once, twice)
	}
}

func TestFilterDoesNotMutateInput(t *testing.T) {
	in := sampleBookings()
	before := ids(in)
	_ = Filter(in, Criteria{Keyword: "gd"})
	assert.Equal(t, before, ids(in))
}

func TestFilterSummaries(t *testing.T) {
	s := []PropertyMonthSummary{
		{InternalName: "SV-01", Month: NewMonth(2024, 1)},
		{InternalName: "OT-02", Month: NewMonth(2024, 2)},
	}
	got := Filter(s, ParseCriteria(" 2024/02 ", "", false))
	assert.Len(t, got, 1)
	assert.Equal(t, "OT-02", got[0].InternalName)
}

func TestParseMonthFilter(t *testing.T) {
	cases := []struct {
		in, want string
		ok       bool
	}{
		{"2024", "2024", true},
		{" 2024/2 ", "2024-02", true},
		{"2024-11", "2024-11", true},
		{"January", "", false},
		{"2024-13", "", false},
		{"abcd", "", false},
	}
	for _, tc := range cases {
		got, err := ParseMonthFilter(tc.in)
		if !tc.ok {
			assert.ErrorIs(t, err, ErrInvalidMonth, tc.in)
			continue
		}
		assert.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	year, err := ParseMonthFilter("2024")
	assert.NoError(t, err)
	assert.Len(t, Filter(sampleBookings(), Criteria{Month: year}), 3)
}
