package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{"$1,234.56", "1234.56"},
		{"N/A", "0"},
		{"", "0"},
		{nil, "0"},
		{"¥ 3,000", "3000"},
		{"12.5%", "12.5"},
		{"-45.10", "-45.1"},
		{"1.2.3", "0"},
		{99.9, "99.9"},
		{42, "42"},
		{decimal.NewFromInt(7), "7"},
		{true, "0"},
	}
	for _, tc := range cases {
		got := ParseAmount(tc.in)
		assert.True(t, got.Equal(decimal.RequireFromString(tc.want)), "ParseAmount(%v) = %s, want %s", tc.in, got, tc.want)
	}
}

func TestParseInt(t *testing.T) {
	assert.Equal(t, 3, ParseInt("3 nights"))
	assert.Equal(t, 4, ParseInt(4.9))
	assert.Equal(t, 0, ParseInt("none"))
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{"2024-01-30", "2024-01-30"},
		{"2024/1/5", "2024-01-05"},
		{"01/30/2024", "2024-01-30"},
		{"2024-01-30 14:00:00", "2024-01-30"},
		{"2024年3月15日", "2024-03-15"},
		{45321.0, "2024-01-30"},
		{45321, "2024-01-30"},
		{"45321", "2024-01-30"},
		{time.Date(2024, 1, 30, 18, 0, 0, 0, time.UTC), "2024-01-30"},
		{"not a date", ""},
		{"", ""},
		{nil, ""},
		{-3.0, ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ParseDate(tc.in).String(), "ParseDate(%v)", tc.in)
	}
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "$1,234.50", FormatMoney(decimal.RequireFromString("1234.5"), "USD", "en"))
	assert.Equal(t, "¥1,234,568", FormatMoney(decimal.RequireFromString("1234567.8"), "JPY", "en"))
	assert.Equal(t, "-€12.00", FormatMoney(decimal.NewFromInt(-12), "EUR", "en"))
	assert.Equal(t, "1,000.00 CHF", FormatMoney(decimal.NewFromInt(1000), "chf", "en"))
	assert.Equal(t, "1,000.00", FormatMoney(decimal.NewFromInt(1000), "", "bogus-locale-"))
}

func TestParseMonth(t *testing.T) {
	m, err := ParseMonth("2024-02")
	assert.NoError(t, err)
	assert.Equal(t, NewMonth(2024, 2), m)

	m, err = ParseMonth("2024/11")
	assert.NoError(t, err)
	assert.Equal(t, "2024-11", m.String())

	_, err = ParseMonth("2024-13")
	assert.ErrorIs(t, err, ErrInvalidMonth)
	_, err = ParseMonth("feb")
	assert.ErrorIs(t, err, ErrInvalidMonth)
}
