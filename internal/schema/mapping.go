// Package schema locates the header row of a payout export, resolves its
// columns against the canonical booking fields and infers the month the
// export reports on.
package schema

import "strings"

// Field is a canonical booking field.
type Field int

const (
	ListingName Field = iota
	InternalName
	Currency
	BookingAmount
	NightsBooked
	DailyRate
	GuestName
	StartDate
	EndDate
	GrossEarning
	CleaningFee
	ServiceFee
	PetFee
	TotalNights
	NightlyRate
	ConfirmationCode
	Type
	Month

	numFields
)

var fieldNames = [numFields]string{
	"listingName", "internalName", "currency", "bookingAmount", "nightsBooked",
	"dailyRate", "guestName", "startDate", "endDate", "grossEarning",
	"cleaningFee", "serviceFee", "petFee", "totalNights", "nightlyRate",
	"confirmationCode", "type", "month",
}

func (f Field) String() string {
	if f < 0 || f >= numFields {
		return "unknown"
	}
	return fieldNames[f]
}

// Fields lists every canonical field in declaration order.
func Fields() []Field {
	out := make([]Field, numFields)
	for i := range out {
		out[i] = Field(i)
	}
	return out
}

// FieldMapping maps each canonical field to the header labels it accepts.
// Labels are compared case-insensitively; a header containing a label also
// matches.
type FieldMapping map[Field][]string

// DefaultMapping returns a fresh copy of the built-in English and Chinese
// synonyms. Callers may extend the copy without affecting other callers.
func DefaultMapping() FieldMapping {
	m := FieldMapping{
		ListingName:      {"listing name", "listing", "房源名称", "房源"},
		InternalName:     {"internal name", "nickname", "内部名称", "昵称"},
		Currency:         {"currency", "货币", "币种"},
		BookingAmount:    {"booking amount", "预订额", "预订金额", "amount", "金额"},
		NightsBooked:     {"nights booked", "获订晚数", "nights", "晚数"},
		DailyRate:        {"daily rate", "average daily rate", "日均价"},
		GuestName:        {"guest name", "guest", "房客", "客人"},
		StartDate:        {"start date", "check-in", "checkin", "check in", "arrival", "开始日期", "入住日期", "入住"},
		EndDate:          {"end date", "check-out", "checkout", "check out", "departure", "结束日期", "退房日期", "退房"},
		GrossEarning:     {"gross earnings", "gross earning", "gross", "总收入", "收入"},
		CleaningFee:      {"cleaning fee", "清洁费"},
		ServiceFee:       {"service fee", "服务费"},
		PetFee:           {"pet fee", "宠物费"},
		TotalNights:      {"total nights", "总晚数", "入住晚数"},
		NightlyRate:      {"nightly rate", "price per night", "每晚价格"},
		ConfirmationCode: {"confirmation code", "confirmation", "确认码"},
		Type:             {"type", "类型"},
		Month:            {"report month", "month", "月份"},
	}
	return m
}

// Columns holds the resolved column index of each field, -1 when absent.
type Columns [numFields]int

// Index returns the column of f or -1.
func (c Columns) Index(f Field) int {
	if f < 0 || f >= numFields {
		return -1
	}
	return c[f]
}

// Has reports whether f was resolved.
func (c Columns) Has(f Field) bool {
	return c.Index(f) >= 0
}

// Resolve assigns a column to every field of mapping. Exact case-insensitive
// label matches are settled first for all fields; the remaining fields then
// take the first header containing one of their labels, labels being tried in
// mapping order. A column is claimed by at most one field. Fields missing
// from mapping or without a free matching header stay at -1.
func Resolve(headers []string, mapping FieldMapping) Columns {
	var cols Columns
	for i := range cols {
		cols[i] = -1
	}

	norm := make([]string, len(headers))
	for i, h := range headers {
		norm[i] = strings.ToLower(strings.Join(strings.Fields(h), " "))
	}
	claimed := make([]bool, len(headers))

	for _, match := range []func(h, label string) bool{equalLabel, containsLabel} {
		for _, f := range Fields() {
			if cols[f] >= 0 || len(mapping[f]) == 0 {
				continue
			}
			if i := findColumn(norm, claimed, mapping[f], match); i >= 0 {
				cols[f] = i
				claimed[i] = true
			}
		}
	}
	return cols
}

func equalLabel(h, label string) bool { return h == label }

func containsLabel(h, label string) bool { return strings.Contains(h, label) }

func findColumn(headers []string, claimed []bool, labels []string, match func(h, label string) bool) int {
	for _, l := range labels {
		if l == "" {
			continue
		}
		l = strings.ToLower(l)
		for i, h := range headers {
			if h != "" && !claimed[i] && match(h, l) {
				return i
			}
		}
	}
	return -1
}
