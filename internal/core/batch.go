package core

import (
	"sort"
	"time"
)

// Drop reasons recorded in Diagnostics.
const (
	DropMissingListing  = "missing_listing"
	DropMissingInternal = "missing_internal_name"
	DropMissingDates    = "missing_dates"
	DropNotReservation  = "not_reservation"
	DropBlankRow        = "blank_row"
)

// Diagnostics counts rows dropped during normalization, per reason.
type Diagnostics struct {
	Rows    int
	Kept    int
	Dropped map[string]int
}

func (d *Diagnostics) Drop(reason string) {
	if d.Dropped == nil {
		d.Dropped = map[string]int{}
	}
	d.Dropped[reason]++
}

// TotalDropped sums drops over all reasons.
func (d Diagnostics) TotalDropped() int {
	n := 0
	for _, c := range d.Dropped {
		n += c
	}
	return n
}

// Merge adds o's counts into d.
func (d *Diagnostics) Merge(o Diagnostics) {
	d.Rows += o.Rows
	d.Kept += o.Kept
	for r, c := range o.Dropped {
		if d.Dropped == nil {
			d.Dropped = map[string]int{}
		}
		d.Dropped[r] += c
	}
}

// Reasons returns the drop reasons in a stable order.
func (d Diagnostics) Reasons() []string {
	out := make([]string, 0, len(d.Dropped))
	for r := range d.Dropped {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

// FileReport describes the outcome of one file in a batch.
type FileReport struct {
	File        string
	ReportMonth Month
	MonthSource string
	HeaderRow   int
	Bookings    int
	Diagnostics Diagnostics
	// Err is set when the file was skipped.
	Err error
}

func (f FileReport) Skipped() bool {
	return f.Err != nil
}

// Batch is the result of one multi-file upload. It is treated as immutable:
// Append returns a new value.
type Batch struct {
	ID        string
	CreatedAt time.Time
	Bookings  []CanonicalBooking
	Files     []FileReport
}

// Skipped returns the reports of files that produced no bookings because of
// an error.
func (b Batch) Skipped() []FileReport {
	var out []FileReport
	for _, f := range b.Files {
		if f.Skipped() {
			out = append(out, f)
		}
	}
	return out
}

// Diagnostics merges the row counts of every file.
func (b Batch) Diagnostics() Diagnostics {
	var d Diagnostics
	for _, f := range b.Files {
		d.Merge(f.Diagnostics)
	}
	return d
}

// Months returns the distinct report months of the batch.
func (b Batch) Months() []Month {
	return Months(b.Bookings)
}

// Append returns a batch holding b's content followed by o's. The receiver's
// ID and creation time are kept.
func (b Batch) Append(o Batch) Batch {
	out := Batch{ID: b.ID, CreatedAt: b.CreatedAt}
	if out.ID == "" {
		out.ID, out.CreatedAt = o.ID, o.CreatedAt
	}
	out.Bookings = make([]CanonicalBooking, 0, len(b.Bookings)+len(o.Bookings))
	out.Bookings = append(out.Bookings, b.Bookings...)
	out.Bookings = append(out.Bookings, o.Bookings...)
	out.Files = make([]FileReport, 0, len(b.Files)+len(o.Files))
	out.Files = append(out.Files, b.Files...)
	out.Files = append(out.Files, o.Files...)
	return out
}
