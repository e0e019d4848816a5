// Package export writes report tables as CSV or XLSX.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"payouts/internal/core"
)

var ErrUnknownFormat = errors.New("unknown export format")

type Format string

const (
	FormatCSV    Format = "csv"
	FormatXLSX   Format = "xlsx"
	FormatSQLite Format = "db"
)

// FormatOf derives the export format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	case ".db", ".sqlite", ".sqlite3":
		return FormatSQLite, nil
	}
	return "", fmt.Errorf("%s: %w", path, ErrUnknownFormat)
}

// Sheet is one named table of typed cells.
type Sheet struct {
	Name   string
	Header []string
	Rows   [][]any
}

func money(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}

// SummarySheet lays out per-property monthly summaries.
func SummarySheet(summaries []core.PropertyMonthSummary) Sheet {
	s := Sheet{
		Name: "Summary",
		Header: []string{
			"Listing", "Internal name", "Month", "Currency", "Revenue",
			"Occupied nights", "Days in month", "Occupancy %", "Bookings", "Overbooked",
		},
	}
	for _, m := range summaries {
		s.Rows = append(s.Rows, []any{
			m.ListingName, m.InternalName, m.Month.String(), m.Currency, money(m.TotalRevenue),
			m.OccupiedNights, m.DaysInMonth, round(m.OccupancyRate), m.BookingCount, m.Overbooked,
		})
	}
	return s
}

// BookingSheet lays out canonical bookings.
func BookingSheet(bookings []core.CanonicalBooking) Sheet {
	s := Sheet{
		Name: "Bookings",
		Header: []string{
			"ID", "Source", "Listing", "Internal name", "Confirmation code", "Guest",
			"Currency", "Start", "End", "Nights", "Gross", "Cleaning fee", "Service fee",
			"Pet fee", "Net", "Booking amount", "Report month",
		},
	}
	for _, b := range bookings {
		s.Rows = append(s.Rows, []any{
			b.ID, b.SourceFile, b.ListingName, b.InternalName, b.ConfirmationCode, b.GuestName,
			b.Currency, b.StartDate.String(), b.EndDate.String(), b.TotalNights,
			money(b.GrossEarning), money(b.CleaningFee), money(b.ServiceFee),
			money(b.PetFee), money(b.NetAmount()), money(b.BookingAmount), b.ReportMonth.String(),
		})
	}
	return s
}

// FileSheet lays out the per-file outcome of a batch.
func FileSheet(files []core.FileReport) Sheet {
	s := Sheet{
		Name:   "Files",
		Header: []string{"File", "Month", "Month source", "Header row", "Rows", "Bookings", "Dropped", "Error"},
	}
	for _, f := range files {
		msg := ""
		if f.Err != nil {
			msg = f.Err.Error()
		}
		s.Rows = append(s.Rows, []any{
			f.File, f.ReportMonth.String(), f.MonthSource, f.HeaderRow + 1,
			f.Diagnostics.Rows, f.Bookings, f.Diagnostics.TotalDropped(), msg,
		})
	}
	return s
}

func round(f float64) float64 {
	d, _ := decimal.NewFromFloat(f).Round(2).Float64()
	return d
}

func cellText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return decimal.NewFromFloat(x).StringFixed(2)
	default:
		return fmt.Sprint(x)
	}
}

// WriteCSV writes a single sheet with its header row.
func WriteCSV(w io.Writer, s Sheet) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(s.Header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	rec := make([]string, len(s.Header))
	for i, row := range s.Rows {
		for j := range rec {
			rec[j] = ""
			if j < len(row) {
				rec[j] = cellText(row[j])
			}
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("failed to write CSV row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes every sheet into one workbook, in order.
func WriteXLSX(w io.Writer, sheets ...Sheet) error {
	if len(sheets) == 0 {
		return errors.New("no sheets to write")
	}
	f := excelize.NewFile()
	defer f.Close()

	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", s.Name); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(s.Name); err != nil {
			return err
		}
		if err := f.SetSheetRow(s.Name, "A1", &s.Header); err != nil {
			return err
		}
		for r, row := range s.Rows {
			cell, err := excelize.CoordinatesToCellName(1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(s.Name, cell, &row); err != nil {
				return fmt.Errorf("%s row %d: %w", s.Name, r+1, err)
			}
		}
	}
	f.SetActiveSheet(0)
	return f.Write(w)
}

// WriteFile picks the writer from the extension of path. A CSV file only
// holds the first sheet.
func WriteFile(path string, sheets ...Sheet) error {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}
	if format == FormatSQLite {
		return fmt.Errorf("%s: sqlite exports go through storage: %w", path, ErrUnknownFormat)
	}
	if len(sheets) == 0 {
		return errors.New("no sheets to write")
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer file.Close()

	if format == FormatCSV {
		err = WriteCSV(file, sheets[0])
	} else {
		err = WriteXLSX(file, sheets...)
	}
	if err != nil {
		return err
	}
	return file.Close()
}
