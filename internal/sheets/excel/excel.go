// Package excel tokenizes XLSX workbooks with excelize.
package excel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	ports "payouts/internal/sheets"
)

// Reader reads the first worksheet of a workbook, or the one named Sheet.
type Reader struct {
	name  string
	open  func() (io.ReadCloser, error)
	Sheet string
}

var (
	_ ports.TableReader = (*Reader)(nil)
	_ ports.Named       = (*Reader)(nil)
)

func Open(path string) *Reader {
	return &Reader{
		name: filepath.Base(path),
		open: func() (io.ReadCloser, error) { return os.Open(path) },
	}
}

func NewReader(name string, r io.Reader) *Reader {
	return &Reader{
		name: name,
		open: func() (io.ReadCloser, error) { return io.NopCloser(r), nil },
	}
}

func (r *Reader) Name() string {
	return r.name
}

// Read returns raw cell values: dates come back as serial numbers and
// amounts without their display formatting.
func (r *Reader) Read(ctx context.Context) (ports.Table, error) {
	if err := ctx.Err(); err != nil {
		return ports.Table{}, err
	}
	rc, err := r.open()
	if err != nil {
		return ports.Table{}, ports.Unreadable(r.name, err)
	}
	defer rc.Close()

	f, err := excelize.OpenReader(rc)
	if err != nil {
		return ports.Table{}, ports.Unreadable(r.name, err)
	}
	defer f.Close()

	sheet := r.Sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	if sheet == "" {
		return ports.Table{}, ports.Unreadable(r.name, errors.New("workbook has no sheets"))
	}
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return ports.Table{}, ports.Unreadable(r.name, fmt.Errorf("sheet %q: %w", sheet, err))
	}
	return ports.Table{Name: r.name, Rows: ports.StringRows(rows)}, nil
}
