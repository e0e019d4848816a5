package sheets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnreadable is returned when a source cannot be decoded into rows.
var ErrUnreadable = errors.New("unreadable source")

type (
	// Row holds the cells of one tokenized row. Cells are string, float64,
	// int or time.Time values.
	Row []any

	// Table is a tokenized source: its name (usually the file name, used for
	// month inference) and all of its rows, header included.
	Table struct {
		Name string
		Rows []Row
	}
)

// Ports for inbound adapters.
type (
	// TableReader produces one table from a file, a spreadsheet or memory.
	TableReader interface {
		Read(ctx context.Context) (Table, error)
	}

	// Named is implemented by readers that know their source name before
	// reading, so failures can still be attributed to a file.
	Named interface {
		Name() string
	}
)

// Unreadable wraps err so that errors.Is(err, ErrUnreadable) holds.
func Unreadable(name string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUnreadable, name, err)
}

// NameOf returns the reader's source name when it exposes one.
func NameOf(r TableReader) string {
	if n, ok := r.(Named); ok {
		return n.Name()
	}
	return ""
}

// Text renders a cell as trimmed text.
func Text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case time.Time:
		return x.Format("2006-01-02")
	case float64:
		if x == float64(int64(x)) {
			return fmt.Sprintf("%d", int64(x))
		}
		return fmt.Sprintf("%g", x)
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}

// Texts renders every cell of r as text.
func (r Row) Texts() []string {
	out := make([]string, len(r))
	for i, v := range r {
		out[i] = Text(v)
	}
	return out
}

// Joined concatenates the row's text with spaces.
func (r Row) Joined() string {
	return strings.Join(r.Texts(), " ")
}

// IsBlank reports whether every cell is empty.
func (r Row) IsBlank() bool {
	for _, v := range r {
		if Text(v) != "" {
			return false
		}
	}
	return true
}

// Cell returns the cell at i or nil when i is out of range or negative.
func (r Row) Cell(i int) any {
	if i < 0 || i >= len(r) {
		return nil
	}
	return r[i]
}

// StringRows converts plain text records into rows.
func StringRows(records [][]string) []Row {
	out := make([]Row, len(records))
	for i, rec := range records {
		row := make(Row, len(rec))
		for j, c := range rec {
			row[j] = c
		}
		out[i] = row
	}
	return out
}
