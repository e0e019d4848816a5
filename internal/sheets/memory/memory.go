package memory

import (
	"context"

	ports "payouts/internal/sheets"
)

// Reader serves a table held in memory. It is used by tests and by callers
// that already tokenized their input.
type Reader struct {
	table ports.Table
	err   error
}

var (
	_ ports.TableReader = (*Reader)(nil)
	_ ports.Named       = (*Reader)(nil)
)

// New builds a reader from text records.
func New(name string, records ...[]string) *Reader {
	return &Reader{table: ports.Table{Name: name, Rows: ports.StringRows(records)}}
}

// NewTable wraps an existing table. Rows are copied on every Read.
func NewTable(t ports.Table) *Reader {
	return &Reader{table: t}
}

// Failing returns a reader whose Read always fails as unreadable.
func Failing(name string, err error) *Reader {
	return &Reader{table: ports.Table{Name: name}, err: err}
}

func (r *Reader) Name() string {
	return r.table.Name
}

func (r *Reader) Read(ctx context.Context) (ports.Table, error) {
	if err := ctx.Err(); err != nil {
		return ports.Table{}, err
	}
	if r.err != nil {
		return ports.Table{}, ports.Unreadable(r.table.Name, r.err)
	}
	rows := make([]ports.Row, len(r.table.Rows))
	for i, row := range r.table.Rows {
		rows[i] = append(ports.Row(nil), row...)
	}
	return ports.Table{Name: r.table.Name, Rows: rows}, nil
}
