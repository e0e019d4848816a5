// Package csvfile tokenizes delimited text exports.
package csvfile

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"unicode/utf8"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"

	ports "payouts/internal/sheets"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Reader reads one delimited file. The file is opened lazily on Read.
type Reader struct {
	name string
	open func() (io.ReadCloser, error)
}

var (
	_ ports.TableReader = (*Reader)(nil)
	_ ports.Named       = (*Reader)(nil)
)

// Open returns a reader over the file at path.
func Open(path string) *Reader {
	return &Reader{
		name: filepath.Base(path),
		open: func() (io.ReadCloser, error) { return os.Open(path) },
	}
}

// NewReader wraps already opened content, e.g. an upload.
func NewReader(name string, r io.Reader) *Reader {
	return &Reader{
		name: name,
		open: func() (io.ReadCloser, error) { return io.NopCloser(r), nil },
	}
}

func (r *Reader) Name() string {
	return r.name
}

func (r *Reader) Read(ctx context.Context) (ports.Table, error) {
	if err := ctx.Err(); err != nil {
		return ports.Table{}, err
	}
	rc, err := r.open()
	if err != nil {
		return ports.Table{}, ports.Unreadable(r.name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return ports.Table{}, ports.Unreadable(r.name, err)
	}
	return Parse(r.name, data)
}

// Parse tokenizes data. It strips a UTF-8 BOM, decodes GB18030 content
// that is not valid UTF-8, and sniffs the delimiter among comma, semicolon
// and tab. Rows may have differing field counts.
func Parse(name string, data []byte) (ports.Table, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		decoded, _, err := transform.Bytes(simplifiedchinese.GB18030.NewDecoder(), data)
		if err != nil {
			return ports.Table{}, ports.Unreadable(name, fmt.Errorf("decode: %w", err))
		}
		data = decoded
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = Sniff(data)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var records [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return ports.Table{}, ports.Unreadable(name, err)
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return ports.Table{}, ports.Unreadable(name, errors.New("empty file"))
	}
	return ports.Table{Name: name, Rows: ports.StringRows(records)}, nil
}

// Sniff picks the delimiter that occurs most often, outside quotes, in the
// first lines of data. Comma wins ties.
func Sniff(data []byte) rune {
	const maxLines = 10
	counts := map[rune]int{',': 0, ';': 0, '\t': 0}
	lines, inQuotes := 0, false
	for _, r := range string(data) {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == '\n' && !inQuotes:
			lines++
		case !inQuotes:
			if _, ok := counts[r]; ok {
				counts[r]++
			}
		}
		if lines >= maxLines {
			break
		}
	}
	best := ','
	for _, d := range []rune{';', '\t'} {
		if counts[d] > counts[best] {
			best = d
		}
	}
	return best
}
