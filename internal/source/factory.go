// Package source turns file references given on the command line into table
// readers.
package source

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"payouts/internal/log"
	"payouts/internal/sheets"
	"payouts/internal/sheets/csvfile"
	"payouts/internal/sheets/excel"
	gsheet "payouts/internal/sheets/google"
	"payouts/internal/sheets/memory"
)

// GoogleScheme prefixes Google Sheets references: gsheet://<id>/<range>.
const GoogleScheme = "gsheet://"

var ErrUnsupported = errors.New("unsupported source")

// Kind identifies the adapter behind a reference.
type Kind string

const (
	KindCSV    Kind = "csv"
	KindExcel  Kind = "xlsx"
	KindGoogle Kind = "gsheet"
)

// IsValid checks if the kind is supported
func (k Kind) IsValid() bool {
	switch k {
	case KindCSV, KindExcel, KindGoogle:
		return true
	default:
		return false
	}
}

// KindOf classifies ref by scheme or extension.
func KindOf(ref string) (Kind, error) {
	if strings.HasPrefix(strings.ToLower(ref), GoogleScheme) {
		return KindGoogle, nil
	}
	switch strings.ToLower(filepath.Ext(ref)) {
	case ".csv", ".txt", ".tsv":
		return KindCSV, nil
	case ".xlsx", ".xlsm":
		return KindExcel, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupported, ref)
	}
}

// ParseGoogleRef splits gsheet://<id>/<range>. A missing range reads the
// first tab.
func ParseGoogleRef(ref string) (id, rng string, err error) {
	rest := ref[len(GoogleScheme):]
	id, rng, _ = strings.Cut(rest, "/")
	id = strings.TrimSpace(id)
	if id == "" {
		return "", "", fmt.Errorf("%w: missing spreadsheet id in %q", ErrUnsupported, ref)
	}
	if rng == "" {
		rng = "A:Z"
	}
	return id, rng, nil
}

// GoogleDialer creates the Sheets client on first use.
type GoogleDialer func(ctx context.Context) (*gsheet.Client, error)

// Factory opens references. The Sheets client is only created when a
// gsheet:// reference is seen.
type Factory struct {
	logger *log.Logger
	dial   GoogleDialer

	once      sync.Once
	google    *gsheet.Client
	googleErr error
}

func NewFactory(logger *log.Logger, dial GoogleDialer) *Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &Factory{logger: logger.WithComponent(log.ComponentSource), dial: dial}
}

// Open returns the reader for one reference.
func (f *Factory) Open(ctx context.Context, ref string) (sheets.TableReader, error) {
	kind, err := KindOf(ref)
	if err != nil {
		return nil, err
	}
	switch kind {
	case KindCSV:
		return csvfile.Open(ref), nil
	case KindExcel:
		return excel.Open(ref), nil
	case KindGoogle:
		id, rng, err := ParseGoogleRef(ref)
		if err != nil {
			return nil, err
		}
		c, err := f.googleClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("google sheets: %w", err)
		}
		return c.Reader(id, rng), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, ref)
	}
}

// OpenAll opens every reference. A reference that cannot be opened becomes
// a reader that fails as unreadable, so the batch reports it alongside the
// others instead of aborting.
func (f *Factory) OpenAll(ctx context.Context, refs []string) []sheets.TableReader {
	out := make([]sheets.TableReader, 0, len(refs))
	for _, ref := range refs {
		r, err := f.Open(ctx, ref)
		if err != nil {
			f.logger.WarnContext(ctx, "cannot open source", log.FieldPath, ref, log.FieldError, err)
			r = memory.Failing(ref, err)
		}
		out = append(out, r)
	}
	return out
}

func (f *Factory) googleClient(ctx context.Context) (*gsheet.Client, error) {
	f.once.Do(func() {
		if f.dial == nil {
			f.googleErr = errors.New("google sheets not configured")
			return
		}
		f.google, f.googleErr = f.dial(ctx)
		if f.googleErr == nil {
			f.logger.InfoContext(ctx, "initialized google sheets client")
		}
	})
	return f.google, f.googleErr
}
