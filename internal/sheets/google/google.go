package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"payouts/internal/cache"
	"payouts/internal/log"
	ports "payouts/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const defaultCacheSize = 64

// fetchFunc returns the raw values of a range.
type fetchFunc func(ctx context.Context, spreadsheetID, rng string) ([][]any, error)

// Client reads payout tables out of Google Sheets. Ranges fetched once are
// kept in an LRU cache for the configured TTL.
type Client struct {
	fetch  fetchFunc
	cache  cache.Cache[[][]any]
	logger *log.Logger
}

type Options struct {
	// CredentialsJSON takes precedence over CredentialsFile.
	CredentialsJSON string
	CredentialsFile string
	CacheTTL        time.Duration
	CacheSize       int
	Logger          *log.Logger
}

// OptionsFromEnv reads GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE
// and, as a fallback, GOOGLE_APPLICATION_CREDENTIALS.
func OptionsFromEnv() Options {
	o := Options{
		CredentialsJSON: strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")),
		CredentialsFile: strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE")),
	}
	if o.CredentialsJSON == "" && o.CredentialsFile == "" {
		o.CredentialsFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	return o
}

// New creates a read-only Sheets client using service account credentials.
func New(ctx context.Context, opts Options) (*Client, error) {
	svc, err := newSheetsService(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	fetch := func(ctx context.Context, id, rng string) ([][]any, error) {
		resp, err := svc.Spreadsheets.Values.Get(id, rng).
			ValueRenderOption("UNFORMATTED_VALUE").
			DateTimeRenderOption("SERIAL_NUMBER").
			Context(ctx).Do()
		if err != nil {
			return nil, err
		}
		return resp.Values, nil
	}
	return newClient(fetch, opts), nil
}

func newClient(fetch fetchFunc, opts Options) *Client {
	size := opts.CacheSize
	if size <= 0 {
		size = defaultCacheSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	return &Client{
		fetch:  fetch,
		cache:  cache.NewLRU[[][]any](size, opts.CacheTTL),
		logger: logger.WithComponent(log.ComponentSheets),
	}
}

// newSheetsService initializes a read-only Sheets service from the
// credentials in opts.
func newSheetsService(ctx context.Context, opts Options) (*gsheet.Service, error) {
	var credentialsJSON []byte
	switch {
	case opts.CredentialsJSON != "":
		credentialsJSON = []byte(opts.CredentialsJSON)
	case opts.CredentialsFile != "":
		b, err := os.ReadFile(opts.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// Reader returns a table reader over one range of a spreadsheet.
func (c *Client) Reader(spreadsheetID, rng string) *Reader {
	return &Reader{client: c, spreadsheetID: spreadsheetID, rng: rng}
}

// Reader reads a single range. Its name is the sheet title of the range so
// that a tab called "2024-01" yields that report month.
type Reader struct {
	client        *Client
	spreadsheetID string
	rng           string
}

var (
	_ ports.TableReader = (*Reader)(nil)
	_ ports.Named       = (*Reader)(nil)
)

func (r *Reader) Name() string {
	return SheetTitle(r.rng, r.spreadsheetID)
}

func (r *Reader) Read(ctx context.Context) (ports.Table, error) {
	key := r.spreadsheetID + "|" + r.rng
	start := time.Now()
	hit := true
	values, err := cache.GetOrLoad(r.client.cache, key, func() ([][]any, error) {
		hit = false
		return r.client.fetch(ctx, r.spreadsheetID, r.rng)
	})
	if err != nil {
		return ports.Table{}, ports.Unreadable(r.Name(), err)
	}
	r.client.logger.DebugContext(ctx, "range fetched",
		log.FieldSpreadsheet, r.spreadsheetID,
		log.FieldRange, r.rng,
		log.FieldRows, len(values),
		log.FieldCacheHit, hit,
		log.FieldDuration, time.Since(start).Milliseconds())

	rows := make([]ports.Row, len(values))
	for i, v := range values {
		rows[i] = ports.Row(v)
	}
	return ports.Table{Name: r.Name(), Rows: rows}, nil
}

// SheetTitle extracts the tab name of an A1 range ("'Jan 2024'!A:Z" gives
// "Jan 2024"). A range without a tab yields fallback.
func SheetTitle(rng, fallback string) string {
	title := rng
	if i := strings.LastIndex(rng, "!"); i >= 0 {
		title = rng[:i]
	} else if looksLikeCells(rng) {
		return fallback
	}
	title = strings.Trim(strings.TrimSpace(title), "'")
	if title == "" {
		return fallback
	}
	return title
}

// looksLikeCells reports whether s is a bare cell reference such as A1:Z100.
func looksLikeCells(s string) bool {
	if s == "" {
		return true
	}
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == ':':
		default:
			return false
		}
	}
	return strings.ContainsAny(s, "0123456789:")
}
