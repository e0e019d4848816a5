package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"payouts/internal/core"
	"payouts/internal/log"
	"payouts/internal/normalize"
	"payouts/internal/schema"
	"payouts/internal/sheets"
)

// Stage names the pipeline step a file failed in.
type Stage string

const (
	StageRead   Stage = "read"
	StageDetect Stage = "detect"
)

// FileError reports why one file of a batch was skipped.
type FileError struct {
	File  string
	Stage Stage
	Err   error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.File, e.Stage, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// MonthResolver supplies a report month for a file whose month could not be
// inferred. ok is false when the file should be skipped.
type MonthResolver interface {
	ResolveMonth(ctx context.Context, file string, l schema.Layout) (m core.Month, ok bool)
}

// MonthResolverFunc adapts a function to MonthResolver.
type MonthResolverFunc func(ctx context.Context, file string, l schema.Layout) (core.Month, bool)

func (f MonthResolverFunc) ResolveMonth(ctx context.Context, file string, l schema.Layout) (core.Month, bool) {
	return f(ctx, file, l)
}

type IngesterConfig struct {
	// Workers bounds how many files are parsed at once (default 4).
	Workers int
	Mapping schema.FieldMapping
	// Overrides force the month of the named files.
	Overrides map[string]core.Month
	// Resolver is asked when a month is undetermined. Nil skips such files.
	Resolver MonthResolver
	Logger   *log.Logger
	Now      func() time.Time
}

// Ingester parses multi-file uploads into batches.
type Ingester struct {
	cfg        IngesterConfig
	normalizer *normalize.Normalizer
	logger     *log.Logger
}

func NewIngester(cfg IngesterConfig) *Ingester {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Discard()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Ingester{
		cfg:        cfg,
		normalizer: normalize.New(cfg.Mapping),
		logger:     cfg.Logger.WithComponent(log.ComponentIngest),
	}
}

type fileResult struct {
	report   core.FileReport
	bookings []core.CanonicalBooking
}

// ParseBatch reads, detects and normalizes every reader concurrently and
// returns the batch only after every file has settled. A failing file is
// recorded in the batch and never stops its siblings; the only error
// returned is the context's.
func (in *Ingester) ParseBatch(ctx context.Context, readers []sheets.TableReader) (core.Batch, error) {
	return in.parseBatch(ctx, readers, nil)
}

func (in *Ingester) parseBatch(ctx context.Context, readers []sheets.TableReader, taken map[string]int) (core.Batch, error) {
	start := in.cfg.Now()
	slots := make([]fileResult, len(readers))

	var g errgroup.Group
	g.SetLimit(in.cfg.Workers)
	for i, r := range readers {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			slots[i] = in.parseFile(ctx, i, r)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return core.Batch{}, err
	}
	if err := ctx.Err(); err != nil {
		return core.Batch{}, err
	}

	batch := core.Batch{ID: uuid.NewString(), CreatedAt: start}
	names := uniqueNames(slots, taken)
	for i, s := range slots {
		s.report.File = names[i]
		for _, b := range s.bookings {
			b.SourceFile = names[i]
			b.ID = fmt.Sprintf("%s#%d", names[i], b.Row)
			batch.Bookings = append(batch.Bookings, b)
		}
		batch.Files = append(batch.Files, s.report)
	}

	in.logger.InfoContext(ctx, "batch parsed",
		log.FieldBatchID, batch.ID,
		log.FieldFiles, len(batch.Files),
		log.FieldSkipped, len(batch.Skipped()),
		log.FieldBookings, len(batch.Bookings),
		log.FieldDuration, in.cfg.Now().Sub(start).Milliseconds())
	return batch, nil
}

func (in *Ingester) parseFile(ctx context.Context, idx int, r sheets.TableReader) fileResult {
	name := sheets.NameOf(r)
	if name == "" {
		name = fmt.Sprintf("file-%d", idx+1)
	}
	fail := func(stage Stage, err error) fileResult {
		fe := &FileError{File: name, Stage: stage, Err: err}
		in.logger.WarnContext(ctx, "file skipped",
			log.FieldFile, name, log.FieldStage, string(stage), log.FieldError, err)
		return fileResult{report: core.FileReport{File: name, Err: fe}}
	}

	t, err := r.Read(ctx)
	if err != nil {
		if !errors.Is(err, sheets.ErrUnreadable) && ctx.Err() == nil {
			err = sheets.Unreadable(name, err)
		}
		return fail(StageRead, err)
	}
	if t.Name == "" {
		t.Name = name
	}
	name = t.Name

	opts := schema.DetectOptions{MonthOverride: in.override(name), Mapping: in.cfg.Mapping}
	l, err := schema.Detect(t, opts)
	if errors.Is(err, schema.ErrMonthUndetermined) && in.cfg.Resolver != nil {
		if m, ok := in.cfg.Resolver.ResolveMonth(ctx, name, l); ok && m.Validate() == nil {
			l, err = l.WithMonth(m), nil
		}
	}
	if err != nil {
		return fail(StageDetect, err)
	}

	res := in.normalizer.Normalize(t, l)
	in.logger.DebugContext(ctx, "file parsed",
		log.FieldFile, name,
		log.FieldHeaderRow, l.HeaderRow,
		log.FieldMonth, l.ReportMonth.String(),
		log.FieldMonthSource, string(l.MonthSource),
		log.FieldRows, res.Diagnostics.Rows,
		log.FieldKept, res.Diagnostics.Kept,
		log.FieldDropped, res.Diagnostics.TotalDropped())

	return fileResult{
		report: core.FileReport{
			File:        name,
			ReportMonth: l.ReportMonth,
			MonthSource: string(l.MonthSource),
			HeaderRow:   l.HeaderRow,
			Bookings:    len(res.Bookings),
			Diagnostics: res.Diagnostics,
		},
		bookings: res.Bookings,
	}
}

func (in *Ingester) override(name string) core.Month {
	if m, ok := in.cfg.Overrides[name]; ok {
		return m
	}
	for k, m := range in.cfg.Overrides {
		if strings.EqualFold(k, name) {
			return m
		}
	}
	return core.Month{}
}

// uniqueNames suffixes repeated file names (a.csv, a.csv~2) so booking IDs
// stay unique within a batch. taken holds names already in use.
func uniqueNames(slots []fileResult, taken map[string]int) []string {
	used := make(map[string]bool, len(taken)+len(slots))
	for k := range taken {
		used[k] = true
	}
	out := make([]string, len(slots))
	for i, s := range slots {
		name := s.report.File
		for n := 2; used[name]; n++ {
			name = fmt.Sprintf("%s~%d", s.report.File, n)
		}
		used[name] = true
		out[i] = name
	}
	return out
}
