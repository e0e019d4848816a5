package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"payouts/internal/amqp"
	"payouts/internal/config"
	"payouts/internal/core"
	"payouts/internal/export"
	"payouts/internal/log"
	"payouts/internal/services"
	"payouts/internal/sheets"
	gsheet "payouts/internal/sheets/google"
	"payouts/internal/source"
	"payouts/internal/storage"
	"payouts/internal/worker"
)

// Notifier publishes batch-ready messages.
type Notifier interface {
	PublishBatchReady(ctx context.Context, msg *amqp.BatchReadyMessage) error
	Close() error
}

// App carries what every command needs. The hooks default to the real
// sources and broker and are replaced in tests.
type App struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer

	Config *config.Config
	Logger *log.Logger

	Open   func(ctx context.Context, refs []string) []sheets.TableReader
	Notify func(cfg *config.Config, logger *log.Logger) (Notifier, error)
}

func NewApp() *App {
	return &App{In: os.Stdin, Out: os.Stdout, Err: os.Stderr}
}

func (a *App) init(envFile, level string) error {
	if envFile != "" {
		LoadEnvFile(envFile)
	} else {
		LoadEnvFile()
	}
	if level != "" {
		os.Setenv("LOG_LEVEL", level)
	}

	if a.Config == nil {
		cfg, err := LoadAndValidateConfig(log.Discard())
		if err != nil {
			return err
		}
		a.Config = cfg
	}
	if a.Logger == nil {
		a.Logger = SetupLogger(a.Config.LogLevel, a.Err)
	}
	if a.Open == nil {
		a.Open = func(ctx context.Context, refs []string) []sheets.TableReader {
			dial := func(ctx context.Context) (*gsheet.Client, error) {
				opts := a.Config.GoogleOptions()
				opts.Logger = a.Logger
				return gsheet.New(ctx, opts)
			}
			return source.NewFactory(a.Logger, dial).OpenAll(ctx, refs)
		}
	}
	if a.Notify == nil {
		a.Notify = func(cfg *config.Config, logger *log.Logger) (Notifier, error) {
			return amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		}
	}
	return nil
}

// NewRootCmd assembles the payouts command tree.
func NewRootCmd(app *App) *cobra.Command {
	var envFile, level string
	root := &cobra.Command{
		Use:           "payouts",
		Short:         "Airbnb payout report ingestion and monthly occupancy reporting",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.init(envFile, level)
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", "", "load environment from this file instead of .env")
	root.PersistentFlags().StringVar(&level, "log-level", "", "override LOG_LEVEL")
	root.SetIn(app.In)
	root.SetOut(app.Out)
	root.SetErr(app.Err)

	root.AddCommand(
		ReportCmd(app),
		BookingsCmd(app),
		DetectCmd(app),
		ListenCmd(app),
	)
	return root
}

// ingestFlags are shared by every command that parses files.
type ingestFlags struct {
	monthFor    []string
	promptMonth bool
	appendRefs  []string
	workers     int
}

func (f *ingestFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(&f.monthFor, "month-for", nil, "force the report month of a file (file=YYYY-MM, repeatable)")
	cmd.Flags().BoolVar(&f.promptMonth, "prompt-month", false, "ask for the month of files where it cannot be inferred")
	cmd.Flags().StringArrayVar(&f.appendRefs, "append", nil, "upload these files after the first batch, appending to it (repeatable)")
	cmd.Flags().IntVar(&f.workers, "workers", 0, "files parsed concurrently (default PAYOUTS_WORKERS)")
}

func (a *App) ingest(ctx context.Context, refs []string, f ingestFlags) (core.Batch, error) {
	overrides, err := ParseMonthOverrides(f.monthFor)
	if err != nil {
		return core.Batch{}, err
	}
	byName := make(map[string]core.Month, len(overrides))
	for k, m := range overrides {
		byName[filepath.Base(k)] = m
	}

	workers := a.Config.Workers
	if f.workers > 0 {
		workers = f.workers
	}
	icfg := services.IngesterConfig{
		Workers:   workers,
		Overrides: byName,
		Logger:    a.Logger,
	}
	if f.promptMonth {
		icfg.Resolver = NewPrompter(a.In, a.Err)
	}

	session := services.NewSession(services.NewIngester(icfg))
	batch, err := session.Upload(ctx, a.Open(ctx, refs), services.ModeReplace)
	if err != nil {
		return core.Batch{}, err
	}
	if len(f.appendRefs) > 0 {
		batch, err = session.Upload(ctx, a.Open(ctx, f.appendRefs), services.ModeAppend)
		if err != nil {
			return core.Batch{}, err
		}
	}
	return batch, nil
}

type reportFlags struct {
	ingestFlags
	month     string
	keyword   string
	allFields bool
	policy    string
	sort      string
	export    string
	notify    bool
}

func (f *reportFlags) register(cmd *cobra.Command) {
	f.ingestFlags.register(cmd)
	cmd.Flags().StringVar(&f.month, "month", "", "only show this month (YYYY-MM) or year (YYYY)")
	cmd.Flags().StringVar(&f.keyword, "keyword", "", "only show rows whose internal name contains this text")
	cmd.Flags().BoolVar(&f.allFields, "all-fields", false, "match --keyword against every field")
	cmd.Flags().StringVar(&f.policy, "policy", "", "allocation policy: report-month or stay-months (default PAYOUTS_POLICY)")
	cmd.Flags().StringVar(&f.sort, "sort", "", "summary order: occupancy, revenue, listing or month (default PAYOUTS_SORT)")
	cmd.Flags().StringVar(&f.export, "export", "", "also write the report to a .csv, .xlsx or .db file")
	cmd.Flags().BoolVar(&f.notify, "notify", false, "publish a batch-ready message to AMQP")
}

// build ingests refs and produces the report the flags describe.
func (a *App) build(ctx context.Context, refs []string, f reportFlags) (core.Batch, services.Report, error) {
	policyName := f.policy
	if policyName == "" {
		policyName = a.Config.Policy
	}
	policy, err := core.ParsePolicy(policyName)
	if err != nil {
		return core.Batch{}, services.Report{}, err
	}
	sortName := f.sort
	if sortName == "" {
		sortName = a.Config.Sort
	}
	sortKey, err := core.ParseSortKey(sortName)
	if err != nil {
		return core.Batch{}, services.Report{}, err
	}
	criteria := core.ParseCriteria(f.month, f.keyword, f.allFields)
	if criteria.Month != "" {
		if criteria.Month, err = core.ParseMonthFilter(criteria.Month); err != nil {
			return core.Batch{}, services.Report{}, fmt.Errorf("--month: %w", err)
		}
	}

	batch, err := a.ingest(ctx, refs, f.ingestFlags)
	if err != nil {
		return core.Batch{}, services.Report{}, err
	}

	reporter := services.NewReporter(services.ReporterConfig{
		Currency: a.Config.Currency,
		Locale:   a.Config.Locale,
		Sort:     sortKey,
		Logger:   a.Logger,
	})
	return batch, reporter.Build(ctx, batch, criteria, policy), nil
}

func (a *App) finish(ctx context.Context, batch core.Batch, rep services.Report, f reportFlags, tables ...export.Sheet) error {
	if f.export != "" {
		if err := a.export(ctx, f.export, rep, tables...); err != nil {
			return err
		}
	}
	if f.notify {
		if err := a.notify(ctx, batch); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) export(ctx context.Context, path string, rep services.Report, tables ...export.Sheet) error {
	format, err := export.FormatOf(path)
	if err != nil {
		return err
	}
	if format == export.FormatSQLite {
		repo, err := storage.NewSQLiteRepository(path, a.Logger)
		if err != nil {
			return err
		}
		defer repo.Close()
		return repo.SaveReport(ctx, rep)
	}
	if err := export.WriteFile(path, tables...); err != nil {
		return err
	}
	a.Logger.WithComponent(log.ComponentExport).InfoContext(ctx, "report exported",
		log.FieldPath, path, log.FieldOperation, log.OpExport)
	return nil
}

func (a *App) notify(ctx context.Context, batch core.Batch) error {
	if !a.Config.NotifyEnabled() {
		return errors.New("--notify needs AMQP_URL")
	}
	n, err := a.Notify(a.Config, a.Logger)
	if err != nil {
		return fmt.Errorf("connect to AMQP: %w", err)
	}
	defer n.Close()
	return n.PublishBatchReady(ctx, amqp.NewBatchReadyMessage(batch))
}

func (a *App) warn(rep services.Report) {
	for _, w := range rep.Warnings {
		fmt.Fprintf(a.Err, "warning: %s\n", w)
	}
}

func ReportCmd(app *App) *cobra.Command {
	var f reportFlags
	cmd := &cobra.Command{
		Use:   "report [files...]",
		Short: "Monthly revenue and occupancy per property",
		Long: `Parses every payout export (CSV, XLSX or gsheet://<id>/<range>) concurrently,
allocates each booking to months and prints one row per property and month.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := GracefulShutdown(cmd.Context(), app.Logger)
			defer stop()

			batch, rep, err := app.build(ctx, args, f)
			if err != nil {
				return err
			}
			writeSummaries(app.Out, rep, app.Config.Locale)
			app.warn(rep)
			return app.finish(ctx, batch, rep, f,
				export.SummarySheet(rep.Summaries), export.BookingSheet(rep.Bookings), export.FileSheet(rep.Files))
		},
	}
	f.register(cmd)
	return cmd
}

func BookingsCmd(app *App) *cobra.Command {
	var f reportFlags
	cmd := &cobra.Command{
		Use:   "bookings [files...]",
		Short: "List canonical bookings with their booking-amount total",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := GracefulShutdown(cmd.Context(), app.Logger)
			defer stop()

			batch, rep, err := app.build(ctx, args, f)
			if err != nil {
				return err
			}
			writeBookings(app.Out, rep)
			app.warn(rep)
			return app.finish(ctx, batch, rep, f, export.BookingSheet(rep.Bookings), export.FileSheet(rep.Files))
		},
	}
	f.register(cmd)
	return cmd
}

func DetectCmd(app *App) *cobra.Command {
	var f ingestFlags
	cmd := &cobra.Command{
		Use:   "detect [files...]",
		Short: "Show the detected header row, report month and row counts of each file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := GracefulShutdown(cmd.Context(), app.Logger)
			defer stop()

			batch, err := app.ingest(ctx, args, f)
			if err != nil {
				return err
			}
			writeFiles(app.Out, batch.Files)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func ListenCmd(app *App) *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Print batch-ready messages from AMQP until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !app.Config.NotifyEnabled() {
				return errors.New("listen needs AMQP_URL")
			}
			ctx, stop := GracefulShutdown(cmd.Context(), app.Logger)
			defer stop()

			var store worker.BatchStore
			if dbPath != "" {
				repo, err := storage.NewSQLiteRepository(dbPath, app.Logger)
				if err != nil {
					return err
				}
				defer repo.Close()
				store = repo
			}

			client, err := amqp.NewClient(app.Config.AMQPURL, app.Config.AMQPExchange, app.Config.AMQPQueue, app.Logger)
			if err != nil {
				return err
			}
			defer client.Close()

			return worker.NewBatchWorker(app.Out, store, app.Logger).Run(ctx, client)
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "check each batch against this report database")
	return cmd
}

func writeSummaries(w io.Writer, rep services.Report, locale string) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LISTING\tINTERNAL\tMONTH\tREVENUE\tNIGHTS\tDAYS\tOCCUPANCY\tBOOKINGS")
	for _, s := range rep.Summaries {
		occ := fmt.Sprintf("%.1f%%", s.OccupancyRate)
		if s.Overbooked {
			occ += "*"
		}
		cur := s.Currency
		if cur == "" {
			cur = rep.Currency
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%s\t%d\n",
			s.ListingName, s.InternalName, s.Month, core.FormatMoney(s.TotalRevenue, cur, locale),
			s.OccupiedNights, s.DaysInMonth, occ, s.BookingCount)
	}
	tw.Flush()
	fmt.Fprintf(w, "\n%d rows, total revenue %s\n", len(rep.Summaries), rep.TotalText)
}

func writeBookings(w io.Writer, rep services.Report) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tLISTING\tINTERNAL\tSTART\tEND\tNIGHTS\tAMOUNT\tMONTH")
	for _, b := range rep.Bookings {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			b.ID, b.ListingName, b.InternalName, b.StartDate, b.EndDate, b.TotalNights,
			b.BookingAmount.StringFixed(2), b.ReportMonth)
	}
	tw.Flush()
	fmt.Fprintf(w, "\n%d bookings, total booking amount %s\n", len(rep.Bookings), rep.BookingTotalText)
}

func writeFiles(w io.Writer, files []core.FileReport) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tHEADER\tMONTH\tSOURCE\tROWS\tKEPT\tDROPPED\tERROR")
	for _, f := range files {
		header, msg := "-", ""
		if f.Err != nil {
			msg = f.Err.Error()
		} else {
			header = fmt.Sprint(f.HeaderRow + 1)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			f.File, header, f.ReportMonth, f.MonthSource,
			f.Diagnostics.Rows, f.Diagnostics.Kept, f.Diagnostics.TotalDropped(), msg)
	}
	tw.Flush()
}
