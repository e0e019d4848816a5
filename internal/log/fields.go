package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldBatchID     = "batch_id"
	FieldFile        = "file"
	FieldStage       = "stage"
	FieldMonth       = "month"
	FieldMonthSource = "month_source"
	FieldHeaderRow   = "header_row"
	FieldRows        = "rows"
	FieldKept        = "kept"
	FieldDropped     = "dropped"
	FieldBookings    = "bookings"
	FieldFiles       = "files"
	FieldSkipped     = "skipped"
	FieldWorkers     = "workers"
	FieldPolicy      = "policy"
	FieldDuration    = "duration_ms"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldPath        = "path"
	FieldSpreadsheet = "spreadsheet_id"
	FieldRange       = "range"
	FieldCacheHit    = "cache_hit"
)

// Component names
const (
	ComponentApp     = "app"
	ComponentIngest  = "ingest"
	ComponentReport  = "report"
	ComponentSource  = "source"
	ComponentSheets  = "sheets"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentExport  = "export"
	ComponentConfig  = "config"
	ComponentCLI     = "cli"
)

// Operations
const (
	OpRead      = "read"
	OpDetect    = "detect"
	OpNormalize = "normalize"
	OpAggregate = "aggregate"
	OpExport    = "export"
	OpPublish   = "publish"
	OpMigrate   = "migrate"
	OpShutdown  = "shutdown"
	OpStartup   = "startup"
)

// Fields builds structured attributes as key/value pairs.
type Fields map[string]any

func NewFields() Fields {
	return make(Fields)
}

func (f Fields) WithError(err error) Fields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f Fields) WithOperation(op string) Fields {
	f[FieldOperation] = op
	return f
}

func (f Fields) WithFile(name string) Fields {
	f[FieldFile] = name
	return f
}

// Args flattens the fields for slog's variadic API.
func (f Fields) Args() []any {
	args := make([]any, 0, len(f)*2)
	for k, v := range f {
		args = append(args, k, v)
	}
	return args
}
