package log

// Common field names for structured logging
const (
	FieldComponent        = "component"
	FieldRequestID        = "request_id"
	FieldClientIP         = "client_ip"
	FieldMethod           = "method"
	FieldPath             = "path"
	FieldQuery            = "query"
	FieldStatusCode       = "status_code"
	FieldDuration         = "duration_ms"
	FieldUserAgent        = "user_agent"
	FieldSuccess          = "success"
	FieldError            = "error"
	FieldOperation        = "operation"
	FieldRunID            = "run_id"
	FieldEndpoint         = "endpoint"
	FieldFilename         = "filename"
	FieldDigest           = "digest"
	FieldRowsIn           = "rows_in"
	FieldRowsOut          = "rows_out"
	FieldDroppedZeroDebit = "dropped_zero_debit"
	FieldDroppedTax       = "dropped_tax"
	FieldCategories       = "categories"
	FieldCacheHit         = "cache_hit"
	FieldBytes            = "bytes"
)

// Components
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentStatement = "statement"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentCache     = "cache"
	ComponentSecurity  = "security"
	ComponentRateLimit = "rate_limit"
	ComponentTrace     = "trace"
	ComponentRecorder  = "recorder"
	ComponentCLI       = "cli"
)

// Operations
const (
	OpCategorize = "categorize"
	OpAggregate  = "aggregate"
	OpRecord     = "record"
	OpList       = "list"
	OpConsume    = "consume"
	OpPublish    = "publish"
	OpMigrate    = "migrate"
	OpParse      = "parse"
	OpShutdown   = "shutdown"
	OpStartup    = "startup"
)

// LogFields is a small builder for slog key/value pairs.
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithRun adds the counters describing one categorization run.
func (f LogFields) WithRun(id, endpoint string, rowsIn, rowsOut, droppedZeroDebit, droppedTax int) LogFields {
	f[FieldRunID] = id
	f[FieldEndpoint] = endpoint
	f[FieldRowsIn] = rowsIn
	f[FieldRowsOut] = rowsOut
	f[FieldDroppedZeroDebit] = droppedZeroDebit
	f[FieldDroppedTax] = droppedTax
	return f
}

func (f LogFields) WithHTTPRequest(method, path, query, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	if userAgent != "" {
		f[FieldUserAgent] = userAgent
	}
	return f
}

func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = statusCode < 400
	return f
}

// ToSlice flattens the fields into slog's alternating key/value form.
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
