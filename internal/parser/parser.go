package parser

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// RawRecord is one transaction line as it appears on the source document,
// before any normalization. All fields are kept as raw strings; the
// normalizer owns date and amount parsing.
type RawRecord struct {
	PostingDate     string
	TransactionDate string
	Description     string
	MoneyIn         string
	MoneyOut        string
	Balance         string
	Type            string

	// Line is the zero-based position of the record in document order.
	// Document order is significant: balance continuity is checked in it.
	Line int
}

// ErrorKind classifies parse failures.
type ErrorKind string

const (
	MalformedRow       ErrorKind = "malformed_row"
	MissingColumn      ErrorKind = "missing_column"
	UnrecognizedLayout ErrorKind = "unrecognized_layout"
	ParseTimeout       ErrorKind = "parse_timeout"
)

// Error is a structured parse failure. Row is the zero-based row index when
// the failure concerns a specific row, -1 otherwise.
type Error struct {
	Kind   ErrorKind
	Row    int
	Detail string
}

func (e *Error) Error() string {
	if e.Row >= 0 {
		return fmt.Sprintf("parse error (%s) at row %d: %s", e.Kind, e.Row, e.Detail)
	}
	return fmt.Sprintf("parse error (%s): %s", e.Kind, e.Detail)
}

func newError(kind ErrorKind, row int, format string, args ...any) *Error {
	return &Error{Kind: kind, Row: row, Detail: fmt.Sprintf(format, args...)}
}

// Adapter converts raw statement bytes of one source format into RawRecords
// in document order.
type Adapter interface {
	Parse(data []byte) ([]RawRecord, error)
	Format() string
}

// PeriodHinter is an optional adapter capability: adapters that can read a
// declared statement period from the document header implement it.
type PeriodHinter interface {
	PeriodHint(data []byte) (start, end time.Time, ok bool)
}

// Registry holds named adapters.
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry creates an empty adapter registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Register adds an adapter. Panics on duplicate format.
func (r *Registry) Register(a Adapter) {
	key := strings.ToLower(a.Format())
	if _, ok := r.adapters[key]; ok {
		panic("duplicate adapter format: " + key)
	}
	r.adapters[key] = a
}

// Get returns the adapter for format, or nil.
func (r *Registry) Get(format string) Adapter {
	return r.adapters[strings.ToLower(format)]
}

// DefaultRegistry returns a registry with all built-in adapters.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&CSVAdapter{})
	r.Register(&PDFAdapter{})
	return r
}

// DetectFormat maps a file name to an adapter format by extension.
// Returns "" for unsupported extensions.
func DetectFormat(fileName string) string {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".csv":
		return FormatCSV
	case ".pdf":
		return FormatPDF
	}
	return ""
}

// Service runs adapters under a bounded timeout. Parsing is CPU-bound and
// stateless, so it is pushed onto its own goroutine; a document that chews
// through the budget surfaces as ParseTimeout instead of blocking ingestion.
type Service struct {
	registry *Registry
	timeout  time.Duration
}

// NewService creates a parse service. A non-positive timeout disables the bound.
func NewService(registry *Registry, timeout time.Duration) *Service {
	return &Service{registry: registry, timeout: timeout}
}

type parseResult struct {
	records []RawRecord
	err     error
}

// Parse runs the adapter for format against data. The error is always an
// *Error for caller-side classification.
func (s *Service) Parse(ctx context.Context, data []byte, format string) ([]RawRecord, error) {
	adapter := s.registry.Get(format)
	if adapter == nil {
		return nil, newError(UnrecognizedLayout, -1, "no adapter for format %q", format)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	done := make(chan parseResult, 1)
	go func() {
		records, err := adapter.Parse(data)
		done <- parseResult{records: records, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, newError(ParseTimeout, -1, "parsing %s document exceeded %s", format, s.timeout)
	case res := <-done:
		return res.records, res.err
	}
}

// PeriodHint asks the adapter for format, if capable, for the declared
// statement period printed on the document.
func (s *Service) PeriodHint(data []byte, format string) (start, end time.Time, ok bool) {
	if h, capable := s.registry.Get(format).(PeriodHinter); capable {
		return h.PeriodHint(data)
	}
	return time.Time{}, time.Time{}, false
}
