package ingest

import (
	"context"
	"log"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/MJSteenberg/xfinance/internal/domain/category"
	"github.com/MJSteenberg/xfinance/internal/domain/ledger"
	"github.com/MJSteenberg/xfinance/internal/parser"
)

var (
	ingestTracer      = otel.Tracer("xfinance/ingest")
	ingestMeter       = otel.Meter("xfinance/ingest")
	ingestDuration, _ = ingestMeter.Float64Histogram("ingest.duration", metric.WithDescription("Statement ingestion duration in seconds"), metric.WithUnit("s"))
	ingestTotal, _    = ingestMeter.Int64Counter("ingest.total", metric.WithDescription("Statement ingestions by status"))
)

// ProcessResult is the outcome of a parse+normalize pass: the candidate
// batch shown to the user before they confirm storage.
type ProcessResult struct {
	Transactions []ledger.Transaction
	Summary      ledger.StatementSummary
	Format       string

	// DeclaredPeriod is the period printed on the document, when the
	// adapter could read one; otherwise the summary's observed range.
	DeclaredPeriod ledger.Period
}

// Service orchestrates the ingestion pipeline: parse → normalize →
// categorize → reconcile → persist.
//
// Reconciliation is read-then-write, so at most one StoreStatement runs per
// user at a time; different users proceed in parallel. Parsing holds no
// lock.
type Service struct {
	parsers     *parser.Service
	categorizer category.Categorizer
	engine      *ledger.Engine

	userLocks sync.Map // user id → *sync.Mutex
}

// NewService creates an ingestion service.
func NewService(parsers *parser.Service, categorizer category.Categorizer, engine *ledger.Engine) *Service {
	return &Service{
		parsers:     parsers,
		categorizer: categorizer,
		engine:      engine,
	}
}

// ProcessStatement parses and normalizes a statement document without
// touching the ledger. The caller inspects the result and then confirms
// storage via StoreStatement.
func (s *Service) ProcessStatement(ctx context.Context, data []byte, fileName string) (*ProcessResult, error) {
	ctx, span := ingestTracer.Start(ctx, "ingest.process",
		trace.WithAttributes(attribute.String("statement.file_name", fileName)))
	defer span.End()

	format := parser.DetectFormat(fileName)
	if format == "" {
		err := &parser.Error{Kind: parser.UnrecognizedLayout, Row: -1,
			Detail: "unsupported file type: " + fileName}
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("statement.format", format))

	records, err := s.parsers.Parse(ctx, data, format)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	txs, summary, err := ledger.Normalize(records)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	category.CategorizeBatch(s.categorizer, txs, 0)

	period := ledger.Period{Start: summary.StartDate, End: summary.EndDate}
	if start, end, ok := s.parsers.PeriodHint(data, format); ok {
		period = ledger.Period{Start: start, End: end}
	}

	span.SetAttributes(attribute.Int("statement.transactions", len(txs)))
	return &ProcessResult{
		Transactions:   txs,
		Summary:        summary,
		Format:         format,
		DeclaredPeriod: period,
	}, nil
}

// StoreStatement reconciles a confirmed batch into the user's ledger under
// the per-user lock. Cancellation is honored up to the atomic persist;
// after that the write completes or fails as a whole.
func (s *Service) StoreStatement(ctx context.Context, userID, fileName, format string, period ledger.Period, batch []ledger.Transaction) (*ledger.Result, error) {
	start := time.Now()
	ctx, span := ingestTracer.Start(ctx, "ingest.store",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("statement.file_name", fileName),
			attribute.Int("statement.batch_size", len(batch)),
		))
	defer span.End()

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		ingestTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", "cancelled")))
		return nil, err
	}

	result, err := s.engine.Reconcile(ctx, userID, batch, period, fileName, format)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		ingestTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", "error")))
		ingestDuration.Record(ctx, elapsed, metric.WithAttributes(attribute.String("status", "error")))
		return nil, err
	}

	span.SetAttributes(
		attribute.String("reconcile.status", string(result.Status)),
		attribute.Int("reconcile.inserted", result.Inserted),
		attribute.Int("reconcile.duplicates", result.Duplicates),
	)
	ingestTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(result.Status))))
	ingestDuration.Record(ctx, elapsed, metric.WithAttributes(attribute.String("status", string(result.Status))))

	log.Printf("Stored statement %q for user %s: %d inserted, %d duplicates",
		fileName, userID, result.Inserted, result.Duplicates)
	return result, nil
}

// userLock returns the mutex serializing ingestion for one user. Locks are
// never removed; the map grows with the number of distinct users, which is
// bounded and small.
func (s *Service) userLock(userID string) *sync.Mutex {
	v, _ := s.userLocks.LoadOrStore(userID, &sync.Mutex{})
	return v.(*sync.Mutex)
}
