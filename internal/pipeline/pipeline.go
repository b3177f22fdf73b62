// Package pipeline runs the batch: ingest, normalize, load, verify,
// aggregate, score, classify and analyze. Each stage completes before the
// next starts, and any failure stops the run without a report.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/retail-rfm/internal/datanorm"
	"github.com/ignite/retail-rfm/internal/domain"
	"github.com/ignite/retail-rfm/internal/financial"
	"github.com/ignite/retail-rfm/internal/pkg/distlock"
	"github.com/ignite/retail-rfm/internal/pkg/logger"
	"github.com/ignite/retail-rfm/internal/segmentation"
	"github.com/ignite/retail-rfm/internal/service/loader"
	"github.com/ignite/retail-rfm/internal/service/rfm"
)

// Source yields raw transaction rows.
type Source interface {
	Name() string
	Records(ctx context.Context) ([]domain.RawRecord, error)
}

// unparsedCounter is implemented by file sources that skip malformed rows.
type unparsedCounter interface {
	UnparsedRows() int
}

// Store is the relational store the pipeline writes to and reads from.
type Store interface {
	loader.Repository
	rfm.Repository
}

// Options configures a Pipeline.
type Options struct {
	ReferenceDate time.Time
	Portfolio     financial.Options
	Rules         []segmentation.Rule // nil selects the default tiers
	Lock          distlock.DistLock   // optional single-writer lock for the load stage
}

// Pipeline wires the stage services around one store.
type Pipeline struct {
	normalizer *datanorm.Normalizer
	loader     *loader.Service
	rfm        *rfm.Service
	segments   *segmentation.Engine
	opts       Options

	now   func() time.Time
	newID func() string
}

// New builds a pipeline over store.
func New(store Store, opts Options) (*Pipeline, error) {
	if opts.ReferenceDate.IsZero() {
		return nil, fmt.Errorf("pipeline: reference date is required")
	}
	rules := opts.Rules
	if rules == nil {
		rules = segmentation.DefaultRules()
	}
	engine, err := segmentation.NewEngine(rules)
	if err != nil {
		return nil, err
	}
	if opts.Portfolio.ParetoFraction.IsZero() {
		opts.Portfolio = financial.DefaultOptions()
	}

	var loaderOpts []loader.Option
	if opts.Lock != nil {
		loaderOpts = append(loaderOpts, loader.WithLock(opts.Lock))
	}

	return &Pipeline{
		normalizer: datanorm.NewNormalizer(),
		loader:     loader.NewService(store, loaderOpts...),
		rfm:        rfm.NewService(store),
		segments:   engine,
		opts:       opts,
		now:        time.Now,
		newID:      uuid.NewString,
	}, nil
}

// Run executes every stage against src and returns the full report.
func (p *Pipeline) Run(ctx context.Context, src Source) (*domain.RunReport, error) {
	report := &domain.RunReport{
		RunID:         p.newID(),
		ReferenceDate: p.opts.ReferenceDate,
		StartedAt:     p.now().UTC(),
	}
	logger.Info("pipeline started", "component", "pipeline", "run_id", report.RunID,
		"source", src.Name(), "reference_date", report.ReferenceDate.Format("2006-01-02"))

	raw, err := src.Records(ctx)
	if err != nil {
		return nil, stageErr(domain.StageIngest, err)
	}
	report.Ingest = domain.IngestStats{Source: src.Name(), Rows: len(raw)}
	if c, ok := src.(unparsedCounter); ok {
		report.Ingest.Unparsed = c.UnparsedRows()
	}

	records, stats := p.normalizer.Normalize(raw)
	report.Normalize = stats
	if !stats.Balanced() {
		return nil, stageErr(domain.StageNormalize, fmt.Errorf("row accounting mismatch: %d accepted + %d rejected != %d",
			stats.Accepted, stats.RejectedTotal(), stats.Total))
	}

	if report.Load, err = p.loader.Load(ctx, records); err != nil {
		return nil, stageErr(domain.StageLoad, err)
	}

	if report.Integrity, err = p.loader.Verify(ctx); err != nil {
		return nil, stageErr(domain.StageVerify, err)
	}
	if !report.Integrity.Clean() {
		return nil, stageErr(domain.StageVerify, fmt.Errorf("%w: %d orphan line items (invoice), %d orphan line items (product), %d orphan invoices, %d total mismatches",
			loader.ErrIntegrity,
			report.Integrity.OrphanLineItemsInvoice, report.Integrity.OrphanLineItemsProduct,
			report.Integrity.OrphanInvoices, report.Integrity.TotalMismatches))
	}

	metrics, err := p.rfm.Aggregate(ctx, p.opts.ReferenceDate)
	if err != nil {
		return nil, stageErr(domain.StageAggregate, err)
	}

	scored, err := rfm.Score(metrics)
	if err != nil {
		return nil, stageErr(domain.StageScore, err)
	}

	if err := p.segments.ClassifyAll(scored); err != nil {
		return nil, stageErr(domain.StageClassify, err)
	}
	report.Customers = scored

	if report.Portfolio, err = financial.Analyze(scored, p.opts.Portfolio); err != nil {
		return nil, stageErr(domain.StageAnalyze, err)
	}

	report.FinishedAt = p.now().UTC()
	logger.Info("pipeline finished", "component", "pipeline", "run_id", report.RunID,
		"customers", len(scored), "duration_ms", report.Duration().Milliseconds())
	return report, nil
}
