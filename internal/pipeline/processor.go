package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/obs-qc-service/internal/comm"
	"github.com/couchcryptid/obs-qc-service/internal/obserror"
	"github.com/couchcryptid/obs-qc-service/internal/obsspace"
	"github.com/couchcryptid/obs-qc-service/internal/observability"
	"github.com/couchcryptid/obs-qc-service/internal/qc"
)

// QCProcessor implements Processor: it parses an observation batch, runs the
// QC manager lifecycle over it, and returns the summary report. Each service
// instance owns the whole batch it consumes, so the obs space is built on the
// single-rank communicator; distributed partitions reduce through whatever
// communicator their own deployment injects.
type QCProcessor struct {
	errorModel string
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewProcessor creates a QCProcessor. Pass an empty errorModel to skip the
// observation-error collaborator.
func NewProcessor(errorModel string, logger *slog.Logger, metrics *observability.Metrics) *QCProcessor {
	return &QCProcessor{
		errorModel: errorModel,
		logger:     logger,
		metrics:    metrics,
	}
}

func (p *QCProcessor) Process(ctx context.Context, raw obsspace.RawEvent) (qc.Summary, error) {
	batch, err := obsspace.ParseRawBatch(raw)
	if err != nil {
		return qc.Summary{}, err
	}

	space := obsspace.New(batch.Obstype, batch.Variables, batch.Nlocs, comm.NewSelf())
	flags, values, errs := batch.Materialize()

	model, err := p.newErrorModel(ctx, space, errs)
	if err != nil {
		return qc.Summary{}, err
	}

	manager := qc.NewManager(space, flags, values, errs, p.logger)
	if len(batch.Hofx) > 0 {
		manager.FinalizeAfterEvaluation(batch.Hofx)
		if model != nil {
			if err := model.Post(ctx); err != nil {
				return qc.Summary{}, fmt.Errorf("obs error model post: %w", err)
			}
		}
	}

	summary, err := manager.Report(ctx)
	if err != nil {
		return qc.Summary{}, err
	}
	if model != nil {
		if err := model.Close(); err != nil {
			p.logger.Warn("obs error model close failed", "error", err, "obstype", batch.Obstype)
		}
	}

	p.recordCounts(summary)
	return summary, nil
}

// newErrorModel constructs and primes the configured observation-error model,
// or returns nil when the collaborator is disabled.
func (p *QCProcessor) newErrorModel(ctx context.Context, space *obsspace.ObsSpace, errs *obsspace.FloatMatrix) (obserror.Model, error) {
	if p.errorModel == "" {
		return nil, nil
	}
	model, err := obserror.New(obserror.Config{Name: p.errorModel}, space, errs)
	if err != nil {
		return nil, err
	}
	if err := model.Prior(ctx); err != nil {
		return nil, fmt.Errorf("obs error model prior: %w", err)
	}
	return model, nil
}

func (p *QCProcessor) recordCounts(summary qc.Summary) {
	for _, v := range summary.Variables {
		for _, c := range qc.Categories() {
			if n := v.Count(c); n > 0 {
				p.metrics.FlaggedObservations.WithLabelValues(summary.Obstype, c.String()).Add(float64(n))
			}
		}
	}
}
