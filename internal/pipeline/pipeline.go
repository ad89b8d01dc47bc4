package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/obs-qc-service/internal/obsspace"
	"github.com/couchcryptid/obs-qc-service/internal/observability"
	"github.com/couchcryptid/obs-qc-service/internal/qc"
)

// BatchExtractor reads up to batchSize raw events from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]obsspace.RawEvent, error)
}

// Processor runs the QC lifecycle on one raw observation batch and returns
// its summary report.
type Processor interface {
	Process(ctx context.Context, raw obsspace.RawEvent) (qc.Summary, error)
}

// BatchLoader writes multiple summary reports to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, summaries []qc.Summary) error
}

// Pipeline orchestrates the extract-aggregate-publish loop.
type Pipeline struct {
	extractor BatchExtractor
	processor Processor
	loader    BatchLoader
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool
	last      atomic.Pointer[qc.Summary]
	batchSize int
}

// New creates a Pipeline with the given stages and observability.
func New(e BatchExtractor, p Processor, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	return &Pipeline{
		extractor: e,
		processor: p,
		loader:    l,
		logger:    logger,
		metrics:   metrics,
		batchSize: batchSize,
	}
}

// CheckReadiness returns nil if the pipeline has processed at least one batch,
// or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not processed any batches yet")
	}
	return nil
}

// LastSummary returns the most recently published QC summary, if any.
func (p *Pipeline) LastSummary() (qc.Summary, bool) {
	s := p.last.Load()
	if s == nil {
		return qc.Summary{}, false
	}
	return *s, true
}

// Run executes the batch loop until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	// Exponential backoff: start at 200ms, double each retry, cap at 5s.
	// Keeps retry storms short while avoiding tight loops during Kafka outages.
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !p.processBatch(ctx, &backoff, maxBackoff) {
			return nil
		}
	}
}

// processBatch runs one extract-aggregate-publish cycle. Returns false if the pipeline should stop.
func (p *Pipeline) processBatch(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	start := time.Now()

	rawBatch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("extract batch failed", "error", err)
		return p.backoffOrStop(ctx, backoff, maxBackoff)
	}

	if len(rawBatch) == 0 {
		return ctx.Err() == nil
	}

	p.metrics.BatchesConsumed.Add(float64(len(rawBatch)))
	p.metrics.BatchSize.Observe(float64(len(rawBatch)))
	*backoff = 200 * time.Millisecond

	loaded, ok := p.processAndLoad(ctx, rawBatch, backoff, maxBackoff)
	if !ok {
		return false
	}

	if loaded > 0 {
		p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
		p.ready.Store(true)
	}
	return true
}

// processAndLoad runs QC on each message in the batch, publishes the summary
// reports, and commits offsets. Returns the number of published reports and
// false if the pipeline should stop.
func (p *Pipeline) processAndLoad(ctx context.Context, rawBatch []obsspace.RawEvent, backoff *time.Duration, maxBackoff time.Duration) (int, bool) {
	summaries := make([]qc.Summary, 0, len(rawBatch))
	successfulRaws := make([]obsspace.RawEvent, 0, len(rawBatch))

	for _, raw := range rawBatch {
		summary, err := p.processor.Process(ctx, raw)
		if err != nil {
			p.logger.Warn("batch processing failed, skipping message",
				"error", err,
				"topic", raw.Topic,
				"partition", raw.Partition,
				"offset", raw.Offset,
			)
			p.metrics.BatchErrors.Inc()
			p.commitOffset(ctx, raw)
			continue
		}
		summaries = append(summaries, summary)
		successfulRaws = append(successfulRaws, raw)
	}

	if len(summaries) == 0 {
		return 0, true
	}

	if err := p.loader.LoadBatch(ctx, summaries); err != nil {
		p.logger.Error("load batch failed", "error", err, "batch_size", len(summaries))
		return 0, p.backoffOrStop(ctx, backoff, maxBackoff)
	}

	p.metrics.ReportsProduced.Add(float64(len(summaries)))
	p.last.Store(&summaries[len(summaries)-1])

	for _, raw := range successfulRaws {
		p.commitOffset(ctx, raw)
	}

	return len(summaries), true
}

// backoffOrStop checks for context cancellation, sleeps with the current backoff,
// and advances the backoff. Returns false if the pipeline should stop.
func (p *Pipeline) backoffOrStop(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !sleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = nextBackoff(*backoff, maxBackoff)
	return true
}

// commitOffset commits the message offset if a commit function is available.
func (p *Pipeline) commitOffset(ctx context.Context, raw obsspace.RawEvent) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
