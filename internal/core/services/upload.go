package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/stevedore/internal/core/domain"
	"github.com/custodia-labs/stevedore/internal/core/ports/driven"
	"github.com/custodia-labs/stevedore/internal/logger"
)

// UploadPipeline submits records to the search index in batches.
//
// A batch is written with one bulk request (or a direct index call for a
// single record). Transport failures retry the whole batch under the retry
// policy; once the policy gives up, or when the index rejects the request
// outright, records are submitted one at a time and the ones that fail are
// skipped. Nothing here aborts the run.
type UploadPipeline struct {
	index     driven.SearchIndex
	batchSize int
	retry     domain.RetryPolicy
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewUploadPipeline creates an upload pipeline.
func NewUploadPipeline(index driven.SearchIndex, batchSize int, retry domain.RetryPolicy) *UploadPipeline {
	if batchSize <= 0 {
		batchSize = domain.DefaultBatchSize
	}
	return &UploadPipeline{
		index:     index,
		batchSize: batchSize,
		retry:     retry,
		sleep:     sleepContext,
	}
}

// Submit writes records in batches of at most the batch size, in order.
// Failures are recorded on run. Returns the number of records committed.
func (p *UploadPipeline) Submit(ctx context.Context, run *domain.RunContext, records []*domain.Record) int {
	committed := 0
	for start := 0; start < len(records); start += p.batchSize {
		end := min(start+p.batchSize, len(records))
		committed += p.submitBatch(ctx, run, records[start:end])
	}
	return committed
}

func (p *UploadPipeline) submitBatch(ctx context.Context, run *domain.RunContext, batch []*domain.Record) int {
	if len(batch) == 0 {
		return 0
	}

	for attempt := 1; ; attempt++ {
		n, err := p.write(ctx, run, batch)
		if err == nil {
			run.AddCommitted(n)
			if attempt > 1 {
				logger.Info("Batch of %d committed after %d attempts", len(batch), attempt)
			}
			return n
		}

		if ctx.Err() != nil {
			recordBatch(run, batch, fmt.Sprintf("upload cancelled: %v", ctx.Err()))
			return 0
		}

		if !domain.IsTransient(err) && len(batch) == 1 {
			// A one-record batch was already a direct write.
			logger.Warn("Index rejected %s: %v", batch[0].SourceRef, err)
			run.RecordError(batch[0].SourceRef, fmt.Sprintf("index write failed: %v", err))
			return 0
		}

		if !domain.IsTransient(err) {
			logger.Warn("Index rejected batch of %d (%v), submitting records one at a time", len(batch), err)
			return p.submitEach(ctx, run, batch, false)
		}

		if p.retry.Exhausted(attempt) {
			logger.Error("Batch of %d failed after %d attempts: %v", len(batch), attempt, err)
			if len(batch) == 1 {
				recordBatch(run, batch, fmt.Sprintf("upload failed after %d attempts: %v", attempt, err))
				return 0
			}
			n := p.submitEach(ctx, run, batch, true)
			recordBatch(run, batch, fmt.Sprintf("batch upload failed after %d attempts: %v", attempt, err))
			return n
		}

		logger.Warn("Batch upload failed (attempt %d): %v, retrying in %s", attempt, err, p.retry.Backoff)
		if err := p.sleep(ctx, p.retry.Backoff); err != nil {
			recordBatch(run, batch, fmt.Sprintf("upload cancelled: %v", err))
			return 0
		}
	}
}

// write submits a batch once. Item-level failures are recorded and do not
// count as an error; the returned error is a whole-request failure.
func (p *UploadPipeline) write(ctx context.Context, run *domain.RunContext, batch []*domain.Record) (int, error) {
	if len(batch) == 1 {
		if err := p.index.Index(ctx, *batch[0]); err != nil {
			return 0, err
		}
		return 1, nil
	}

	recs := make([]domain.Record, len(batch))
	for i, rec := range batch {
		recs[i] = *rec
	}
	result, err := p.index.Bulk(ctx, recs)
	if err != nil {
		return 0, err
	}
	if !result.HasErrors() {
		return len(batch), nil
	}

	refs := make(map[string]string, len(batch))
	for _, rec := range batch {
		refs[rec.ID] = rec.SourceRef
	}
	for _, item := range result.Failed {
		ref := refs[item.ID]
		if ref == "" {
			ref = item.ID
		}
		logger.Warn("Index rejected %s (status %d): %s", ref, item.Status, item.Reason)
		run.RecordError(ref, fmt.Sprintf("index rejected document: %s", item.Reason))
	}
	return len(batch) - len(result.Failed), nil
}

// submitEach writes records individually and skips the ones that fail.
// When quiet, failures are only logged because the caller records the
// whole batch.
func (p *UploadPipeline) submitEach(ctx context.Context, run *domain.RunContext, batch []*domain.Record, quiet bool) int {
	committed := 0
	for _, rec := range batch {
		if err := p.index.Index(ctx, *rec); err != nil {
			logger.Warn("Skipping %s: %v", rec.SourceRef, err)
			if !quiet {
				run.RecordError(rec.SourceRef, fmt.Sprintf("index write failed: %v", err))
			}
			continue
		}
		committed++
	}
	run.AddCommitted(committed)
	return committed
}

func recordBatch(run *domain.RunContext, batch []*domain.Record, reason string) {
	for _, rec := range batch {
		run.RecordError(rec.SourceRef, reason)
	}
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// errNoIndex is returned by stages that need an index but were given none.
var errNoIndex = errors.New("search index not configured")
