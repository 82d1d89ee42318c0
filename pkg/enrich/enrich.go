package enrich

import (
	"context"

	"slackharvest/internal/workpool"
	"slackharvest/pkg/logger"
	"slackharvest/pkg/slack"
)

// Resolver fetches the permalink for one thread record. Implementations
// own their throttle discipline: a throttled call is slept out and
// re-issued inside the resolver, so a returned error is final for that
// item.
type Resolver func(ctx context.Context, record slack.ThreadRecord) (string, error)

// Progress is called after each completed resolution with the number of
// finished items and the batch total. It must not block.
type Progress func(completed, total int)

// Permalinks resolves permalinks for a batch of thread records with at
// most concurrency calls in flight. Completion order is arbitrary but
// the returned slice preserves the input order. A failed resolution
// leaves that record's permalink empty instead of failing the batch.
func Permalinks(ctx context.Context, records []slack.ThreadRecord, resolve Resolver, concurrency int, onProgress Progress, log logger.Logger) []slack.ThreadRecord {
	if log == nil {
		log = logger.GetLogger()
	}

	out := make([]slack.ThreadRecord, len(records))
	copy(out, records)
	if len(records) == 0 {
		return out
	}

	pool := workpool.New(ctx, concurrency, func(ctx context.Context, rec slack.ThreadRecord) (string, error) {
		return resolve(ctx, rec)
	}, log)
	pool.Start()

	go func() {
		defer pool.Close()
		for i, rec := range records {
			if err := pool.Submit(workpool.Job[slack.ThreadRecord]{Index: i, Payload: rec}); err != nil {
				return
			}
		}
	}()

	completed := 0
	for result := range pool.Results() {
		if result.Err != nil {
			log.WarnWithFields("permalink resolution failed", map[string]interface{}{
				"ts":    result.Job.Payload.TS,
				"error": result.Err.Error(),
			})
			out[result.Job.Index].Permalink = ""
		} else {
			out[result.Job.Index].Permalink = result.Value
		}

		completed++
		if onProgress != nil {
			onProgress(completed, len(records))
		}
	}

	return out
}
