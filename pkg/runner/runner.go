package runner

import (
	"context"
	"sort"
	"time"

	"slackharvest/internal/workpool"
	"slackharvest/pkg/collector"
	"slackharvest/pkg/config"
	"slackharvest/pkg/enrich"
	"slackharvest/pkg/errors"
	"slackharvest/pkg/export"
	"slackharvest/pkg/logger"
	"slackharvest/pkg/slack"
	"slackharvest/pkg/snapshot"
)

// Runner turns the export jobs into crash-resumable runs. It is the
// only writer of the in-memory accumulators and the durable snapshots;
// collectors and workers hand their results back and never touch shared
// state.
type Runner struct {
	client *slack.Client
	store  *snapshot.Store
	cfg    *config.Config
	logger logger.Logger

	// sleep applies throttle waits during permalink resolution
	sleep func(time.Duration)
}

// New creates a Runner
func New(cfg *config.Config, client *slack.Client, store *snapshot.Store, log logger.Logger) *Runner {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Runner{
		client: client,
		store:  store,
		cfg:    cfg,
		logger: log,
		sleep:  time.Sleep,
	}
}

// ExportThreads collects the channel's thread roots, resolves their
// permalinks concurrently and persists the thread snapshot. The resume
// marker for this job is the newest exported ts: the next run passes it
// as the listing's lower bound, so completed work is excluded serverside
// and a rerun over unchanged history appends nothing.
func (r *Runner) ExportThreads(ctx context.Context) error {
	progress := r.store.LoadProgress()
	boundary := progress.LastSeenTS
	prior := r.store.LoadThreads()

	r.logger.InfoWithFields("starting thread export", map[string]interface{}{
		"channel":  r.cfg.Slack.Channel,
		"boundary": boundary,
		"existing": len(prior),
	})

	col := collector.New(r.cfg.RateLimit.PageInterval, r.logger)
	fetch := func(ctx context.Context, cursor string) (*slack.Page, error) {
		return r.client.FetchHistoryPage(ctx, r.cfg.Slack.Channel, boundary, cursor, r.cfg.Slack.PageLimit)
	}

	roots, collectErr := col.CollectAll(ctx, fetch, slack.Message.IsThreadRoot)
	if collectErr != nil && !errors.IsAbandonable(collectErr) {
		return collectErr
	}

	seen := make(map[string]bool, len(prior))
	for _, t := range prior {
		seen[t.TS] = true
	}

	var fresh []slack.Message
	for _, m := range roots {
		if boundary != "" && m.TS <= boundary {
			continue // at or before the boundary, already exported
		}
		if seen[m.TS] {
			continue
		}
		seen[m.TS] = true
		fresh = append(fresh, m)
	}

	// Channel listings arrive newest-first; exports are ascending by ts
	sort.Slice(fresh, func(i, j int) bool { return fresh[i].TS < fresh[j].TS })

	records := make([]slack.ThreadRecord, len(fresh))
	for i, m := range fresh {
		records[i] = slack.NewThreadRecord(m)
	}

	if len(records) > 0 {
		r.logger.InfoWithFields("resolving permalinks", map[string]interface{}{
			"threads":     len(records),
			"concurrency": r.cfg.Workers.Concurrency,
		})
		records = enrich.Permalinks(ctx, records, r.resolvePermalink, r.cfg.Workers.Concurrency,
			func(completed, total int) {
				r.logger.DebugWithFields("permalink resolved", map[string]interface{}{
					"completed": completed,
					"total":     total,
				})
			}, r.logger)
	}

	merged := append(prior, records...)
	sort.Slice(merged, func(i, j int) bool { return merged[i].TS < merged[j].TS })

	// Snapshot before marker: the marker must never pass unpersisted work
	if err := r.store.SaveThreads(merged); err != nil {
		return err
	}
	if err := export.WriteThreadsCSV(r.store.Path(r.cfg.Output.CSVFile), merged); err != nil {
		r.logger.WithError(err).Warn("failed to write csv rendering")
	}

	// The boundary only advances on a complete listing. The listing is
	// newest-first, so an aborted run may have missed roots older than
	// what it collected; those must stay inside the next run's window.
	if collectErr == nil {
		if newest := newestTS(merged); newest != "" && newest != boundary {
			progress.LastSeenTS = newest
			if err := r.store.SaveProgress(progress); err != nil {
				return err
			}
		}
	}

	r.logger.InfoWithFields("thread export finished", map[string]interface{}{
		"new_threads":   len(records),
		"total_threads": len(merged),
		"partial":       collectErr != nil,
	})

	return collectErr
}

// ExportReplies walks the thread work list from the persisted index,
// fetching each thread's replies on a bounded worker pool. Units
// complete in any order but are committed strictly in work-list order;
// after every committed unit the reply snapshot and the advanced index
// are persisted, so an interrupted run resumes at the first unprocessed
// unit with nothing lost and nothing double-counted.
func (r *Runner) ExportReplies(ctx context.Context) error {
	work := r.store.LoadThreads()
	replies := r.store.LoadReplies()
	progress := r.store.LoadProgress()

	start := progress.NextIndex
	if start > len(work) {
		r.logger.WarnWithFields("resume index past work list, starting over", map[string]interface{}{
			"index":   start,
			"threads": len(work),
		})
		start = 0
	}

	// Index zero means no unit of this pass is committed yet; an existing
	// reply snapshot belongs to a finished earlier pass and is rebuilt in
	// full rather than appended to.
	if start == 0 {
		replies = nil
	}

	r.logger.InfoWithFields("starting reply export", map[string]interface{}{
		"channel":   r.cfg.Slack.Channel,
		"threads":   len(work),
		"remaining": len(work) - start,
	})

	if start >= len(work) {
		if err := r.store.SaveReplies(replies); err != nil {
			return err
		}
		return r.finishReplies(len(replies))
	}

	// Cancelling the pool on an early return unblocks any worker still
	// sending a result, so Close can drain and the goroutines exit.
	poolCtx, cancelPool := context.WithCancel(ctx)
	defer cancelPool()

	pool := workpool.New(poolCtx, r.cfg.Workers.Concurrency, r.fetchThreadReplies, r.logger)
	pool.Start()

	go func() {
		defer pool.Close()
		for i := start; i < len(work); i++ {
			job := workpool.Job[string]{Index: i, Payload: work[i].TS}
			if err := pool.Submit(job); err != nil {
				return
			}
		}
	}()

	// Commit contiguously from the resume index so the marker always
	// trails the durable snapshot.
	pending := make(map[int][]slack.Message)
	next := start
	for result := range pool.Results() {
		if result.Err != nil {
			// Abandoned unit: the partial batch was already folded into
			// the result value, the job keeps going.
			r.logger.ErrorWithFields("thread unit abandoned", map[string]interface{}{
				"ts":    result.Job.Payload,
				"error": result.Err.Error(),
			})
		}
		pending[result.Job.Index] = result.Value

		for {
			batch, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			replies = append(replies, batch...)

			if err := r.store.SaveReplies(replies); err != nil {
				return err
			}
			progress.NextIndex = next + 1
			if err := r.store.SaveProgress(progress); err != nil {
				return err
			}

			r.logger.InfoWithFields("thread replies saved", map[string]interface{}{
				"unit":    next + 1,
				"total":   len(work),
				"ts":      work[next].TS,
				"replies": len(batch),
			})
			next++
		}
	}

	if err := ctx.Err(); err != nil {
		return errors.New(errors.TypeTransport, err.Error(), 0)
	}

	return r.finishReplies(len(replies))
}

// finishReplies resets the index marker so the next invocation starts
// clean.
func (r *Runner) finishReplies(total int) error {
	if err := r.store.ResetIndex(); err != nil {
		return err
	}
	r.logger.InfoWithFields("reply export finished", map[string]interface{}{
		"total_replies": total,
	})
	return nil
}

// fetchThreadReplies collects all replies of one thread. Abandonable
// failures surface the partial batch with a nil error so the unit still
// commits; only unrecoverable conditions propagate.
func (r *Runner) fetchThreadReplies(ctx context.Context, threadTS string) ([]slack.Message, error) {
	col := collector.New(r.cfg.RateLimit.PageInterval, r.logger)
	fetch := func(ctx context.Context, cursor string) (*slack.Page, error) {
		return r.client.FetchRepliesPage(ctx, r.cfg.Slack.Channel, threadTS, cursor, r.cfg.Slack.PageLimit)
	}

	msgs, err := col.CollectAll(ctx, fetch, slack.Message.IsThreadReply)
	if err != nil && errors.IsAbandonable(err) {
		r.logger.WarnWithFields("keeping partial replies for thread", map[string]interface{}{
			"ts":        threadTS,
			"collected": len(msgs),
			"error":     err.Error(),
		})
		return msgs, nil
	}
	return msgs, err
}

// resolvePermalink fetches one permalink with the same throttle
// discipline as the listings: server-directed waits are slept out and
// the identical request re-issued; anything else fails the item.
func (r *Runner) resolvePermalink(ctx context.Context, rec slack.ThreadRecord) (string, error) {
	for {
		link, err := r.client.GetPermalink(ctx, r.cfg.Slack.Channel, rec.TS)
		if wait, ok := errors.ThrottleWait(err); ok {
			r.logger.WarnWithFields("permalink fetch throttled, waiting", map[string]interface{}{
				"ts":   rec.TS,
				"wait": wait,
			})
			r.sleep(wait)
			continue
		}
		if err != nil {
			return "", err
		}
		return link, nil
	}
}

func newestTS(threads []slack.ThreadRecord) string {
	newest := ""
	for _, t := range threads {
		if t.TS > newest {
			newest = t.TS
		}
	}
	return newest
}
