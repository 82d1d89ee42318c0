package collector

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"slackharvest/pkg/errors"
	"slackharvest/pkg/logger"
	"slackharvest/pkg/slack"
)

// FetchPage fetches one page of a listing for the given cursor. An empty
// cursor requests the first page. Implementations are closures binding
// the base request (channel, thread ts, boundary) to a client call.
type FetchPage func(ctx context.Context, cursor string) (*slack.Page, error)

// Collector drives one logical listing to completion by walking its
// cursor chain. Pages are fetched strictly sequentially; an ambient
// pacing limiter keeps the page rate under the server's ceiling even
// before a throttle is signaled.
type Collector struct {
	limiter *rate.Limiter
	logger  logger.Logger

	// sleep applies server-directed throttle waits; swapped in tests
	sleep func(time.Duration)
}

// New creates a Collector with the given inter-page interval
func New(pageInterval time.Duration, log logger.Logger) *Collector {
	if log == nil {
		log = logger.GetLogger()
	}
	limit := rate.Inf
	if pageInterval > 0 {
		limit = rate.Every(pageInterval)
	}
	return &Collector{
		limiter: rate.NewLimiter(limit, 1),
		logger:  log,
		sleep:   time.Sleep,
	}
}

// CollectAll walks the listing until the cursor chain ends, returning
// every message that passes keep, in page order. A throttle outcome
// re-enters the same cursor state after the server-directed wait. On an
// abandonable error the accumulated partial result is returned together
// with the error; it is reported, not discarded.
func (c *Collector) CollectAll(ctx context.Context, fetch FetchPage, keep func(slack.Message) bool) ([]slack.Message, error) {
	var collected []slack.Message
	cursor := ""
	page := 0

	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return collected, errors.New(errors.TypeTransport, err.Error(), 0)
		}

		result, err := fetch(ctx, cursor)
		if wait, ok := errors.ThrottleWait(err); ok {
			c.logger.WarnWithFields("listing throttled, waiting", map[string]interface{}{
				"page": page,
				"wait": wait,
			})
			c.sleep(wait)
			continue // identical cursor state, no progress lost
		}
		if err != nil {
			c.logger.ErrorWithFields("listing aborted, keeping partial result", map[string]interface{}{
				"page":      page,
				"collected": len(collected),
				"error":     err.Error(),
			})
			return collected, err
		}

		page++
		matched := 0
		for _, msg := range result.Messages {
			if keep == nil || keep(msg) {
				collected = append(collected, msg)
				matched++
			}
		}

		c.logger.DebugWithFields("page collected", map[string]interface{}{
			"page":     page,
			"received": len(result.Messages),
			"matched":  matched,
			"has_next": result.NextCursor != "",
		})

		if result.NextCursor == "" {
			return collected, nil
		}
		cursor = result.NextCursor
	}
}
