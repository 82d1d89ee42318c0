package collector

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slackharvest/pkg/errors"
	"slackharvest/pkg/logger"
	"slackharvest/pkg/slack"
)

func testLogger(t *testing.T) logger.Logger {
	t.Helper()
	log, err := logger.New(logger.Options{Level: "disabled"})
	require.NoError(t, err)
	return log
}

// pagedFetch serves a fixed cursor chain: page i links to cursor "c<i+1>"
// until the last page, which carries no cursor.
func pagedFetch(pages [][]slack.Message) (FetchPage, *[]string) {
	cursors := &[]string{}
	return func(ctx context.Context, cursor string) (*slack.Page, error) {
		*cursors = append(*cursors, cursor)
		idx := 0
		for i := range pages {
			if cursorFor(i) == cursor {
				idx = i
				break
			}
		}
		next := ""
		if idx < len(pages)-1 {
			next = cursorFor(idx + 1)
		}
		return &slack.Page{Messages: pages[idx], NextCursor: next}, nil
	}, cursors
}

func cursorFor(i int) string {
	if i == 0 {
		return ""
	}
	return "c" + string(rune('0'+i))
}

func TestCollectAllWalksCursorChain(t *testing.T) {
	fetch, cursors := pagedFetch([][]slack.Message{
		{{TS: "3.0"}, {TS: "2.0"}},
		{{TS: "1.5"}},
		{{TS: "1.0"}},
	})

	c := New(0, testLogger(t))
	got, err := c.CollectAll(context.Background(), fetch, nil)
	require.NoError(t, err)

	// Union of all pages, in page order
	require.Len(t, got, 4)
	assert.Equal(t, "3.0", got[0].TS)
	assert.Equal(t, "2.0", got[1].TS)
	assert.Equal(t, "1.5", got[2].TS)
	assert.Equal(t, "1.0", got[3].TS)

	assert.Equal(t, []string{"", "c1", "c2"}, *cursors)
}

func TestCollectAllStopsOnEmptyCursor(t *testing.T) {
	calls := 0
	fetch := func(ctx context.Context, cursor string) (*slack.Page, error) {
		calls++
		return &slack.Page{Messages: []slack.Message{{TS: "1.0"}}}, nil
	}

	c := New(0, testLogger(t))
	got, err := c.CollectAll(context.Background(), fetch, nil)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, 1, calls, "an absent cursor ends the listing")
}

func TestCollectAllFilters(t *testing.T) {
	fetch, _ := pagedFetch([][]slack.Message{
		{{TS: "3.0", ReplyCount: 2}, {TS: "2.0"}},
		{{TS: "1.0", ReplyCount: 1}},
	})

	c := New(0, testLogger(t))
	got, err := c.CollectAll(context.Background(), fetch, slack.Message.IsThreadRoot)
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "3.0", got[0].TS)
	assert.Equal(t, "1.0", got[1].TS)
}

func TestCollectAllRetriesSameCursorAfterThrottle(t *testing.T) {
	var cursors []string
	throttled := false
	fetch := func(ctx context.Context, cursor string) (*slack.Page, error) {
		cursors = append(cursors, cursor)
		if cursor == "c1" && !throttled {
			throttled = true
			return nil, errors.Throttled(7*time.Second, 429)
		}
		next := ""
		if cursor == "" {
			next = "c1"
		}
		return &slack.Page{Messages: []slack.Message{{TS: cursor + ".0"}}, NextCursor: next}, nil
	}

	var slept []time.Duration
	c := New(0, testLogger(t))
	c.sleep = func(d time.Duration) { slept = append(slept, d) }

	got, err := c.CollectAll(context.Background(), fetch, nil)
	require.NoError(t, err)

	// The throttled cursor is re-issued unchanged after the directed wait
	assert.Equal(t, []string{"", "c1", "c1"}, cursors)
	require.Len(t, slept, 1)
	assert.GreaterOrEqual(t, slept[0], 7*time.Second)
	assert.Len(t, got, 2, "no page lost, no page duplicated")
}

func TestCollectAllKeepsPartialOnError(t *testing.T) {
	fetch := func(ctx context.Context, cursor string) (*slack.Page, error) {
		if cursor == "c1" {
			return nil, errors.New(errors.TypeTransport, "connection reset", 0)
		}
		return &slack.Page{Messages: []slack.Message{{TS: "2.0"}, {TS: "1.0"}}, NextCursor: "c1"}, nil
	}

	c := New(0, testLogger(t))
	got, err := c.CollectAll(context.Background(), fetch, nil)

	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.TypeTransport))
	assert.Len(t, got, 2, "pages before the failure are reported, not discarded")
}

func TestCollectAllContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetch := func(ctx context.Context, cursor string) (*slack.Page, error) {
		t.Fatal("fetch must not run after cancellation")
		return nil, nil
	}

	// A positive interval forces the limiter to consult the context
	c := New(time.Second, testLogger(t))
	c.limiter.Allow() // drain the initial token

	_, err := c.CollectAll(ctx, fetch, nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.TypeTransport))
}
