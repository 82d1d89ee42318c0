package enrich

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slackharvest/pkg/logger"
	"slackharvest/pkg/slack"
)

func testLogger(t *testing.T) logger.Logger {
	t.Helper()
	log, err := logger.New(logger.Options{Level: "disabled"})
	require.NoError(t, err)
	return log
}

func records(n int) []slack.ThreadRecord {
	out := make([]slack.ThreadRecord, n)
	for i := range out {
		out[i] = slack.ThreadRecord{TS: fmt.Sprintf("%d.0", i+1)}
	}
	return out
}

func TestPermalinksPreserveInputOrder(t *testing.T) {
	in := records(8)

	// Later records resolve faster, forcing out-of-order completion
	resolve := func(ctx context.Context, rec slack.ThreadRecord) (string, error) {
		var i int
		fmt.Sscanf(rec.TS, "%d.0", &i)
		time.Sleep(time.Duration(8-i) * 5 * time.Millisecond)
		return "https://example.slack.com/p/" + rec.TS, nil
	}

	out := Permalinks(context.Background(), in, resolve, 4, nil, testLogger(t))

	require.Len(t, out, 8)
	for i, rec := range out {
		assert.Equal(t, in[i].TS, rec.TS, "output order matches input order")
		assert.Equal(t, "https://example.slack.com/p/"+in[i].TS, rec.Permalink)
	}
}

func TestPermalinksFailureLeavesEmpty(t *testing.T) {
	in := records(4)

	resolve := func(ctx context.Context, rec slack.ThreadRecord) (string, error) {
		if rec.TS == "2.0" {
			return "", fmt.Errorf("message_not_found")
		}
		return "link-" + rec.TS, nil
	}

	out := Permalinks(context.Background(), in, resolve, 2, nil, testLogger(t))

	require.Len(t, out, 4)
	assert.Equal(t, "link-1.0", out[0].Permalink)
	assert.Empty(t, out[1].Permalink, "a failed item stays in the batch with an empty permalink")
	assert.Equal(t, "link-3.0", out[2].Permalink)
	assert.Equal(t, "link-4.0", out[3].Permalink)
}

func TestPermalinksProgress(t *testing.T) {
	in := records(5)

	resolve := func(ctx context.Context, rec slack.ThreadRecord) (string, error) {
		return "link", nil
	}

	var mu sync.Mutex
	var completed []int
	total := 0
	Permalinks(context.Background(), in, resolve, 3, func(done, all int) {
		mu.Lock()
		completed = append(completed, done)
		total = all
		mu.Unlock()
	}, testLogger(t))

	assert.Equal(t, []int{1, 2, 3, 4, 5}, completed)
	assert.Equal(t, 5, total)
}

func TestPermalinksEmptyBatch(t *testing.T) {
	resolve := func(ctx context.Context, rec slack.ThreadRecord) (string, error) {
		t.Fatal("resolver must not run for an empty batch")
		return "", nil
	}

	out := Permalinks(context.Background(), nil, resolve, 3, nil, testLogger(t))
	assert.Empty(t, out)
}

func TestPermalinksDoesNotMutateInput(t *testing.T) {
	in := records(3)
	resolve := func(ctx context.Context, rec slack.ThreadRecord) (string, error) {
		return "link", nil
	}

	Permalinks(context.Background(), in, resolve, 2, nil, testLogger(t))

	for _, rec := range in {
		assert.Empty(t, rec.Permalink, "input slice stays untouched")
	}
}
