package slack

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func queryOf(t *testing.T, rawURL string) url.Values {
	t.Helper()
	parsed, err := url.Parse(rawURL)
	require.NoError(t, err)
	return parsed.Query()
}

func TestHistoryURL(t *testing.T) {
	u := HistoryURL(BaseURL, "C123", "", "", 200)

	assert.True(t, strings.HasPrefix(u, BaseURL+HistoryEndpoint+"?"))
	q := queryOf(t, u)
	assert.Equal(t, "C123", q.Get("channel"))
	assert.Equal(t, "200", q.Get("limit"))
	assert.Empty(t, q.Get("oldest"))
	assert.Empty(t, q.Get("cursor"))
}

func TestHistoryURLWithBoundaryAndCursor(t *testing.T) {
	u := HistoryURL(BaseURL, "C123", "1700000000.000100", "dXNlcjpVMDYxTkZUVDI=", 0)

	q := queryOf(t, u)
	assert.Equal(t, "1700000000.000100", q.Get("oldest"))
	assert.Equal(t, "dXNlcjpVMDYxTkZUVDI=", q.Get("cursor"))
	// Zero limit falls back to the default
	assert.Equal(t, "1000", q.Get("limit"))
}

func TestRepliesURL(t *testing.T) {
	u := RepliesURL(BaseURL, "C123", "1700000000.000100", "", 500)

	assert.True(t, strings.HasPrefix(u, BaseURL+RepliesEndpoint+"?"))
	q := queryOf(t, u)
	assert.Equal(t, "C123", q.Get("channel"))
	assert.Equal(t, "1700000000.000100", q.Get("ts"))
	assert.Equal(t, "500", q.Get("limit"))
}

func TestPermalinkURL(t *testing.T) {
	u := PermalinkURL(BaseURL, "C123", "1700000000.000100")

	assert.True(t, strings.HasPrefix(u, BaseURL+PermalinkEndpoint+"?"))
	q := queryOf(t, u)
	assert.Equal(t, "C123", q.Get("channel"))
	assert.Equal(t, "1700000000.000100", q.Get("message_ts"))
}

func TestIsThreadRoot(t *testing.T) {
	assert.True(t, Message{TS: "1.0", ReplyCount: 3}.IsThreadRoot())
	assert.False(t, Message{TS: "1.0"}.IsThreadRoot())
	assert.False(t, Message{TS: "2.0", ThreadTS: "1.0"}.IsThreadRoot())
}

func TestIsThreadReply(t *testing.T) {
	assert.True(t, Message{TS: "2.0", ThreadTS: "1.0"}.IsThreadReply())
	// Thread roots carry their own ts as thread_ts
	assert.False(t, Message{TS: "1.0", ThreadTS: "1.0"}.IsThreadReply())
	assert.False(t, Message{TS: "1.0"}.IsThreadReply())
}

func TestNewThreadRecord(t *testing.T) {
	rec := NewThreadRecord(Message{
		TS:         "1700000000.000100",
		User:       "U123",
		Text:       "first line\nsecond line",
		ReplyCount: 4,
	})

	assert.Equal(t, "1700000000.000100", rec.TS)
	assert.Equal(t, "1700000000.000100", rec.ThreadTS)
	assert.Equal(t, "U123", rec.User)
	assert.Equal(t, "first line second line", rec.Text)
	assert.Equal(t, 4, rec.ReplyCount)
	assert.Equal(t, "normal_message", rec.Subtype)
	assert.Empty(t, rec.Permalink)
}

func TestNewThreadRecordFallbacks(t *testing.T) {
	rec := NewThreadRecord(Message{TS: "1.0", ReplyCount: 1, Subtype: "bot_message"})

	assert.Equal(t, "Unknown", rec.User)
	assert.Equal(t, "bot_message", rec.Subtype)
}
