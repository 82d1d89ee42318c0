package slack

import (
	"fmt"
	"net/url"
	"strconv"
)

const (
	// BaseURL is the base URL for the Slack Web API
	BaseURL = "https://slack.com/api"

	// HistoryEndpoint lists channel messages, paginated by cursor
	HistoryEndpoint = "/conversations.history"

	// RepliesEndpoint lists the replies of one thread, paginated by cursor
	RepliesEndpoint = "/conversations.replies"

	// PermalinkEndpoint resolves the permalink for one message
	PermalinkEndpoint = "/chat.getPermalink"

	// DefaultPageLimit is the per-page item count requested from the
	// listing endpoints.
	DefaultPageLimit = 1000
)

// HistoryURL constructs the URL for one page of channel history. An
// empty cursor requests the first page; a non-empty oldest bounds the
// listing to messages strictly newer than that ts.
func HistoryURL(base, channel, oldest, cursor string, limit int) string {
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	params := url.Values{}
	params.Set("channel", channel)
	params.Set("limit", strconv.Itoa(limit))
	if oldest != "" {
		params.Set("oldest", oldest)
	}
	if cursor != "" {
		params.Set("cursor", cursor)
	}
	return fmt.Sprintf("%s%s?%s", base, HistoryEndpoint, params.Encode())
}

// RepliesURL constructs the URL for one page of a thread's replies
func RepliesURL(base, channel, threadTS, cursor string, limit int) string {
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	params := url.Values{}
	params.Set("channel", channel)
	params.Set("ts", threadTS)
	params.Set("limit", strconv.Itoa(limit))
	if cursor != "" {
		params.Set("cursor", cursor)
	}
	return fmt.Sprintf("%s%s?%s", base, RepliesEndpoint, params.Encode())
}

// PermalinkURL constructs the URL for resolving one message's permalink
func PermalinkURL(base, channel, messageTS string) string {
	params := url.Values{}
	params.Set("channel", channel)
	params.Set("message_ts", messageTS)
	return fmt.Sprintf("%s%s?%s", base, PermalinkEndpoint, params.Encode())
}
