package slack

import "strings"

// Message represents a single message from a conversation listing.
// The ts value doubles as the message identity and sorts chronologically.
type Message struct {
	TS         string `json:"ts"`
	User       string `json:"user,omitempty"`
	Text       string `json:"text,omitempty"`
	ThreadTS   string `json:"thread_ts,omitempty"`
	ReplyCount int    `json:"reply_count,omitempty"`
	Subtype    string `json:"subtype,omitempty"`
}

// IsThreadRoot reports whether this message starts a thread
func (m Message) IsThreadRoot() bool {
	return m.ReplyCount > 0
}

// IsThreadReply reports whether this message is a reply inside a thread
func (m Message) IsThreadReply() bool {
	return m.ThreadTS != "" && m.TS != m.ThreadTS
}

// ThreadRecord is a thread root prepared for export. The permalink is
// filled in by a secondary fetch and stays empty when resolution fails.
type ThreadRecord struct {
	TS         string `json:"ts"`
	User       string `json:"user"`
	Text       string `json:"text"`
	ThreadTS   string `json:"thread_ts"`
	ReplyCount int    `json:"reply_count"`
	Subtype    string `json:"subtype"`
	Permalink  string `json:"thread_url"`
}

// NewThreadRecord normalizes a thread root message into its export shape
func NewThreadRecord(m Message) ThreadRecord {
	user := m.User
	if user == "" {
		user = "Unknown"
	}
	subtype := m.Subtype
	if subtype == "" {
		subtype = "normal_message"
	}
	return ThreadRecord{
		TS:         m.TS,
		User:       user,
		Text:       strings.ReplaceAll(m.Text, "\n", " "),
		ThreadTS:   m.TS,
		ReplyCount: m.ReplyCount,
		Subtype:    subtype,
	}
}

// ResponseMetadata carries the pagination cursor for the next page
type ResponseMetadata struct {
	NextCursor string `json:"next_cursor"`
}

// HistoryResponse is the envelope returned by the listing endpoints
type HistoryResponse struct {
	OK               bool             `json:"ok"`
	Err              string           `json:"error,omitempty"`
	Messages         []Message        `json:"messages"`
	ResponseMetadata ResponseMetadata `json:"response_metadata"`
}

// PermalinkResponse is the envelope returned by chat.getPermalink
type PermalinkResponse struct {
	OK        bool   `json:"ok"`
	Err       string `json:"error,omitempty"`
	Permalink string `json:"permalink"`
}

// Page is one decoded page of a listing. An empty NextCursor means the
// listing is exhausted.
type Page struct {
	Messages   []Message
	NextCursor string
}
