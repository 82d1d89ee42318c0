// Package slack provides a client for the Slack Web API endpoints used
// by the exporter.
//
// This package includes:
//   - A single-call HTTP client that classifies every outcome instead of
//     retrying internally
//   - Type-safe models for the listing and permalink envelopes
//   - Helper functions for constructing endpoint URLs
//
// The client never sleeps and never retries. A 429 response (or an
// in-band "ratelimited" rejection) comes back as a throttle error
// carrying the server-directed wait; the caller sleeps and re-issues the
// identical request.
//
// Example usage:
//
//	client := slack.NewClient(token, cookie, 30*time.Second, 10*time.Second, log)
//
//	page, err := client.FetchHistoryPage(ctx, "C123", "", "", 1000)
//	if wait, ok := errors.ThrottleWait(err); ok {
//	    time.Sleep(wait)
//	    // re-issue the same request
//	}
//
//	for _, msg := range page.Messages {
//	    if msg.IsThreadRoot() {
//	        // thread-starting message
//	    }
//	}
package slack
