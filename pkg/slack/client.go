package slack

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"slackharvest/pkg/errors"
	"slackharvest/pkg/logger"
)

// Client issues single calls against the Slack Web API and classifies
// each response. It never retries: a throttle outcome carries the
// server-directed wait and the caller re-issues the identical request.
type Client struct {
	httpClient   *http.Client
	headers      map[string]string
	baseURL      string
	throttleWait time.Duration // fallback when Retry-After is absent
	logger       logger.Logger
}

// NewClient creates a new Slack API client. The cookie is optional and
// passed through opaquely; browser-session tokens require it.
func NewClient(token, cookie string, timeout, throttleFallback time.Duration, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	if throttleFallback <= 0 {
		throttleFallback = 10 * time.Second
	}

	headers := map[string]string{
		"Authorization": "Bearer " + token,
		"Content-Type":  "application/json",
	}
	if cookie != "" {
		headers["Cookie"] = cookie
	}

	return &Client{
		httpClient:   &http.Client{Timeout: timeout},
		headers:      headers,
		baseURL:      BaseURL,
		throttleWait: throttleFallback,
		logger:       log,
	}
}

// SetBaseURL overrides the API base URL
func (c *Client) SetBaseURL(base string) {
	c.baseURL = base
}

// FetchHistoryPage fetches one page of channel history
func (c *Client) FetchHistoryPage(ctx context.Context, channel, oldest, cursor string, limit int) (*Page, error) {
	return c.fetchListingPage(ctx, HistoryURL(c.baseURL, channel, oldest, cursor, limit))
}

// FetchRepliesPage fetches one page of a thread's replies
func (c *Client) FetchRepliesPage(ctx context.Context, channel, threadTS, cursor string, limit int) (*Page, error) {
	return c.fetchListingPage(ctx, RepliesURL(c.baseURL, channel, threadTS, cursor, limit))
}

func (c *Client) fetchListingPage(ctx context.Context, url string) (*Page, error) {
	var envelope HistoryResponse
	if err := c.getJSON(ctx, url, &envelope); err != nil {
		return nil, err
	}
	if err := c.checkEnvelope(envelope.OK, envelope.Err, url); err != nil {
		return nil, err
	}
	return &Page{
		Messages:   envelope.Messages,
		NextCursor: envelope.ResponseMetadata.NextCursor,
	}, nil
}

// GetPermalink resolves the permalink for one message
func (c *Client) GetPermalink(ctx context.Context, channel, messageTS string) (string, error) {
	url := PermalinkURL(c.baseURL, channel, messageTS)

	var envelope PermalinkResponse
	if err := c.getJSON(ctx, url, &envelope); err != nil {
		return "", err
	}
	if err := c.checkEnvelope(envelope.OK, envelope.Err, url); err != nil {
		return "", err
	}
	return envelope.Permalink, nil
}

// getJSON performs one GET and decodes the body. Transport failures,
// non-200 statuses and malformed bodies are classified here; API-level
// ok:false rejections are left to checkEnvelope.
func (c *Client) getJSON(ctx context.Context, url string, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.New(errors.TypeTransport, fmt.Sprintf("failed to create request: %v", err), 0)
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	c.logger.DebugWithFields("sending API request", map[string]interface{}{
		"url": req.URL.Path,
	})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.ErrorWithFields("API request failed", map[string]interface{}{
			"url":      req.URL.Path,
			"error":    err.Error(),
			"duration": time.Since(start),
		})
		return errors.New(errors.TypeTransport, fmt.Sprintf("network error: %v", err), 0)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		wait := c.retryAfter(resp)
		c.logger.WarnWithFields("rate limit signaled", map[string]interface{}{
			"url":  req.URL.Path,
			"wait": wait,
		})
		return errors.Throttled(wait, resp.StatusCode)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.ErrorWithFields("unexpected API status", map[string]interface{}{
			"url":    req.URL.Path,
			"status": resp.StatusCode,
		})
		return errors.New(errors.TypeTransport,
			fmt.Sprintf("unexpected status code: %d", resp.StatusCode), resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.New(errors.TypeTransport,
			fmt.Sprintf("failed to read response body: %v", err), resp.StatusCode)
	}

	if err := json.Unmarshal(body, target); err != nil {
		bodyPreview := string(body)
		if len(bodyPreview) > 200 {
			bodyPreview = bodyPreview[:200] + "..."
		}
		c.logger.ErrorWithFields("failed to parse API response", map[string]interface{}{
			"url":          req.URL.Path,
			"error":        err.Error(),
			"body_preview": bodyPreview,
		})
		return errors.New(errors.TypeParsing,
			fmt.Sprintf("failed to parse JSON: %v", err), resp.StatusCode)
	}

	c.logger.DebugWithFields("API request completed", map[string]interface{}{
		"url":      req.URL.Path,
		"duration": time.Since(start),
	})

	return nil
}

// checkEnvelope classifies an API-level ok:false. Slack reports some
// rate limits in-band with a 200 status, so "ratelimited" maps to a
// throttle outcome with the fallback wait.
func (c *Client) checkEnvelope(ok bool, apiErr, url string) error {
	if ok {
		return nil
	}
	if apiErr == "ratelimited" {
		return errors.Throttled(c.throttleWait, http.StatusOK)
	}
	c.logger.WarnWithFields("API rejected request", map[string]interface{}{
		"url":   url,
		"error": apiErr,
	})
	return errors.New(errors.TypeAPI, apiErr, http.StatusOK)
}

// retryAfter reads the server-directed wait from a 429 response
func (c *Client) retryAfter(resp *http.Response) time.Duration {
	header := resp.Header.Get("Retry-After")
	if header == "" {
		return c.throttleWait
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds <= 0 {
		return c.throttleWait
	}
	return time.Duration(seconds) * time.Second
}
