package patrol

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	appLog "patrolcal/internal/log"
	"patrolcal/internal/model"
)

// ErrUnexpectedStatus is matched by every *StatusError.
var ErrUnexpectedStatus = errors.New("patrol: unexpected HTTP status")

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("patrol: HTTP error, status: %d", e.Code)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrUnexpectedStatus
}

// Client fetches the full patrol session list. Every call is a single GET:
// no paging, no filters, no retry and no caching.
type Client struct {
	baseURL string
	path    string
	token   string
	client  *http.Client
}

// NewClient creates a Client for baseURL + path authenticated with token.
func NewClient(baseURL, path, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		path:    "/" + strings.TrimLeft(path, "/"),
		token:   token,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// WithHTTPClient swaps the underlying HTTP client, e.g. for tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.client = hc
	return c
}

// URL is the endpoint the client calls.
func (c *Client) URL() string {
	return c.baseURL + c.path
}

// FetchSessions returns the "data" array of the session endpoint.
func (c *Client) FetchSessions(ctx context.Context) ([]model.Session, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(), nil)
	if err != nil {
		return nil, fmt.Errorf("patrol: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	appLog.Info("patrol fetch start", "url", redactURL(c.URL()))

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("patrol: fetch sessions: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode}
	}

	var envelope model.APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("patrol: decode sessions: %w", err)
	}
	if envelope.Data == nil {
		envelope.Data = []model.Session{}
	}

	appLog.Info("patrol fetch success", "url", redactURL(c.URL()), "sessions", len(envelope.Data))
	return envelope.Data, nil
}

// redactURL keeps scheme and host only, for logging.
func redactURL(u string) string {
	const redactedSuffix = "/...(redacted)"

	_, rest, ok := strings.Cut(u, "://")
	if !ok {
		return "...(redacted)"
	}
	host, _, _ := strings.Cut(rest, "/")
	return u[:len(u)-len(rest)] + host + redactedSuffix
}
