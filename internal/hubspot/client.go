package hubspot

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

const defaultBaseURL = "https://api.hubapi.com"

// defaultPageLimit is the page size used for cursor pagination.
const defaultPageLimit = 100

// ClientConfig configures the rate-limited HubSpot client.
type ClientConfig struct {
	BaseURL string
	// RateLimitPause is the minimum spacing between any two requests made
	// through one client instance.
	RateLimitPause time.Duration
	// MaxRetries bounds 429 retries; the client makes MaxRetries+1 attempts.
	MaxRetries int
	// BaseSleep is the first 429 backoff delay; it doubles per attempt.
	BaseSleep time.Duration
	Timeout   time.Duration
}

// TokenSource supplies the bearer token for each request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Client is a single-threaded, rate-limited HTTP client for the HubSpot API.
// It enforces minimum inter-request spacing, retries 429s with exponential
// backoff, and surfaces every other non-success status as *APIError.
type Client struct {
	cfg        ClientConfig
	tokens     TokenSource
	httpClient *http.Client

	lastRequest time.Time
	now         func() time.Time
	sleep       func(time.Duration)
}

// NewClient creates a client with the config's zero values filled in from
// the defaults the upstream API tolerates well.
func NewClient(cfg ClientConfig, tokens TokenSource) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.RateLimitPause <= 0 {
		cfg.RateLimitPause = 250 * time.Millisecond
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if cfg.BaseSleep <= 0 {
		cfg.BaseSleep = 500 * time.Millisecond
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Client{
		cfg:        cfg,
		tokens:     tokens,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		now:        time.Now,
		sleep:      time.Sleep,
	}
}

// Do performs one API call. body, when non-nil, is JSON-encoded. 429
// responses are retried with exponential backoff until the retry budget is
// exhausted; any other non-2xx status fails immediately with *APIError.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body interface{}) (json.RawMessage, error) {
	var encoded []byte
	if body != nil {
		var err error
		encoded, err = json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal request body")
		}
	}

	for attempt := 0; ; attempt++ {
		c.throttle()

		data, err := c.doOnce(ctx, method, path, query, encoded)
		if err == nil {
			return data, nil
		}

		apiErr, ok := asAPIError(err)
		if !ok || !apiErr.IsRateLimited() || attempt >= c.cfg.MaxRetries {
			return nil, err
		}

		delay := c.cfg.BaseSleep * (1 << attempt)
		log.Printf("HubSpotClient: rate limited on %s %s, retrying in %s (attempt %d/%d)",
			method, path, delay, attempt+1, c.cfg.MaxRetries)
		c.sleep(delay)
	}
}

func (c *Client) doOnce(ctx context.Context, method, path string, query url.Values, body []byte) (json.RawMessage, error) {
	u := c.cfg.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	c.lastRequest = c.now()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to call %s %s", method, path)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{Status: resp.StatusCode, Body: string(data)}
	}
	return data, nil
}

// throttle sleeps until at least RateLimitPause has elapsed since the
// previous request from this client.
func (c *Client) throttle() {
	if c.lastRequest.IsZero() {
		return
	}
	elapsed := c.now().Sub(c.lastRequest)
	if elapsed < c.cfg.RateLimitPause {
		c.sleep(c.cfg.RateLimitPause - elapsed)
	}
}

// Paginated follows the paging.next.after cursor of a list endpoint until it
// is absent, returning the concatenation of every page's results in order.
// Sleeps RateLimitPause between page fetches.
func (c *Client) Paginated(ctx context.Context, method, path string, query url.Values) ([]RawRecord, error) {
	q := url.Values{}
	for k, vs := range query {
		q[k] = vs
	}
	if q.Get("limit") == "" {
		q.Set("limit", strconv.Itoa(defaultPageLimit))
	}

	var all []RawRecord
	for {
		data, err := c.Do(ctx, method, path, q, nil)
		if err != nil {
			return nil, err
		}

		var page listEnvelope
		if err := json.Unmarshal(data, &page); err != nil {
			return nil, errors.Wrapf(err, "failed to decode page for %s", path)
		}
		all = append(all, page.Results...)

		if page.Paging == nil || page.Paging.Next == nil || page.Paging.Next.After == "" {
			return all, nil
		}
		q.Set("after", page.Paging.Next.After)
		c.sleep(c.cfg.RateLimitPause)
	}
}
