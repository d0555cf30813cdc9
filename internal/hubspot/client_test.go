package hubspot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticToken string

func (s staticToken) Token(ctx context.Context) (string, error) {
	return string(s), nil
}

// newTestClient builds a client against the test server with sleeps
// recorded instead of slept.
func newTestClient(server *httptest.Server, cfg ClientConfig) (*Client, *[]time.Duration) {
	cfg.BaseURL = server.URL
	client := NewClient(cfg, staticToken("test-token"))

	var slept []time.Duration
	client.sleep = func(d time.Duration) { slept = append(slept, d) }
	return client, &slept
}

func TestClientDoSetsBearerToken(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer server.Close()

	client, _ := newTestClient(server, ClientConfig{})
	_, err := client.Do(context.Background(), http.MethodGet, "/crm/v3/owners", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "Bearer test-token", gotAuth)
}

func TestClientRetriesRateLimitWithBackoff(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client, slept := newTestClient(server, ClientConfig{
		MaxRetries: 3,
		BaseSleep:  100 * time.Millisecond,
	})

	_, err := client.Do(context.Background(), http.MethodGet, "/x", nil, nil)
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusTooManyRequests, apiErr.Status)

	// One initial attempt plus MaxRetries retries, with doubling delays.
	assert.Equal(t, 4, attempts)
	assert.Equal(t, []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
	}, *slept)
}

func TestClientStopsRetryingAfterSuccess(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{}`)
	}))
	defer server.Close()

	client, _ := newTestClient(server, ClientConfig{MaxRetries: 5})
	_, err := client.Do(context.Background(), http.MethodGet, "/x", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestClientDoesNotRetryOtherErrors(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client, _ := newTestClient(server, ClientConfig{MaxRetries: 5})
	_, err := client.Do(context.Background(), http.MethodGet, "/x", nil, nil)
	require.Error(t, err)
	assert.Equal(t, 1, attempts)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.True(t, apiErr.IsBadRequest())
	assert.False(t, apiErr.IsRateLimited())
}

func TestClientThrottlesBetweenRequests(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	}))
	defer server.Close()

	client, slept := newTestClient(server, ClientConfig{RateLimitPause: time.Second})

	// Fix the clock so the second request appears to arrive instantly.
	now := time.Now()
	client.now = func() time.Time { return now }

	ctx := context.Background()
	_, err := client.Do(ctx, http.MethodGet, "/x", nil, nil)
	require.NoError(t, err)
	_, err = client.Do(ctx, http.MethodGet, "/x", nil, nil)
	require.NoError(t, err)

	require.Len(t, *slept, 1)
	assert.Equal(t, time.Second, (*slept)[0])
}

func TestPaginatedFollowsCursor(t *testing.T) {
	var afters []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		after := r.URL.Query().Get("after")
		afters = append(afters, after)

		switch after {
		case "":
			fmt.Fprint(w, `{"results":[{"id":"1","properties":{}}],"paging":{"next":{"after":"p2"}}}`)
		case "p2":
			fmt.Fprint(w, `{"results":[{"id":"2","properties":{}},{"id":"3","properties":{}}]}`)
		default:
			t.Errorf("unexpected cursor %q", after)
		}
	}))
	defer server.Close()

	client, _ := newTestClient(server, ClientConfig{})
	records, err := client.Paginated(context.Background(), http.MethodGet, "/crm/v3/objects/deals", nil)
	require.NoError(t, err)

	require.Len(t, records, 3)
	assert.Equal(t, []string{"", "p2"}, afters)
	assert.Equal(t, "1", records[0].ID)
	assert.Equal(t, "3", records[2].ID)
}

func TestPaginatedPreservesCallerQuery(t *testing.T) {
	var gotProps []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotProps = r.URL.Query()["properties"]
		fmt.Fprint(w, `{"results":[]}`)
	}))
	defer server.Close()

	client, _ := newTestClient(server, ClientConfig{})
	query := url.Values{}
	query.Add("properties", "dealname")
	query.Add("properties", "amount")

	_, err := client.Paginated(context.Background(), http.MethodGet, "/crm/v3/objects/deals", query)
	require.NoError(t, err)
	assert.Equal(t, []string{"dealname", "amount"}, gotProps)

	// The caller's query map must not pick up pagination state.
	assert.Empty(t, query.Get("after"))
	assert.Empty(t, query.Get("limit"))
}

func TestClientEncodesRequestBody(t *testing.T) {
	var got map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{}`)
	}))
	defer server.Close()

	client, _ := newTestClient(server, ClientConfig{})
	_, err := client.Do(context.Background(), http.MethodPost, "/x", nil, map[string]string{"k": "v"})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"k": "v"}, got)
}
