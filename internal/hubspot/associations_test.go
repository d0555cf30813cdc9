package hubspot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchAssociationsParsesShapes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/crm/v4/associations/deals/companies/batch/read", r.URL.Path)
		fmt.Fprint(w, `{"results":[
			{"from":{"id":"d1"},"to":[{"toObjectId":"c1"},{"toObjectId":"c2"}]},
			{"fromObjectId":"d2","toObjects":["c3"]},
			{"from":{"objectId":"d3"},"to":[{"id":"c4"}]}
		]}`)
	}))
	defer server.Close()

	client, _ := newTestClient(server, ClientConfig{})
	got := client.BatchAssociations(context.Background(), "deals", "companies", []string{"d1", "d2", "d3"})

	assert.Equal(t, []string{"c1", "c2"}, got["d1"])
	assert.Equal(t, []string{"c3"}, got["d2"])
	assert.Equal(t, []string{"c4"}, got["d3"])
}

func TestBatchAssociationsChunksInputs(t *testing.T) {
	var batchSizes []int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req associationBatchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		batchSizes = append(batchSizes, len(req.Inputs))
		fmt.Fprint(w, `{"results":[]}`)
	}))
	defer server.Close()

	ids := make([]string, 250)
	for i := range ids {
		ids[i] = fmt.Sprintf("d%d", i)
	}

	client, _ := newTestClient(server, ClientConfig{})
	client.BatchAssociations(context.Background(), "deals", "contacts", ids)

	assert.Equal(t, []int{100, 100, 50}, batchSizes)
}

func TestBatchAssociationsSkipsFailedChunk(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `{"results":[{"from":{"id":"d150"},"to":[{"id":"c1"}]}]}`)
	}))
	defer server.Close()

	ids := make([]string, 150)
	for i := range ids {
		ids[i] = fmt.Sprintf("d%d", i)
	}

	client, _ := newTestClient(server, ClientConfig{})
	got := client.BatchAssociations(context.Background(), "deals", "companies", ids)

	assert.Equal(t, 2, calls)
	assert.Equal(t, []string{"c1"}, got["d150"])
}

func TestBatchAssociationsEmptyInput(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for empty input")
	}))
	defer server.Close()

	client, _ := newTestClient(server, ClientConfig{})
	got := client.BatchAssociations(context.Background(), "deals", "companies", nil)
	assert.Empty(t, got)
}
