package ingest

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakeroad/hubspot-ingest/internal/hubspot"
	"github.com/lakeroad/hubspot-ingest/internal/syncstate"
)

func TestSyncCompaniesFullListing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/crm/v3/objects/companies", r.URL.Path)
		assert.Contains(t, r.URL.Query()["properties"], "domain")
		fmt.Fprint(w, `{"results":[
			{"id":"c1","properties":{"name":"Acme","domain":"acme.test","createdate":"2024-04-01T00:00:00Z","hs_lastmodifieddate":"2024-05-01T00:00:00Z"}},
			{"id":"c2","properties":{"name":"NoDates"}}
		]}`)
	}))
	defer server.Close()

	deps := newTestDeps(t, server.URL, false, syncstate.NewMemoryStore())
	written, err := SyncCompanies(context.Background(), deps)
	require.NoError(t, err)
	assert.Equal(t, 1, written, "companies without any date are dropped")

	ds := deps.dimDataset(companiesTable)
	rows, err := ds.ReadPartition(context.Background(), "dt", "2024-05-01")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Acme", rows[0]["company_name"])
	assert.Equal(t, "acme.test", rows[0]["domain"])
}

func TestNormalizeCompanyPrefersModifiedDate(t *testing.T) {
	row, ok := normalizeCompany(hubspot.RawRecord{
		ID: "c1",
		Properties: map[string]string{
			"createdate":          "2024-04-01T00:00:00Z",
			"hs_lastmodifieddate": "2024-05-01T00:00:00Z",
		},
	})
	require.True(t, ok)
	assert.Equal(t, "2024-05-01", row["dt"])

	row, ok = normalizeCompany(hubspot.RawRecord{
		ID:         "c2",
		Properties: map[string]string{"createdate": "2024-04-01T00:00:00Z"},
	})
	require.True(t, ok)
	assert.Equal(t, "2024-04-01", row["dt"])
}
