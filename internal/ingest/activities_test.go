package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakeroad/hubspot-ingest/internal/hubspot"
	"github.com/lakeroad/hubspot-ingest/internal/syncstate"
)

func TestActivityTypeMapping(t *testing.T) {
	tests := []struct {
		objectType string
		props      map[string]string
		want       string
	}{
		{"emails", nil, "email"},
		{"calls", nil, "call"},
		{"meetings", nil, "meeting"},
		{"tasks", nil, "task"},
		{"notes", nil, "note"},
		{"communications", map[string]string{"hs_communication_channel_type": "WHATS_APP"}, "whatsapp"},
		{"communications", map[string]string{"hs_communication_channel_type": "sms"}, "sms"},
		{"communications", map[string]string{"hs_communication_channel_type": "LINKEDIN_MESSAGE"}, "linkedin"},
		{"communications", map[string]string{"hs_communication_channel_type": "CARRIER_PIGEON"}, "communication"},
		{"communications", nil, "communication"},
	}

	for _, tt := range tests {
		obj := activityObject{objectType: tt.objectType}
		assert.Equal(t, tt.want, activityType(obj, tt.props), "%s %v", tt.objectType, tt.props)
	}
}

func TestNormalizeActivityMapsObjectColumns(t *testing.T) {
	obj := activityObjects[1] // calls
	rec := hubspot.RawRecord{
		ID: "42",
		Properties: map[string]string{
			"hs_createdate":       "2024-05-01T10:00:00Z",
			"hs_lastmodifieddate": "2024-05-01T11:00:00Z",
			"hubspot_owner_id":    "7",
			"hs_call_title":       "Intro call",
			"hs_call_duration":    "60000",
			"hs_call_disposition": "connected",
			"hs_call_direction":   "OUTBOUND",
		},
	}

	row, ok := normalizeActivity(obj, rec)
	require.True(t, ok)

	assert.Equal(t, "42", row["activity_id"])
	assert.Equal(t, "call", row["activity_type"])
	assert.Equal(t, "calls", row["object_type"])
	assert.Equal(t, "7", row["owner_id"])
	assert.Equal(t, "Intro call", row["subject"])
	assert.Equal(t, "60000", row["duration"])
	assert.Equal(t, "connected", row["outcome"])
	assert.Equal(t, "OUTBOUND", row["direction"])
	assert.Equal(t, "2024-05-01", row["dt"])
	assert.Nil(t, row["status"], "calls carry hs_call_status only when set")
}

func TestNormalizeActivityDropsRecordsWithoutCreateDate(t *testing.T) {
	_, ok := normalizeActivity(activityObjects[0], hubspot.RawRecord{ID: "1", Properties: map[string]string{}})
	assert.False(t, ok)
}

func TestSyncActivitiesSkipsFailingObjectType(t *testing.T) {
	createdTS := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// /crm/v3/objects/{type}/search
		parts := strings.Split(r.URL.Path, "/")
		require.Len(t, parts, 6)
		objectType := parts[4]

		if objectType == "calls" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		var body searchBody
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body.Limit == 1 && len(body.Properties) == 0 {
			fmt.Fprint(w, `{"total":1,"results":[]}`)
			return
		}

		fmt.Fprintf(w, `{"total":1,"results":[{"id":"%s-1","properties":{"hs_createdate":%q}}]}`,
			objectType, createdTS.Format(time.RFC3339))
	}))
	defer server.Close()

	store := syncstate.NewMemoryStore()
	deps := newTestDeps(t, server.URL, false, store)
	// Keep the full-sync window inside one chunk per sweep.
	deps.StartDate = time.Now().UTC().Add(-24 * time.Hour)

	written, err := SyncActivities(context.Background(), deps)
	require.NoError(t, err)
	assert.Equal(t, len(activityObjects)-1, written, "calls failed, every other object type landed")

	ds := deps.curatedDataset(activitiesTable)
	rows, err := ds.ReadPartition(context.Background(), "dt", createdTS.Format("2006-01-02"))
	require.NoError(t, err)

	types := map[string]bool{}
	for _, row := range rows {
		types[row["object_type"].(string)] = true
	}
	assert.False(t, types["calls"])
	assert.True(t, types["emails"])
	assert.True(t, types["notes"])

	rec, err := store.Get(context.Background(), "activities")
	require.NoError(t, err)
	require.NotNil(t, rec, "checkpoint still advances for the objects that synced")
	assert.Equal(t, len(activityObjects)-1, rec.RecordsProcessed)
}
