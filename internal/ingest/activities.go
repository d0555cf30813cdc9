package ingest

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/lakeroad/hubspot-ingest/internal/hubspot"
	"github.com/lakeroad/hubspot-ingest/internal/storage"
	"github.com/lakeroad/hubspot-ingest/internal/syncstate"
)

// activityObject describes one engagement object type and how its
// properties map onto the shared activity columns.
type activityObject struct {
	objectType string
	properties []string
	subject    string
	body       string
	status     string
	duration   string
	outcome    string
	direction  string
}

var activityObjects = []activityObject{
	{
		objectType: "emails",
		properties: []string{"hs_email_subject", "hs_email_text", "hs_email_status", "hs_email_direction"},
		subject:    "hs_email_subject",
		body:       "hs_email_text",
		status:     "hs_email_status",
		direction:  "hs_email_direction",
	},
	{
		objectType: "calls",
		properties: []string{"hs_call_title", "hs_call_body", "hs_call_duration", "hs_call_status", "hs_call_disposition", "hs_call_direction"},
		subject:    "hs_call_title",
		body:       "hs_call_body",
		status:     "hs_call_status",
		duration:   "hs_call_duration",
		outcome:    "hs_call_disposition",
		direction:  "hs_call_direction",
	},
	{
		objectType: "meetings",
		properties: []string{"hs_meeting_title", "hs_meeting_body", "hs_meeting_outcome"},
		subject:    "hs_meeting_title",
		body:       "hs_meeting_body",
		outcome:    "hs_meeting_outcome",
	},
	{
		objectType: "tasks",
		properties: []string{"hs_task_subject", "hs_task_body", "hs_task_status"},
		subject:    "hs_task_subject",
		body:       "hs_task_body",
		status:     "hs_task_status",
	},
	{
		objectType: "notes",
		properties: []string{"hs_note_body"},
		body:       "hs_note_body",
	},
	{
		objectType: "communications",
		properties: []string{"hs_communication_channel_type", "hs_communication_body"},
		body:       "hs_communication_body",
	},
}

var activityCommonProps = []string{"hs_createdate", "hs_lastmodifieddate", "hubspot_owner_id"}

// communicationChannels maps the channel type of a communications object to
// the activity type it is reported as.
var communicationChannels = map[string]string{
	"WHATS_APP":        "whatsapp",
	"SMS":              "sms",
	"LINKEDIN_MESSAGE": "linkedin",
}

var activitiesTable = storage.Table{
	Name: "activities",
	Columns: []storage.Column{
		{Name: "activity_id", Type: storage.TypeString},
		{Name: "activity_type", Type: storage.TypeString},
		{Name: "object_type", Type: storage.TypeString},
		{Name: "owner_id", Type: storage.TypeString},
		{Name: "created_at", Type: storage.TypeTimestamp},
		{Name: "last_modified_at", Type: storage.TypeTimestamp},
		{Name: "subject", Type: storage.TypeString},
		{Name: "body", Type: storage.TypeString},
		{Name: "status", Type: storage.TypeString},
		{Name: "duration", Type: storage.TypeString},
		{Name: "outcome", Type: storage.TypeString},
		{Name: "direction", Type: storage.TypeString},
		{Name: "dt", Type: storage.TypeString},
	},
}

// SyncActivities pulls every engagement object type into one combined
// activities dataset under a single checkpoint. A failure on one object
// type is logged and skipped so a broken engagement API does not starve
// the others; the checkpoint still advances with whatever was written.
func SyncActivities(ctx context.Context, deps Deps) (int, error) {
	window := deps.Sync.SyncWindow(ctx, "activities")

	var rows []storage.Row
	for i, obj := range activityObjects {
		if i > 0 && deps.ActivityPause > 0 {
			time.Sleep(deps.ActivityPause)
		}

		records, err := fetchActivityObject(ctx, deps, obj, window)
		if err != nil {
			log.Printf("Activities: %s sweep failed, skipping object type: %v", obj.objectType, err)
			continue
		}

		kept := 0
		for _, rec := range records {
			row, ok := normalizeActivity(obj, rec)
			if !ok {
				continue
			}
			rows = append(rows, row)
			kept++
		}
		log.Printf("Activities: %s yielded %d rows", obj.objectType, kept)
	}

	ds := deps.curatedDataset(activitiesTable)
	if err := syncstate.WriteWithMergeStrategy(ctx, ds, rows, "dt", "activity_id", window.Incremental); err != nil {
		return 0, err
	}

	created, modified := syncstate.ExtractDateBounds(rows, "created_at", "last_modified_at")
	if err := deps.Sync.UpdateSyncState(ctx, "activities", created, modified, len(rows)); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// fetchActivityObject runs the dual sweeps for one engagement object type.
// Engagements only expose search retrieval, so full runs sweep from the
// configured start date. Sweeps sort descending, matching how the
// engagement timeline is usually consumed.
func fetchActivityObject(ctx context.Context, deps Deps, obj activityObject, window syncstate.Window) ([]hubspot.RawRecord, error) {
	props := append(append([]string{}, activityCommonProps...), obj.properties...)

	createdFrom, modifiedFrom := deps.StartDate, deps.StartDate
	if window.Incremental {
		if window.CreatedFrom != nil {
			createdFrom = *window.CreatedFrom
		}
		if window.ModifiedFrom != nil {
			modifiedFrom = *window.ModifiedFrom
		}
	}

	createdRecs, err := deps.Client.SearchChunked(ctx, hubspot.ChunkedQuery{
		ObjectType:    obj.objectType,
		Properties:    props,
		From:          createdFrom,
		To:            window.To,
		SearchProp:    "hs_createdate",
		SortDirection: hubspot.SortDescending,
	})
	if err != nil {
		return nil, err
	}

	modifiedRecs, err := deps.Client.SearchChunked(ctx, hubspot.ChunkedQuery{
		ObjectType:    obj.objectType,
		Properties:    props,
		From:          modifiedFrom,
		To:            window.To,
		SearchProp:    "hs_lastmodifieddate",
		SortDirection: hubspot.SortDescending,
	})
	if err != nil {
		return nil, err
	}

	return hubspot.MergeByID(createdRecs, modifiedRecs), nil
}

// normalizeActivity flattens one engagement record. Records without a
// create date have no partition and are dropped.
func normalizeActivity(obj activityObject, rec hubspot.RawRecord) (storage.Row, bool) {
	props := rec.Properties
	createdAt := ParseHSTime(props["hs_createdate"])
	if createdAt == nil {
		return nil, false
	}

	row := storage.Row{
		"activity_id":      rec.ID,
		"activity_type":    activityType(obj, props),
		"object_type":      obj.objectType,
		"owner_id":         stringValue(props["hubspot_owner_id"]),
		"created_at":       createdAt.UTC(),
		"last_modified_at": timeValue(ParseHSTime(props["hs_lastmodifieddate"])),
		"subject":          propOrNil(props, obj.subject),
		"body":             propOrNil(props, obj.body),
		"status":           propOrNil(props, obj.status),
		"duration":         propOrNil(props, obj.duration),
		"outcome":          propOrNil(props, obj.outcome),
		"direction":        propOrNil(props, obj.direction),
		"dt":               dateString(*createdAt),
	}
	return row, true
}

// activityType maps an engagement object to its reported activity type.
// Incoming and forwarded email variants collapse to email; communications
// take their type from the channel.
func activityType(obj activityObject, props map[string]string) string {
	switch obj.objectType {
	case "emails":
		return "email"
	case "calls":
		return "call"
	case "meetings":
		return "meeting"
	case "tasks":
		return "task"
	case "notes":
		return "note"
	case "communications":
		channel := strings.ToUpper(strings.TrimSpace(props["hs_communication_channel_type"]))
		if t, ok := communicationChannels[channel]; ok {
			return t
		}
		return "communication"
	default:
		return obj.objectType
	}
}

func propOrNil(props map[string]string, key string) interface{} {
	if key == "" {
		return nil
	}
	return stringValue(props[key])
}
