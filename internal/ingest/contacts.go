package ingest

import (
	"context"
	"log"
	"time"

	"github.com/pkg/errors"

	"github.com/lakeroad/hubspot-ingest/internal/hubspot"
	"github.com/lakeroad/hubspot-ingest/internal/storage"
	"github.com/lakeroad/hubspot-ingest/internal/syncstate"
)

var contactSourceProps = []string{
	"contact_source",
	"source",
	"lead_source",
	"hs_analytics_source",
	"hs_analytics_source_data_1",
}

var contactsTable = storage.Table{
	Name: "contacts",
	Columns: []storage.Column{
		{Name: "contact_id", Type: storage.TypeString},
		{Name: "first_name", Type: storage.TypeString},
		{Name: "last_name", Type: storage.TypeString},
		{Name: "email", Type: storage.TypeString},
		{Name: "phone", Type: storage.TypeString},
		{Name: "owner_id", Type: storage.TypeString},
		{Name: "lifecycle_stage", Type: storage.TypeString},
		{Name: "created_at", Type: storage.TypeTimestamp},
		{Name: "last_modified_at", Type: storage.TypeTimestamp},
		{Name: "source", Type: storage.TypeString},
		{Name: "dt", Type: storage.TypeString},
	},
}

func contactProperties() []string {
	props := []string{
		"firstname",
		"lastname",
		"email",
		"phone",
		"hubspot_owner_id",
		"lifecyclestage",
		"createdate",
		"lastmodifieddate",
	}
	return append(props, contactSourceProps...)
}

// SyncContacts pulls contacts into the curated contacts dataset. Contacts
// are always fetched through chunked search sweeps; full runs just sweep
// from the configured start date. The two sweeps are merged property-wise,
// so a sparse modified-sweep record cannot wipe out properties the created
// sweep already saw.
func SyncContacts(ctx context.Context, deps Deps) (int, error) {
	window := deps.Sync.SyncWindow(ctx, "contacts")

	records, err := fetchContacts(ctx, deps, window, contactProperties())
	if err != nil {
		return 0, err
	}

	rows := make([]storage.Row, 0, len(records))
	for _, rec := range records {
		row, ok := normalizeContact(rec)
		if !ok {
			log.Printf("Contacts: skipping contact %s with no usable dates", rec.ID)
			continue
		}
		rows = append(rows, row)
	}

	ds := deps.curatedDataset(contactsTable)
	if err := syncstate.WriteWithMergeStrategy(ctx, ds, rows, "dt", "contact_id", window.Incremental); err != nil {
		return 0, err
	}

	created, modified := syncstate.ExtractDateBounds(rows, "created_at", "last_modified_at")
	if err := deps.Sync.UpdateSyncState(ctx, "contacts", created, modified, len(rows)); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// fetchContacts runs the created and modified sweeps for a window. Contact
// date properties differ from the other object types: lastmodifieddate is
// the searchable property and hs_lastmodifieddate the fallback.
func fetchContacts(ctx context.Context, deps Deps, window syncstate.Window, props []string) ([]hubspot.RawRecord, error) {
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
		ObjectType: "contacts",
		Properties: props,
		From:       createdFrom,
		To:         window.To,
		SearchProp: "createdate",
	})
	if err != nil {
		return nil, errors.Wrap(err, "created sweep")
	}

	modifiedRecs, err := deps.Client.SearchChunked(ctx, hubspot.ChunkedQuery{
		ObjectType:   "contacts",
		Properties:   props,
		From:         modifiedFrom,
		To:           window.To,
		SearchProp:   "lastmodifieddate",
		FallbackProp: "hs_lastmodifieddate",
	})
	if err != nil {
		return nil, errors.Wrap(err, "modified sweep")
	}

	return hubspot.MergePropertiesByID(createdRecs, modifiedRecs), nil
}

// normalizeContact flattens one raw contact. The partition date prefers the
// create date and falls back to the modified date; a contact with neither
// is dropped.
func normalizeContact(rec hubspot.RawRecord) (storage.Row, bool) {
	props := rec.Properties
	createdAt := ParseHSTime(props["createdate"])
	modifiedAt := ParseHSTime(pickFirst(props, "lastmodifieddate", "hs_lastmodifieddate"))

	var dt time.Time
	switch {
	case createdAt != nil:
		dt = *createdAt
	case modifiedAt != nil:
		dt = *modifiedAt
	default:
		return nil, false
	}

	return storage.Row{
		"contact_id":       rec.ID,
		"first_name":       stringValue(props["firstname"]),
		"last_name":        stringValue(props["lastname"]),
		"email":            stringValue(props["email"]),
		"phone":            stringValue(props["phone"]),
		"owner_id":         stringValue(props["hubspot_owner_id"]),
		"lifecycle_stage":  stringValue(props["lifecyclestage"]),
		"created_at":       timeValue(createdAt),
		"last_modified_at": timeValue(modifiedAt),
		"source":           stringValue(pickFirst(props, contactSourceProps...)),
		"dt":               dateString(dt),
	}, true
}
