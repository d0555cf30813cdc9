package ingest

import (
	"context"
	"log"
	"net/http"
	"net/url"

	"github.com/pkg/errors"

	"github.com/lakeroad/hubspot-ingest/internal/hubspot"
	"github.com/lakeroad/hubspot-ingest/internal/storage"
	"github.com/lakeroad/hubspot-ingest/internal/syncstate"
)

var contactsDimTable = storage.Table{
	Name: "contacts",
	Columns: []storage.Column{
		{Name: "contact_id", Type: storage.TypeString},
		{Name: "first_name", Type: storage.TypeString},
		{Name: "last_name", Type: storage.TypeString},
		{Name: "email", Type: storage.TypeString},
		{Name: "created_at", Type: storage.TypeTimestamp},
		{Name: "last_modified_at", Type: storage.TypeTimestamp},
		{Name: "dt", Type: storage.TypeString},
	},
}

var contactDimProps = []string{
	"firstname",
	"lastname",
	"email",
	"createdate",
	"lastmodifieddate",
}

// SyncContactsDim maintains the slim contact dimension. Incremental runs
// reuse the dual search sweeps; full runs walk the cheaper list endpoint,
// which has no result cap and needs no count probes.
func SyncContactsDim(ctx context.Context, deps Deps) (int, error) {
	window := deps.Sync.SyncWindow(ctx, "contacts_dim")

	var (
		records []hubspot.RawRecord
		err     error
	)
	if window.Incremental {
		records, err = fetchContacts(ctx, deps, window, contactDimProps)
	} else {
		query := url.Values{}
		for _, p := range contactDimProps {
			query.Add("properties", p)
		}
		records, err = deps.Client.Paginated(ctx, http.MethodGet, "/crm/v3/objects/contacts", query)
		err = errors.Wrap(err, "listing contacts")
	}
	if err != nil {
		return 0, err
	}

	rows := make([]storage.Row, 0, len(records))
	for _, rec := range records {
		row, ok := normalizeContactDim(rec)
		if !ok {
			log.Printf("ContactsDim: skipping contact %s with no usable dates", rec.ID)
			continue
		}
		rows = append(rows, row)
	}

	ds := deps.dimDataset(contactsDimTable)
	if err := syncstate.WriteWithMergeStrategy(ctx, ds, rows, "dt", "contact_id", window.Incremental); err != nil {
		return 0, err
	}

	created, modified := syncstate.ExtractDateBounds(rows, "created_at", "last_modified_at")
	if err := deps.Sync.UpdateSyncState(ctx, "contacts_dim", created, modified, len(rows)); err != nil {
		return 0, err
	}
	return len(rows), nil
}

func normalizeContactDim(rec hubspot.RawRecord) (storage.Row, bool) {
	props := rec.Properties
	createdAt := ParseHSTime(props["createdate"])
	modifiedAt := ParseHSTime(pickFirst(props, "lastmodifieddate", "hs_lastmodifieddate"))

	dt := createdAt
	if dt == nil {
		dt = modifiedAt
	}
	if dt == nil {
		return nil, false
	}

	return storage.Row{
		"contact_id":       rec.ID,
		"first_name":       stringValue(props["firstname"]),
		"last_name":        stringValue(props["lastname"]),
		"email":            stringValue(props["email"]),
		"created_at":       timeValue(createdAt),
		"last_modified_at": timeValue(modifiedAt),
		"dt":               dateString(*dt),
	}, true
}
