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

// dealStages maps pipeline milestone columns to the stage IDs whose
// entered-timestamp properties feed them.
var dealStages = map[string]string{
	"op_detected_at":   "appointmentscheduled",
	"proposal_prep_at": "1067388789",
	"proposal_sent_at": "presentationscheduled",
	"closed_won_at":    "closedwon",
	"closed_lost_at":   "closedlost",
}

// dealSourceProps is the precedence order for the source column.
var dealSourceProps = []string{
	"deal_source",
	"source",
	"lead_source",
	"hs_analytics_source",
	"hs_analytics_source_data_1",
}

var dealsTable = storage.Table{
	Name: "deals",
	Columns: []storage.Column{
		{Name: "deal_id", Type: storage.TypeString},
		{Name: "deal_name", Type: storage.TypeString},
		{Name: "owner_id", Type: storage.TypeString},
		{Name: "company_id", Type: storage.TypeString},
		{Name: "contact_id", Type: storage.TypeString},
		{Name: "deal_stage", Type: storage.TypeString},
		{Name: "created_at", Type: storage.TypeTimestamp},
		{Name: "closed_at", Type: storage.TypeTimestamp},
		{Name: "last_modified_at", Type: storage.TypeTimestamp},
		{Name: "amount", Type: storage.TypeFloat64},
		{Name: "op_detected_at", Type: storage.TypeTimestamp},
		{Name: "proposal_prep_at", Type: storage.TypeTimestamp},
		{Name: "proposal_sent_at", Type: storage.TypeTimestamp},
		{Name: "closed_won_at", Type: storage.TypeTimestamp},
		{Name: "closed_lost_at", Type: storage.TypeTimestamp},
		{Name: "source", Type: storage.TypeString},
		{Name: "dt", Type: storage.TypeString},
	},
}

func dealProperties() []string {
	props := []string{
		"dealname",
		"dealstage",
		"amount",
		"createdate",
		"closedate",
		"hs_lastmodifieddate",
		"hubspot_owner_id",
	}
	for _, stageID := range dealStages {
		props = append(props, "hs_v2_date_entered_"+stageID, "hs_date_entered_"+stageID)
	}
	props = append(props, dealSourceProps...)
	return props
}

// SyncDeals pulls deals into the curated deals dataset. Incremental runs
// sweep the window twice, on create date and on modified date, merge the
// sweeps by ID, and enrich with company and contact associations via the
// batch endpoint. Full runs walk the plain list endpoint instead, which
// returns associations inline and has no search result cap to chunk around.
func SyncDeals(ctx context.Context, deps Deps) (int, error) {
	window := deps.Sync.SyncWindow(ctx, "deals")

	var (
		records []hubspot.RawRecord
		err     error
	)
	if window.Incremental {
		records, err = fetchDealsIncremental(ctx, deps, window)
	} else {
		records, err = fetchDealsFull(ctx, deps)
	}
	if err != nil {
		return 0, err
	}

	rows := make([]storage.Row, 0, len(records))
	for _, rec := range records {
		row, ok := normalizeDeal(rec)
		if !ok {
			log.Printf("Deals: skipping deal %s with no create date", rec.ID)
			continue
		}
		rows = append(rows, row)
	}

	ds := deps.curatedDataset(dealsTable)
	if err := syncstate.WriteWithMergeStrategy(ctx, ds, rows, "dt", "deal_id", window.Incremental); err != nil {
		return 0, err
	}

	created, modified := syncstate.ExtractDateBounds(rows, "created_at", "last_modified_at")
	if err := deps.Sync.UpdateSyncState(ctx, "deals", created, modified, len(rows)); err != nil {
		return 0, err
	}
	return len(rows), nil
}

func fetchDealsIncremental(ctx context.Context, deps Deps, window syncstate.Window) ([]hubspot.RawRecord, error) {
	props := dealProperties()

	// A checkpoint left by a run that processed nothing carries no bounds;
	// such a sweep starts from the configured start date so the sync still
	// makes progress.
	createdFrom, modifiedFrom := deps.StartDate, deps.StartDate
	if window.CreatedFrom != nil {
		createdFrom = *window.CreatedFrom
	}
	if window.ModifiedFrom != nil {
		modifiedFrom = *window.ModifiedFrom
	}

	createdRecs, err := deps.Client.SearchChunked(ctx, hubspot.ChunkedQuery{
		ObjectType: "deals",
		Properties: props,
		From:       createdFrom,
		To:         window.To,
		SearchProp: "createdate",
	})
	if err != nil {
		return nil, errors.Wrap(err, "created sweep")
	}

	modifiedRecs, err := deps.Client.SearchChunked(ctx, hubspot.ChunkedQuery{
		ObjectType: "deals",
		Properties: props,
		From:       modifiedFrom,
		To:         window.To,
		SearchProp: "hs_lastmodifieddate",
	})
	if err != nil {
		return nil, errors.Wrap(err, "modified sweep")
	}

	merged := hubspot.MergeByID(createdRecs, modifiedRecs)
	if err := enrichDealAssociations(ctx, deps, merged); err != nil {
		return nil, err
	}
	return merged, nil
}

func fetchDealsFull(ctx context.Context, deps Deps) ([]hubspot.RawRecord, error) {
	query := url.Values{}
	query.Set("associations", "company,contact")
	for _, p := range dealProperties() {
		query.Add("properties", p)
	}
	records, err := deps.Client.Paginated(ctx, http.MethodGet, "/crm/v3/objects/deals", query)
	if err != nil {
		return nil, errors.Wrap(err, "listing deals")
	}

	// Inline associations from the list endpoint fill the same properties
	// the batch endpoint fills on incremental runs.
	for i, rec := range records {
		if rec.Properties == nil {
			records[i].Properties = map[string]string{}
		}
		if id := rec.FirstAssociationID("companies"); id != "" {
			records[i].Properties["_company_id"] = id
		}
		if id := rec.FirstAssociationID("contacts"); id != "" {
			records[i].Properties["_contact_id"] = id
		}
	}
	return records, nil
}

// enrichDealAssociations resolves company and contact links for a merged
// incremental sweep. Association failures inside the batch reads degrade
// to unlinked deals rather than failing the run.
func enrichDealAssociations(ctx context.Context, deps Deps, records []hubspot.RawRecord) error {
	if len(records) == 0 {
		return nil
	}
	ids := make([]string, 0, len(records))
	for _, rec := range records {
		ids = append(ids, rec.ID)
	}

	companies := deps.Client.BatchAssociations(ctx, "deals", "companies", ids)
	contacts := deps.Client.BatchAssociations(ctx, "deals", "contacts", ids)

	for i, rec := range records {
		if records[i].Properties == nil {
			records[i].Properties = map[string]string{}
		}
		if linked := companies[rec.ID]; len(linked) > 0 {
			records[i].Properties["_company_id"] = linked[0]
		}
		if linked := contacts[rec.ID]; len(linked) > 0 {
			records[i].Properties["_contact_id"] = linked[0]
		}
	}
	return nil
}

// normalizeDeal flattens one raw deal into a row. Deals without a parseable
// create date have no partition to land in and are dropped.
func normalizeDeal(rec hubspot.RawRecord) (storage.Row, bool) {
	props := rec.Properties
	createdAt := ParseHSTime(props["createdate"])
	if createdAt == nil {
		return nil, false
	}

	row := storage.Row{
		"deal_id":          rec.ID,
		"deal_name":        stringValue(props["dealname"]),
		"owner_id":         stringValue(props["hubspot_owner_id"]),
		"company_id":       stringValue(props["_company_id"]),
		"contact_id":       stringValue(props["_contact_id"]),
		"deal_stage":       stringValue(props["dealstage"]),
		"created_at":       createdAt.UTC(),
		"closed_at":        timeValue(ParseHSTime(props["closedate"])),
		"last_modified_at": timeValue(ParseHSTime(props["hs_lastmodifieddate"])),
		"amount":           floatValue(props["amount"]),
		"source":           stringValue(pickFirst(props, dealSourceProps...)),
		"dt":               dateString(*createdAt),
	}

	for column, stageID := range dealStages {
		entered := pickFirst(props, "hs_v2_date_entered_"+stageID, "hs_date_entered_"+stageID)
		row[column] = timeValue(ParseHSTime(entered))
	}
	return row, true
}
