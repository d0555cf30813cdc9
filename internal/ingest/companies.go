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

var companiesTable = storage.Table{
	Name: "companies",
	Columns: []storage.Column{
		{Name: "company_id", Type: storage.TypeString},
		{Name: "company_name", Type: storage.TypeString},
		{Name: "domain", Type: storage.TypeString},
		{Name: "created_at", Type: storage.TypeTimestamp},
		{Name: "last_modified_at", Type: storage.TypeTimestamp},
		{Name: "dt", Type: storage.TypeString},
	},
}

// SyncCompanies rebuilds the company dimension from a full listing each
// run. The company population is small enough that incremental machinery
// buys nothing here.
func SyncCompanies(ctx context.Context, deps Deps) (int, error) {
	query := url.Values{}
	for _, p := range []string{"name", "domain", "createdate", "hs_lastmodifieddate"} {
		query.Add("properties", p)
	}
	records, err := deps.Client.Paginated(ctx, http.MethodGet, "/crm/v3/objects/companies", query)
	if err != nil {
		return 0, errors.Wrap(err, "listing companies")
	}

	rows := make([]storage.Row, 0, len(records))
	for _, rec := range records {
		row, ok := normalizeCompany(rec)
		if !ok {
			log.Printf("Companies: skipping company %s with no usable dates", rec.ID)
			continue
		}
		rows = append(rows, row)
	}

	ds := deps.dimDataset(companiesTable)
	if err := syncstate.WriteWithMergeStrategy(ctx, ds, rows, "dt", "company_id", false); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// normalizeCompany flattens one raw company. The partition date prefers the
// modified date so restated companies move forward with their changes.
func normalizeCompany(rec hubspot.RawRecord) (storage.Row, bool) {
	props := rec.Properties
	createdAt := ParseHSTime(props["createdate"])
	modifiedAt := ParseHSTime(props["hs_lastmodifieddate"])

	dt := modifiedAt
	if dt == nil {
		dt = createdAt
	}
	if dt == nil {
		return nil, false
	}

	return storage.Row{
		"company_id":       rec.ID,
		"company_name":     stringValue(props["name"]),
		"domain":           stringValue(props["domain"]),
		"created_at":       timeValue(createdAt),
		"last_modified_at": timeValue(modifiedAt),
		"dt":               dateString(*dt),
	}, true
}
