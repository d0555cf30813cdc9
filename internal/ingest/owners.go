package ingest

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	"github.com/lakeroad/hubspot-ingest/internal/storage"
)

var ownersTable = storage.Table{
	Name: "owners",
	Columns: []storage.Column{
		{Name: "owner_id", Type: storage.TypeString},
		{Name: "owner_name", Type: storage.TypeString},
		{Name: "email", Type: storage.TypeString},
		{Name: "archived", Type: storage.TypeBool},
	},
}

// SyncOwners rebuilds the owner dimension snapshot. The owners endpoint
// returns its fields at the top level rather than inside a properties map,
// so the pages are decoded directly instead of through the CRM list types.
func SyncOwners(ctx context.Context, deps Deps) (int, error) {
	var rows []storage.Row

	query := url.Values{}
	query.Set("limit", "100")
	for {
		data, err := deps.Client.Do(ctx, http.MethodGet, "/crm/v3/owners", query, nil)
		if err != nil {
			return 0, errors.Wrap(err, "listing owners")
		}

		page := gjson.ParseBytes(data)
		for _, res := range page.Get("results").Array() {
			rows = append(rows, storage.Row{
				"owner_id":   res.Get("id").String(),
				"owner_name": stringValue(ownerName(res)),
				"email":      stringValue(res.Get("email").String()),
				"archived":   res.Get("archived").Bool(),
			})
		}

		after := page.Get("paging.next.after").String()
		if after == "" {
			break
		}
		query.Set("after", after)
	}

	ds := deps.dimDataset(ownersTable)
	if err := ds.WriteSnapshot(ctx, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

func ownerName(res gjson.Result) string {
	name := strings.TrimSpace(res.Get("firstName").String() + " " + res.Get("lastName").String())
	if name == "" {
		return "Unknown"
	}
	return name
}
