package hubspot

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/tidwall/gjson"
)

// associationBatchSize bounds how many IDs go into one batch-read payload.
const associationBatchSize = 100

type associationInput struct {
	ID string `json:"id"`
}

type associationBatchRequest struct {
	Inputs []associationInput `json:"inputs"`
}

// BatchAssociations reads v4 associations from one object type to another
// and returns a mapping from source ID to associated IDs. Inputs are chunked
// to stay under payload limits. A failed chunk is logged and skipped rather
// than failing the whole lookup; association enrichment is best-effort.
//
// The response shape varies across accounts and API revisions, so the parse
// accepts several spellings of the from/to fields.
func (c *Client) BatchAssociations(ctx context.Context, fromObject, toObject string, fromIDs []string) map[string][]string {
	out := make(map[string][]string)
	if len(fromIDs) == 0 {
		return out
	}

	path := fmt.Sprintf("/crm/v4/associations/%s/%s/batch/read", fromObject, toObject)

	for start := 0; start < len(fromIDs); start += associationBatchSize {
		end := start + associationBatchSize
		if end > len(fromIDs) {
			end = len(fromIDs)
		}

		var inputs []associationInput
		for _, id := range fromIDs[start:end] {
			if id != "" {
				inputs = append(inputs, associationInput{ID: id})
			}
		}
		if len(inputs) == 0 {
			continue
		}

		data, err := c.Do(ctx, http.MethodPost, path, nil, associationBatchRequest{Inputs: inputs})
		if err != nil {
			log.Printf("HubSpotClient: association batch read %s -> %s failed: %v", fromObject, toObject, err)
			continue
		}

		for _, item := range gjson.GetBytes(data, "results").Array() {
			fromID := firstString(item,
				"from.id", "from.objectId", "from.fromObjectId",
				"fromId", "fromObjectId", "id")
			if fromID == "" {
				continue
			}

			toList := item.Get("to")
			if !toList.Exists() {
				toList = item.Get("toObjects")
			}
			var ids []string
			for _, t := range toList.Array() {
				if t.IsObject() {
					if id := firstString(t, "id", "toObjectId", "objectId"); id != "" {
						ids = append(ids, id)
					}
				} else if t.String() != "" {
					ids = append(ids, t.String())
				}
			}
			out[fromID] = ids
		}
	}

	return out
}

func firstString(item gjson.Result, paths ...string) string {
	for _, p := range paths {
		if v := item.Get(p); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return ""
}
