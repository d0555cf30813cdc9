package hubspot

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// maxSearchResults is the hard cap HubSpot places on the matches one search
// query will page through. Accumulating past it only yields errors, so the
// client stops there and logs the truncation. SearchChunked keeps sub-range
// totals under this cap so the stop never fires during chunked retrieval.
const maxSearchResults = 10000

// maxSearchPageLimit is the largest page size the search endpoint accepts.
const maxSearchPageLimit = 200

// SortAscending and SortDescending are the sort directions the search
// endpoint understands.
const (
	SortAscending  = "ASCENDING"
	SortDescending = "DESCENDING"
)

// SearchQuery describes one BETWEEN-filtered search over an object type.
type SearchQuery struct {
	ObjectType string
	Properties []string
	From       time.Time
	To         time.Time
	// SearchProp is the property filtered and sorted on.
	SearchProp string
	// FallbackProp, when set, is tried once if SearchProp draws an HTTP 400
	// (a sort/filter property mismatch for this object type).
	FallbackProp  string
	SortDirection string
	PageLimit     int
}

func (q *SearchQuery) applyDefaults() {
	if q.SortDirection == "" {
		q.SortDirection = SortAscending
	}
	if q.PageLimit <= 0 {
		q.PageLimit = defaultPageLimit
	}
	if q.PageLimit > maxSearchPageLimit {
		q.PageLimit = maxSearchPageLimit
	}
}

// Search retrieves every record matching the query, following the search
// cursor page by page. A 400 on the primary property triggers exactly one
// restart against the fallback property; the pagination state is discarded
// so the fallback sweep is complete on its own.
func (c *Client) Search(ctx context.Context, q SearchQuery) ([]RawRecord, error) {
	q.applyDefaults()

	prop := q.SearchProp
	usedFallback := false

	for {
		out, err := c.searchAllPages(ctx, q, prop)
		if err == nil {
			return out, nil
		}
		if apiErr, ok := asAPIError(err); ok && apiErr.IsBadRequest() &&
			!usedFallback && q.FallbackProp != "" && q.FallbackProp != prop {
			log.Printf("HubSpotClient: search on %s.%s rejected (400), retrying with %s",
				q.ObjectType, prop, q.FallbackProp)
			prop = q.FallbackProp
			usedFallback = true
			continue
		}
		return nil, err
	}
}

func (c *Client) searchAllPages(ctx context.Context, q SearchQuery, prop string) ([]RawRecord, error) {
	var out []RawRecord
	after := ""
	for {
		env, err := c.searchPage(ctx, q, prop, q.PageLimit, q.Properties, after)
		if err != nil {
			return nil, err
		}
		out = append(out, env.Results...)

		if len(out) >= maxSearchResults {
			log.Printf("HubSpotClient: hit %d-result search cap for %s, truncating", maxSearchResults, q.ObjectType)
			return out, nil
		}
		if env.Paging == nil || env.Paging.Next == nil || env.Paging.Next.After == "" {
			return out, nil
		}
		after = env.Paging.Next.After
		c.sleep(c.cfg.RateLimitPause)
	}
}

// CountBetween issues a count-only probe for the range: limit 1, no
// properties, reading only the envelope total. Used by SearchChunked to size
// sub-ranges before paying for full pagination.
func (c *Client) CountBetween(ctx context.Context, objectType, prop string, from, to time.Time) (int, error) {
	env, err := c.searchPage(ctx, SearchQuery{
		ObjectType:    objectType,
		From:          from,
		To:            to,
		SortDirection: SortAscending,
	}, prop, 1, nil, "")
	if err != nil {
		return 0, err
	}
	return env.Total, nil
}

func (c *Client) searchPage(ctx context.Context, q SearchQuery, prop string, limit int, properties []string, after string) (*searchEnvelope, error) {
	req := searchRequest{
		FilterGroups: []searchFilterGroup{{
			Filters: []searchFilter{{
				PropertyName: prop,
				Operator:     "BETWEEN",
				Value:        EpochMillis(q.From),
				HighValue:    EpochMillis(q.To),
			}},
		}},
		Sorts:      []searchSort{{PropertyName: prop, Direction: q.SortDirection}},
		Properties: properties,
		Limit:      limit,
		After:      after,
	}

	path := fmt.Sprintf("/crm/v3/objects/%s/search", q.ObjectType)
	data, err := c.Do(ctx, http.MethodPost, path, nil, req)
	if err != nil {
		return nil, err
	}

	var env searchEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, errors.Wrapf(err, "failed to decode search response for %s", q.ObjectType)
	}
	return &env, nil
}
