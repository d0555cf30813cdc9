package hubspot

import (
	"context"
	"log"
	"time"

	"github.com/pkg/errors"
)

// ChunkedQuery describes an adaptive range search over a wide time window.
type ChunkedQuery struct {
	ObjectType    string
	Properties    []string
	From          time.Time
	To            time.Time
	SearchProp    string
	FallbackProp  string
	SortDirection string

	// MaxChunk is the sub-range width tried first; MinChunk is the smallest
	// width attempted before giving up with ErrChunkTooDense.
	MaxChunk time.Duration
	MinChunk time.Duration
	// MaxPerChunk is the probe-count threshold a sub-range must stay under.
	// Kept below the real API cap so pagination never runs into it.
	MaxPerChunk int
}

func (q *ChunkedQuery) applyDefaults() {
	if q.MaxChunk <= 0 {
		q.MaxChunk = 30 * 24 * time.Hour
	}
	if q.MinChunk <= 0 {
		q.MinChunk = 24 * time.Hour
	}
	if q.MaxPerChunk <= 0 {
		q.MaxPerChunk = 9500
	}
}

// SearchChunked retrieves every record matching the query's predicate over
// [From, To] without any single search exceeding the API result cap. Each
// candidate sub-range gets a count-only probe first; oversized sub-ranges
// are halved until they fit or fall below MinChunk.
//
// A 400 from the probe switches the whole sweep to the fallback property
// once, mirroring what Search does for a single range.
func (c *Client) SearchChunked(ctx context.Context, q ChunkedQuery) ([]RawRecord, error) {
	q.applyDefaults()

	var out []RawRecord
	usedFallback := false
	cursor := q.From

	for cursor.Before(q.To) {
		width := q.MaxChunk
		for {
			end := cursor.Add(width)
			if end.After(q.To) {
				end = q.To
			}

			total, err := c.CountBetween(ctx, q.ObjectType, q.SearchProp, cursor, end)
			if err != nil {
				if apiErr, ok := asAPIError(err); ok && apiErr.IsBadRequest() &&
					!usedFallback && q.FallbackProp != "" && q.FallbackProp != q.SearchProp {
					log.Printf("HubSpotClient: probe on %s.%s rejected (400), switching sweep to %s",
						q.ObjectType, q.SearchProp, q.FallbackProp)
					q.SearchProp = q.FallbackProp
					usedFallback = true
					continue
				}
				return nil, err
			}

			if total < q.MaxPerChunk {
				records, err := c.Search(ctx, SearchQuery{
					ObjectType:    q.ObjectType,
					Properties:    q.Properties,
					From:          cursor,
					To:            end,
					SearchProp:    q.SearchProp,
					SortDirection: q.SortDirection,
				})
				if err != nil {
					return nil, err
				}
				out = append(out, records...)
				// BETWEEN is inclusive on both ends and the API stores
				// millisecond timestamps, so the next sub-range starts one
				// millisecond later to keep boundary records out of two chunks.
				cursor = end.Add(time.Millisecond)
				break
			}

			width /= 2
			if width < q.MinChunk {
				return nil, errors.Wrapf(ErrChunkTooDense,
					"%s has %d records on %s in a %s window starting %s",
					q.ObjectType, total, q.SearchProp, q.MinChunk, cursor.UTC().Format(time.RFC3339))
			}
			log.Printf("HubSpotClient: %s sub-range too dense (%d matches), narrowing to %s",
				q.ObjectType, total, width)
		}
	}

	return out, nil
}
