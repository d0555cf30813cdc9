package hubspot

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// APIError is a non-success response from the HubSpot API. The status code
// and raw body are preserved so callers can decide whether to fall back
// (400 on a sort/filter property mismatch) or give up.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("hubspot api error %d: %s", e.Status, e.Body)
}

// IsRateLimited reports whether the upstream rejected the call with HTTP 429.
func (e *APIError) IsRateLimited() bool { return e.Status == http.StatusTooManyRequests }

// IsBadRequest reports whether the upstream rejected the call with HTTP 400,
// which for search usually means the filter/sort property does not exist on
// the object type.
func (e *APIError) IsBadRequest() bool { return e.Status == http.StatusBadRequest }

// ErrChunkTooDense is returned by SearchChunked when a sub-range at the
// minimum width still exceeds the per-query result cap. There is no way to
// retrieve such a window completely through the search API.
var ErrChunkTooDense = errors.New("chunk cannot be narrowed below minimum width")

// ErrTokenNotConfigured is returned when neither a static token nor a
// secret ARN is configured.
var ErrTokenNotConfigured = errors.New("hubspot token not configured: set a static token or a secret ARN")

func asAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
