package hubspot

import (
	"strconv"
	"time"
)

// RawRecord is one CRM object instance as returned by the HubSpot v3 API.
// Properties are the flat string-valued property map; Associations is only
// populated on list endpoints called with the associations query parameter.
type RawRecord struct {
	ID           string                        `json:"id"`
	Properties   map[string]string             `json:"properties"`
	Associations map[string]AssociationResults `json:"associations,omitempty"`
}

// AssociationResults is the per-object association list inside a list response.
type AssociationResults struct {
	Results []AssociationRef `json:"results"`
}

// AssociationRef identifies one associated object.
type AssociationRef struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// FirstAssociationID returns the first associated object ID under the given
// key ("companies", "contacts", ...) or "" when none is present.
func (r RawRecord) FirstAssociationID(key string) string {
	res, ok := r.Associations[key]
	if !ok || len(res.Results) == 0 {
		return ""
	}
	return res.Results[0].ID
}

type paging struct {
	Next *pagingNext `json:"next"`
}

type pagingNext struct {
	After string `json:"after"`
}

type listEnvelope struct {
	Results []RawRecord `json:"results"`
	Paging  *paging     `json:"paging"`
}

type searchEnvelope struct {
	Total   int         `json:"total"`
	Results []RawRecord `json:"results"`
	Paging  *paging     `json:"paging"`
}

type searchFilter struct {
	PropertyName string `json:"propertyName"`
	Operator     string `json:"operator"`
	Value        string `json:"value"`
	HighValue    string `json:"highValue"`
}

type searchFilterGroup struct {
	Filters []searchFilter `json:"filters"`
}

type searchSort struct {
	PropertyName string `json:"propertyName"`
	Direction    string `json:"direction"`
}

type searchRequest struct {
	FilterGroups []searchFilterGroup `json:"filterGroups"`
	Sorts        []searchSort        `json:"sorts,omitempty"`
	Properties   []string            `json:"properties,omitempty"`
	Limit        int                 `json:"limit"`
	After        string              `json:"after,omitempty"`
}

// EpochMillis renders a timestamp the way HubSpot search filters expect it.
func EpochMillis(t time.Time) string {
	return strconv.FormatInt(t.UTC().UnixMilli(), 10)
}
