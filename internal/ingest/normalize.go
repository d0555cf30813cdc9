package ingest

import (
	"strconv"
	"strings"
	"time"
)

// hsTimeLayouts are the string layouts HubSpot emits for date properties,
// tried in order after the epoch-millisecond form.
var hsTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999",
	"2006-01-02",
}

// ParseHSTime parses a HubSpot date property value. Pure digit strings are
// epoch milliseconds; everything else is tried against the known layouts.
// Empty or unparseable values return nil rather than an error, because a
// missing date on one record should never fail a whole sweep.
func ParseHSTime(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	if isDigits(s) {
		ms, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil
		}
		t := time.UnixMilli(ms).UTC()
		return &t
	}

	for _, layout := range hsTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			u := t.UTC()
			return &u
		}
	}
	return nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// pickFirst returns the first non-empty value among the named properties.
func pickFirst(props map[string]string, keys ...string) string {
	for _, key := range keys {
		if v := props[key]; v != "" {
			return v
		}
	}
	return ""
}

// timeValue converts a *time.Time to the nullable interface value a row
// cell holds.
func timeValue(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}

// stringValue maps "" to a null cell.
func stringValue(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// floatValue parses a numeric property into a nullable float cell.
func floatValue(s string) interface{} {
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return f
}

// dateString renders a timestamp as the dt partition value.
func dateString(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
