package hubspot

// MergeByID merges the given record lists into one deduplicated list keyed
// by record ID. When an ID appears more than once, the record encountered
// later in merge order replaces the earlier one wholesale; handlers pass the
// modified-date sweep last so its fresher property set wins on overlap.
// Output preserves the order IDs were first seen, which keeps runs
// deterministic for a given input.
func MergeByID(lists ...[]RawRecord) []RawRecord {
	byID := make(map[string]int)
	var out []RawRecord
	for _, list := range lists {
		for _, rec := range list {
			if rec.ID == "" {
				continue
			}
			if idx, ok := byID[rec.ID]; ok {
				out[idx] = rec
				continue
			}
			byID[rec.ID] = len(out)
			out = append(out, rec)
		}
	}
	return out
}

// MergePropertiesByID is the property-level variant used for contacts: the
// merged record keeps the union of properties, with later non-empty values
// overwriting earlier ones. Records without an ID are dropped.
func MergePropertiesByID(lists ...[]RawRecord) []RawRecord {
	byID := make(map[string]int)
	var out []RawRecord
	for _, list := range lists {
		for _, rec := range list {
			if rec.ID == "" {
				continue
			}
			idx, ok := byID[rec.ID]
			if !ok {
				merged := RawRecord{ID: rec.ID, Properties: map[string]string{}}
				byID[rec.ID] = len(out)
				out = append(out, merged)
				idx = byID[rec.ID]
			}
			for k, v := range rec.Properties {
				if v != "" {
					out[idx].Properties[k] = v
				}
			}
		}
	}
	return out
}
