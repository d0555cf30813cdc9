package syncstate

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/pkg/errors"

	"github.com/lakeroad/hubspot-ingest/internal/storage"
)

// WriteWithMergeStrategy persists batch into the dataset partitioned by
// partitionCol. Incremental writes merge with the rows already stored in
// each touched partition, deduplicating on idCol with the new batch
// winning; untouched partitions are left alone. Full sync replaces each
// touched partition with the batch rows alone.
func WriteWithMergeStrategy(ctx context.Context, ds *storage.Dataset, batch []storage.Row, partitionCol, idCol string, incremental bool) error {
	if len(batch) == 0 {
		log.Printf("MergeWrite: empty batch, nothing to write")
		return nil
	}

	byPartition := make(map[string][]storage.Row)
	for _, row := range batch {
		value, ok := row[partitionCol].(string)
		if !ok || value == "" {
			return fmt.Errorf("row %v is missing partition column %s", row[idCol], partitionCol)
		}
		byPartition[value] = append(byPartition[value], row)
	}

	values := make([]string, 0, len(byPartition))
	for value := range byPartition {
		values = append(values, value)
	}
	sort.Strings(values)

	for _, value := range values {
		rows := byPartition[value]

		if incremental {
			existing, err := ds.ReadPartition(ctx, partitionCol, value)
			if err != nil {
				return errors.Wrapf(err, "reading partition %s=%s", partitionCol, value)
			}
			rows = dedupeByID(append(existing, rows...), idCol)
		} else {
			rows = dedupeByID(rows, idCol)
		}

		if err := ds.ReplacePartition(ctx, partitionCol, value, rows); err != nil {
			return errors.Wrapf(err, "replacing partition %s=%s", partitionCol, value)
		}
	}

	log.Printf("MergeWrite: wrote %d rows across %d partitions (incremental=%t)", len(batch), len(values), incremental)
	return nil
}

// dedupeByID keeps the last occurrence of each ID, preserving the order of
// last occurrences.
func dedupeByID(rows []storage.Row, idCol string) []storage.Row {
	seen := make(map[string]bool, len(rows))
	out := make([]storage.Row, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		id, _ := rows[i][idCol].(string)
		if id != "" && seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, rows[i])
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}
