// Package ingest holds the per-task handlers that pull CRM objects from
// HubSpot, normalize them to flat rows, and persist them as partitioned
// Parquet datasets.
package ingest

import (
	"time"

	"github.com/apache/arrow-go/v18/parquet/compress"

	"github.com/lakeroad/hubspot-ingest/internal/hubspot"
	"github.com/lakeroad/hubspot-ingest/internal/storage"
	"github.com/lakeroad/hubspot-ingest/internal/syncstate"
)

// Deps carries everything a task handler needs. One Deps value is built per
// run by the command layer and shared across the dispatched handler.
type Deps struct {
	Client  *hubspot.Client
	Sync    *syncstate.Manager
	Storage storage.Client

	// CuratedRoot and DimRoot are the key prefixes fact and dimension
	// datasets are written under.
	CuratedRoot string
	DimRoot     string

	Compression compress.Compression

	// StartDate is the lower bound for full-sync search sweeps, for object
	// types that have no cheaper full-listing endpoint.
	StartDate time.Time

	// ActivityPause is the fixed pause between engagement object types in
	// the activities task.
	ActivityPause time.Duration
}

func (d Deps) curatedDataset(table storage.Table) *storage.Dataset {
	return storage.NewDataset(d.Storage, d.CuratedRoot, table, d.Compression)
}

func (d Deps) dimDataset(table storage.Table) *storage.Dataset {
	return storage.NewDataset(d.Storage, d.DimRoot, table, d.Compression)
}
