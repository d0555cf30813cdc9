// Package syncstate tracks per-object incremental sync checkpoints and
// decides, for each run, whether to sync the full history or only a
// recent window.
package syncstate

import "time"

// Record is one object type's checkpoint. Timestamps are UTC; nil bounds
// mean the object has never completed a sync that produced that bound.
type Record struct {
	ObjectType       string     `dynamodbav:"object_type"`
	LastCreatedAt    *time.Time `dynamodbav:"last_created_at,omitempty"`
	LastModifiedAt   *time.Time `dynamodbav:"last_modified_at,omitempty"`
	LastSyncAt       time.Time  `dynamodbav:"last_sync_at"`
	RecordsProcessed int        `dynamodbav:"records_processed"`
}

// Window is what a handler actually syncs. Incremental false means pull
// everything; otherwise each sweep starts from its own lower bound, either
// of which may be nil when the checkpoint never recorded one.
type Window struct {
	CreatedFrom  *time.Time
	ModifiedFrom *time.Time
	To           time.Time
	Incremental  bool
}
