package syncstate

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakeroad/hubspot-ingest/internal/storage"
)

type failingStore struct{}

func (failingStore) Get(ctx context.Context, objectType string) (*Record, error) {
	return nil, errors.New("dynamo unavailable")
}

func (failingStore) Put(ctx context.Context, rec *Record) error {
	return errors.New("dynamo unavailable")
}

func fixedManager(store StateStore, flag FlagSource, now time.Time) *Manager {
	m := NewManager(store, flag, 2*time.Hour)
	m.now = func() time.Time { return now }
	return m
}

func TestSyncWindowFullWhenFlagDisabled(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	created := now.Add(-24 * time.Hour)
	require.NoError(t, store.Put(context.Background(), &Record{
		ObjectType:    "deals",
		LastCreatedAt: &created,
	}))

	m := fixedManager(store, StaticFlag(false), now)
	w := m.SyncWindow(context.Background(), "deals")

	assert.False(t, w.Incremental)
	assert.Nil(t, w.CreatedFrom)
	assert.Nil(t, w.ModifiedFrom)
	assert.Equal(t, now, w.To)
}

func TestSyncWindowFullWhenNoCheckpoint(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	m := fixedManager(NewMemoryStore(), StaticFlag(true), now)

	w := m.SyncWindow(context.Background(), "deals")
	assert.False(t, w.Incremental)
}

func TestSyncWindowFullWhenStoreUnreadable(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	m := fixedManager(failingStore{}, StaticFlag(true), now)

	w := m.SyncWindow(context.Background(), "deals")
	assert.False(t, w.Incremental, "a broken checkpoint store degrades to a full sync")
}

func TestSyncWindowSubtractsBuffer(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	created := time.Date(2024, 5, 31, 10, 0, 0, 0, time.UTC)
	modified := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

	store := NewMemoryStore()
	require.NoError(t, store.Put(context.Background(), &Record{
		ObjectType:     "deals",
		LastCreatedAt:  &created,
		LastModifiedAt: &modified,
	}))

	m := fixedManager(store, StaticFlag(true), now)
	w := m.SyncWindow(context.Background(), "deals")

	require.True(t, w.Incremental)
	assert.Equal(t, created.Add(-2*time.Hour), *w.CreatedFrom)
	assert.Equal(t, modified.Add(-2*time.Hour), *w.ModifiedFrom)
	assert.Equal(t, now, w.To)
}

func TestSyncWindowPartialBounds(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	created := time.Date(2024, 5, 31, 10, 0, 0, 0, time.UTC)

	store := NewMemoryStore()
	require.NoError(t, store.Put(context.Background(), &Record{
		ObjectType:    "deals",
		LastCreatedAt: &created,
	}))

	m := fixedManager(store, StaticFlag(true), now)
	w := m.SyncWindow(context.Background(), "deals")

	require.True(t, w.Incremental)
	require.NotNil(t, w.CreatedFrom)
	assert.Nil(t, w.ModifiedFrom)
}

func TestUpdateSyncStateOverwritesWholesale(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	m := fixedManager(store, StaticFlag(true), now)

	created := now.Add(-3 * time.Hour)
	modified := now.Add(-1 * time.Hour)
	require.NoError(t, m.UpdateSyncState(context.Background(), "deals", &created, &modified, 42))

	rec, err := store.Get(context.Background(), "deals")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, created, *rec.LastCreatedAt)
	assert.Equal(t, modified, *rec.LastModifiedAt)
	assert.Equal(t, now, rec.LastSyncAt)
	assert.Equal(t, 42, rec.RecordsProcessed)
}

func TestUpdateSyncStateNeverMovesBoundsBackwards(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	m := fixedManager(store, StaticFlag(true), now)

	ctx := context.Background()
	newer := now.Add(-1 * time.Hour)
	require.NoError(t, m.UpdateSyncState(ctx, "deals", &newer, &newer, 10))

	// A later run that only observed older records must not regress the
	// stored high-water marks.
	older := now.Add(-48 * time.Hour)
	require.NoError(t, m.UpdateSyncState(ctx, "deals", &older, &older, 3))

	rec, err := store.Get(ctx, "deals")
	require.NoError(t, err)
	assert.Equal(t, newer, *rec.LastCreatedAt)
	assert.Equal(t, newer, *rec.LastModifiedAt)
	assert.Equal(t, 3, rec.RecordsProcessed, "run metadata still reflects the latest run")
}

func TestUpdateSyncStateZeroRecordsAdvancesSyncTime(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	m := fixedManager(store, StaticFlag(true), now)

	ctx := context.Background()
	bound := now.Add(-2 * time.Hour)
	require.NoError(t, m.UpdateSyncState(ctx, "deals", &bound, &bound, 5))

	later := now.Add(30 * time.Minute)
	m.now = func() time.Time { return later }
	require.NoError(t, m.UpdateSyncState(ctx, "deals", nil, nil, 0))

	rec, err := store.Get(ctx, "deals")
	require.NoError(t, err)
	assert.Equal(t, later, rec.LastSyncAt)
	assert.Equal(t, bound, *rec.LastCreatedAt, "empty run keeps prior bounds")
	assert.Equal(t, 0, rec.RecordsProcessed)
}

func TestExtractDateBounds(t *testing.T) {
	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	t3 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	rows := []storage.Row{
		{"created_at": t1, "last_modified_at": t3},
		{"created_at": t2},
		{"last_modified_at": nil},
		{},
	}

	created, modified := ExtractDateBounds(rows, "created_at", "last_modified_at")
	require.NotNil(t, created)
	require.NotNil(t, modified)
	assert.Equal(t, t2, *created)
	assert.Equal(t, t3, *modified)
}

func TestExtractDateBoundsEmpty(t *testing.T) {
	created, modified := ExtractDateBounds(nil, "created_at", "last_modified_at")
	assert.Nil(t, created)
	assert.Nil(t, modified)
}

func TestParseFlagValues(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"true", true},
		{"TRUE", true},
		{"1", true},
		{"yes", true},
		{"enabled", true},
		{" true ", true},
		{"false", false},
		{"0", false},
		{"", false},
		{"on", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseFlag(tt.value), "value %q", tt.value)
	}
}
