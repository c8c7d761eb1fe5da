// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package snapshot

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianFederate/services/federate/federation"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := Open(InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})
	return NewStore(db)
}

func testRecord(root string, startedAt time.Time) ScanRecord {
	return ScanRecord{
		ID:        uuid.NewString(),
		Root:      root,
		StartedAt: startedAt,
		Duration:  120 * time.Millisecond,
		Configs: []federation.Config{
			{
				Name:    "host",
				Dialect: federation.DialectWebpack,
				Remotes: []federation.RemoteRef{
					{Name: "app1", ResolvedURLExpression: "app1@http://x/r.js"},
				},
			},
		},
		Stats: ScanStats{FilesDiscovered: 1, FilesParsed: 1, Remotes: 1},
	}
}

func TestSaveAndGetScan(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	record := testRecord("/work/shop", time.Now().UTC())
	require.NoError(t, store.SaveScan(ctx, record))

	got, err := store.GetScan(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, record.ID, got.ID)
	assert.Equal(t, record.Root, got.Root)
	require.Len(t, got.Configs, 1)
	assert.Equal(t, "host", got.Configs[0].Name)
	assert.Equal(t, 1, got.Stats.Remotes)
}

func TestSaveScanRequiresID(t *testing.T) {
	store := openTestStore(t)
	err := store.SaveScan(context.Background(), ScanRecord{Root: "/work"})
	assert.Error(t, err)
}

func TestGetScanNotFound(t *testing.T) {
	store := openTestStore(t)
	_, err := store.GetScan(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, ErrScanNotFound)
}

func TestListScansMostRecentFirst(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC()
	oldest := testRecord("/work/a", base.Add(-2*time.Hour))
	middle := testRecord("/work/b", base.Add(-1*time.Hour))
	newest := testRecord("/work/c", base)
	for _, record := range []ScanRecord{oldest, middle, newest} {
		require.NoError(t, store.SaveScan(ctx, record))
	}

	records, err := store.ListScans(ctx, 0)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, newest.ID, records[0].ID)
	assert.Equal(t, middle.ID, records[1].ID)
	assert.Equal(t, oldest.ID, records[2].ID)

	limited, err := store.ListScans(ctx, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, newest.ID, limited[0].ID)
}

func TestLatestScanPerRoot(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC()
	older := testRecord("/work/shop", base.Add(-time.Hour))
	newer := testRecord("/work/shop", base)
	other := testRecord("/work/admin", base.Add(-30*time.Minute))
	for _, record := range []ScanRecord{older, newer, other} {
		require.NoError(t, store.SaveScan(ctx, record))
	}

	latest, err := store.LatestScan(ctx, "/work/shop")
	require.NoError(t, err)
	assert.Equal(t, newer.ID, latest.ID)

	_, err = store.LatestScan(ctx, "/work/unknown")
	assert.ErrorIs(t, err, ErrScanNotFound)
}

func TestDeleteScan(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	record := testRecord("/work/shop", time.Now().UTC())
	require.NoError(t, store.SaveScan(ctx, record))
	require.NoError(t, store.DeleteScan(ctx, record.ID))

	_, err := store.GetScan(ctx, record.ID)
	assert.ErrorIs(t, err, ErrScanNotFound)

	records, err := store.ListScans(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, records)

	assert.ErrorIs(t, store.DeleteScan(ctx, record.ID), ErrScanNotFound)
}

func TestOpenPersistent(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig(dir)
	cfg.GCInterval = 0 // keep the test fast

	db, err := Open(cfg)
	require.NoError(t, err)

	store := NewStore(db)
	record := testRecord("/work/shop", time.Now().UTC())
	require.NoError(t, store.SaveScan(context.Background(), record))
	require.NoError(t, db.Close())

	// Reopen and read back.
	db, err = Open(cfg)
	require.NoError(t, err)
	defer db.Close()

	got, err := NewStore(db).GetScan(context.Background(), record.ID)
	require.NoError(t, err)
	assert.Equal(t, record.Root, got.Root)
}
