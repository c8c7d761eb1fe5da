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
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/AleutianFederate/services/federate/federation"
)

// Key layout:
//
//	scan:<uuid>                      → ScanRecord JSON
//	scanmeta:<unixnano-20d>:<uuid>   → uuid
//
// The meta key's zero-padded timestamp makes lexicographic order equal
// chronological order, so listing iterates the prefix in reverse.
const (
	scanKeyPrefix = "scan:"
	metaKeyPrefix = "scanmeta:"
)

// ErrScanNotFound indicates no record exists for the requested ID.
var ErrScanNotFound = errors.New("scan not found")

// ScanStats aggregates counts for one scan.
type ScanStats struct {
	FilesDiscovered int `json:"filesDiscovered"`
	FilesParsed     int `json:"filesParsed"`
	FilesFailed     int `json:"filesFailed"`
	Remotes         int `json:"remotes"`
	Exposes         int `json:"exposes"`
	Shared          int `json:"shared"`
	Conflicts       int `json:"conflicts"`
}

// ScanRecord is one persisted scan result.
type ScanRecord struct {
	// ID is the scan's UUID.
	ID string `json:"id"`

	// Root is the workspace root that was scanned.
	Root string `json:"root"`

	// StartedAt is when the scan began (UTC).
	StartedAt time.Time `json:"startedAt"`

	// Duration is how long the scan took.
	Duration time.Duration `json:"duration"`

	// Configs are the extracted federation configs.
	Configs []federation.Config `json:"configs"`

	// Stats aggregates scan counts.
	Stats ScanStats `json:"stats"`
}

// Store persists scan records.
type Store struct {
	db *DB
}

// NewStore creates a Store over an open snapshot database.
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

// SaveScan writes a record and its index entry in one transaction.
func (s *Store) SaveScan(ctx context.Context, record ScanRecord) error {
	if record.ID == "" {
		return errors.New("scan record requires an ID")
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode scan record: %w", err)
	}

	return s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		if err := txn.Set([]byte(scanKey(record.ID)), data); err != nil {
			return err
		}
		return txn.Set([]byte(metaKey(record.StartedAt, record.ID)), []byte(record.ID))
	})
}

// GetScan reads one record by ID.
func (s *Store) GetScan(ctx context.Context, id string) (*ScanRecord, error) {
	var record ScanRecord

	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(scanKey(id)))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", ErrScanNotFound, id)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &record)
		})
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// ListScans returns up to limit records, most recent first. A limit below 1
// returns everything.
func (s *Store) ListScans(ctx context.Context, limit int) ([]ScanRecord, error) {
	ids, err := s.listIDs(ctx, limit)
	if err != nil {
		return nil, err
	}

	records := make([]ScanRecord, 0, len(ids))
	for _, id := range ids {
		record, err := s.GetScan(ctx, id)
		if errors.Is(err, ErrScanNotFound) {
			// Record deleted between index read and fetch; skip.
			continue
		}
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, nil
}

// LatestScan returns the most recent record for a workspace root, or
// ErrScanNotFound when the root has never been scanned.
func (s *Store) LatestScan(ctx context.Context, root string) (*ScanRecord, error) {
	ids, err := s.listIDs(ctx, 0)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		record, err := s.GetScan(ctx, id)
		if errors.Is(err, ErrScanNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if record.Root == root {
			return record, nil
		}
	}
	return nil, fmt.Errorf("%w: no scans for root %s", ErrScanNotFound, root)
}

// DeleteScan removes a record and its index entries.
func (s *Store) DeleteScan(ctx context.Context, id string) error {
	record, err := s.GetScan(ctx, id)
	if err != nil {
		return err
	}

	return s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(scanKey(id))); err != nil {
			return err
		}
		return txn.Delete([]byte(metaKey(record.StartedAt, id)))
	})
}

// listIDs iterates the meta index in reverse chronological order.
func (s *Store) listIDs(ctx context.Context, limit int) ([]string, error) {
	ids := make([]string, 0)

	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(metaKeyPrefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration needs a seek key past every meta key.
		seek := append([]byte(metaKeyPrefix), 0xFF)
		for it.Seek(seek); it.ValidForPrefix([]byte(metaKeyPrefix)); it.Next() {
			if limit > 0 && len(ids) >= limit {
				break
			}
			err := it.Item().Value(func(val []byte) error {
				ids = append(ids, string(val))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func scanKey(id string) string {
	return scanKeyPrefix + id
}

func metaKey(startedAt time.Time, id string) string {
	return fmt.Sprintf("%s%020d:%s", metaKeyPrefix, startedAt.UnixNano(), id)
}
