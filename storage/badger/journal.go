// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package badger

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/docloader/core"
	"github.com/poiesic/docloader/storage"
)

// Journal implements storage.Journal for BadgerDB.
type Journal struct {
	backend *Backend
}

var _ storage.Journal = (*Journal)(nil)

// NewJournal opens or creates a journal in the directory at path.
func NewJournal(path string) (storage.Journal, error) {
	backend, err := OpenBackend(path, false)
	if err != nil {
		return nil, fmt.Errorf("opening journal %s: %w", path, err)
	}
	return &Journal{backend: backend}, nil
}

// NewMemoryJournal creates a journal that lives only in memory.
func NewMemoryJournal() (storage.Journal, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, err
	}
	return &Journal{backend: backend}, nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	if j.backend.IsClosed() {
		return nil
	}
	return j.backend.Close()
}

func (j *Journal) check(ctx context.Context) error {
	if j.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return ctx.Err()
}

// SaveRun stores a run, its entries and the fingerprints of the records it
// indexed successfully.
func (j *Journal) SaveRun(ctx context.Context, run *storage.Run, entries []*storage.Entry) error {
	if err := j.check(ctx); err != nil {
		return err
	}
	if run == nil || run.ID == "" {
		return fmt.Errorf("%w: run id is required", storage.ErrInvalidQuery)
	}

	err := j.backend.WithBatch(func(wb *badger.WriteBatch) error {
		if err := wb.Set(makeRunKey(run.ID), storage.MarshalRun(run)); err != nil {
			return err
		}
		if err := wb.Set(makeRunTimeKey(run.StartedAt, run.ID), nil); err != nil {
			return err
		}
		for _, entry := range entries {
			if entry.RunID != run.ID {
				return fmt.Errorf("%w: entry for run %q in run %q", storage.ErrInvalidQuery, entry.RunID, run.ID)
			}
			if err := wb.Set(makeEntryKey(run.ID, entry.Position), storage.MarshalEntry(entry)); err != nil {
				return err
			}
			if entry.Confirmed && !entry.Skipped && entry.Fingerprint != 0 {
				if err := wb.Set(makeFingerprintKey(run.Index, entry.Fingerprint), []byte(run.ID)); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	j.backend.logger.Debug("run journaled", "run", run.ID, "entries", len(entries))
	return nil
}

// GetRun retrieves a run by ID.
func (j *Journal) GetRun(ctx context.Context, id string) (*storage.Run, error) {
	if err := j.check(ctx); err != nil {
		return nil, err
	}

	var run *storage.Run
	err := j.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		run, err = readRun(tx, id)
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns up to limit runs ordered by start time, newest first.
// A limit of zero returns every run.
func (j *Journal) ListRuns(ctx context.Context, limit int) ([]*storage.Run, error) {
	if err := j.check(ctx); err != nil {
		return nil, err
	}
	if limit < 0 {
		return nil, fmt.Errorf("%w: limit must not be negative", storage.ErrInvalidQuery)
	}

	var runs []*storage.Run
	err := j.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.PrefetchValues = false
		opts.Prefix = []byte(runTimePrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		// Reverse iteration starts from the last key sharing the prefix.
		seek := append([]byte(runTimePrefix), 0xFF)
		for iter.Seek(seek); iter.Valid(); iter.Next() {
			run, err := readRun(tx, runIDFromTimeKey(iter.Item().Key()))
			if err != nil {
				return err
			}
			runs = append(runs, run)
			if limit > 0 && len(runs) == limit {
				break
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return runs, nil
}

// GetEntries returns the entries of a run ordered by position.
func (j *Journal) GetEntries(ctx context.Context, runID string) ([]*storage.Entry, error) {
	if err := j.check(ctx); err != nil {
		return nil, err
	}

	var entries []*storage.Entry
	err := j.backend.WithTx(func(tx *badger.Txn) error {
		if _, err := tx.Get(makeRunKey(runID)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}

		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeEntryPrefix(runID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			err := iter.Item().Value(func(val []byte) error {
				entry, err := storage.UnmarshalEntry(val)
				if err != nil {
					return err
				}
				entries = append(entries, entry)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// IndexedFingerprints returns every fingerprint recorded as indexed into index.
func (j *Journal) IndexedFingerprints(ctx context.Context, index string) (map[core.Fingerprint]struct{}, error) {
	if err := j.check(ctx); err != nil {
		return nil, err
	}

	fps := make(map[core.Fingerprint]struct{})
	prefix := makeFingerprintPrefix(index)
	err := j.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			key := iter.Item().Key()
			if len(key) != len(prefix)+8 || !bytes.HasPrefix(key, prefix) {
				continue
			}
			fps[fingerprintFromKey(key)] = struct{}{}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return fps, nil
}

func readRun(tx *badger.Txn, id string) (*storage.Run, error) {
	item, err := tx.Get(makeRunKey(id))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}

	var run *storage.Run
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		run, unmarshalErr = storage.UnmarshalRun(val)
		return unmarshalErr
	})
	return run, err
}
