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

package storage

import (
	"context"

	"github.com/poiesic/docloader/core"
)

// Journal persists runs and their per-record outcomes.
type Journal interface {
	// SaveRun stores a run together with the outcomes of its records.
	// Successful, non-skipped entries also mark their fingerprint as indexed
	// for the run's index.
	SaveRun(ctx context.Context, run *Run, entries []*Entry) error

	// GetRun retrieves a run by ID.
	// Returns ErrNotFound if the run doesn't exist.
	GetRun(ctx context.Context, id string) (*Run, error)

	// ListRuns returns up to limit runs, most recent first.
	ListRuns(ctx context.Context, limit int) ([]*Run, error)

	// GetEntries returns the entries of a run ordered by position.
	GetEntries(ctx context.Context, runID string) ([]*Entry, error)

	// IndexedFingerprints returns the fingerprints of every record the remote
	// index confirmed as applied to index in any journaled run.
	IndexedFingerprints(ctx context.Context, index string) (map[core.Fingerprint]struct{}, error)

	// Close closes the journal and releases resources.
	Close() error
}
