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

//go:generate go run ../cmd/musgen

import (
	"time"

	"github.com/poiesic/docloader/core"
)

// Run is the journaled summary of one ingestion run.
type Run struct {
	ID          string
	Index       string
	Source      string // input file path
	Backend     string
	StartedAt   time.Time
	FinishedAt  time.Time
	Total       int
	Succeeded   int
	Failed      int
	Skipped     int
	Interrupted bool
}

// RunFromReport builds a Run from a sealed report.
func RunFromReport(r *core.Report, source, backend string) *Run {
	return &Run{
		ID:          r.RunID,
		Index:       r.Index,
		Source:      source,
		Backend:     backend,
		StartedAt:   r.StartedAt,
		FinishedAt:  r.FinishedAt,
		Total:       r.Total,
		Succeeded:   r.Succeeded,
		Failed:      r.Failed,
		Skipped:     r.Skipped,
		Interrupted: r.Interrupted,
	}
}

// Entry is the journaled outcome of one record.
type Entry struct {
	RunID       string
	Position    int
	ID          core.RecordID
	Fingerprint core.Fingerprint
	Succeeded   bool
	// Confirmed is set when the remote index reported the write as applied,
	// not just accepted.
	Confirmed    bool
	Skipped      bool
	CauseKind    string
	CauseCode    string
	CauseMessage string
	TaskUID      string
}

// EntryFromOutcome builds an Entry for an outcome and the fingerprint of its record.
func EntryFromOutcome(runID string, o core.Outcome, fp core.Fingerprint) *Entry {
	e := &Entry{
		RunID:       runID,
		Position:    o.Position,
		ID:          o.ID,
		Fingerprint: fp,
		Succeeded:   o.Succeeded(),
		Confirmed:   o.Confirmed,
		Skipped:     o.Skipped,
		TaskUID:     o.TaskUID,
	}
	if o.Cause != nil {
		e.CauseKind = string(o.Cause.Kind)
		e.CauseCode = o.Cause.Code
		e.CauseMessage = o.Cause.Message
	}
	return e
}
