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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/docloader/core"
)

func TestRunRoundTrip(t *testing.T) {
	started := time.Date(2025, 3, 1, 10, 0, 0, 123000, time.UTC)
	run := &Run{
		ID:          "3f1c2b7e-0000-4000-8000-000000000001",
		Index:       "movies",
		Source:      "data/movies.json",
		Backend:     "meilisearch",
		StartedAt:   started,
		FinishedAt:  started.Add(1500 * time.Millisecond),
		Total:       3,
		Succeeded:   2,
		Failed:      1,
		Skipped:     1,
		Interrupted: true,
	}

	data := MarshalRun(run)
	assert.Len(t, data, RunMUS.Size(*run))

	got, err := UnmarshalRun(data)
	require.NoError(t, err)
	assert.Equal(t, run, got)
}

func TestRunZeroTimes(t *testing.T) {
	got, err := UnmarshalRun(MarshalRun(&Run{ID: "r"}))
	require.NoError(t, err)
	assert.True(t, got.StartedAt.IsZero())
	assert.True(t, got.FinishedAt.IsZero())
}

func TestEntryRoundTrip(t *testing.T) {
	entry := &Entry{
		RunID:        "run-1",
		Position:     41,
		ID:           core.RecordID("tt0111161"),
		Fingerprint:  core.Fingerprint(0xdeadbeefcafef00d),
		Succeeded:    false,
		Confirmed:    true,
		CauseKind:    string(core.CauseRejected),
		CauseCode:    "invalid_document_id",
		CauseMessage: "document identifier is invalid",
		TaskUID:      "",
	}

	got, err := UnmarshalEntry(MarshalEntry(entry))
	require.NoError(t, err)
	assert.Equal(t, entry, got)
}

func TestSkipMatchesSize(t *testing.T) {
	run := Run{ID: "r", Index: "movies", StartedAt: time.Now(), Total: 300}
	data := MarshalRun(&run)
	n, err := RunMUS.Skip(data)
	require.NoError(t, err)
	assert.Equal(t, len(data), n)

	entry := Entry{RunID: "r", Position: 7, ID: "x", Fingerprint: 1 << 40, Confirmed: true, TaskUID: "3"}
	data = MarshalEntry(&entry)
	n, err = EntryMUS.Skip(data)
	require.NoError(t, err)
	assert.Equal(t, len(data), n)
}

func TestUnmarshalTruncated(t *testing.T) {
	data := MarshalEntry(&Entry{RunID: "run-1", ID: "a", CauseMessage: "boom"})

	_, err := UnmarshalEntry(data[:len(data)-2])
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSerializationFailed)

	_, err = UnmarshalRun(nil)
	assert.ErrorIs(t, err, ErrSerializationFailed)
}

func TestEntryFromOutcome(t *testing.T) {
	fail := core.Failure(2, "c", core.Cause{Kind: core.CauseNetwork, Message: "connection refused"})
	e := EntryFromOutcome("run-1", fail, 7)
	assert.Equal(t, 2, e.Position)
	assert.False(t, e.Succeeded)
	assert.Equal(t, "network", e.CauseKind)
	assert.Equal(t, "connection refused", e.CauseMessage)

	ok := core.Success(0, "a", "12")
	e = EntryFromOutcome("run-1", ok, 9)
	assert.True(t, e.Succeeded)
	assert.False(t, e.Confirmed)
	assert.Equal(t, "12", e.TaskUID)
	assert.Empty(t, e.CauseKind)

	applied := core.Success(1, "b", "13")
	applied.Confirmed = true
	assert.True(t, EntryFromOutcome("run-1", applied, 10).Confirmed)
}
