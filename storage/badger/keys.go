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
	"encoding/binary"
	"time"

	"github.com/poiesic/docloader/core"
)

// Key prefixes for different data types
const (
	runPrefix         = "run:"
	runTimePrefix     = "runts:"
	entryPrefix       = "out:"
	fingerprintPrefix = "ok:"
)

// makeRunKey generates a key for a run by ID.
func makeRunKey(id string) []byte {
	return []byte(runPrefix + id)
}

// makeRunTimeKey generates a key for the start-time index.
// Format: prefix:timestamp:id
func makeRunTimeKey(startedAt time.Time, id string) []byte {
	buf := make([]byte, len(runTimePrefix)+8+len(id))
	offset := copy(buf, runTimePrefix)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(startedAt.UnixMicro()))
	offset += 8
	copy(buf[offset:], id)
	return buf
}

// runIDFromTimeKey extracts the run ID from a start-time index key.
func runIDFromTimeKey(key []byte) string {
	return string(key[len(runTimePrefix)+8:])
}

// makeEntryPrefix generates the common prefix of all entries of a run.
// Format: prefix:runID:
func makeEntryPrefix(runID string) []byte {
	return []byte(entryPrefix + runID + ":")
}

// makeEntryKey generates a key for one entry of a run.
// Format: prefix:runID:position
func makeEntryKey(runID string, position int) []byte {
	prefix := makeEntryPrefix(runID)
	buf := make([]byte, len(prefix)+4)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint32(buf[offset:], uint32(position))
	return buf
}

// makeFingerprintPrefix generates the common prefix of an index's fingerprints.
// Format: prefix:index:
func makeFingerprintPrefix(index string) []byte {
	return []byte(fingerprintPrefix + index + ":")
}

// makeFingerprintKey generates a key marking a record fingerprint as indexed.
// Format: prefix:index:fingerprint
func makeFingerprintKey(index string, fp core.Fingerprint) []byte {
	prefix := makeFingerprintPrefix(index)
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(fp))
	return buf
}

// fingerprintFromKey extracts the fingerprint from a fingerprint key.
func fingerprintFromKey(key []byte) core.Fingerprint {
	return core.Fingerprint(binary.BigEndian.Uint64(key[len(key)-8:]))
}
