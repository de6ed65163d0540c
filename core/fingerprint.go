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

package core

import (
	"encoding/binary"
	"fmt"

	"github.com/go-crypt/x/blake2b"
	jsoniter "github.com/json-iterator/go"
)

// canonical sorts map keys so equal records encode identically.
var canonical = jsoniter.ConfigCompatibleWithStandardLibrary

// Fingerprint is a 64-bit content hash of a record within an index.
type Fingerprint uint64

// FingerprintRecord hashes the index name and the canonical JSON encoding of
// the record using BLAKE2b.
func FingerprintRecord(index string, r Record) (Fingerprint, error) {
	data, err := canonical.Marshal(r)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSerialization, err)
	}
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(index))
	h.Write([]byte{0})
	h.Write(data)
	return Fingerprint(binary.LittleEndian.Uint64(h.Sum(nil))), nil
}
