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
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// PrimaryKey is the record field used as the document identifier.
const PrimaryKey = "id"

// RecordID is the string form of a record's id field. Integer ids are kept in
// canonical decimal form so 7 and "7" compare equal, matching how the remote
// index treats them.
type RecordID string

// Record is one JSON object from the input file. Numbers are decoded as
// json.Number so integer ids and large values survive untouched.
type Record map[string]any

// ID extracts the record's identifier.
func (r Record) ID() (RecordID, error) {
	raw, ok := r[PrimaryKey]
	if !ok || raw == nil {
		return "", ErrMissingID
	}
	switch v := raw.(type) {
	case string:
		if v == "" {
			return "", ErrInvalidID
		}
		return RecordID(v), nil
	case json.Number:
		n, err := strconv.ParseInt(string(v), 10, 64)
		if err != nil {
			return "", fmt.Errorf("%w: %s", ErrInvalidID, v)
		}
		return RecordID(strconv.FormatInt(n, 10)), nil
	case int:
		return RecordID(strconv.Itoa(v)), nil
	case int64:
		return RecordID(strconv.FormatInt(v, 10)), nil
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return "", fmt.Errorf("%w: %v", ErrInvalidID, v)
		}
		return RecordID(strconv.FormatInt(int64(v), 10)), nil
	default:
		return "", fmt.Errorf("%w: got %T", ErrInvalidID, raw)
	}
}

// Clone returns a deep copy of the record. Nested objects and arrays are
// copied too so no two holders share mutable state.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, inner := range t {
			m[k] = cloneValue(inner)
		}
		return m
	case Record:
		return t.Clone()
	case []any:
		s := make([]any, len(t))
		for i, inner := range t {
			s[i] = cloneValue(inner)
		}
		return s
	default:
		return v
	}
}
