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
	"fmt"
	"regexp"
)

const maxIndexNameLength = 400

var indexNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidateIndexName checks an index name against the rules shared by the
// supported backends: ASCII letters, digits, hyphens and underscores only.
func ValidateIndexName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name is empty", ErrInvalidIndexName)
	}
	if len(name) > maxIndexNameLength {
		return fmt.Errorf("%w: name longer than %d bytes", ErrInvalidIndexName, maxIndexNameLength)
	}
	if !indexNamePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidIndexName, name)
	}
	return nil
}

// ValidateRecord checks that a record carries a usable id.
func ValidateRecord(r Record) (RecordID, error) {
	if r == nil {
		return "", fmt.Errorf("%w: record is nil", ErrMissingID)
	}
	return r.ID()
}

// ValidateRecords validates every record and returns their ids in input
// order. The first failure names its position.
func ValidateRecords(records []Record) ([]RecordID, error) {
	ids := make([]RecordID, len(records))
	for i, r := range records {
		id, err := ValidateRecord(r)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		ids[i] = id
	}
	return ids, nil
}
