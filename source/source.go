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

// Package source loads the records of an ingestion job from a local JSON file.
//
// The file must hold a single JSON array of objects. Numbers are kept as
// json.Number so integer ids and large values are forwarded unchanged.
package source

import (
	"bufio"
	"fmt"
	"io"
	"os"

	jsoniter "github.com/json-iterator/go"

	"github.com/poiesic/docloader/core"
)

var decoderAPI = jsoniter.Config{
	UseNumber:              true,
	ValidateJsonRawMessage: true,
}.Froze()

// LoadFile reads and decodes the records stored at path.
func LoadFile(path string) ([]core.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrParse, err)
	}
	defer f.Close()

	records, err := Decode(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

// Decode reads a JSON array of objects from r. Anything else, including
// trailing data after the array, is a parse error.
func Decode(r io.Reader) ([]core.Record, error) {
	var raw any
	dec := decoderAPI.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrParse, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: unexpected data after the record array", core.ErrParse)
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected a JSON array of objects", core.ErrParse)
	}

	records := make([]core.Record, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: record %d is not an object", core.ErrParse, i)
		}
		records[i] = core.Record(obj)
	}
	return records, nil
}
