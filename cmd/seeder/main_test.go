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

package main

import (
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/docloader/source"
)

func TestGenerator_Records(t *testing.T) {
	g := &generator{count: 5, rng: rand.New(rand.NewPCG(1, 1))}
	records := g.records(linesFromSlice([]string{"A", "B"}))

	require.Len(t, records, 5)
	assert.Equal(t, 1, records[0]["id"])
	assert.Equal(t, "A", records[0]["title"])
	assert.Equal(t, "A (2)", records[2]["title"])
	assert.Equal(t, "B (2)", records[3]["title"])
	assert.Equal(t, "A (3)", records[4]["title"])
}

func TestGenerator_Duplicates(t *testing.T) {
	g := &generator{count: 6, duplicates: 2, stringIDs: true, rng: rand.New(rand.NewPCG(1, 1))}
	records := g.records(linesFromSlice(titles))

	assert.Equal(t, records[0]["id"], records[5]["id"])
	assert.Equal(t, records[1]["id"], records[4]["id"])
	assert.NotEqual(t, records[2]["id"], records[3]["id"])
}

func TestSeedCommand_WritesLoadableFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "titles.txt")
	require.NoError(t, os.WriteFile(src, []byte("Heat\n\nRan\n"), 0644))
	out := filepath.Join(dir, "records.json")

	require.NoError(t, newApp().Run([]string{"seeder", "--out", out, "--count", "4", "--src", src}))

	records, err := source.LoadFile(out)
	require.NoError(t, err)
	require.Len(t, records, 4)

	var ids []string
	for _, r := range records {
		id, err := r.ID()
		require.NoError(t, err)
		ids = append(ids, string(id))
	}
	assert.Equal(t, []string{"1", "2", "3", "4"}, ids)
	assert.Equal(t, "Ran", records[1]["title"])
}

func TestSeedCommand_InvalidCount(t *testing.T) {
	err := newApp().Run([]string{"seeder", "--out", filepath.Join(t.TempDir(), "x.json"), "--count", "0"})
	assert.Error(t, err)
}
