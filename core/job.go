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

import "fmt"

// Target identifies the remote index a job writes to.
type Target struct {
	Address    string
	Credential string
	Index      string
}

// Job is the immutable description of one ingestion run.
type Job struct {
	target      Target
	concurrency int
	shardSize   int
	records     []Record
	ids         []RecordID
}

// NewJob validates its inputs and returns a Job that owns private copies of
// the records. Callers may reuse or mutate records afterwards.
func NewJob(target Target, concurrency, shardSize int, records []Record) (*Job, error) {
	if err := ValidateIndexName(target.Index); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	if concurrency < 1 {
		return nil, fmt.Errorf("%w: concurrency must be at least 1, got %d", ErrConfig, concurrency)
	}
	if shardSize < 1 {
		return nil, fmt.Errorf("%w: batch size must be at least 1, got %d", ErrConfig, shardSize)
	}
	ids, err := ValidateRecords(records)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	owned := make([]Record, len(records))
	for i, r := range records {
		owned[i] = r.Clone()
	}
	return &Job{
		target:      target,
		concurrency: concurrency,
		shardSize:   shardSize,
		records:     owned,
		ids:         ids,
	}, nil
}

func (j *Job) Target() Target   { return j.target }
func (j *Job) Index() string    { return j.target.Index }
func (j *Job) Concurrency() int { return j.concurrency }
func (j *Job) ShardSize() int   { return j.shardSize }
func (j *Job) Len() int         { return len(j.records) }

// Record returns a copy of the record at position i.
func (j *Job) Record(i int) Record {
	return j.records[i].Clone()
}

// ID returns the id of the record at position i.
func (j *Job) ID(i int) RecordID {
	return j.ids[i]
}

// Shards splits the job's positions into consecutive runs of at most
// ShardSize records, in input order.
func (j *Job) Shards() [][]int {
	shards := make([][]int, 0, (len(j.records)+j.shardSize-1)/j.shardSize)
	for start := 0; start < len(j.records); start += j.shardSize {
		end := min(start+j.shardSize, len(j.records))
		shard := make([]int, 0, end-start)
		for i := start; i < end; i++ {
			shard = append(shard, i)
		}
		shards = append(shards, shard)
	}
	return shards
}
