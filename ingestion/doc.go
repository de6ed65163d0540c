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

// Package ingestion fans the records of a job out to a remote index.
//
// A Scheduler owns one run. It splits the job into shards, hands each shard
// to a task on a bounded ants pool and funnels every task's outcomes through
// one channel to a single aggregator that builds the report. Whatever
// happens to a record, whether it is accepted, rejected, timed out, skipped
// or abandoned on cancellation, it produces exactly one core.Outcome, and
// the sealed report checks that the counts add up.
//
// Basic usage:
//
//	sched, err := ingestion.NewScheduler(client,
//	    ingestion.WithRequestTimeout(10*time.Second),
//	    ingestion.WithMonitor(ingestion.NewProgressTracker(os.Stderr, 100)),
//	)
//	if err != nil {
//	    return err
//	}
//	report, err := sched.Run(ctx, job)
//
// Monitors observe a run without affecting it. Completed is always called
// from the aggregator goroutine, one outcome at a time.
package ingestion
