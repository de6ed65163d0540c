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

package ingestion

import "github.com/poiesic/docloader/core"

// Monitor observes the progress of a run.
type Monitor interface {
	// Start is called once before the first shard is dispatched.
	Start(job *core.Job)
	// Dispatched is called when count records are handed to a worker, before
	// any of their outcomes reach Completed.
	Dispatched(count int)
	// Completed is called once per record, from the aggregator goroutine.
	Completed(outcome core.Outcome)
	// Finish is called once with the sealed report.
	Finish(report *core.Report)
}

// NoopMonitor ignores every event.
type NoopMonitor struct{}

var _ Monitor = NoopMonitor{}

func (NoopMonitor) Start(_ *core.Job)        {}
func (NoopMonitor) Dispatched(_ int)         {}
func (NoopMonitor) Completed(_ core.Outcome) {}
func (NoopMonitor) Finish(_ *core.Report)    {}

// Monitors fans events out to several monitors in order.
type Monitors []Monitor

var _ Monitor = Monitors(nil)

func (ms Monitors) Start(job *core.Job) {
	for _, m := range ms {
		m.Start(job)
	}
}

func (ms Monitors) Dispatched(count int) {
	for _, m := range ms {
		m.Dispatched(count)
	}
}

func (ms Monitors) Completed(outcome core.Outcome) {
	for _, m := range ms {
		m.Completed(outcome)
	}
}

func (ms Monitors) Finish(report *core.Report) {
	for _, m := range ms {
		m.Finish(report)
	}
}

// Collector keeps every outcome of a run in arrival order.
type Collector struct {
	NoopMonitor
	outcomes []core.Outcome
}

// Completed appends the outcome.
func (c *Collector) Completed(outcome core.Outcome) {
	c.outcomes = append(c.outcomes, outcome)
}

// Outcomes returns the collected outcomes. Call it after Run returned.
func (c *Collector) Outcomes() []core.Outcome {
	return c.outcomes
}
