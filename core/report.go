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
	"slices"
	"time"
)

// Report summarizes one run. Failures are ordered by input position.
type Report struct {
	RunID      string    `json:"runId" yaml:"runId"`
	Index      string    `json:"index" yaml:"index"`
	Total      int       `json:"total" yaml:"total"`
	Succeeded  int       `json:"succeeded" yaml:"succeeded"`
	Failed     int       `json:"failed" yaml:"failed"`
	Skipped    int       `json:"skipped" yaml:"skipped"`
	Failures   []Outcome `json:"failures" yaml:"failures"`
	StartedAt  time.Time `json:"startedAt" yaml:"startedAt"`
	FinishedAt time.Time `json:"finishedAt" yaml:"finishedAt"`
	// Interrupted is set when the run was canceled before every record was dispatched.
	Interrupted bool `json:"interrupted,omitempty" yaml:"interrupted,omitempty"`
	// Err is the job-level error, if the run never started.
	Err error `json:"-" yaml:"-"`
	// Error mirrors Err for export.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Elapsed returns the wall time of the run.
func (r *Report) Elapsed() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// ReportBuilder accumulates outcomes into a Report. It is not safe for
// concurrent use; a single aggregator owns it.
type ReportBuilder struct {
	report Report
	seen   map[int]struct{}
	count  int
	sealed bool
}

// NewReportBuilder starts a report expecting total outcomes.
func NewReportBuilder(runID, index string, total int, startedAt time.Time) *ReportBuilder {
	return &ReportBuilder{
		report: Report{
			RunID:     runID,
			Index:     index,
			Total:     total,
			StartedAt: startedAt,
			Failures:  []Outcome{},
		},
		seen: make(map[int]struct{}, total),
	}
}

// Add records one outcome. A second outcome for the same position is an error.
func (b *ReportBuilder) Add(o Outcome) error {
	if b.sealed {
		return fmt.Errorf("%w: report already sealed", ErrReportMismatch)
	}
	if _, dup := b.seen[o.Position]; dup {
		return fmt.Errorf("%w: duplicate outcome for position %d", ErrReportMismatch, o.Position)
	}
	b.seen[o.Position] = struct{}{}
	b.count++
	if o.Succeeded() {
		b.report.Succeeded++
		if o.Skipped {
			b.report.Skipped++
		}
		return nil
	}
	b.report.Failed++
	b.report.Failures = append(b.report.Failures, o)
	return nil
}

// Count returns the number of outcomes added so far.
func (b *ReportBuilder) Count() int {
	return b.count
}

// MarkInterrupted flags the report as canceled mid-run.
func (b *ReportBuilder) MarkInterrupted() {
	b.report.Interrupted = true
}

// Seal finalizes the report. It fails with ErrReportMismatch unless exactly
// one outcome per record was added.
func (b *ReportBuilder) Seal(finishedAt time.Time) (*Report, error) {
	b.sealed = true
	b.report.FinishedAt = finishedAt
	slices.SortFunc(b.report.Failures, func(a, c Outcome) int {
		return a.Position - c.Position
	})
	r := b.report
	if r.Succeeded+r.Failed != r.Total {
		return &r, fmt.Errorf("%w: %d succeeded + %d failed != %d total",
			ErrReportMismatch, r.Succeeded, r.Failed, r.Total)
	}
	return &r, nil
}

// ReportForConnectionFailure returns the completed, empty report of a job
// whose connection could not be established.
func ReportForConnectionFailure(job *Job, runID string, err error, at time.Time) *Report {
	r := &Report{
		RunID:      runID,
		Index:      job.Index(),
		Total:      job.Len(),
		Failures:   []Outcome{},
		StartedAt:  at,
		FinishedAt: at,
		Err:        err,
	}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}
