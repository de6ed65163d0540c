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

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/docloader/core"
	"github.com/poiesic/docloader/index"
)

// State is the lifecycle phase of a Scheduler.
type State int32

const (
	StateIdle State = iota
	StateDispatching
	StateDraining
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDispatching:
		return "dispatching"
	case StateDraining:
		return "draining"
	case StateCompleted:
		return "completed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// SkipFunc reports whether the record at position can be recorded as
// already indexed without submitting it.
type SkipFunc func(position int, record core.Record) bool

// Scheduler runs one job against one shared client.
type Scheduler struct {
	client         index.Client
	requestTimeout time.Duration
	wait           bool
	pollInterval   time.Duration
	taskTimeout    time.Duration
	skip           SkipFunc
	monitors       Monitors
	runID          string
	logger         *slog.Logger
	state          atomic.Int32
}

// Option configures a Scheduler.
type Option func(*Scheduler) error

// WithRequestTimeout bounds each submission.
// Default is 30 seconds.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Scheduler) error {
		if d <= 0 {
			return fmt.Errorf("%w: request timeout must be positive", core.ErrConfig)
		}
		s.requestTimeout = d
		return nil
	}
}

// WithTaskWait makes every task poll its remote task until it finishes,
// so a record only succeeds once the index applied it.
func WithTaskWait(pollInterval, timeout time.Duration) Option {
	return func(s *Scheduler) error {
		if pollInterval <= 0 || timeout <= 0 {
			return fmt.Errorf("%w: poll interval and task timeout must be positive", core.ErrConfig)
		}
		s.wait = true
		s.pollInterval = pollInterval
		s.taskTimeout = timeout
		return nil
	}
}

// WithSkip installs a filter for records that need no submission.
func WithSkip(skip SkipFunc) Option {
	return func(s *Scheduler) error {
		s.skip = skip
		return nil
	}
}

// WithMonitor adds monitors. They are notified in the order given.
func WithMonitor(monitors ...Monitor) Option {
	return func(s *Scheduler) error {
		for _, m := range monitors {
			if m != nil {
				s.monitors = append(s.monitors, m)
			}
		}
		return nil
	}
}

// WithRunID sets the run identifier stamped on the report.
// Default is a random UUID.
func WithRunID(id string) Option {
	return func(s *Scheduler) error {
		s.runID = id
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewScheduler creates a scheduler that submits through client.
func NewScheduler(client index.Client, opts ...Option) (*Scheduler, error) {
	if client == nil {
		return nil, core.ErrNilClient
	}
	s := &Scheduler{
		client:         client,
		requestTimeout: 30 * time.Second,
		runID:          uuid.NewString(),
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "scheduler", "run", s.runID)
	return s, nil
}

// RunID returns the identifier of the run.
func (s *Scheduler) RunID() string {
	return s.runID
}

// State returns the current lifecycle phase.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Run dispatches every record of job and returns the sealed report.
//
// At most job.Concurrency() submissions are in flight at any time; the
// dispatcher blocks while all workers are busy. When ctx is canceled the
// dispatcher stops, records not yet dispatched fail with a canceled cause
// and in-flight submissions are abandoned. The returned error is only set
// when the run could not start or the report does not add up.
func (s *Scheduler) Run(ctx context.Context, job *core.Job) (*core.Report, error) {
	if job == nil {
		return nil, ErrNilJob
	}
	if !s.state.CompareAndSwap(int32(StateIdle), int32(StateDispatching)) {
		return nil, ErrAlreadyRun
	}

	pool, err := ants.NewPool(job.Concurrency(), ants.WithPanicHandler(func(p any) {
		s.logger.Error("worker panic", "panic", p)
	}))
	if err != nil {
		s.state.Store(int32(StateCompleted))
		return nil, err
	}
	defer pool.Release()

	builder := core.NewReportBuilder(s.runID, job.Index(), job.Len(), time.Now())
	results := make(chan core.Outcome, job.Concurrency()*job.ShardSize())
	aggregated := make(chan error, 1)
	go func() {
		var addErr error
		for o := range results {
			if err := builder.Add(o); err != nil && addErr == nil {
				addErr = err
			}
			s.monitors.Completed(o)
		}
		aggregated <- addErr
	}()

	s.logger.Info("starting run", "index", job.Index(), "records", job.Len(),
		"concurrency", job.Concurrency(), "batchSize", job.ShardSize())
	s.monitors.Start(job)

	slots := make(chan struct{}, job.Concurrency())
	var wg sync.WaitGroup
	shards := job.Shards()
	interrupted := false

	for i, shard := range shards {
		if ctx.Err() != nil {
			s.abandon(job, shards[i:], results)
			interrupted = true
			break
		}
		pending := s.skipped(job, shard, results)
		if len(pending) == 0 {
			continue
		}

		acquired := false
		select {
		case slots <- struct{}{}:
			acquired = true
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			if acquired {
				<-slots
			}
			s.abandon(job, append([][]int{pending}, shards[i+1:]...), results)
			interrupted = true
			break
		}

		t := s.newTask(job, pending)
		// Monitors see a dispatch before any of its outcomes.
		dispatchedAt := time.Now()
		s.monitors.Dispatched(len(pending))
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			defer func() { <-slots }()
			for _, o := range t.run(ctx) {
				results <- o
			}
		})
		if err != nil {
			wg.Done()
			<-slots
			s.logger.Error("unable to submit shard", "err", err)
			cause := core.Cause{Kind: core.CauseCanceled, Message: err.Error()}
			for _, pos := range pending {
				o := core.Failure(pos, job.ID(pos), cause)
				o.Duration = max(time.Since(dispatchedAt), time.Nanosecond)
				results <- o
			}
		}
	}

	s.state.Store(int32(StateDraining))
	wg.Wait()
	close(results)
	addErr := <-aggregated

	if interrupted || ctx.Err() != nil {
		builder.MarkInterrupted()
	}
	report, err := builder.Seal(time.Now())
	if err == nil {
		err = addErr
	}
	s.state.Store(int32(StateCompleted))
	s.monitors.Finish(report)

	s.logger.Info("run finished", "succeeded", report.Succeeded, "failed", report.Failed,
		"skipped", report.Skipped, "elapsed", report.Elapsed(), "interrupted", report.Interrupted)
	return report, err
}

// skipped emits outcomes for records the skip filter accepts and returns
// the positions that still need submitting.
func (s *Scheduler) skipped(job *core.Job, shard []int, results chan<- core.Outcome) []int {
	if s.skip == nil {
		return shard
	}
	pending := make([]int, 0, len(shard))
	for _, pos := range shard {
		if s.skip(pos, job.Record(pos)) {
			results <- core.Skipped(pos, job.ID(pos))
			continue
		}
		pending = append(pending, pos)
	}
	return pending
}

func (s *Scheduler) abandon(job *core.Job, shards [][]int, results chan<- core.Outcome) {
	cause := core.Cause{Kind: core.CauseCanceled, Message: "run canceled before dispatch"}
	n := 0
	for _, shard := range shards {
		s.fail(job, shard, cause, results)
		n += len(shard)
	}
	s.logger.Warn("run canceled, abandoning undispatched records", "records", n)
}

func (s *Scheduler) fail(job *core.Job, positions []int, cause core.Cause, results chan<- core.Outcome) {
	for _, pos := range positions {
		results <- core.Failure(pos, job.ID(pos), cause)
	}
}

func (s *Scheduler) newTask(job *core.Job, positions []int) *task {
	ids := make([]core.RecordID, len(positions))
	docs := make([]core.Record, len(positions))
	for i, pos := range positions {
		ids[i] = job.ID(pos)
		docs[i] = job.Record(pos)
	}
	return &task{
		client:         s.client,
		indexName:      job.Index(),
		positions:      positions,
		ids:            ids,
		docs:           docs,
		requestTimeout: s.requestTimeout,
		wait:           s.wait,
		pollInterval:   s.pollInterval,
		taskTimeout:    s.taskTimeout,
		logger:         s.logger,
	}
}
