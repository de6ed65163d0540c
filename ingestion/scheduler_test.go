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
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/docloader/core"
	"github.com/poiesic/docloader/index"
	"github.com/poiesic/docloader/index/mock"
)

func makeJob(t *testing.T, n, concurrency, shardSize int) *core.Job {
	t.Helper()
	records := make([]core.Record, n)
	for i := range records {
		records[i] = core.Record{"id": i + 1, "title": fmt.Sprintf("doc %d", i+1)}
	}
	job, err := core.NewJob(core.Target{Address: "http://localhost:7700", Index: "docs"}, concurrency, shardSize, records)
	require.NoError(t, err)
	return job
}

func newScheduler(t *testing.T, client index.Client, opts ...Option) *Scheduler {
	t.Helper()
	s, err := NewScheduler(client, opts...)
	require.NoError(t, err)
	return s
}

func positions(outcomes []core.Outcome) []int {
	out := make([]int, len(outcomes))
	for i, o := range outcomes {
		out[i] = o.Position
	}
	sort.Ints(out)
	return out
}

func TestNewScheduler(t *testing.T) {
	t.Run("nil client", func(t *testing.T) {
		_, err := NewScheduler(nil)
		assert.ErrorIs(t, err, core.ErrNilClient)
	})

	t.Run("invalid options", func(t *testing.T) {
		_, err := NewScheduler(mock.NewClient(), WithRequestTimeout(0))
		assert.ErrorIs(t, err, core.ErrConfig)
		_, err = NewScheduler(mock.NewClient(), WithTaskWait(0, time.Second))
		assert.ErrorIs(t, err, core.ErrConfig)
	})

	t.Run("defaults", func(t *testing.T) {
		s := newScheduler(t, mock.NewClient())
		assert.Equal(t, StateIdle, s.State())
		assert.NotEmpty(t, s.RunID())
		assert.Equal(t, 30*time.Second, s.requestTimeout)
	})
}

func TestScheduler_OneOutcomePerRecord(t *testing.T) {
	for _, tc := range []struct{ n, c, shard int }{
		{1, 1, 1}, {3, 2, 1}, {10, 1, 1}, {25, 8, 1}, {25, 4, 3}, {7, 16, 2},
	} {
		t.Run(fmt.Sprintf("n=%d c=%d shard=%d", tc.n, tc.c, tc.shard), func(t *testing.T) {
			client := mock.NewClient()
			client.Latency = time.Millisecond
			collector := &Collector{}
			s := newScheduler(t, client, WithMonitor(collector))

			report, err := s.Run(context.Background(), makeJob(t, tc.n, tc.c, tc.shard))
			require.NoError(t, err)
			assert.Equal(t, tc.n, report.Total)
			assert.Equal(t, tc.n, report.Succeeded+report.Failed)
			require.Len(t, collector.Outcomes(), tc.n)

			want := make([]int, tc.n)
			for i := range want {
				want[i] = i
			}
			assert.Equal(t, want, positions(collector.Outcomes()), "each position exactly once")
			assert.Len(t, client.Submitted(), tc.n)
			assert.Equal(t, StateCompleted, s.State())
		})
	}
}

func TestScheduler_PeakConcurrencyBounded(t *testing.T) {
	for _, c := range []int{1, 2, 8} {
		t.Run(fmt.Sprintf("c=%d", c), func(t *testing.T) {
			client := mock.NewClient()
			client.Latency = 15 * time.Millisecond
			s := newScheduler(t, client)

			report, err := s.Run(context.Background(), makeJob(t, 40, c, 1))
			require.NoError(t, err)
			assert.Equal(t, 40, report.Succeeded)
			assert.LessOrEqual(t, client.PeakInFlight(), c)
			assert.GreaterOrEqual(t, client.PeakInFlight(), 1)
		})
	}
}

func TestScheduler_DuplicateIDs(t *testing.T) {
	records := []core.Record{{"id": 5}, {"id": 5}, {"id": "5"}}
	job, err := core.NewJob(core.Target{Index: "docs"}, 2, 1, records)
	require.NoError(t, err)

	client := mock.NewClient()
	collector := &Collector{}
	report, err := newScheduler(t, client, WithMonitor(collector)).Run(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Succeeded)
	require.Len(t, collector.Outcomes(), 3)
	for _, o := range collector.Outcomes() {
		assert.Equal(t, core.RecordID("5"), o.ID)
	}
	assert.Equal(t, []int{0, 1, 2}, positions(collector.Outcomes()))
	assert.Equal(t, 3, client.Calls())
}

func TestScheduler_FailureIsIsolated(t *testing.T) {
	// Records [1,2,3] with concurrency 2 where record 2 is rejected.
	client := mock.NewClient()
	client.FailIDs(map[core.RecordID]error{
		"2": &index.RemoteError{StatusCode: 400, Code: "invalid_document_id", Message: "bad id"},
	})
	report, err := newScheduler(t, client).Run(context.Background(), makeJob(t, 3, 2, 1))
	require.NoError(t, err)

	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Failures, 1)
	failure := report.Failures[0]
	assert.Equal(t, core.RecordID("2"), failure.ID)
	assert.Equal(t, 1, failure.Position)
	require.NotNil(t, failure.Cause)
	assert.Equal(t, core.CauseRejected, failure.Cause.Kind)
	assert.Equal(t, "invalid_document_id", failure.Cause.Code)
}

func TestScheduler_HundredRecords(t *testing.T) {
	client := mock.NewClient()
	client.Latency = 2 * time.Millisecond
	report, err := newScheduler(t, client).Run(context.Background(), makeJob(t, 100, 8, 1))
	require.NoError(t, err)
	assert.Equal(t, 100, report.Succeeded)
	assert.Zero(t, report.Failed)
	assert.Empty(t, report.Failures)
	assert.Equal(t, 100, client.Calls())
	assert.LessOrEqual(t, client.PeakInFlight(), 8)
}

func TestScheduler_Timeout(t *testing.T) {
	client := mock.NewClient()
	client.AddDocumentsFunc = func(ctx context.Context, _ string, docs []core.Record, _ string) (*index.TaskInfo, error) {
		id, _ := docs[0].ID()
		if id == "2" {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return &index.TaskInfo{UID: 1, Status: index.TaskEnqueued}, nil
	}
	report, err := newScheduler(t, client, WithRequestTimeout(30*time.Millisecond)).
		Run(context.Background(), makeJob(t, 3, 3, 1))
	require.NoError(t, err)
	assert.Equal(t, 2, report.Succeeded)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, core.CauseTimeout, report.Failures[0].Cause.Kind)
	assert.Equal(t, core.RecordID("2"), report.Failures[0].ID)
}

func TestScheduler_NetworkAndSerializationFailures(t *testing.T) {
	client := mock.NewClient()
	client.FailIDs(map[core.RecordID]error{
		"1": errors.New("dial tcp: connection refused"),
		"3": fmt.Errorf("%w: unsupported type chan int", core.ErrSerialization),
	})
	report, err := newScheduler(t, client).Run(context.Background(), makeJob(t, 4, 2, 1))
	require.NoError(t, err)
	require.Len(t, report.Failures, 2)
	assert.Equal(t, core.CauseNetwork, report.Failures[0].Cause.Kind)
	assert.Equal(t, core.CauseSerialization, report.Failures[1].Cause.Kind)
}

func TestScheduler_PanicBecomesFailure(t *testing.T) {
	client := mock.NewClient()
	client.AddDocumentsFunc = func(ctx context.Context, _ string, docs []core.Record, _ string) (*index.TaskInfo, error) {
		id, _ := docs[0].ID()
		if id == "1" {
			panic("boom")
		}
		return &index.TaskInfo{UID: 1}, nil
	}
	report, err := newScheduler(t, client).Run(context.Background(), makeJob(t, 2, 2, 1))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded)
	require.Len(t, report.Failures, 1)
	assert.Contains(t, report.Failures[0].Cause.Message, "boom")
}

func TestScheduler_Shards(t *testing.T) {
	client := mock.NewClient()
	var batches atomic.Int32
	client.AddDocumentsFunc = func(ctx context.Context, _ string, docs []core.Record, _ string) (*index.TaskInfo, error) {
		batches.Add(1)
		assert.LessOrEqual(t, len(docs), 4)
		return &index.TaskInfo{UID: 9, Status: index.TaskEnqueued}, nil
	}
	collector := &Collector{}
	report, err := newScheduler(t, client, WithMonitor(collector)).Run(context.Background(), makeJob(t, 10, 2, 4))
	require.NoError(t, err)
	assert.Equal(t, 10, report.Succeeded)
	assert.Equal(t, int32(3), batches.Load())
	for _, o := range collector.Outcomes() {
		assert.Equal(t, "9", o.TaskUID)
	}
}

func TestScheduler_PartialBatchFailure(t *testing.T) {
	client := mock.NewClient()
	client.AddDocumentsFunc = func(ctx context.Context, _ string, docs []core.Record, _ string) (*index.TaskInfo, error) {
		return &index.TaskInfo{UID: -1, Status: index.TaskSucceeded}, &index.PartialError{
			Failed: map[int]*index.RemoteError{1: {StatusCode: 400, Code: "mapper_parsing_exception", Message: "bad field"}},
		}
	}
	report, err := newScheduler(t, client).Run(context.Background(), makeJob(t, 3, 1, 3))
	require.NoError(t, err)
	assert.Equal(t, 2, report.Succeeded)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, 1, report.Failures[0].Position)
	assert.Equal(t, "mapper_parsing_exception", report.Failures[0].Cause.Code)
}

func TestScheduler_WaitForTasks(t *testing.T) {
	t.Run("succeeded task", func(t *testing.T) {
		client := mock.NewClient()
		var polls atomic.Int32
		client.TaskFunc = func(ctx context.Context, uid int64) (*index.TaskInfo, error) {
			if polls.Add(1) < 3 {
				return &index.TaskInfo{UID: uid, Status: index.TaskProcessing}, nil
			}
			return &index.TaskInfo{UID: uid, Status: index.TaskSucceeded}, nil
		}
		report, err := newScheduler(t, client, WithTaskWait(time.Millisecond, time.Second)).
			Run(context.Background(), makeJob(t, 1, 1, 1))
		require.NoError(t, err)
		assert.Equal(t, 1, report.Succeeded)
		assert.GreaterOrEqual(t, client.TaskCalls(), 3)
	})

	t.Run("failed task", func(t *testing.T) {
		client := mock.NewClient()
		client.TaskFunc = func(ctx context.Context, uid int64) (*index.TaskInfo, error) {
			return &index.TaskInfo{UID: uid, Status: index.TaskFailed, Error: &index.RemoteError{Code: "invalid_document_fields", Message: "bad"}}, nil
		}
		report, err := newScheduler(t, client, WithTaskWait(time.Millisecond, time.Second)).
			Run(context.Background(), makeJob(t, 2, 2, 1))
		require.NoError(t, err)
		assert.Equal(t, 2, report.Failed)
		for _, f := range report.Failures {
			assert.Equal(t, core.CauseTaskFailed, f.Cause.Kind)
			assert.Equal(t, "invalid_document_fields", f.Cause.Code)
		}
	})

	t.Run("task never finishes", func(t *testing.T) {
		client := mock.NewClient()
		client.TaskFunc = func(ctx context.Context, uid int64) (*index.TaskInfo, error) {
			return &index.TaskInfo{UID: uid, Status: index.TaskEnqueued}, nil
		}
		report, err := newScheduler(t, client, WithTaskWait(time.Millisecond, 20*time.Millisecond)).
			Run(context.Background(), makeJob(t, 1, 1, 1))
		require.NoError(t, err)
		require.Len(t, report.Failures, 1)
		assert.Equal(t, core.CauseTimeout, report.Failures[0].Cause.Kind)
	})

	t.Run("synchronous backend", func(t *testing.T) {
		client := mock.NewClient()
		client.AddDocumentsFunc = func(ctx context.Context, _ string, _ []core.Record, _ string) (*index.TaskInfo, error) {
			return &index.TaskInfo{UID: -1, Status: index.TaskSucceeded}, nil
		}
		report, err := newScheduler(t, client, WithTaskWait(time.Millisecond, time.Second)).
			Run(context.Background(), makeJob(t, 2, 1, 1))
		require.NoError(t, err)
		assert.Equal(t, 2, report.Succeeded)
		assert.Zero(t, client.TaskCalls())
	})
}

func TestScheduler_ConfirmedOutcomes(t *testing.T) {
	t.Run("accepted only", func(t *testing.T) {
		collector := &Collector{}
		_, err := newScheduler(t, mock.NewClient(), WithMonitor(collector)).
			Run(context.Background(), makeJob(t, 3, 2, 1))
		require.NoError(t, err)
		for _, o := range collector.Outcomes() {
			assert.True(t, o.Succeeded())
			assert.False(t, o.Confirmed)
		}
	})

	t.Run("polled to success", func(t *testing.T) {
		collector := &Collector{}
		_, err := newScheduler(t, mock.NewClient(), WithMonitor(collector), WithTaskWait(time.Millisecond, time.Second)).
			Run(context.Background(), makeJob(t, 3, 2, 1))
		require.NoError(t, err)
		for _, o := range collector.Outcomes() {
			assert.True(t, o.Confirmed)
		}
	})

	t.Run("partial bulk answer", func(t *testing.T) {
		client := mock.NewClient()
		client.AddDocumentsFunc = func(ctx context.Context, _ string, _ []core.Record, _ string) (*index.TaskInfo, error) {
			return &index.TaskInfo{UID: -1, Status: index.TaskSucceeded}, &index.PartialError{
				Failed: map[int]*index.RemoteError{0: {StatusCode: 400, Message: "bad"}},
			}
		}
		collector := &Collector{}
		_, err := newScheduler(t, client, WithMonitor(collector)).Run(context.Background(), makeJob(t, 2, 1, 2))
		require.NoError(t, err)
		for _, o := range collector.Outcomes() {
			assert.Equal(t, o.Succeeded(), o.Confirmed)
		}
	})
}

func TestTask_SubmitWrapsFailures(t *testing.T) {
	client := mock.NewClient()
	client.FailIDs(map[core.RecordID]error{
		"1": &index.RemoteError{StatusCode: 400, Code: "invalid_document_id", Message: "bad id"},
	})
	tk := &task{
		client:         client,
		indexName:      "docs",
		positions:      []int{0},
		ids:            []core.RecordID{"1"},
		docs:           []core.Record{{"id": "1"}},
		requestTimeout: time.Second,
		logger:         slog.Default(),
	}
	_, err := tk.submit(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrSubmission)
	var remote *index.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, "invalid_document_id", remote.Code)
}

// inFlightMonitor tracks dispatched but unfinished records.
type inFlightMonitor struct {
	NoopMonitor
	current  atomic.Int64
	negative atomic.Bool
}

func (m *inFlightMonitor) Dispatched(n int) { m.current.Add(int64(n)) }

func (m *inFlightMonitor) Completed(o core.Outcome) {
	if o.Skipped {
		return
	}
	if m.current.Add(-1) < 0 {
		m.negative.Store(true)
	}
}

func TestScheduler_DispatchPrecedesCompletion(t *testing.T) {
	monitor := &inFlightMonitor{}
	_, err := newScheduler(t, mock.NewClient(), WithMonitor(monitor)).
		Run(context.Background(), makeJob(t, 500, 16, 1))
	require.NoError(t, err)
	assert.False(t, monitor.negative.Load())
	assert.Zero(t, monitor.current.Load())
}

func TestScheduler_EmptyJob(t *testing.T) {
	client := mock.NewClient()
	s := newScheduler(t, client)
	report, err := s.Run(context.Background(), makeJob(t, 0, 4, 1))
	require.NoError(t, err)
	assert.Zero(t, report.Total)
	assert.Empty(t, report.Failures)
	assert.Equal(t, StateCompleted, s.State())
	assert.Zero(t, client.Calls())
}

func TestScheduler_Skip(t *testing.T) {
	client := mock.NewClient()
	collector := &Collector{}
	skipEven := func(pos int, _ core.Record) bool { return pos%2 == 0 }
	report, err := newScheduler(t, client, WithSkip(skipEven), WithMonitor(collector)).
		Run(context.Background(), makeJob(t, 5, 2, 1))
	require.NoError(t, err)
	assert.Equal(t, 5, report.Succeeded)
	assert.Equal(t, 3, report.Skipped)
	assert.Equal(t, 2, client.Calls())
	assert.ElementsMatch(t, []core.RecordID{"2", "4"}, client.Submitted())
}

func TestScheduler_Cancellation(t *testing.T) {
	client := mock.NewClient()
	client.Latency = 50 * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	var completed atomic.Int32
	client.AddDocumentsFunc = func(ctx context.Context, _ string, _ []core.Record, _ string) (*index.TaskInfo, error) {
		if completed.Add(1) == 2 {
			cancel()
		}
		return &index.TaskInfo{UID: 1}, nil
	}
	collector := &Collector{}
	report, err := newScheduler(t, client, WithMonitor(collector)).Run(ctx, makeJob(t, 50, 2, 1))
	require.NoError(t, err)
	assert.True(t, report.Interrupted)
	assert.Equal(t, 50, report.Succeeded+report.Failed, "every record still gets an outcome")
	assert.Len(t, collector.Outcomes(), 50)
	assert.Less(t, client.Calls(), 50)
	canceled := 0
	for _, f := range report.Failures {
		if f.Cause.Kind == core.CauseCanceled {
			canceled++
		}
	}
	assert.Greater(t, canceled, 0)
}

func TestScheduler_AlreadyCanceled(t *testing.T) {
	client := mock.NewClient()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := newScheduler(t, client).Run(ctx, makeJob(t, 5, 2, 1))
	require.NoError(t, err)
	assert.Zero(t, client.Calls())
	assert.Equal(t, 5, report.Failed)
	assert.True(t, report.Interrupted)
}

func TestScheduler_RunOnce(t *testing.T) {
	s := newScheduler(t, mock.NewClient())
	_, err := s.Run(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNilJob)

	_, err = s.Run(context.Background(), makeJob(t, 1, 1, 1))
	require.NoError(t, err)
	_, err = s.Run(context.Background(), makeJob(t, 1, 1, 1))
	assert.ErrorIs(t, err, ErrAlreadyRun)
}

type recordingMonitor struct {
	starts, finishes int
	dispatched       atomic.Int32
	completed        int
	finalState       State
	sched            *Scheduler
}

func (m *recordingMonitor) Start(*core.Job)        { m.starts++ }
func (m *recordingMonitor) Dispatched(n int)       { m.dispatched.Add(int32(n)) }
func (m *recordingMonitor) Completed(core.Outcome) { m.completed++ }
func (m *recordingMonitor) Finish(*core.Report)    { m.finishes++; m.finalState = m.sched.State() }

func TestScheduler_MonitorLifecycle(t *testing.T) {
	m := &recordingMonitor{}
	s := newScheduler(t, mock.NewClient(), WithMonitor(m, nil))
	m.sched = s
	_, err := s.Run(context.Background(), makeJob(t, 6, 3, 2))
	require.NoError(t, err)
	assert.Equal(t, 1, m.starts)
	assert.Equal(t, 1, m.finishes)
	assert.Equal(t, int32(6), m.dispatched.Load())
	assert.Equal(t, 6, m.completed)
	assert.Equal(t, StateCompleted, m.finalState)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "dispatching", StateDispatching.String())
	assert.Equal(t, "draining", StateDraining.String())
	assert.Equal(t, "completed", StateCompleted.String())
}
