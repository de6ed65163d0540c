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
	"time"

	"github.com/poiesic/docloader/core"
	"github.com/poiesic/docloader/index"
)

// task submits one shard and turns the answer into one outcome per record.
type task struct {
	client         index.Client
	indexName      string
	positions      []int
	ids            []core.RecordID
	docs           []core.Record
	requestTimeout time.Duration
	wait           bool
	pollInterval   time.Duration
	taskTimeout    time.Duration
	logger         *slog.Logger
}

func (t *task) run(ctx context.Context) (outcomes []core.Outcome) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("task panicked", "panic", r, "records", len(t.positions))
			outcomes = t.failAll(core.Cause{Kind: core.CauseNetwork, Message: fmt.Sprintf("panic: %v", r)}, start)
		}
	}()

	info, err := t.submit(ctx)
	if err != nil {
		return t.fromError(err, start)
	}
	if t.wait && !info.Status.Terminal() {
		info = t.await(ctx, info)
		if info.Status == "" {
			return t.failAll(core.Cause{
				Kind:    core.CauseTimeout,
				Message: fmt.Sprintf("task %d did not finish within %s", info.UID, t.taskTimeout),
			}, start)
		}
	}
	if info.Status == index.TaskFailed || info.Status == index.TaskCanceled {
		err := fmt.Errorf("%w: task %d %s", core.ErrTaskFailed, info.UID, info.Status)
		if info.Error != nil {
			err = fmt.Errorf("%w: task %d: %w", core.ErrTaskFailed, info.UID, info.Error)
		}
		return t.failAll(core.CauseFromError(err), start)
	}

	ref := info.Reference()
	confirmed := info.Status == index.TaskSucceeded
	outcomes = make([]core.Outcome, len(t.positions))
	for i, pos := range t.positions {
		outcomes[i] = core.Success(pos, t.ids[i], ref)
		outcomes[i].Confirmed = confirmed
		outcomes[i].Duration = time.Since(start)
	}
	return outcomes
}

// submit sends the shard under the per-request timeout.
func (t *task) submit(ctx context.Context) (*index.TaskInfo, error) {
	callCtx, cancel := context.WithTimeout(ctx, t.requestTimeout)
	defer cancel()

	info, err := t.client.AddDocuments(callCtx, t.indexName, t.docs, core.PrimaryKey)
	if err != nil {
		switch {
		case ctx.Err() != nil:
			return nil, fmt.Errorf("%w: %w", ctx.Err(), err)
		case errors.Is(callCtx.Err(), context.DeadlineExceeded):
			return nil, fmt.Errorf("%w: no answer within %s: %w", core.ErrTimeout, t.requestTimeout, err)
		}
		return nil, fmt.Errorf("%w: %w", core.ErrSubmission, err)
	}
	if info == nil {
		info = &index.TaskInfo{UID: -1, Status: index.TaskEnqueued}
	}
	return info, nil
}

// await polls the task until it is terminal. It returns a TaskInfo with an
// empty status when the task timeout expires. On cancellation it returns the
// last known state, since the remote index already accepted the write.
func (t *task) await(ctx context.Context, info *index.TaskInfo) *index.TaskInfo {
	deadline := time.NewTimer(t.taskTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return info
		case <-deadline.C:
			return &index.TaskInfo{UID: info.UID}
		case <-ticker.C:
			callCtx, cancel := context.WithTimeout(ctx, t.requestTimeout)
			current, err := t.client.Task(callCtx, info.UID)
			cancel()
			if errors.Is(err, index.ErrTasksUnsupported) {
				return info
			}
			if err != nil {
				t.logger.Debug("task status poll failed", "task", info.UID, "err", err)
				continue
			}
			if current.Status.Terminal() {
				return current
			}
		}
	}
}

func (t *task) fromError(err error, start time.Time) []core.Outcome {
	var partial *index.PartialError
	if !errors.As(err, &partial) {
		t.logger.Debug("submission failed", "records", len(t.positions), "err", err)
		return t.failAll(core.CauseFromError(err), start)
	}
	outcomes := make([]core.Outcome, len(t.positions))
	for i, pos := range t.positions {
		if rejected, ok := partial.Failed[i]; ok {
			outcomes[i] = core.Failure(pos, t.ids[i], core.CauseFromError(rejected))
		} else {
			// Partial answers come from synchronous bulk writes.
			outcomes[i] = core.Success(pos, t.ids[i], "")
			outcomes[i].Confirmed = true
		}
		outcomes[i].Duration = time.Since(start)
	}
	return outcomes
}

func (t *task) failAll(cause core.Cause, start time.Time) []core.Outcome {
	outcomes := make([]core.Outcome, len(t.positions))
	for i, pos := range t.positions {
		outcomes[i] = core.Failure(pos, t.ids[i], cause)
		outcomes[i].Duration = time.Since(start)
	}
	return outcomes
}
