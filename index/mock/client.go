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

package mock

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/poiesic/docloader/core"
	"github.com/poiesic/docloader/index"
)

// Client is an in-memory index.Client.
type Client struct {
	// AddDocumentsFunc is called by AddDocuments if set, after Latency elapsed.
	AddDocumentsFunc func(ctx context.Context, indexName string, docs []core.Record, primaryKey string) (*index.TaskInfo, error)

	// TaskFunc is called by Task if set.
	TaskFunc func(ctx context.Context, uid int64) (*index.TaskInfo, error)

	// PingFunc is called by Ping if set.
	PingFunc func(ctx context.Context) error

	// Latency delays each AddDocuments call.
	Latency time.Duration

	mu        sync.Mutex
	failures  map[core.RecordID]error
	submitted []core.RecordID

	calls     atomic.Int64
	pings     atomic.Int64
	taskCalls atomic.Int64
	inFlight  atomic.Int64
	peak      atomic.Int64
	nextUID   atomic.Int64
	closed    atomic.Bool
}

// NewClient creates a mock client with default behavior.
func NewClient() *Client {
	return &Client{failures: make(map[core.RecordID]error)}
}

// FailIDs makes any submission containing one of the ids return its error.
func (c *Client) FailIDs(failures map[core.RecordID]error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, err := range failures {
		c.failures[id] = err
	}
}

// AddDocuments records the submission and returns a task or a scripted error.
func (c *Client) AddDocuments(ctx context.Context, indexName string, docs []core.Record, primaryKey string) (*index.TaskInfo, error) {
	c.calls.Add(1)
	current := c.inFlight.Add(1)
	defer c.inFlight.Add(-1)
	for {
		peak := c.peak.Load()
		if current <= peak || c.peak.CompareAndSwap(peak, current) {
			break
		}
	}

	ids := make([]core.RecordID, 0, len(docs))
	for _, d := range docs {
		id, err := d.ID()
		if err != nil {
			return nil, fmt.Errorf("mock: %w", err)
		}
		ids = append(ids, id)
	}
	c.mu.Lock()
	c.submitted = append(c.submitted, ids...)
	var scripted error
	for _, id := range ids {
		if err, ok := c.failures[id]; ok {
			scripted = err
			break
		}
	}
	c.mu.Unlock()

	if c.Latency > 0 {
		timer := time.NewTimer(c.Latency)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if c.AddDocumentsFunc != nil {
		return c.AddDocumentsFunc(ctx, indexName, docs, primaryKey)
	}
	if scripted != nil {
		return nil, scripted
	}
	return &index.TaskInfo{
		UID:        c.nextUID.Add(1) - 1,
		IndexUID:   indexName,
		Status:     index.TaskEnqueued,
		Type:       "documentAdditionOrUpdate",
		EnqueuedAt: time.Now(),
	}, nil
}

// Task returns the scripted task state or a succeeded task.
func (c *Client) Task(ctx context.Context, uid int64) (*index.TaskInfo, error) {
	c.taskCalls.Add(1)
	if c.TaskFunc != nil {
		return c.TaskFunc(ctx, uid)
	}
	if uid < 0 || uid >= c.nextUID.Load() {
		return nil, &index.RemoteError{StatusCode: 404, Code: "task_not_found", Message: fmt.Sprintf("task %d not found", uid)}
	}
	return &index.TaskInfo{UID: uid, Status: index.TaskSucceeded, FinishedAt: time.Now()}, nil
}

// Ping returns the scripted result or nil.
func (c *Client) Ping(ctx context.Context) error {
	c.pings.Add(1)
	if c.PingFunc != nil {
		return c.PingFunc(ctx)
	}
	return nil
}

// Close marks the client closed.
func (c *Client) Close() error {
	c.closed.Store(true)
	return nil
}

// Calls returns the number of AddDocuments calls.
func (c *Client) Calls() int {
	return int(c.calls.Load())
}

// Pings returns the number of Ping calls.
func (c *Client) Pings() int {
	return int(c.pings.Load())
}

// TaskCalls returns the number of Task calls.
func (c *Client) TaskCalls() int {
	return int(c.taskCalls.Load())
}

// PeakInFlight returns the highest number of concurrent AddDocuments calls.
func (c *Client) PeakInFlight() int {
	return int(c.peak.Load())
}

// Submitted returns every submitted record id, in arrival order.
func (c *Client) Submitted() []core.RecordID {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]core.RecordID, len(c.submitted))
	copy(out, c.submitted)
	return out
}

// Closed reports whether Close was called.
func (c *Client) Closed() bool {
	return c.closed.Load()
}

// Factory is an index.Factory that hands out one mock client or an error.
type Factory struct {
	Client *Client
	Err    error

	calls atomic.Int64
}

// NewFactory returns a factory that always yields client.
func NewFactory(client *Client) *Factory {
	return &Factory{Client: client}
}

// Connect returns the configured client or error.
func (f *Factory) Connect(ctx context.Context, cfg *index.Config) (index.Client, error) {
	f.calls.Add(1)
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Client, nil
}

// Calls returns the number of Connect calls.
func (f *Factory) Calls() int {
	return int(f.calls.Load())
}
