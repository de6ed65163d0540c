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

package index

import (
	"fmt"
	"strconv"
	"time"
)

// TaskStatus is the lifecycle state of an asynchronous indexing task.
type TaskStatus string

const (
	TaskEnqueued   TaskStatus = "enqueued"
	TaskProcessing TaskStatus = "processing"
	TaskSucceeded  TaskStatus = "succeeded"
	TaskFailed     TaskStatus = "failed"
	TaskCanceled   TaskStatus = "canceled"
)

// Terminal reports whether the task will not change state again.
func (s TaskStatus) Terminal() bool {
	return s == TaskSucceeded || s == TaskFailed || s == TaskCanceled
}

// TaskInfo describes a write accepted by the remote index. Backends that
// apply writes synchronously return a TaskInfo that is already terminal.
type TaskInfo struct {
	UID        int64
	IndexUID   string
	Status     TaskStatus
	Type       string
	EnqueuedAt time.Time
	FinishedAt time.Time
	// Error is set on failed tasks.
	Error *RemoteError
}

// Reference returns the task uid as a printable reference, or "" when the
// backend does not track tasks.
func (t *TaskInfo) Reference() string {
	if t == nil || t.UID < 0 {
		return ""
	}
	return strconv.FormatInt(t.UID, 10)
}

// RemoteError is an error payload returned by the remote index.
type RemoteError struct {
	StatusCode int
	Code       string
	Type       string
	Message    string
	Link       string
}

func (e *RemoteError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("remote index error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("remote index error %d: %s", e.StatusCode, e.Message)
}

// ErrorCode returns the machine-readable error code.
func (e *RemoteError) ErrorCode() string {
	return e.Code
}

// ErrorMessage returns the service's message without status or code.
func (e *RemoteError) ErrorMessage() string {
	return e.Message
}

// PartialError reports a batch in which only some documents failed. Failed
// is keyed by the document's offset within the submitted batch.
type PartialError struct {
	Failed map[int]*RemoteError
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("%d document(s) in the batch were rejected", len(e.Failed))
}
