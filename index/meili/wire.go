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

package meili

import (
	"time"

	"github.com/poiesic/docloader/index"
)

// taskSummary is the body of a 202 answer to a write.
type taskSummary struct {
	TaskUID    int64     `json:"taskUid"`
	IndexUID   string    `json:"indexUid"`
	Status     string    `json:"status"`
	Type       string    `json:"type"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
}

func (s taskSummary) info() *index.TaskInfo {
	return &index.TaskInfo{
		UID:        s.TaskUID,
		IndexUID:   s.IndexUID,
		Status:     index.TaskStatus(s.Status),
		Type:       s.Type,
		EnqueuedAt: s.EnqueuedAt,
	}
}

// task is the body of GET /tasks/{uid}.
type task struct {
	UID        int64         `json:"uid"`
	IndexUID   string        `json:"indexUid"`
	Status     string        `json:"status"`
	Type       string        `json:"type"`
	Error      *errorPayload `json:"error"`
	EnqueuedAt time.Time     `json:"enqueuedAt"`
	FinishedAt *time.Time    `json:"finishedAt"`
}

func (t task) info() *index.TaskInfo {
	info := &index.TaskInfo{
		UID:        t.UID,
		IndexUID:   t.IndexUID,
		Status:     index.TaskStatus(t.Status),
		Type:       t.Type,
		EnqueuedAt: t.EnqueuedAt,
	}
	if t.FinishedAt != nil {
		info.FinishedAt = *t.FinishedAt
	}
	if t.Error != nil {
		info.Error = t.Error.remote(0)
	}
	return info
}

// errorPayload is Meilisearch's error body.
type errorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Type    string `json:"type"`
	Link    string `json:"link"`
}

func (p errorPayload) remote(status int) *index.RemoteError {
	return &index.RemoteError{
		StatusCode: status,
		Code:       p.Code,
		Type:       p.Type,
		Message:    p.Message,
		Link:       p.Link,
	}
}

type health struct {
	Status string `json:"status"`
}
