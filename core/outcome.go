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
	"context"
	"errors"
	"fmt"
	"time"
)

// Status is the terminal state of one record.
type Status int

const (
	// StatusSuccess means the remote index accepted the record.
	StatusSuccess Status = iota + 1
	// StatusFailure means the record was not indexed. See Outcome.Cause.
	StatusFailure
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailure:
		return "failure"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// CauseKind classifies why a record failed.
type CauseKind string

const (
	CauseNetwork       CauseKind = "network"
	CauseRejected      CauseKind = "rejected"
	CauseSerialization CauseKind = "serialization"
	CauseTimeout       CauseKind = "timeout"
	CauseTaskFailed    CauseKind = "task_failed"
	CauseCanceled      CauseKind = "canceled"
)

// Cause describes a failed record. Code carries the remote service's
// machine-readable error code when there is one.
type Cause struct {
	Kind    CauseKind `json:"kind" yaml:"kind"`
	Code    string    `json:"code,omitempty" yaml:"code,omitempty"`
	Message string    `json:"message" yaml:"message"`
}

func (c Cause) String() string {
	if c.Code != "" {
		return fmt.Sprintf("%s(%s): %s", c.Kind, c.Code, c.Message)
	}
	return fmt.Sprintf("%s: %s", c.Kind, c.Message)
}

// coder is implemented by remote errors that carry an error code and the
// service's own message.
type coder interface {
	ErrorCode() string
	ErrorMessage() string
}

// CauseFromError classifies err into a Cause.
func CauseFromError(err error) Cause {
	if err == nil {
		return Cause{Kind: CauseNetwork, Message: "unknown error"}
	}
	c := Cause{Message: err.Error()}
	var coded coder
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, ErrTimeout):
		c.Kind = CauseTimeout
	case errors.Is(err, context.Canceled):
		c.Kind = CauseCanceled
	case errors.Is(err, ErrSerialization):
		c.Kind = CauseSerialization
	case errors.Is(err, ErrTaskFailed):
		c.Kind = CauseTaskFailed
		if errors.As(err, &coded) {
			c.setRemote(coded)
		}
	case errors.As(err, &coded):
		c.Kind = CauseRejected
		c.setRemote(coded)
	default:
		c.Kind = CauseNetwork
	}
	return c
}

func (c *Cause) setRemote(coded coder) {
	c.Code = coded.ErrorCode()
	if msg := coded.ErrorMessage(); msg != "" {
		c.Message = msg
	}
}

// Outcome is the result for one record instance. Position is the record's
// index in the input and distinguishes records that share an id.
type Outcome struct {
	Position int      `json:"position" yaml:"position"`
	ID       RecordID `json:"id" yaml:"id"`
	Status   Status   `json:"-" yaml:"-"`
	Cause    *Cause   `json:"cause,omitempty" yaml:"cause,omitempty"`
	TaskUID  string   `json:"taskUid,omitempty" yaml:"taskUid,omitempty"`
	Skipped  bool     `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	// Confirmed is set when the remote index reported the write as applied
	// rather than only accepted for later processing.
	Confirmed bool          `json:"confirmed,omitempty" yaml:"confirmed,omitempty"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
}

// Success builds a successful Outcome.
func Success(position int, id RecordID, taskUID string) Outcome {
	return Outcome{Position: position, ID: id, Status: StatusSuccess, TaskUID: taskUID}
}

// Skipped builds a successful Outcome for a record that was not resubmitted.
func Skipped(position int, id RecordID) Outcome {
	return Outcome{Position: position, ID: id, Status: StatusSuccess, Skipped: true}
}

// Failure builds a failed Outcome.
func Failure(position int, id RecordID, cause Cause) Outcome {
	return Outcome{Position: position, ID: id, Status: StatusFailure, Cause: &cause}
}

// Succeeded reports whether the record was indexed.
func (o Outcome) Succeeded() bool {
	return o.Status == StatusSuccess
}
