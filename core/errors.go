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

import "errors"

// Job-level errors. These abort a run before any record is dispatched.
var (
	// ErrConfig indicates missing or invalid configuration.
	ErrConfig = errors.New("invalid configuration")

	// ErrConnection indicates the remote index could not be reached or
	// rejected the supplied credential.
	ErrConnection = errors.New("connection failed")

	// ErrParse indicates the input could not be read or decoded into records.
	ErrParse = errors.New("unable to parse input")

	// ErrNilClient indicates a scheduler was built without a client.
	ErrNilClient = errors.New("client is nil")

	// ErrInterrupted indicates the run was canceled before all records were dispatched.
	ErrInterrupted = errors.New("run interrupted")
)

// Record-level errors. These end up as the Cause of a failed Outcome.
var (
	// ErrSubmission indicates the remote index refused or failed a submission.
	ErrSubmission = errors.New("submission failed")

	// ErrSerialization indicates a record could not be encoded for the wire.
	ErrSerialization = errors.New("record serialization failed")

	// ErrTimeout indicates a request or task did not complete in time.
	ErrTimeout = errors.New("timed out")

	// ErrTaskFailed indicates the remote index accepted a task and later failed it.
	ErrTaskFailed = errors.New("remote task failed")
)

// Validation errors
var (
	// ErrMissingID indicates a record without an id field.
	ErrMissingID = errors.New("record has no id")

	// ErrInvalidID indicates an id that is neither a non-empty string nor an integer.
	ErrInvalidID = errors.New("record id must be a non-empty string or an integer")

	// ErrInvalidIndexName indicates an index name the remote service would refuse.
	ErrInvalidIndexName = errors.New("invalid index name")

	// ErrReportMismatch indicates a sealed report whose counts do not add up.
	ErrReportMismatch = errors.New("report outcome count mismatch")
)
