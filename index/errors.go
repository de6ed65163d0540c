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

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when a retry is requested with no attempts.
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrUnknownBackend indicates a backend with no registered constructor.
	ErrUnknownBackend = errors.New("unknown backend")

	// ErrTasksUnsupported is returned by backends that apply writes synchronously
	// and have no task to query.
	ErrTasksUnsupported = errors.New("backend does not track tasks")

	// ErrCredentialRejected indicates the remote index refused the API key.
	ErrCredentialRejected = errors.New("credential rejected")

	// ErrUnavailable indicates the remote index answered but is not ready.
	ErrUnavailable = errors.New("index service unavailable")
)
