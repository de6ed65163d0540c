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

// Package mock provides a scriptable index.Client for tests.
//
// The mock is safe for concurrent use and records what a test usually wants
// to assert about a pipeline: how many submissions were made, which record
// ids were sent, and the peak number of submissions in flight at once.
//
// Example:
//
//	client := mock.NewClient()
//	client.Latency = 20 * time.Millisecond
//	client.FailIDs(map[core.RecordID]error{
//	    "2": &index.RemoteError{StatusCode: 400, Code: "invalid_document_id"},
//	})
//
//	// run the pipeline, then
//	client.Calls()        // submissions made
//	client.PeakInFlight() // highest concurrency observed
//
// # Default Behavior
//
// Without scripted functions AddDocuments waits Latency (honoring the
// context), then returns an enqueued task with a fresh uid. Task reports
// every known task as succeeded. Ping succeeds.
package mock
