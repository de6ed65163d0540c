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

// Package meili implements index.Client for Meilisearch.
//
// Documents are added through POST /indexes/{uid}/documents, which enqueues
// an asynchronous task; task state is read from GET /tasks/{uid}. Every
// request goes through one retryablehttp client shared by all callers, so
// 429 and 5xx answers and dropped connections are retried at the transport
// level while 4xx answers surface immediately as *index.RemoteError.
package meili
