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

// Package index defines the contract between the ingestion pipeline and a
// remote document index.
//
// A Client is built once per job by a Connector and shared by every
// ingestion task, so implementations must be safe for concurrent use.
// Backends live in subpackages:
//
//   - meili: Meilisearch over its REST API
//   - elastic: Elasticsearch through its bulk API
//   - mock: a scriptable in-memory client for tests
//
// Example:
//
//	cfg := index.NewConfig(
//	    index.WithHost("localhost"),
//	    index.WithPort(7700),
//	    index.WithAPIKey(os.Getenv("API")),
//	)
//	client, err := connector.Connect(ctx, cfg)
package index
