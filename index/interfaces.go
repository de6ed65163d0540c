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
	"context"

	"github.com/poiesic/docloader/core"
)

// Client submits documents to a remote index.
// Implementations must be thread-safe for concurrent use.
type Client interface {
	// AddDocuments submits docs to the named index, creating the index if the
	// backend does so implicitly. primaryKey names the identifier field.
	// Returns a *RemoteError when the service refuses the request, a
	// *PartialError when only some documents failed, and an error wrapping
	// core.ErrSerialization when the documents cannot be encoded.
	AddDocuments(ctx context.Context, indexName string, docs []core.Record, primaryKey string) (*TaskInfo, error)

	// Task returns the current state of a previously accepted task.
	// Returns ErrTasksUnsupported on backends without tasks.
	Task(ctx context.Context, uid int64) (*TaskInfo, error)

	// Ping checks that the service is reachable and accepts the credential.
	Ping(ctx context.Context) error

	// Close releases idle connections. The client must not be used afterwards.
	Close() error
}

// Factory builds a connected Client from a Config.
type Factory interface {
	Connect(ctx context.Context, cfg *Config) (Client, error)
}
