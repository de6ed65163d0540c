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

// Package docloader loads a JSON file of records into a remote document
// index, concurrently and with a per-record account of what happened.
//
//	settings, _ := config.Load("docloader.yaml")
//	loader, _ := docloader.NewLoader(settings)
//	report, err := loader.Load(ctx, "movies.json")
//
// Loader wires the pieces together: the record source, the connection
// factory, the optional run journal, the scheduler and its monitors, and
// the post-run sinks that export the report and metrics.
package docloader
