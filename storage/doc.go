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

// Package storage defines the run journal: a durable record of every
// ingestion run and of each record's outcome within it.
//
// The journal answers two questions after the fact: what happened in a
// given run, and which records have already been indexed successfully.
// The second one lets a rerun of the same file skip records whose content
// is unchanged since their last successful submission.
//
// # Constructor Return Type Pattern
//
// Public constructors in implementation packages return the interface
// defined here:
//
//	journal, err := badger.NewJournal(path) // returns storage.Journal
//
// # Serialization
//
// Runs and entries are stored in the compact MUS binary format, using
// hand-written serializers built from mus-go primitives.
package storage
