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

package main

import (
	"os"
	"reflect"
	"strings"

	musgen "github.com/mus-format/musgen-go/mus"
	genops "github.com/mus-format/musgen-go/options/generate"
	structops "github.com/mus-format/musgen-go/options/struct"
	typeops "github.com/mus-format/musgen-go/options/type"

	"github.com/poiesic/docloader/core"
	"github.com/poiesic/docloader/storage"
)

func main() {
	cwd, err := os.Getwd()
	if err != nil {
		panic(err)
	}
	// go:generate runs from the storage package directory
	if strings.HasSuffix(cwd, "storage") {
		if err := os.Chdir(".."); err != nil {
			panic(err)
		}
	}
	g, err := musgen.NewCodeGenerator(
		genops.WithPkgPath("github.com/poiesic/docloader/storage"),
	)
	if err != nil {
		panic(err)
	}

	g.AddDefinedType(reflect.TypeFor[core.RecordID]())
	g.AddDefinedType(reflect.TypeFor[core.Fingerprint]())

	// Unix micro timestamps
	opts := typeops.WithTimeUnit(typeops.Micro)
	err = g.AddStruct(reflect.TypeFor[storage.Run](),
		structops.WithField(), // ID
		structops.WithField(), // Index
		structops.WithField(), // Source
		structops.WithField(), // Backend
		structops.WithField(opts),
		structops.WithField(opts),
		structops.WithField(), // Total
		structops.WithField(), // Succeeded
		structops.WithField(), // Failed
		structops.WithField(), // Skipped
		structops.WithField()) // Interrupted
	if err != nil {
		panic(err)
	}

	err = g.AddStruct(reflect.TypeFor[storage.Entry](),
		structops.WithField(), // RunID
		structops.WithField(), // Position
		structops.WithField(), // ID
		structops.WithField(), // Fingerprint
		structops.WithField(), // Succeeded
		structops.WithField(), // Confirmed
		structops.WithField(), // Skipped
		structops.WithField(), // CauseKind
		structops.WithField(), // CauseCode
		structops.WithField(), // CauseMessage
		structops.WithField()) // TaskUID
	if err != nil {
		panic(err)
	}

	bs, err := g.Generate()
	if err != nil {
		panic(err)
	}

	err = os.WriteFile("./storage/records_mus.gen.go", bs, 0644)
	if err != nil {
		panic(err)
	}
}
