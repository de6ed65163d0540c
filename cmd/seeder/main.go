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
	"bufio"
	"fmt"
	"iter"
	"log/slog"
	"math/rand/v2"
	"os"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/urfave/cli/v2"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var titles = []string{
	"The Quiet Harbor",
	"Letters from the Lighthouse",
	"A Map of Forgotten Roads",
	"Winter in the Old Manor",
	"The Clock That Struck Thirteen",
	"Beneath the Coral Gardens",
	"The Silver Fox",
	"Fireworks over the Square",
	"The Ancient Library",
	"Songs of the Open Sky",
	"The Last Train to the Valley",
	"Dust in the Golden Light",
	"The Watchdog Fell Asleep",
	"Bridges Across the Swift River",
	"A Comet at Midnight",
	"The Scheduler's Retirement",
}

var genres = []string{"drama", "comedy", "mystery", "documentary", "adventure", "romance", "science fiction"}

var overviews = []string{
	"A gentle breeze carries an old secret across the town.",
	"Two strangers find a hidden key in a dusty attic.",
	"A storm forces a village to remember what it lost.",
	"An engineer builds a bridge nobody asked for.",
	"A child draws a map that turns out to be real.",
	"The city skyline glows while one family waits for news.",
}

// linesFromFile returns an iterator over the non-empty lines of a file.
func linesFromFile(filename string) (iter.Seq[string], error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	return func(yield func(string) bool) {
		defer f.Close()
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			if line := scanner.Text(); line != "" && !yield(line) {
				return
			}
		}
	}, nil
}

// linesFromSlice returns an iterator over a slice of strings.
func linesFromSlice(lines []string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, line := range lines {
			if !yield(line) {
				return
			}
		}
	}
}

type generator struct {
	count      int
	stringIDs  bool
	duplicates int
	rng        *rand.Rand
}

// records builds count records, cycling through titles. The last
// duplicates records reuse the ids of the first ones.
func (g *generator) records(titles iter.Seq[string]) []map[string]any {
	var pool []string
	for t := range titles {
		pool = append(pool, t)
	}
	if len(pool) == 0 {
		pool = []string{"Untitled"}
	}

	out := make([]map[string]any, 0, g.count)
	for i := range g.count {
		var id any = i + 1
		if g.stringIDs {
			id = uuid.NewString()
		}
		title := pool[i%len(pool)]
		if i >= len(pool) {
			title = fmt.Sprintf("%s (%d)", title, i/len(pool)+1)
		}
		out = append(out, map[string]any{
			"id":       id,
			"title":    title,
			"genre":    genres[g.rng.IntN(len(genres))],
			"year":     1950 + g.rng.IntN(75),
			"rating":   float64(g.rng.IntN(100)) / 10,
			"overview": overviews[g.rng.IntN(len(overviews))],
		})
	}
	for i := 0; i < g.duplicates && i < len(out) && len(out)-1-i > i; i++ {
		out[len(out)-1-i]["id"] = out[i]["id"]
	}
	return out
}

func seedCommand(c *cli.Context) error {
	if c.Int("count") < 1 {
		return fmt.Errorf("count must be greater than 0")
	}

	source := linesFromSlice(titles)
	if src := c.String("src"); src != "" {
		var err error
		source, err = linesFromFile(src)
		if err != nil {
			return fmt.Errorf("failed to read titles: %w", err)
		}
	}

	seed := c.Uint64("seed")
	g := &generator{
		count:      c.Int("count"),
		stringIDs:  c.Bool("string-ids"),
		duplicates: c.Int("duplicates"),
		rng:        rand.New(rand.NewPCG(seed, seed)),
	}
	records := g.records(source)

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	out := c.String("out")
	if err := os.WriteFile(out, append(data, '\n'), 0644); err != nil {
		return err
	}
	slog.Info("wrote sample records", "file", out, "records", len(records))
	return nil
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "seeder",
		Usage: "Write a sample record file for docloader",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "Output file",
				Value:   "records.json",
			},
			&cli.IntFlag{
				Name:    "count",
				Aliases: []string{"n"},
				Usage:   "Number of records",
				Value:   100,
			},
			&cli.StringFlag{
				Name:  "src",
				Usage: "File of titles, one per line",
			},
			&cli.BoolFlag{
				Name:  "string-ids",
				Usage: "Use UUID strings instead of integer ids",
			},
			&cli.IntFlag{
				Name:  "duplicates",
				Usage: "Number of trailing records that repeat an earlier id",
			},
			&cli.Uint64Flag{
				Name:  "seed",
				Usage: "Random seed",
				Value: 1,
			},
		},
		Action: seedCommand,
	}
}

func main() {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))

	if err := newApp().Run(os.Args); err != nil {
		slog.Error("seeding failed", "err", err)
		os.Exit(1)
	}
}
