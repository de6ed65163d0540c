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

package report

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/poiesic/docloader/core"
	"github.com/poiesic/docloader/ingestion"
)

// Theme holds the color scheme for console output.
type Theme struct {
	Status  lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Hint    lipgloss.Color
}

// DefaultTheme provides default colors.
var DefaultTheme = Theme{
	Status:  lipgloss.Color("#5FAFD7"), // light blue
	Success: lipgloss.Color("#00D787"), // green
	Error:   lipgloss.Color("#FF005F"), // red
	Hint:    lipgloss.Color("#6C6C6C"), // dim gray
}

// Console prints run progress and the final summary to a writer.
// Colors are only emitted when the writer is a terminal.
type Console struct {
	w        io.Writer
	renderer *lipgloss.Renderer
	theme    Theme
	quiet    bool
	mu       sync.Mutex
}

var _ ingestion.Monitor = (*Console)(nil)

// ConsoleOption configures a Console.
type ConsoleOption func(*Console)

// WithTheme overrides the default colors.
func WithTheme(theme Theme) ConsoleOption {
	return func(c *Console) {
		c.theme = theme
	}
}

// WithQuiet suppresses per-record lines. Failures are then listed after
// the summary instead.
func WithQuiet(quiet bool) ConsoleOption {
	return func(c *Console) {
		c.quiet = quiet
	}
}

// NewConsole creates a console writing to w.
func NewConsole(w io.Writer, opts ...ConsoleOption) *Console {
	c := &Console{
		w:        w,
		renderer: lipgloss.NewRenderer(w),
		theme:    DefaultTheme,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Console) statusStyle() lipgloss.Style {
	return c.renderer.NewStyle().Foreground(c.theme.Status)
}

func (c *Console) successStyle() lipgloss.Style {
	return c.renderer.NewStyle().Foreground(c.theme.Success).Bold(true)
}

func (c *Console) errorStyle() lipgloss.Style {
	return c.renderer.NewStyle().Foreground(c.theme.Error).Bold(true)
}

func (c *Console) hintStyle() lipgloss.Style {
	return c.renderer.NewStyle().Foreground(c.theme.Hint).Italic(true)
}

func (c *Console) println(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.w, line)
}

// Start announces the run.
func (c *Console) Start(job *core.Job) {
	c.println(c.statusStyle().Render(
		fmt.Sprintf("loading %d records into %s", job.Len(), job.Index())))
}

// Dispatched is ignored.
func (c *Console) Dispatched(int) {}

// Completed prints the outcome of one record.
func (c *Console) Completed(o core.Outcome) {
	if c.quiet {
		return
	}
	c.println(c.OutcomeLine(o))
}

// Finish prints the summary.
func (c *Console) Finish(r *core.Report) {
	c.println(c.Summary(r))
}

// OutcomeLine renders one outcome as "ok <id>", "skip <id>" or
// "fail <id> <cause>".
func (c *Console) OutcomeLine(o core.Outcome) string {
	switch {
	case o.Skipped:
		return c.hintStyle().Render("skip") + " " + string(o.ID)
	case o.Succeeded():
		return c.successStyle().Render("ok") + "   " + string(o.ID)
	default:
		line := c.errorStyle().Render("fail") + " " + string(o.ID)
		if o.Cause != nil {
			line += " " + o.Cause.String()
		}
		return line
	}
}

// Summary renders the sealed report. It always contains the line
// "indexed <index>: <s> succeeded, <f> failed (<total> total)".
func (c *Console) Summary(r *core.Report) string {
	if r == nil {
		return c.errorStyle().Render(ErrNilReport.Error())
	}

	var b strings.Builder
	if r.Err != nil {
		b.WriteString(c.errorStyle().Render("error: " + r.Err.Error()))
		b.WriteString("\n")
	}
	if c.quiet {
		for _, f := range r.Failures {
			b.WriteString(c.OutcomeLine(f))
			b.WriteString("\n")
		}
	}

	line := fmt.Sprintf("indexed %s: %d succeeded, %d failed (%d total)",
		r.Index, r.Succeeded, r.Failed, r.Total)
	if r.Failed > 0 || r.Err != nil {
		b.WriteString(c.errorStyle().Render(line))
	} else {
		b.WriteString(c.successStyle().Render(line))
	}

	var notes []string
	if r.Skipped > 0 {
		notes = append(notes, fmt.Sprintf("%d unchanged records skipped", r.Skipped))
	}
	if r.Interrupted {
		notes = append(notes, "run interrupted")
	}
	notes = append(notes, fmt.Sprintf("run %s took %s", r.RunID, r.Elapsed().Round(time.Millisecond)))
	b.WriteString("\n")
	b.WriteString(c.hintStyle().Render(strings.Join(notes, "; ")))
	return b.String()
}
