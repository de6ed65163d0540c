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
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/docloader"
	"github.com/poiesic/docloader/config"
	"github.com/poiesic/docloader/core"
	"github.com/poiesic/docloader/storage"
	"github.com/poiesic/docloader/storage/badger"
)

const (
	exitOK          = 0
	exitFailure     = 1
	exitInterrupted = 130

	settingsKey = "settings"
	cleanupKey  = "cleanup"
)

func main() {
	envFile, explicit := envFileFromArgs(os.Args[1:])
	if _, err := config.LoadEnvFile(envFile, explicit); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitFailure)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newApp(os.Stdout, os.Stderr).RunContext(ctx, os.Args)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "docloader:", err)
	}
	os.Exit(exitCode(err))
}

// exitCode maps the error of a command to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, core.ErrInterrupted), errors.Is(err, context.Canceled):
		return exitInterrupted
	default:
		return exitFailure
	}
}

// envFileFromArgs finds --env-file before the flags are parsed, so the file
// can feed the EnvVars of every other flag.
func envFileFromArgs(args []string) (string, bool) {
	for i, arg := range args {
		switch {
		case arg == "--":
			return config.DefaultEnvFile, false
		case arg == "--env-file" || arg == "-env-file":
			if i+1 < len(args) {
				return args[i+1], true
			}
		case strings.HasPrefix(arg, "--env-file="):
			return strings.TrimPrefix(arg, "--env-file="), true
		case strings.HasPrefix(arg, "-env-file="):
			return strings.TrimPrefix(arg, "-env-file="), true
		}
	}
	return config.DefaultEnvFile, false
}

func connectionFlags() []cli.Flag {
	defaults := config.Default()
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "url",
			Usage:   "Host name or base URL of the index service",
			Value:   defaults.URL,
			EnvVars: []string{"URL", "DOCLOADER_URL"},
		},
		&cli.IntFlag{
			Name:    "port",
			Usage:   "Port used when --url is a bare host",
			Value:   defaults.Port,
			EnvVars: []string{"PORT", "DOCLOADER_PORT"},
		},
		&cli.StringFlag{
			Name:    "api-key",
			Usage:   "Credential sent with every request",
			EnvVars: []string{"API", "DOCLOADER_API_KEY"},
		},
		&cli.StringFlag{
			Name:    "backend",
			Usage:   "Index service type (meilisearch, elasticsearch)",
			Value:   defaults.Backend,
			EnvVars: []string{"DOCLOADER_BACKEND"},
		},
		&cli.DurationFlag{
			Name:    "request-timeout",
			Usage:   "Timeout of a single request",
			Value:   defaults.RequestTimeout,
			EnvVars: []string{"DOCLOADER_REQUEST_TIMEOUT"},
		},
		&cli.IntFlag{
			Name:    "max-retries",
			Usage:   "Transport retries for retryable responses",
			Value:   defaults.MaxRetries,
			EnvVars: []string{"DOCLOADER_MAX_RETRIES"},
		},
		&cli.IntFlag{
			Name:    "connect-attempts",
			Usage:   "Attempts of the initial connection probe",
			Value:   defaults.ConnectAttempts,
			EnvVars: []string{"DOCLOADER_CONNECT_ATTEMPTS"},
		},
	}
}

func loadFlags() []cli.Flag {
	defaults := config.Default()
	return append(connectionFlags(),
		&cli.StringFlag{
			Name:    "index",
			Aliases: []string{"i"},
			Usage:   "Target index (default: a generated docs-<hex> name)",
			EnvVars: []string{"DOCLOADER_INDEX"},
		},
		&cli.IntFlag{
			Name:    "concurrency",
			Aliases: []string{"c"},
			Usage:   "Maximum submissions in flight",
			Value:   defaults.Concurrency,
			EnvVars: []string{"DOCLOADER_CONCURRENCY"},
		},
		&cli.IntFlag{
			Name:    "batch-size",
			Usage:   "Records per submission",
			Value:   defaults.BatchSize,
			EnvVars: []string{"DOCLOADER_BATCH_SIZE"},
		},
		&cli.BoolFlag{
			Name:    "wait",
			Usage:   "Wait for every remote task to finish before counting a record",
			EnvVars: []string{"DOCLOADER_WAIT"},
		},
		&cli.DurationFlag{
			Name:  "poll-interval",
			Usage: "Delay between task status polls with --wait",
			Value: defaults.PollInterval,
		},
		&cli.DurationFlag{
			Name:  "task-timeout",
			Usage: "How long to wait for one task with --wait",
			Value: defaults.TaskTimeout,
		},
		&cli.StringFlag{
			Name:    "journal",
			Usage:   "Directory of the run journal (disabled when empty)",
			EnvVars: []string{"DOCLOADER_JOURNAL"},
		},
		&cli.BoolFlag{
			Name:  "skip-succeeded",
			Usage: "Skip records the journal shows as already indexed unchanged",
		},
		&cli.StringFlag{
			Name:  "report-file",
			Usage: "Write the report to this .json, .yaml or .yml file",
		},
		&cli.StringFlag{
			Name:  "metrics-file",
			Usage: "Write Prometheus metrics in textfile format to this path",
		},
		&cli.BoolFlag{
			Name:  "progress",
			Usage: "Show a progress line on stderr",
		},
		&cli.BoolFlag{
			Name:    "quiet",
			Aliases: []string{"q"},
			Usage:   "Only print failures and the summary",
		},
	)
}

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "docloader",
		Usage:     "Load a JSON file of records into a document index",
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "YAML settings file",
				EnvVars: []string{"DOCLOADER_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "File of environment variables to load",
				Value: config.DefaultEnvFile,
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				EnvVars: []string{"DOCLOADER_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Also write JSON logs to this file",
			},
		},
		Before: setup,
		After:  teardown,
		Commands: []*cli.Command{
			{
				Name:      "load",
				Usage:     "Ingest the records of a JSON array file",
				ArgsUsage: "FILE",
				Action:    loadCommand,
				Flags:     loadFlags(),
			},
			{
				Name:      "status",
				Usage:     "Show the state of a remote indexing task",
				ArgsUsage: "TASK_UID",
				Action:    statusCommand,
				Flags:     connectionFlags(),
			},
			{
				Name:   "history",
				Usage:  "List journaled runs",
				Action: historyCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "journal",
						Usage:   "Directory of the run journal",
						EnvVars: []string{"DOCLOADER_JOURNAL"},
					},
					&cli.StringFlag{
						Name:  "run",
						Usage: "Show the failures of one run",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of runs to list (0 for all)",
						Value: 20,
					},
				},
			},
		},
	}
}

// setup loads the settings file and configures logging.
func setup(c *cli.Context) error {
	s, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if c.IsSet("log-level") {
		s.Logging.Level = c.String("log-level")
	}
	if c.IsSet("log-file") {
		s.Logging.File = c.String("log-file")
	}
	level, err := config.ParseLevel(s.Logging.Level)
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrConfig, err)
	}

	logger, cleanup := config.SetupLogger(s.Logging.File, level)
	slog.SetDefault(logger)

	if c.App.Metadata == nil {
		c.App.Metadata = map[string]any{}
	}
	c.App.Metadata[settingsKey] = s
	c.App.Metadata[cleanupKey] = cleanup
	return nil
}

func teardown(c *cli.Context) error {
	if cleanup, ok := c.App.Metadata[cleanupKey].(func() error); ok {
		return cleanup()
	}
	return nil
}

// settingsFrom returns the file settings overlaid with every flag that was
// set on the command line or through its environment variables.
func settingsFrom(c *cli.Context) *config.Settings {
	s, ok := c.App.Metadata[settingsKey].(*config.Settings)
	if !ok {
		s = config.Default()
	}
	strs := map[string]*string{
		"url":          &s.URL,
		"api-key":      &s.APIKey,
		"backend":      &s.Backend,
		"index":        &s.Index,
		"journal":      &s.Journal,
		"report-file":  &s.ReportFile,
		"metrics-file": &s.MetricsFile,
	}
	for name, dst := range strs {
		if c.IsSet(name) {
			*dst = c.String(name)
		}
	}
	ints := map[string]*int{
		"port":             &s.Port,
		"concurrency":      &s.Concurrency,
		"batch-size":       &s.BatchSize,
		"max-retries":      &s.MaxRetries,
		"connect-attempts": &s.ConnectAttempts,
	}
	for name, dst := range ints {
		if c.IsSet(name) {
			*dst = c.Int(name)
		}
	}
	durations := map[string]*time.Duration{
		"request-timeout": &s.RequestTimeout,
		"poll-interval":   &s.PollInterval,
		"task-timeout":    &s.TaskTimeout,
	}
	for name, dst := range durations {
		if c.IsSet(name) {
			*dst = c.Duration(name)
		}
	}
	bools := map[string]*bool{
		"wait":           &s.Wait,
		"skip-succeeded": &s.SkipSucceeded,
		"progress":       &s.Progress,
		"quiet":          &s.Quiet,
	}
	for name, dst := range bools {
		if c.IsSet(name) {
			*dst = c.Bool(name)
		}
	}
	return s
}

func loadCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("%w: expected exactly one input FILE", core.ErrConfig)
	}
	loader, err := docloader.NewLoader(settingsFrom(c), docloader.WithOutput(c.App.Writer, c.App.ErrWriter))
	if err != nil {
		return err
	}
	_, err = loader.Load(c.Context, c.Args().First())
	return err
}

func statusCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("%w: expected exactly one TASK_UID", core.ErrConfig)
	}
	uid, err := strconv.ParseInt(c.Args().First(), 10, 64)
	if err != nil || uid < 0 {
		return fmt.Errorf("%w: invalid task uid %q", core.ErrConfig, c.Args().First())
	}
	loader, err := docloader.NewLoader(settingsFrom(c))
	if err != nil {
		return err
	}
	info, err := loader.TaskStatus(c.Context, uid)
	if err != nil {
		return err
	}

	w := c.App.Writer
	fmt.Fprintf(w, "task %d: %s\n", info.UID, info.Status)
	if info.IndexUID != "" {
		fmt.Fprintf(w, "  index:    %s\n", info.IndexUID)
	}
	if info.Type != "" {
		fmt.Fprintf(w, "  type:     %s\n", info.Type)
	}
	if !info.EnqueuedAt.IsZero() {
		fmt.Fprintf(w, "  enqueued: %s\n", info.EnqueuedAt.Format(time.RFC3339))
	}
	if !info.FinishedAt.IsZero() {
		fmt.Fprintf(w, "  finished: %s\n", info.FinishedAt.Format(time.RFC3339))
	}
	if info.Error != nil {
		fmt.Fprintf(w, "  error:    %s\n", info.Error.Error())
	}
	return nil
}

func historyCommand(c *cli.Context) error {
	s := settingsFrom(c)
	if s.Journal == "" {
		return fmt.Errorf("%w: --journal is required", core.ErrConfig)
	}
	journal, err := badger.NewJournal(s.Journal)
	if err != nil {
		return err
	}
	defer journal.Close()

	if runID := c.String("run"); runID != "" {
		return printRun(c.Context, c.App.Writer, journal, runID)
	}

	runs, err := journal.ListRuns(c.Context, c.Int("limit"))
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(c.App.Writer, "no runs journaled")
		return nil
	}
	for _, run := range runs {
		fmt.Fprintln(c.App.Writer, runLine(run))
	}
	return nil
}

func runLine(run *storage.Run) string {
	line := fmt.Sprintf("%s  %s  %s: %d succeeded, %d failed (%d total)",
		run.ID, run.StartedAt.Local().Format(time.DateTime), run.Index, run.Succeeded, run.Failed, run.Total)
	if run.Skipped > 0 {
		line += fmt.Sprintf(", %d skipped", run.Skipped)
	}
	if run.Interrupted {
		line += ", interrupted"
	}
	return line
}

func printRun(ctx context.Context, w io.Writer, journal storage.Journal, runID string) error {
	run, err := journal.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	entries, err := journal.GetEntries(ctx, runID)
	if err != nil {
		return err
	}

	fmt.Fprintln(w, runLine(run))
	fmt.Fprintf(w, "source %s via %s, took %s\n", run.Source, run.Backend, run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
	for _, e := range entries {
		if e.Succeeded {
			continue
		}
		cause := core.Cause{Kind: core.CauseKind(e.CauseKind), Code: e.CauseCode, Message: e.CauseMessage}
		fmt.Fprintf(w, "fail %s (record %d) %s\n", e.ID, e.Position, cause)
	}
	return nil
}
