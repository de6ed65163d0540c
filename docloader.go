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

package docloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/poiesic/docloader/config"
	"github.com/poiesic/docloader/core"
	"github.com/poiesic/docloader/index"
	"github.com/poiesic/docloader/index/elastic"
	"github.com/poiesic/docloader/index/meili"
	"github.com/poiesic/docloader/ingestion"
	"github.com/poiesic/docloader/report"
	"github.com/poiesic/docloader/source"
	"github.com/poiesic/docloader/storage"
	"github.com/poiesic/docloader/storage/badger"
)

// NewConnector returns a connection factory that knows every built-in backend.
func NewConnector() *index.Connector {
	return index.NewConnector(map[index.Backend]index.Constructor{
		index.BackendMeilisearch:   meili.Constructor,
		index.BackendElasticsearch: elastic.Constructor,
	})
}

// Loader runs ingestion jobs described by a Settings value.
type Loader struct {
	settings    *config.Settings
	factory     index.Factory
	openJournal func(path string) (storage.Journal, error)
	stdout      io.Writer
	stderr      io.Writer
	monitors    []ingestion.Monitor
	baseLogger  *slog.Logger
	logger      *slog.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader) error

// WithFactory replaces the connection factory.
func WithFactory(factory index.Factory) LoaderOption {
	return func(l *Loader) error {
		if factory == nil {
			return errors.New("factory must not be nil")
		}
		l.factory = factory
		return nil
	}
}

// WithJournalOpener replaces how the journal directory is opened.
func WithJournalOpener(open func(path string) (storage.Journal, error)) LoaderOption {
	return func(l *Loader) error {
		l.openJournal = open
		return nil
	}
}

// WithOutput sets where the console report and the progress line go.
// Defaults are os.Stdout and os.Stderr.
func WithOutput(stdout, stderr io.Writer) LoaderOption {
	return func(l *Loader) error {
		l.stdout = stdout
		l.stderr = stderr
		return nil
	}
}

// WithMonitors adds monitors that observe every run.
func WithMonitors(monitors ...ingestion.Monitor) LoaderOption {
	return func(l *Loader) error {
		l.monitors = append(l.monitors, monitors...)
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) error {
		l.logger = logger
		return nil
	}
}

// NewLoader validates settings and returns a Loader.
func NewLoader(settings *config.Settings, opts ...LoaderOption) (*Loader, error) {
	if settings == nil {
		return nil, fmt.Errorf("%w: settings are nil", core.ErrConfig)
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if settings.ReportFile != "" {
		if _, err := report.FormatForPath(settings.ReportFile); err != nil {
			return nil, fmt.Errorf("%w: %w", core.ErrConfig, err)
		}
	}
	l := &Loader{
		settings:    settings,
		factory:     NewConnector(),
		openJournal: badger.NewJournal,
		stdout:      os.Stdout,
		stderr:      os.Stderr,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, err
		}
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	l.baseLogger = l.logger
	l.logger = l.logger.With("component", "loader")
	return l, nil
}

// Load ingests the records of the JSON file at path.
//
// Errors before dispatch (configuration, parse, connection) are returned
// with whatever report exists; a connection failure yields an empty report
// naming the error. Once dispatch started every record has an outcome in
// the report and the error is only set when the run was interrupted
// (core.ErrInterrupted) or its outputs could not be written.
func (l *Loader) Load(ctx context.Context, path string) (*core.Report, error) {
	records, err := source.LoadFile(path)
	if err != nil {
		return nil, err
	}

	s := l.settings
	cfg := s.IndexConfig()
	target := core.Target{Address: cfg.URL(), Credential: s.APIKey, Index: s.IndexName()}
	job, err := core.NewJob(target, s.Concurrency, s.BatchSize, records)
	if err != nil {
		return nil, err
	}
	runID := uuid.NewString()
	logger := l.logger.With("run", runID, "index", job.Index())

	var journal storage.Journal
	if s.Journal != "" {
		journal, err = l.openJournal(s.Journal)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", core.ErrConfig, err)
		}
		defer journal.Close()
	}
	fingerprints := fingerprintJob(job)

	console := report.NewConsole(l.stdout, report.WithQuiet(s.Quiet))
	client, err := l.factory.Connect(ctx, cfg)
	if err != nil {
		rep := core.ReportForConnectionFailure(job, runID, err, time.Now())
		console.Finish(rep)
		return rep, err
	}
	defer client.Close()

	opts := []ingestion.Option{
		ingestion.WithRunID(runID),
		ingestion.WithRequestTimeout(s.RequestTimeout),
		ingestion.WithLogger(l.baseLogger),
	}
	if s.Wait {
		opts = append(opts, ingestion.WithTaskWait(s.PollInterval, s.TaskTimeout))
	}
	if s.SkipSucceeded && journal != nil {
		indexed, err := journal.IndexedFingerprints(ctx, job.Index())
		if err != nil {
			return nil, fmt.Errorf("reading journal: %w", err)
		}
		logger.Info("skipping records indexed before", "known", len(indexed))
		opts = append(opts, ingestion.WithSkip(func(position int, _ core.Record) bool {
			fp, ok := fingerprints[position]
			if !ok {
				return false
			}
			_, seen := indexed[fp]
			return seen
		}))
	}

	monitors := []ingestion.Monitor{console}
	if s.Progress {
		monitors = append(monitors, ingestion.NewProgressTracker(l.stderr, max(1, job.Len()/100)))
	}
	var metrics *ingestion.Metrics
	if s.MetricsFile != "" {
		metrics = ingestion.NewMetrics()
		monitors = append(monitors, metrics)
	}
	collector := &ingestion.Collector{}
	if journal != nil {
		monitors = append(monitors, collector)
	}
	monitors = append(monitors, l.monitors...)
	opts = append(opts, ingestion.WithMonitor(monitors...))

	scheduler, err := ingestion.NewScheduler(client, opts...)
	if err != nil {
		return nil, err
	}
	rep, err := scheduler.Run(ctx, job)
	if err != nil {
		return rep, err
	}

	// Outputs are written even for an interrupted run.
	sinkCtx := context.WithoutCancel(ctx)
	var g errgroup.Group
	if s.ReportFile != "" {
		g.Go(func() error {
			return report.Export(s.ReportFile, rep)
		})
	}
	if metrics != nil {
		g.Go(func() error {
			return metrics.WriteTextfile(s.MetricsFile)
		})
	}
	if journal != nil {
		g.Go(func() error {
			return saveRun(sinkCtx, journal, rep, path, s.Backend, collector.Outcomes(), fingerprints)
		})
	}
	if err := g.Wait(); err != nil {
		logger.Error("writing run outputs failed", "err", err)
		return rep, fmt.Errorf("writing run outputs: %w", err)
	}

	if rep.Interrupted {
		return rep, core.ErrInterrupted
	}
	return rep, nil
}

// TaskStatus connects to the remote index and fetches one task.
func (l *Loader) TaskStatus(ctx context.Context, uid int64) (*index.TaskInfo, error) {
	client, err := l.factory.Connect(ctx, l.settings.IndexConfig())
	if err != nil {
		return nil, err
	}
	defer client.Close()
	return client.Task(ctx, uid)
}

func fingerprintJob(job *core.Job) map[int]core.Fingerprint {
	fps := make(map[int]core.Fingerprint, job.Len())
	for i := range job.Len() {
		fp, err := core.FingerprintRecord(job.Index(), job.Record(i))
		if err != nil {
			continue
		}
		fps[i] = fp
	}
	return fps
}

func saveRun(ctx context.Context, journal storage.Journal, rep *core.Report, path, backend string,
	outcomes []core.Outcome, fingerprints map[int]core.Fingerprint) error {
	outcomes = slices.Clone(outcomes)
	slices.SortFunc(outcomes, func(a, b core.Outcome) int { return a.Position - b.Position })

	entries := make([]*storage.Entry, 0, len(outcomes))
	for _, o := range outcomes {
		entries = append(entries, storage.EntryFromOutcome(rep.RunID, o, fingerprints[o.Position]))
	}
	return journal.SaveRun(ctx, storage.RunFromReport(rep, path, backend), entries)
}
