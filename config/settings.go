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

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/poiesic/docloader/core"
	"github.com/poiesic/docloader/index"
)

// Settings is the complete configuration of one docloader invocation.
type Settings struct {
	Backend         string        `yaml:"backend"`
	URL             string        `yaml:"url"`
	Port            int           `yaml:"port"`
	APIKey          string        `yaml:"apiKey"`
	Index           string        `yaml:"index"`
	Concurrency     int           `yaml:"concurrency"`
	BatchSize       int           `yaml:"batchSize"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"`
	MaxRetries      int           `yaml:"maxRetries"`
	ConnectAttempts int           `yaml:"connectAttempts"`

	// Wait makes every submission poll its remote task until it is terminal.
	Wait         bool          `yaml:"wait"`
	PollInterval time.Duration `yaml:"pollInterval"`
	TaskTimeout  time.Duration `yaml:"taskTimeout"`

	// Journal is the directory of the run journal. Empty disables it.
	Journal       string `yaml:"journal"`
	SkipSucceeded bool   `yaml:"skipSucceeded"`

	ReportFile  string `yaml:"reportFile"`
	MetricsFile string `yaml:"metricsFile"`
	Progress    bool   `yaml:"progress"`
	Quiet       bool   `yaml:"quiet"`

	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig controls log level and the optional JSON log file.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Default returns settings for a local Meilisearch instance.
func Default() *Settings {
	return &Settings{
		Backend:         string(index.BackendMeilisearch),
		URL:             "localhost",
		Port:            7700,
		Concurrency:     8,
		BatchSize:       1,
		RequestTimeout:  30 * time.Second,
		MaxRetries:      2,
		ConnectAttempts: 3,
		PollInterval:    250 * time.Millisecond,
		TaskTimeout:     2 * time.Minute,
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load returns the defaults overlaid with the YAML file at path.
// An empty path returns the defaults.
func Load(path string) (*Settings, error) {
	s := Default()
	if path == "" {
		return s, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading config file %s: %w", core.ErrConfig, path, err)
	}
	if err := s.decode(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("%w: parsing config file %s: %w", core.ErrConfig, path, err)
	}
	return s, nil
}

func (s *Settings) decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(s); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate checks the settings. Every error wraps core.ErrConfig.
func (s *Settings) Validate() error {
	if err := s.IndexConfig().Validate(); err != nil {
		return err
	}
	if s.Index != "" {
		if err := core.ValidateIndexName(s.Index); err != nil {
			return fmt.Errorf("%w: %w", core.ErrConfig, err)
		}
	}
	if s.Concurrency < 1 {
		return fmt.Errorf("%w: concurrency must be at least 1, got %d", core.ErrConfig, s.Concurrency)
	}
	if s.BatchSize < 1 {
		return fmt.Errorf("%w: batch size must be at least 1, got %d", core.ErrConfig, s.BatchSize)
	}
	if s.Wait && (s.PollInterval <= 0 || s.TaskTimeout <= 0) {
		return fmt.Errorf("%w: poll interval and task timeout must be positive", core.ErrConfig)
	}
	if s.SkipSucceeded && s.Journal == "" {
		return fmt.Errorf("%w: skipping succeeded records requires a journal", core.ErrConfig)
	}
	if _, err := ParseLevel(s.Logging.Level); err != nil {
		return fmt.Errorf("%w: %w", core.ErrConfig, err)
	}
	return nil
}

// IndexConfig returns the connection settings for the remote index.
func (s *Settings) IndexConfig() *index.Config {
	return index.NewConfig(
		index.WithBackend(index.Backend(s.Backend)),
		index.WithHost(s.URL),
		index.WithPort(s.Port),
		index.WithAPIKey(s.APIKey),
		index.WithRequestTimeout(s.RequestTimeout),
		index.WithMaxRetries(s.MaxRetries),
		index.WithConnectAttempts(s.ConnectAttempts),
	)
}

// IndexName returns the configured index, generating a fresh docs-<hex>
// name when none is set. The generated name is stored so later calls agree.
func (s *Settings) IndexName() string {
	if s.Index == "" {
		s.Index = GenerateIndexName()
	}
	return s.Index
}

// GenerateIndexName returns a random index name of the form docs-<8 hex>.
func GenerateIndexName() string {
	return "docs-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
