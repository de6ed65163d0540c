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
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/docloader/core"
	"github.com/poiesic/docloader/index"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefault(t *testing.T) {
	s := Default()
	require.NoError(t, s.Validate())
	assert.Equal(t, "localhost", s.URL)
	assert.Equal(t, 7700, s.Port)
	assert.Equal(t, 8, s.Concurrency)
	assert.Equal(t, 1, s.BatchSize)
	assert.Equal(t, 30*time.Second, s.RequestTimeout)
	assert.Equal(t, "http://localhost:7700", s.IndexConfig().URL())
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "docloader.yaml", `
backend: elasticsearch
url: https://search.example.com
apiKey: secret
index: movies
concurrency: 4
requestTimeout: 5s
wait: true
logging:
  level: debug
`)

	s, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, s.Validate())

	assert.Equal(t, "elasticsearch", s.Backend)
	assert.Equal(t, "movies", s.Index)
	assert.Equal(t, 4, s.Concurrency)
	assert.Equal(t, 5*time.Second, s.RequestTimeout)
	assert.True(t, s.Wait)
	assert.Equal(t, "debug", s.Logging.Level)
	// untouched keys keep their defaults
	assert.Equal(t, 1, s.BatchSize)
	assert.Equal(t, 2*time.Minute, s.TaskTimeout)

	cfg := s.IndexConfig()
	assert.Equal(t, index.BackendElasticsearch, cfg.Backend)
	assert.Equal(t, "https://search.example.com", cfg.URL())
	assert.Equal(t, "secret", cfg.APIKey)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, core.ErrConfig)

	_, err = Load(writeFile(t, "bad.yaml", "concurrency: [1, 2"))
	assert.ErrorIs(t, err, core.ErrConfig)

	_, err = Load(writeFile(t, "unknown.yaml", "concurency: 4\n"))
	assert.ErrorIs(t, err, core.ErrConfig)
}

func TestLoad_EmptyFile(t *testing.T) {
	s, err := Load(writeFile(t, "empty.yaml", ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), s)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"zero concurrency", func(s *Settings) { s.Concurrency = 0 }},
		{"zero batch size", func(s *Settings) { s.BatchSize = 0 }},
		{"bad index", func(s *Settings) { s.Index = "my index" }},
		{"unknown backend", func(s *Settings) { s.Backend = "solr" }},
		{"bad port", func(s *Settings) { s.Port = 70000 }},
		{"wait without timeout", func(s *Settings) { s.Wait = true; s.TaskTimeout = 0 }},
		{"skip without journal", func(s *Settings) { s.SkipSucceeded = true }},
		{"bad log level", func(s *Settings) { s.Logging.Level = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Default()
			tt.mutate(s)
			assert.ErrorIs(t, s.Validate(), core.ErrConfig)
		})
	}
}

func TestIndexName(t *testing.T) {
	s := Default()
	name := s.IndexName()
	assert.Regexp(t, regexp.MustCompile(`^docs-[0-9a-f]{8}$`), name)
	assert.Equal(t, name, s.IndexName())
	require.NoError(t, core.ValidateIndexName(name))

	s.Index = "movies"
	assert.Equal(t, "movies", s.IndexName())
	assert.NotEqual(t, GenerateIndexName(), GenerateIndexName())
}

func TestLoadEnvFile(t *testing.T) {
	path := writeFile(t, "test.env", "DOCLOADER_TEST_URL=from-file\nDOCLOADER_TEST_PORT=7701\n")
	t.Setenv("DOCLOADER_TEST_PORT", "9999")
	t.Cleanup(func() { os.Unsetenv("DOCLOADER_TEST_URL") })

	loaded, err := LoadEnvFile(path, true)
	require.NoError(t, err)
	assert.True(t, loaded)
	assert.Equal(t, "from-file", os.Getenv("DOCLOADER_TEST_URL"))
	// existing variables win over the file
	assert.Equal(t, "9999", os.Getenv("DOCLOADER_TEST_PORT"))
}

func TestLoadEnvFile_Missing(t *testing.T) {
	missing := filepath.Join(t.TempDir(), ".env")

	loaded, err := LoadEnvFile(missing, false)
	require.NoError(t, err)
	assert.False(t, loaded)

	_, err = LoadEnvFile(missing, true)
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	for name, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"":      slog.LevelInfo,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := ParseLevel(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestSetupLoggerWithWriters(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelInfo)

	logger.Debug("hidden")
	logger.Info("run finished", "succeeded", 3)

	assert.Contains(t, stderr.String(), "msg=\"run finished\"")
	assert.NotContains(t, stderr.String(), "hidden")
	assert.True(t, strings.HasPrefix(file.String(), "{"))
	assert.Contains(t, file.String(), `"succeeded":3`)
}

func TestSetupLogger_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docloader.log")
	logger, cleanup := SetupLogger(path, slog.LevelInfo)
	logger.Info("hello")
	require.NoError(t, cleanup())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
}
