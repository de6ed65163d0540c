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

package meili_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/poiesic/docloader/core"
	"github.com/poiesic/docloader/index"
	"github.com/poiesic/docloader/index/meili"
	"github.com/poiesic/docloader/ingestion"
)

const masterKey = "docloader-integration-key"

// startMeilisearch runs a Meilisearch container for the duration of the test.
func startMeilisearch(t *testing.T) *index.Config {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	t.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "getmeili/meilisearch:v1.11",
			ExposedPorts: []string{"7700/tcp"},
			Env: map[string]string{
				"MEILI_MASTER_KEY":   masterKey,
				"MEILI_NO_ANALYTICS": "true",
			},
			WaitingFor: wait.ForHTTP("/health").WithPort("7700/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("unable to start Meilisearch container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	// Workaround: testcontainers may return "null" as host in some environments
	if host == "" || host == "null" {
		host = "localhost"
	}
	port, err := container.MappedPort(ctx, "7700")
	require.NoError(t, err)

	return index.NewConfig(
		index.WithHost(fmt.Sprintf("http://%s:%s", host, port.Port())),
		index.WithAPIKey(masterKey),
		index.WithRequestTimeout(10*time.Second),
	)
}

func TestIntegration_LoadAndWait(t *testing.T) {
	cfg := startMeilisearch(t)
	ctx := context.Background()

	connector := index.NewConnector(map[index.Backend]index.Constructor{
		index.BackendMeilisearch: meili.Constructor,
	})
	client, err := connector.Connect(ctx, cfg)
	require.NoError(t, err)
	defer client.Close()

	records := make([]core.Record, 0, 20)
	for i := range 20 {
		records = append(records, core.Record{"id": fmt.Sprint(i + 1), "title": fmt.Sprintf("movie %d", i+1)})
	}
	records = append(records, core.Record{"id": "not a valid id!", "title": "broken"})

	job, err := core.NewJob(core.Target{Address: cfg.URL(), Index: "movies"}, 4, 5, records)
	require.NoError(t, err)
	scheduler, err := ingestion.NewScheduler(client, ingestion.WithTaskWait(100*time.Millisecond, 30*time.Second))
	require.NoError(t, err)

	rep, err := scheduler.Run(ctx, job)
	require.NoError(t, err)
	assert.Equal(t, 21, rep.Total)
	assert.Equal(t, rep.Total, rep.Succeeded+rep.Failed)
	// the invalid id fails the whole batch it was submitted with
	assert.Equal(t, 1, rep.Failed)
	require.Len(t, rep.Failures, 1)
	assert.Equal(t, core.CauseTaskFailed, rep.Failures[0].Cause.Kind)
	assert.Equal(t, "invalid_document_id", rep.Failures[0].Cause.Code)
}

func TestIntegration_WrongKey(t *testing.T) {
	cfg := startMeilisearch(t)
	cfg.APIKey = "wrong"
	cfg.ConnectAttempts = 1

	connector := index.NewConnector(map[index.Backend]index.Constructor{
		index.BackendMeilisearch: meili.Constructor,
	})
	_, err := connector.Connect(context.Background(), cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrConnection)
	assert.ErrorIs(t, err, index.ErrCredentialRejected)
}
