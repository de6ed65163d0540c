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

package elastic

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/docloader/core"
	"github.com/poiesic/docloader/index"
)

// newCluster serves a minimal Elasticsearch API. Documents whose _id is
// "reject" fail with a mapper_parsing_exception.
func newCluster(t *testing.T, apiKey string) (*httptest.Server, *[]string) {
	var indexed []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		if apiKey != "" && !strings.EqualFold(r.Header.Get("Authorization"), "ApiKey "+apiKey) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":{"type":"security_exception","reason":"unable to authenticate"},"status":401}`))
			return
		}
		switch {
		case r.URL.Path == "/":
			w.Write([]byte(`{"name":"node-1","cluster_name":"test","version":{"number":"8.15.0"},"tagline":"You Know, for Search"}`))
		case strings.HasSuffix(r.URL.Path, "/_bulk"):
			var items []string
			hasErrors := false
			scanner := bufio.NewScanner(r.Body)
			for scanner.Scan() {
				var action map[string]map[string]string
				if err := json.Unmarshal(scanner.Bytes(), &action); err != nil || !scanner.Scan() {
					w.WriteHeader(http.StatusBadRequest)
					w.Write([]byte(`{"error":{"type":"parse_exception","reason":"malformed bulk body"},"status":400}`))
					return
				}
				id := action["index"]["_id"]
				if id == "reject" {
					hasErrors = true
					items = append(items, `{"index":{"_id":"reject","status":400,"error":{"type":"mapper_parsing_exception","reason":"failed to parse field [year]"}}}`)
					continue
				}
				indexed = append(indexed, id)
				items = append(items, `{"index":{"_id":"`+id+`","status":201}}`)
			}
			if hasErrors {
				w.Write([]byte(`{"took":3,"errors":true,"items":[` + strings.Join(items, ",") + `]}`))
				return
			}
			w.Write([]byte(`{"took":3,"errors":false,"items":[` + strings.Join(items, ",") + `]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":{"type":"resource_not_found_exception","reason":"no handler"},"status":404}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &indexed
}

func newTestClient(t *testing.T, srv *httptest.Server, key string) *Client {
	cfg := index.NewConfig(
		index.WithBackend(index.BackendElasticsearch),
		index.WithHost(srv.URL),
		index.WithAPIKey(key),
		index.WithMaxRetries(0),
		index.WithRequestTimeout(5*time.Second),
	)
	require.NoError(t, cfg.Validate())
	c, err := New(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestClient_AddDocuments(t *testing.T) {
	srv, indexed := newCluster(t, "")
	c := newTestClient(t, srv, "")

	info, err := c.AddDocuments(context.Background(), "movies", []core.Record{
		{"id": 1, "title": "Carol"},
		{"id": "two", "title": "Wonder Woman"},
	}, "id")
	require.NoError(t, err)
	assert.True(t, info.Status.Terminal())
	assert.Equal(t, "", info.Reference(), "bulk writes carry no task reference")
	assert.Equal(t, []string{"1", "two"}, *indexed)
}

func TestClient_AddDocuments_Partial(t *testing.T) {
	srv, indexed := newCluster(t, "")
	c := newTestClient(t, srv, "")

	_, err := c.AddDocuments(context.Background(), "movies", []core.Record{
		{"id": 1},
		{"id": "reject"},
		{"id": 3},
	}, "id")
	var partial *index.PartialError
	require.ErrorAs(t, err, &partial)
	require.Len(t, partial.Failed, 1)
	assert.Equal(t, "mapper_parsing_exception", partial.Failed[1].Code)
	assert.Equal(t, 400, partial.Failed[1].StatusCode)
	assert.Equal(t, []string{"1", "3"}, *indexed)
}

func TestClient_AddDocuments_Serialization(t *testing.T) {
	srv, _ := newCluster(t, "")
	c := newTestClient(t, srv, "")

	_, err := c.AddDocuments(context.Background(), "movies", []core.Record{{"id": 1, "ch": make(chan int)}}, "id")
	assert.ErrorIs(t, err, core.ErrSerialization)
}

func TestClient_Ping(t *testing.T) {
	t.Run("accepted key", func(t *testing.T) {
		srv, _ := newCluster(t, "c2VjcmV0")
		c := newTestClient(t, srv, "c2VjcmV0")
		assert.NoError(t, c.Ping(context.Background()))
	})

	t.Run("rejected key", func(t *testing.T) {
		srv, _ := newCluster(t, "c2VjcmV0")
		c := newTestClient(t, srv, "wrong")
		err := c.Ping(context.Background())
		assert.ErrorIs(t, err, index.ErrCredentialRejected)
		var re *index.RemoteError
		require.ErrorAs(t, err, &re)
		assert.Equal(t, "security_exception", re.Code)
	})
}

func TestClient_Task(t *testing.T) {
	srv, _ := newCluster(t, "")
	c := newTestClient(t, srv, "")
	_, err := c.Task(context.Background(), 1)
	assert.ErrorIs(t, err, index.ErrTasksUnsupported)
}
