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

// Package elastic implements index.Client on top of the Elasticsearch bulk API.
//
// Elasticsearch applies bulk writes synchronously, so AddDocuments returns a
// terminal TaskInfo and Task is unsupported. Per-document failures inside a
// bulk answer are reported as *index.PartialError.
package elastic

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	jsoniter "github.com/json-iterator/go"

	"github.com/poiesic/docloader/core"
	"github.com/poiesic/docloader/index"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Client submits documents to one Elasticsearch cluster.
type Client struct {
	es        *elasticsearch.Client
	transport *http.Transport
	logger    *slog.Logger
}

type bulkIndexMeta struct {
	Index bulkIndexMetaDetail `json:"index"`
}

type bulkIndexMetaDetail struct {
	ID string `json:"_id"`
}

type bulkResponse struct {
	Took   int                           `json:"took"`
	Errors bool                          `json:"errors"`
	Items  []map[string]bulkResponseItem `json:"items"`
}

type bulkResponseItem struct {
	ID     string      `json:"_id"`
	Status int         `json:"status"`
	Error  *errorCause `json:"error"`
}

type errorCause struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

type errorResponse struct {
	Error  *errorCause `json:"error"`
	Status int         `json:"status"`
}

// New builds a client from cfg. It does not contact the cluster.
func New(cfg *index.Config, logger *slog.Logger) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("elastic: config is nil")
	}
	if logger == nil {
		logger = slog.Default().With("component", "elastic")
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = cfg.RequestTimeout

	waitMin := cfg.RetryWaitMin
	if waitMin <= 0 {
		waitMin = 100 * time.Millisecond
	}
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:     []string{cfg.URL()},
		APIKey:        cfg.APIKey,
		MaxRetries:    cfg.MaxRetries,
		DisableRetry:  cfg.MaxRetries == 0,
		RetryOnStatus: []int{http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout},
		RetryBackoff: func(attempt int) time.Duration {
			d := waitMin << (attempt - 1)
			if cfg.RetryWaitMax > 0 && d > cfg.RetryWaitMax {
				d = cfg.RetryWaitMax
			}
			return d
		},
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("elastic: %w", err)
	}
	return &Client{es: es, transport: transport, logger: logger}, nil
}

// Constructor adapts New to index.Constructor.
func Constructor(cfg *index.Config, logger *slog.Logger) (index.Client, error) {
	return New(cfg, logger)
}

// AddDocuments indexes docs with one bulk request, using primaryKey as _id.
func (c *Client) AddDocuments(ctx context.Context, indexName string, docs []core.Record, primaryKey string) (*index.TaskInfo, error) {
	buf := bytes.NewBuffer(make([]byte, 0, 256*len(docs)))
	for _, doc := range docs {
		id, err := doc.ID()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", core.ErrSerialization, err)
		}
		if primaryKey != "" && primaryKey != core.PrimaryKey {
			id = core.RecordID(fmt.Sprint(doc[primaryKey]))
		}
		meta, err := json.Marshal(bulkIndexMeta{Index: bulkIndexMetaDetail{ID: string(id)}})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", core.ErrSerialization, err)
		}
		source, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", core.ErrSerialization, err)
		}
		buf.Write(meta)
		buf.WriteByte('\n')
		buf.Write(source)
		buf.WriteByte('\n')
	}

	enqueued := time.Now()
	res, err := esapi.BulkRequest{Index: indexName, Body: buf}.Do(ctx, c.es)
	if err != nil {
		return nil, fmt.Errorf("bulk request: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, decodeError(res)
	}

	var r bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("decode bulk response: %w", err)
	}
	info := &index.TaskInfo{
		UID:        -1,
		IndexUID:   indexName,
		Status:     index.TaskSucceeded,
		Type:       "bulk",
		EnqueuedAt: enqueued,
		FinishedAt: time.Now(),
	}
	if !r.Errors {
		return info, nil
	}

	partial := &index.PartialError{Failed: make(map[int]*index.RemoteError)}
	for i, item := range r.Items {
		result, ok := item["index"]
		if !ok || result.Error == nil {
			continue
		}
		partial.Failed[i] = &index.RemoteError{
			StatusCode: result.Status,
			Code:       result.Error.Type,
			Type:       result.Error.Type,
			Message:    result.Error.Reason,
		}
	}
	c.logger.Warn("bulk request had failures", "index", indexName, "failed", len(partial.Failed), "docs", len(docs))
	return info, partial
}

// Task is not supported: bulk writes are applied synchronously.
func (c *Client) Task(ctx context.Context, uid int64) (*index.TaskInfo, error) {
	return nil, index.ErrTasksUnsupported
}

// Ping calls the cluster info endpoint.
func (c *Client) Ping(ctx context.Context) error {
	res, err := esapi.InfoRequest{}.Do(ctx, c.es)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		err := decodeError(res)
		if res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden {
			return fmt.Errorf("%w: %w", index.ErrCredentialRejected, err)
		}
		return err
	}
	return nil
}

// Close drops idle connections.
func (c *Client) Close() error {
	c.transport.CloseIdleConnections()
	return nil
}

func decodeError(res *esapi.Response) *index.RemoteError {
	data, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
	var e errorResponse
	if err := json.Unmarshal(data, &e); err == nil && e.Error != nil {
		return &index.RemoteError{
			StatusCode: res.StatusCode,
			Code:       e.Error.Type,
			Type:       e.Error.Type,
			Message:    e.Error.Reason,
		}
	}
	msg := string(bytes.TrimSpace(data))
	if msg == "" {
		msg = http.StatusText(res.StatusCode)
	}
	return &index.RemoteError{StatusCode: res.StatusCode, Message: msg}
}
