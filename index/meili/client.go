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

package meili

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/hashicorp/go-retryablehttp"
	jsoniter "github.com/json-iterator/go"

	"github.com/poiesic/docloader/core"
	"github.com/poiesic/docloader/index"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// maxErrorBody caps how much of an unexpected answer is kept for messages.
const maxErrorBody = 4 << 10

// Client talks to one Meilisearch instance.
type Client struct {
	baseURL string
	apiKey  string
	http    *retryablehttp.Client
	logger  *slog.Logger
}

// New builds a client from cfg. It does not contact the server.
func New(cfg *index.Config, logger *slog.Logger) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("meili: config is nil")
	}
	if logger == nil {
		logger = slog.Default().With("component", "meili")
	}
	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.MaxRetries
	if cfg.RetryWaitMin > 0 {
		rc.RetryWaitMin = cfg.RetryWaitMin
	}
	if cfg.RetryWaitMax > 0 {
		rc.RetryWaitMax = cfg.RetryWaitMax
	}
	rc.HTTPClient.Timeout = cfg.RequestTimeout
	rc.Logger = logger
	// Keep the final response so its error payload can be decoded.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Client{
		baseURL: cfg.URL(),
		apiKey:  cfg.APIKey,
		http:    rc,
		logger:  logger,
	}, nil
}

// Constructor adapts New to index.Constructor.
func Constructor(cfg *index.Config, logger *slog.Logger) (index.Client, error) {
	return New(cfg, logger)
}

// AddDocuments enqueues a documentAdditionOrUpdate task.
func (c *Client) AddDocuments(ctx context.Context, indexName string, docs []core.Record, primaryKey string) (*index.TaskInfo, error) {
	body, err := json.Marshal(docs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrSerialization, err)
	}
	endpoint := fmt.Sprintf("%s/indexes/%s/documents", c.baseURL, url.PathEscape(indexName))
	if primaryKey != "" {
		endpoint += "?primaryKey=" + url.QueryEscape(primaryKey)
	}

	var summary taskSummary
	if err := c.do(ctx, http.MethodPost, endpoint, body, &summary); err != nil {
		return nil, err
	}
	return summary.info(), nil
}

// Task reads the state of a task.
func (c *Client) Task(ctx context.Context, uid int64) (*index.TaskInfo, error) {
	var t task
	endpoint := c.baseURL + "/tasks/" + strconv.FormatInt(uid, 10)
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &t); err != nil {
		return nil, err
	}
	return t.info(), nil
}

// Ping checks /health, then /version to validate the credential.
func (c *Client) Ping(ctx context.Context) error {
	var h health
	if err := c.do(ctx, http.MethodGet, c.baseURL+"/health", nil, &h); err != nil {
		return err
	}
	if h.Status != "available" {
		return fmt.Errorf("%w: health status %q", index.ErrUnavailable, h.Status)
	}
	var version map[string]any
	if err := c.do(ctx, http.MethodGet, c.baseURL+"/version", nil, &version); err != nil {
		var re *index.RemoteError
		if errors.As(err, &re) && (re.StatusCode == http.StatusUnauthorized || re.StatusCode == http.StatusForbidden) {
			return fmt.Errorf("%w: %w", index.ErrCredentialRejected, re)
		}
		return err
	}
	c.logger.Debug("meilisearch is available", "version", version["pkgVersion"])
	return nil
}

// Close drops idle connections.
func (c *Client) Close() error {
	c.http.HTTPClient.CloseIdleConnections()
	return nil
}

// do sends one request and decodes a 2xx body into out. Non-2xx answers
// become *index.RemoteError.
func (c *Client) do(ctx context.Context, method, endpoint string, body []byte, out any) error {
	var raw any
	if body != nil {
		raw = body
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, endpoint, raw)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s answer: %w", method, endpoint, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var p errorPayload
	if err := json.Unmarshal(data, &p); err != nil || p.Message == "" {
		p = errorPayload{Message: string(bytes.TrimSpace(data))}
		if p.Message == "" {
			p.Message = http.StatusText(resp.StatusCode)
		}
	}
	return p.remote(resp.StatusCode)
}
