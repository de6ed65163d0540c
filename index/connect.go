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

package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/poiesic/docloader/core"
)

// Constructor builds an unconnected client for one backend.
type Constructor func(cfg *Config, logger *slog.Logger) (Client, error)

// Connector is the Factory used by jobs. It validates the configuration,
// builds the backend's client and probes it before handing it out.
type Connector struct {
	constructors map[Backend]Constructor
	logger       *slog.Logger
}

// NewConnector returns a Connector that knows the given backends.
func NewConnector(constructors map[Backend]Constructor) *Connector {
	return &Connector{
		constructors: maps.Clone(constructors),
		logger:       slog.Default().With("component", "connector"),
	}
}

// Backends lists the registered backends in sorted order.
func (c *Connector) Backends() []Backend {
	return slices.Sorted(maps.Keys(c.constructors))
}

// Connect validates cfg, builds the client and probes it with retries.
// Configuration problems wrap core.ErrConfig; an unreachable service or a
// rejected credential wraps core.ErrConnection. A failed probe closes the
// client before returning.
func (c *Connector) Connect(ctx context.Context, cfg *Config) (Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: index config is nil", core.ErrConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	construct, ok := c.constructors[cfg.Backend]
	if !ok {
		return nil, fmt.Errorf("%w: %w %q", core.ErrConfig, ErrUnknownBackend, cfg.Backend)
	}

	logger := c.logger.With("backend", string(cfg.Backend), "address", cfg.URL())
	client, err := construct(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrConfig, err)
	}

	err = RetryWithBackoff(ctx, func() error {
		probeCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
		defer cancel()
		err := client.Ping(probeCtx)
		if errors.Is(err, ErrCredentialRejected) {
			return Permanent(err)
		}
		return err
	}, cfg.ConnectAttempts, cfg.ConnectBackoff)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %s: %w", core.ErrConnection, cfg.URL(), err)
	}

	logger.Debug("connected to remote index")
	return client, nil
}
