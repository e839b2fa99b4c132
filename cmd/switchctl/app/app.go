// Copyright (c) The gleich-tech-switch Authors.
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

// Package app wires the provider clients, controllers and orchestrator of a
// single configuration.
package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/willgleich/gleich-tech-switch/pkg/compute"
	"github.com/willgleich/gleich-tech-switch/pkg/config"
	"github.com/willgleich/gleich-tech-switch/pkg/edge"
	"github.com/willgleich/gleich-tech-switch/pkg/health"
	"github.com/willgleich/gleich-tech-switch/pkg/providers/cloudflare"
	"github.com/willgleich/gleich-tech-switch/pkg/providers/google"
	"github.com/willgleich/gleich-tech-switch/pkg/providers/monitoring"
	"github.com/willgleich/gleich-tech-switch/pkg/providers/run"
	"github.com/willgleich/gleich-tech-switch/pkg/providers/secretmanager"
	"github.com/willgleich/gleich-tech-switch/pkg/switchover"
)

// App holds the clients and controllers built from one configuration.
// Clients are created once and shared by all controllers.
type App struct {
	Config *config.Config

	Resource     *compute.GuardedResource
	Access       *compute.AccessPolicyController
	Domain       *compute.DomainBinding
	Edge         *edge.RouteController
	Health       *health.MonitorController
	Orchestrator *switchover.Orchestrator
}

// TokenSource returns the Google API token source selected by the credentials.
func TokenSource(cfg *config.Config) (oauth2.TokenSource, error) {
	switch {
	case cfg.Credentials.Token != "":
		return google.NewStaticTokenSource(cfg.Credentials.Token), nil
	case cfg.Credentials.KeyFile != "":
		key, err := google.ReadServiceAccountKey(cfg.Credentials.KeyFile)
		if err != nil {
			return nil, err
		}
		return google.NewServiceAccountTokenSource(key, google.CloudPlatformScope)
	}
	return google.NewMetadataTokenSource(google.CloudPlatformScope), nil
}

// SecretGetter reads secrets.
type SecretGetter interface {
	GetSecret(ctx context.Context, project, secret string) (string, error)
}

// lazyEdgeClient fetches the edge API token on first use, so flows not
// touching the edge do not require it. A failed fetch is retried on next use.
type lazyEdgeClient struct {
	lock    sync.Mutex
	client  *cloudflare.Client
	connect func(ctx context.Context) (*cloudflare.Client, error)
}

func (c *lazyEdgeClient) get(ctx context.Context) (*cloudflare.Client, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.client == nil {
		client, err := c.connect(ctx)
		if err != nil {
			return nil, err
		}
		c.client = client
	}
	return c.client, nil
}

func (c *lazyEdgeClient) ListZones(ctx context.Context, accountID string) ([]cloudflare.Zone, error) {
	client, err := c.get(ctx)
	if err != nil {
		return nil, err
	}
	return client.ListZones(ctx, accountID)
}

func (c *lazyEdgeClient) ListPageRules(ctx context.Context, zoneID string) ([]cloudflare.PageRule, error) {
	client, err := c.get(ctx)
	if err != nil {
		return nil, err
	}
	return client.ListPageRules(ctx, zoneID)
}

func (c *lazyEdgeClient) CreatePageRule(ctx context.Context, zoneID string, rule *cloudflare.PageRule) (*cloudflare.PageRule, error) {
	client, err := c.get(ctx)
	if err != nil {
		return nil, err
	}
	return client.CreatePageRule(ctx, zoneID, rule)
}

func (c *lazyEdgeClient) DeletePageRule(ctx context.Context, zoneID, ruleID string) error {
	client, err := c.get(ctx)
	if err != nil {
		return err
	}
	return client.DeletePageRule(ctx, zoneID, ruleID)
}

// newEdgeClient returns an edge client authorized with the configured token,
// or with the token read from the secret provider.
func newEdgeClient(cfg *config.Config, secrets SecretGetter) edge.Client {
	logger := logrus.WithField("component", "app")
	return &lazyEdgeClient{
		connect: func(ctx context.Context) (*cloudflare.Client, error) {
			token := cfg.Edge.Token
			if token == "" {
				logger.Infof("Fetching edge API token from secret '%s'.", cfg.Edge.TokenSecret)

				var err error
				token, err = secrets.GetSecret(ctx, cfg.Project, cfg.Edge.TokenSecret)
				if err != nil {
					return nil, err
				}
			}
			return cloudflare.NewClient(cfg.Endpoints.Cloudflare, token), nil
		},
	}
}

// New builds the clients and controllers of the configuration.
func New(cfg *config.Config) (*App, error) {
	source, err := TokenSource(cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to load credentials: %w", err)
	}

	runClient := run.NewClient(cfg.Endpoints.Run, source)
	monitoringClient := monitoring.NewClient(cfg.Endpoints.Monitoring, source)
	secretClient := secretmanager.NewClient(cfg.Endpoints.SecretManager, source)

	resource := compute.NewGuardedResource(cfg.Handle(), runClient)
	a := &App{
		Config:   cfg,
		Resource: resource,
		Access:   compute.NewAccessPolicyController(resource),
		Domain:   compute.NewDomainBinding(resource),
		Edge:     edge.NewRouteController(newEdgeClient(cfg, secretClient), cfg.EdgeConfig()),
		Health:   health.NewMonitorController(monitoringClient, cfg.HealthConfig()),
	}

	a.Orchestrator = switchover.NewOrchestrator(cfg.SwitchConfig(), switchover.Controllers{
		Resource: a.Resource,
		Access:   a.Access,
		Domain:   a.Domain,
		Edge:     a.Edge,
		Health:   a.Health,
	})

	return a, nil
}

// Load reads the configuration file and builds the app.
func Load(path string) (*App, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return New(cfg)
}
