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

package app_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/willgleich/gleich-tech-switch/cmd/switchctl/app"
	"github.com/willgleich/gleich-tech-switch/pkg/api"
	"github.com/willgleich/gleich-tech-switch/pkg/config"
	"github.com/willgleich/gleich-tech-switch/pkg/providers/fake"
	"github.com/willgleich/gleich-tech-switch/pkg/switchover"
)

func newConfig(t *testing.T, cloud *fake.Cloud) *config.Config {
	cfg := &config.Config{
		Project: "project",
		Region:  "us-central1",
		Domain:  "d.example.com",
		Service: config.Service{Name: "web", Image: "gcr.io/project/web:1"},
		Edge: config.Edge{
			AccountID: "account",
			TargetURL: "https://backup.example.com",
		},
		Credentials: config.Credentials{Token: fake.Token},
		Endpoints: config.Endpoints{
			Run:           cloud.RunURL(),
			Monitoring:    cloud.MonitoringURL(),
			Cloudflare:    cloud.CloudflareURL(),
			SecretManager: cloud.SecretManagerURL(),
		},
	}
	cfg.SetDefaults()
	require.Nil(t, cfg.Validate())
	return cfg
}

func TestSwitchWithSecretToken(t *testing.T) {
	cloud := fake.NewCloud()
	defer cloud.Close()

	cloud.AddService("projects/project/locations/us-central1", "web")
	zoneID := cloud.AddZone("account", "example.com")
	cloud.AddSecret("project", config.DefaultTokenSecret, "edge-token")

	a, err := app.New(newConfig(t, cloud))
	require.Nil(t, err)

	_, err = a.Orchestrator.Run(context.Background(), switchover.Switch, "")
	require.Nil(t, err)
	require.Len(t, cloud.PageRules(zoneID), 1)
}

func TestMissingEdgeToken(t *testing.T) {
	cloud := fake.NewCloud()
	defer cloud.Close()

	cloud.AddService("projects/project/locations/us-central1", "web")
	cloud.AddZone("account", "example.com")

	a, err := app.New(newConfig(t, cloud))
	require.Nil(t, err)

	// flows not touching the edge do not need the token
	_, err = a.Health.Enable(context.Background(), "d.example.com", "")
	require.Nil(t, err)

	report, err := a.Orchestrator.Run(context.Background(), switchover.Switch, "")
	require.ErrorIs(t, err, api.ErrCredentialUnavailable)
	require.Equal(t, switchover.StepInstallRule, report.Failed)
}

func TestTokenSource(t *testing.T) {
	cfg := &config.Config{Credentials: config.Credentials{Token: "static"}}
	source, err := app.TokenSource(cfg)
	require.Nil(t, err)
	token, err := source.Token()
	require.Nil(t, err)
	require.Equal(t, "static", token.AccessToken)

	cfg.Credentials = config.Credentials{KeyFile: "missing.json"}
	_, err = app.TokenSource(cfg)
	require.NotNil(t, err)

	cfg.Credentials = config.Credentials{}
	source, err = app.TokenSource(cfg)
	require.Nil(t, err)
	require.NotNil(t, source)
}

func TestEdgeTokenFetchRetried(t *testing.T) {
	cloud := fake.NewCloud()
	defer cloud.Close()
	cloud.AddZone("account", "example.com")

	a, err := app.New(newConfig(t, cloud))
	require.Nil(t, err)

	_, err = a.Edge.Find(context.Background(), "d.example.com")
	require.ErrorIs(t, err, api.ErrCredentialUnavailable)

	cloud.AddSecret("project", config.DefaultTokenSecret, "edge-token")
	rules, err := a.Edge.Find(context.Background(), "d.example.com")
	require.Nil(t, err)
	require.Empty(t, rules)
}
