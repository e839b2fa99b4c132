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

package edge_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/willgleich/gleich-tech-switch/pkg/api"
	"github.com/willgleich/gleich-tech-switch/pkg/edge"
	"github.com/willgleich/gleich-tech-switch/pkg/providers/cloudflare"
	"github.com/willgleich/gleich-tech-switch/pkg/providers/fake"
)

const (
	account = "account"
	target  = "https://backup.example.com"
)

func newController(t *testing.T, config edge.Config) (*fake.Cloud, *edge.RouteController) {
	cloud := fake.NewCloud()
	t.Cleanup(cloud.Close)

	if config.AccountID == "" {
		config.AccountID = account
	}
	return cloud, edge.NewRouteController(cloud.CloudflareClient(), config)
}

func addRule(t *testing.T, cloud *fake.Cloud, zoneID, pattern string) string {
	rule, err := cloudflare.NewForwardingPageRule(&api.ForwardingRule{
		MatchPattern: pattern,
		TargetURL:    target,
		StatusCode:   302,
	})
	require.Nil(t, err)
	return cloud.AddPageRule(zoneID, *rule)
}

func TestZoneName(t *testing.T) {
	_, controller := newController(t, edge.Config{})

	for pattern, zone := range map[string]string{
		"d.example.com/*":          "example.com",
		"example.com":              "example.com",
		"https://a.b.example.com/": "example.com",
		"*.example.co.uk/*":        "example.co.uk",
		"d.example.com:8443/path":  "example.com",
		"*d.example.com/*":         "example.com",
	} {
		name, err := controller.ZoneName(pattern)
		require.Nil(t, err, pattern)
		require.Equal(t, zone, name, pattern)
	}

	_, err := controller.ZoneName("com")
	require.NotNil(t, err)

	_, override := newController(t, edge.Config{Zone: "override.org"})
	name, err := override.ZoneName("d.example.com/*")
	require.Nil(t, err)
	require.Equal(t, "override.org", name)
}

func TestZoneNotFound(t *testing.T) {
	cloud, controller := newController(t, edge.Config{})
	// a zone named like a suffix of the domain does not match
	cloud.AddZone(account, "ample.com")
	cloud.AddZone("other", "example.com")

	_, err := controller.Install(context.Background(), "d.example.com/*", target, 302)

	var zoneErr *api.ZoneNotFoundError
	require.ErrorAs(t, err, &zoneErr)
	require.Equal(t, "example.com", zoneErr.Zone)
	require.Equal(t, account, zoneErr.Account)
	require.Empty(t, cloud.Calls())
}

func TestInstall(t *testing.T) {
	cloud, controller := newController(t, edge.Config{Priority: 1})
	zoneID := cloud.AddZone(account, "example.com")
	ctx := context.Background()

	rule, err := controller.Install(ctx, "d.example.com/*", target, 301)
	require.Nil(t, err)
	require.NotEmpty(t, rule.ID)
	require.Equal(t, "d.example.com/*", rule.MatchPattern)
	require.Equal(t, target, rule.TargetURL)
	require.Equal(t, 301, rule.StatusCode)
	require.Equal(t, 1, rule.Priority)

	stored := cloud.PageRules(zoneID)
	require.Len(t, stored, 1)
	require.Equal(t, cloudflare.StatusActive, stored[0].Status)

	// installing twice creates a second rule
	_, err = controller.Install(ctx, "d.example.com/*", target, 301)
	require.Nil(t, err)
	require.Len(t, cloud.PageRules(zoneID), 2)

	rules, err := controller.Find(ctx, "d.example.com")
	require.Nil(t, err)
	require.Len(t, rules, 2)
}

func TestRemove(t *testing.T) {
	cloud, controller := newController(t, edge.Config{})
	zoneID := cloud.AddZone(account, "example.com")
	ctx := context.Background()

	other := addRule(t, cloud, zoneID, "e.example.com/*")
	first := addRule(t, cloud, zoneID, "d.example.com/*")
	second := addRule(t, cloud, zoneID, "d.example.com/api/*")

	// only the first matching rule is removed
	require.Nil(t, controller.Remove(ctx, "d.example.com"))
	rules := cloud.PageRules(zoneID)
	require.Len(t, rules, 2)
	require.Equal(t, other, rules[0].ID)
	require.Equal(t, second, rules[1].ID)
	require.NotEqual(t, first, rules[1].ID)

	require.Nil(t, controller.Remove(ctx, "d.example.com"))
	require.Len(t, cloud.PageRules(zoneID), 1)

	// no match is not an error
	cloud.ResetCalls()
	require.Nil(t, controller.Remove(ctx, "d.example.com"))
	require.Len(t, cloud.PageRules(zoneID), 1)
	require.Empty(t, cloud.Calls())
}

func TestRemoveMissingZone(t *testing.T) {
	_, controller := newController(t, edge.Config{})

	err := controller.Remove(context.Background(), "d.example.com")
	require.ErrorIs(t, err, api.ErrZoneNotFound)
}
