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

// Package edge installs and removes forwarding rules on the edge network.
// Rules are found by their match pattern; no rule id is retained.
package edge

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/publicsuffix"

	"github.com/willgleich/gleich-tech-switch/pkg/api"
	"github.com/willgleich/gleich-tech-switch/pkg/providers/cloudflare"
)

// Client is the edge API used by the controller.
type Client interface {
	ListZones(ctx context.Context, accountID string) ([]cloudflare.Zone, error)
	ListPageRules(ctx context.Context, zoneID string) ([]cloudflare.PageRule, error)
	CreatePageRule(ctx context.Context, zoneID string, rule *cloudflare.PageRule) (*cloudflare.PageRule, error)
	DeletePageRule(ctx context.Context, zoneID, ruleID string) error
}

// Config of a route controller.
type Config struct {
	// AccountID owning the zones. Empty lists all zones visible to the token.
	AccountID string
	// Zone name. If empty, it is derived from the registrable domain of the pattern.
	Zone string
	// Priority of installed rules.
	Priority int
}

// RouteController manages forwarding rules of a single account.
type RouteController struct {
	client Client
	config Config

	logger *logrus.Entry
}

// ZoneName returns the name of the zone owning the domain pattern.
func (c *RouteController) ZoneName(domainPattern string) (string, error) {
	if c.config.Zone != "" {
		return c.config.Zone, nil
	}

	host := domainPattern
	if i := strings.Index(host, "://"); i >= 0 {
		host = host[i+3:]
	}
	if i := strings.IndexAny(host, "/:"); i >= 0 {
		host = host[:i]
	}
	host = strings.TrimLeft(host, "*.")

	zone, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return "", fmt.Errorf("unable to derive zone of '%s': %w", domainPattern, err)
	}
	return zone, nil
}

// Zone resolves the zone owning the domain pattern, matching zone names exactly.
func (c *RouteController) Zone(ctx context.Context, domainPattern string) (api.Zone, error) {
	name, err := c.ZoneName(domainPattern)
	if err != nil {
		return api.Zone{}, err
	}

	zones, err := c.client.ListZones(ctx, c.config.AccountID)
	if err != nil {
		return api.Zone{}, fmt.Errorf("unable to list zones: %w", err)
	}

	for _, zone := range zones {
		if zone.Name == name {
			return api.Zone{ID: zone.ID, Name: zone.Name}, nil
		}
	}

	return api.Zone{}, &api.ZoneNotFoundError{Zone: name, Account: c.config.AccountID}
}

// Install creates a rule forwarding requests matching domainPattern to targetURL.
// Existing rules are not checked: installing twice creates two rules.
func (c *RouteController) Install(ctx context.Context, domainPattern, targetURL string, statusCode int) (*api.ForwardingRule, error) {
	zone, err := c.Zone(ctx, domainPattern)
	if err != nil {
		return nil, err
	}

	rule, err := cloudflare.NewForwardingPageRule(&api.ForwardingRule{
		MatchPattern: domainPattern,
		TargetURL:    targetURL,
		StatusCode:   statusCode,
		Priority:     c.config.Priority,
	})
	if err != nil {
		return nil, err
	}

	created, err := c.client.CreatePageRule(ctx, zone.ID, rule)
	if err != nil {
		return nil, fmt.Errorf("unable to install forwarding rule: %w", err)
	}

	forwarding := created.ForwardingRule()
	c.logger.Infof("Installed rule %s forwarding '%s' to '%s' (%d).",
		forwarding.ID, domainPattern, targetURL, statusCode)
	return &forwarding, nil
}

// Find returns the rules of the owning zone whose pattern starts with domainPattern,
// in the order listed by the provider.
func (c *RouteController) Find(ctx context.Context, domainPattern string) ([]api.ForwardingRule, error) {
	_, rules, err := c.find(ctx, domainPattern)
	return rules, err
}

func (c *RouteController) find(ctx context.Context, domainPattern string) (api.Zone, []api.ForwardingRule, error) {
	zone, err := c.Zone(ctx, domainPattern)
	if err != nil {
		return api.Zone{}, nil, err
	}

	pageRules, err := c.client.ListPageRules(ctx, zone.ID)
	if err != nil {
		return api.Zone{}, nil, fmt.Errorf("unable to list forwarding rules: %w", err)
	}

	var rules []api.ForwardingRule
	for i := range pageRules {
		rule := pageRules[i].ForwardingRule()
		if rule.Matches(domainPattern) {
			rules = append(rules, rule)
		}
	}
	return zone, rules, nil
}

// Remove deletes the first rule whose pattern starts with domainPattern.
// If no rule matches, nothing is deleted and no error is returned.
func (c *RouteController) Remove(ctx context.Context, domainPattern string) error {
	zone, rules, err := c.find(ctx, domainPattern)
	if err != nil {
		return err
	}

	if len(rules) == 0 {
		c.logger.Infof("No forwarding rule matches '%s', nothing to remove.", domainPattern)
		return nil
	}

	first := rules[0]
	if err := c.client.DeletePageRule(ctx, zone.ID, first.ID); err != nil {
		return fmt.Errorf("unable to remove forwarding rule %s: %w", first.ID, err)
	}

	c.logger.Infof("Removed rule %s ('%s').", first.ID, first.MatchPattern)
	return nil
}

// NewRouteController returns a new route controller.
func NewRouteController(client Client, config Config) *RouteController {
	return &RouteController{
		client: client,
		config: config,
		logger: logrus.WithField("component", "edge.controller"),
	}
}
