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

// Package monitoring is a client of the Cloud Monitoring API (v3), limited to
// uptime checks and alert policies.
package monitoring

import (
	"context"
	"net/url"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/willgleich/gleich-tech-switch/pkg/providers/google"
	"github.com/willgleich/gleich-tech-switch/pkg/util/jsonapi"
	"github.com/willgleich/gleich-tech-switch/pkg/util/rest"
)

const (
	// DefaultEndpoint is the Cloud Monitoring API endpoint.
	DefaultEndpoint = "https://monitoring.googleapis.com"
	// Provider names the monitoring provider in errors.
	Provider = "monitoring"
)

// Client for the Cloud Monitoring API.
type Client struct {
	rest *rest.Client

	logger *logrus.Entry
}

func pagePath(path, pageToken string) string {
	if pageToken == "" {
		return path
	}
	return path + "?pageToken=" + url.QueryEscape(pageToken)
}

// ListUptimeChecks returns all uptime checks of a project.
// An empty response means there are none.
func (c *Client) ListUptimeChecks(ctx context.Context, project string) ([]UptimeCheckConfig, error) {
	var checks []UptimeCheckConfig
	pageToken := ""
	for {
		var resp listUptimeCheckConfigsResponse
		path := pagePath("/v3/projects/"+project+"/uptimeCheckConfigs", pageToken)
		if err := c.rest.Get(ctx, "list uptime checks", path, &resp); err != nil {
			return nil, err
		}

		checks = append(checks, resp.UptimeCheckConfigs...)
		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}
	return checks, nil
}

// CreateUptimeCheck creates an uptime check in a project.
func (c *Client) CreateUptimeCheck(ctx context.Context, project string, check *UptimeCheckConfig) (*UptimeCheckConfig, error) {
	c.logger.Infof("Creating uptime check '%s'.", check.DisplayName)

	var created UptimeCheckConfig
	err := c.rest.Post(ctx, "create uptime check", "/v3/projects/"+project+"/uptimeCheckConfigs", check, &created)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// DeleteUptimeCheck deletes the uptime check with the given resource name.
func (c *Client) DeleteUptimeCheck(ctx context.Context, name string) error {
	c.logger.Infof("Deleting uptime check %s.", name)
	return c.rest.Delete(ctx, "delete uptime check", "/v3/"+name, nil)
}

// ListAlertPolicies returns all alert policies of a project.
// An empty response means there are none.
func (c *Client) ListAlertPolicies(ctx context.Context, project string) ([]AlertPolicy, error) {
	var policies []AlertPolicy
	pageToken := ""
	for {
		var resp listAlertPoliciesResponse
		path := pagePath("/v3/projects/"+project+"/alertPolicies", pageToken)
		if err := c.rest.Get(ctx, "list alert policies", path, &resp); err != nil {
			return nil, err
		}

		policies = append(policies, resp.AlertPolicies...)
		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}
	return policies, nil
}

// CreateAlertPolicy creates an alert policy in a project.
func (c *Client) CreateAlertPolicy(ctx context.Context, project string, policy *AlertPolicy) (*AlertPolicy, error) {
	c.logger.Infof("Creating alert policy '%s'.", policy.DisplayName)

	var created AlertPolicy
	err := c.rest.Post(ctx, "create alert policy", "/v3/projects/"+project+"/alertPolicies", policy, &created)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// DeleteAlertPolicy deletes the alert policy with the given resource name.
func (c *Client) DeleteAlertPolicy(ctx context.Context, name string) error {
	c.logger.Infof("Deleting alert policy %s.", name)
	return c.rest.Delete(ctx, "delete alert policy", "/v3/"+name, nil)
}

// NewClient returns a new monitoring client for the given endpoint.
func NewClient(endpoint string, source oauth2.TokenSource) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	return &Client{
		rest: rest.NewClient(&rest.Config{
			Client:      jsonapi.NewAuthorizedClient(endpoint, source),
			Provider:    Provider,
			DecodeError: google.DecodeError,
		}),
		logger: logrus.WithField("component", "providers.monitoring"),
	}
}
