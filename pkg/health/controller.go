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

// Package health manages the uptime check and alert policy watching the
// primary domain. Both are correlated by display name only, which the
// monitoring provider does not keep unique.
package health

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/willgleich/gleich-tech-switch/pkg/api"
	"github.com/willgleich/gleich-tech-switch/pkg/providers/monitoring"
)

// Client is the monitoring API used by the controller.
type Client interface {
	ListUptimeChecks(ctx context.Context, project string) ([]monitoring.UptimeCheckConfig, error)
	CreateUptimeCheck(ctx context.Context, project string, check *monitoring.UptimeCheckConfig) (*monitoring.UptimeCheckConfig, error)
	DeleteUptimeCheck(ctx context.Context, name string) error
	ListAlertPolicies(ctx context.Context, project string) ([]monitoring.AlertPolicy, error)
	CreateAlertPolicy(ctx context.Context, project string, policy *monitoring.AlertPolicy) (*monitoring.AlertPolicy, error)
	DeleteAlertPolicy(ctx context.Context, name string) error
}

// Config of a monitor controller.
type Config struct {
	// Project owning the checks and policies.
	Project string
	// Host probed by the uptime check.
	Host string
	// NotificationChannels notified by the alert policy.
	NotificationChannels []string
}

// DisableResult counts the objects deleted by Disable.
type DisableResult struct {
	AlertPolicies int `json:"alertPolicies"`
	UptimeChecks  int `json:"uptimeChecks"`
}

// MonitorController creates and removes health check policies.
type MonitorController struct {
	client Client
	config Config

	logger *logrus.Entry
}

// Enable creates an uptime check named uptimeName, then an alert policy named
// alertName watching it. An empty alertName defaults to uptimeName.
// If the alert policy cannot be created, the uptime check is left in place.
func (c *MonitorController) Enable(ctx context.Context, uptimeName, alertName string) (*api.HealthCheckPolicy, error) {
	if alertName == "" {
		alertName = uptimeName
	}

	check, err := c.client.CreateUptimeCheck(ctx, c.config.Project,
		monitoring.NewUptimeCheck(c.config.Project, uptimeName, c.config.Host))
	if err != nil {
		return nil, fmt.Errorf("unable to create uptime check '%s': %w", uptimeName, err)
	}

	uptime := check.UptimeCheck()
	c.logger.Infof("Created uptime check %s.", uptime.Name)

	policy, err := c.client.CreateAlertPolicy(ctx, c.config.Project,
		monitoring.NewUptimeAlertPolicy(alertName, c.config.Host, uptime.ID(), c.config.NotificationChannels))
	if err != nil {
		return nil, fmt.Errorf("unable to create alert policy '%s' for check %s: %w", alertName, uptime.ID(), err)
	}

	alert := policy.AlertPolicy()
	c.logger.Infof("Created alert policy %s.", alert.Name)

	return &api.HealthCheckPolicy{Check: uptime, Alert: alert}, nil
}

// Disable deletes every alert policy named alertName, then every uptime check
// named uptimeName. An empty alertName defaults to uptimeName.
// Finding no match is not an error.
func (c *MonitorController) Disable(ctx context.Context, uptimeName, alertName string) (*DisableResult, error) {
	if alertName == "" {
		alertName = uptimeName
	}

	result := &DisableResult{}

	alerts, err := c.FindAlertPolicies(ctx, alertName)
	if err != nil {
		return result, err
	}
	for _, alert := range alerts {
		if err := c.client.DeleteAlertPolicy(ctx, alert.Name); err != nil {
			return result, fmt.Errorf("unable to delete alert policy %s: %w", alert.Name, err)
		}
		c.logger.Infof("Deleted alert policy %s.", alert.Name)
		result.AlertPolicies++
	}

	checks, err := c.FindUptimeChecks(ctx, uptimeName)
	if err != nil {
		return result, err
	}
	for _, check := range checks {
		if err := c.client.DeleteUptimeCheck(ctx, check.Name); err != nil {
			return result, fmt.Errorf("unable to delete uptime check %s: %w", check.Name, err)
		}
		c.logger.Infof("Deleted uptime check %s.", check.Name)
		result.UptimeChecks++
	}

	return result, nil
}

// FindUptimeChecks returns all uptime checks named displayName, in listing order.
func (c *MonitorController) FindUptimeChecks(ctx context.Context, displayName string) ([]api.UptimeCheck, error) {
	configs, err := c.client.ListUptimeChecks(ctx, c.config.Project)
	if err != nil {
		return nil, fmt.Errorf("unable to list uptime checks: %w", err)
	}

	var checks []api.UptimeCheck
	for i := range configs {
		if configs[i].DisplayName == displayName {
			checks = append(checks, configs[i].UptimeCheck())
		}
	}
	return checks, nil
}

// FindAlertPolicies returns all alert policies named displayName, in listing order.
func (c *MonitorController) FindAlertPolicies(ctx context.Context, displayName string) ([]api.AlertPolicy, error) {
	policies, err := c.client.ListAlertPolicies(ctx, c.config.Project)
	if err != nil {
		return nil, fmt.Errorf("unable to list alert policies: %w", err)
	}

	var alerts []api.AlertPolicy
	for i := range policies {
		if policies[i].DisplayName == displayName {
			alerts = append(alerts, policies[i].AlertPolicy())
		}
	}
	return alerts, nil
}

// NewMonitorController returns a new monitor controller.
func NewMonitorController(client Client, config Config) *MonitorController {
	return &MonitorController{
		client: client,
		config: config,
		logger: logrus.WithField("component", "health.controller"),
	}
}
