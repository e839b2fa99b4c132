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

// Package switchover sequences the compute, edge and health controllers to move
// the traffic of a domain away from the compute service and back.
//
// The orchestrator keeps no state between runs. Each step is a blocking call
// completed before the next one starts, and the first failing step aborts the
// run without undoing the steps before it. Runs against the same domain must
// not overlap.
package switchover

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/willgleich/gleich-tech-switch/pkg/api"
)

// Config of an orchestrator.
type Config struct {
	// Domain is the primary domain (e.g., d.example.com).
	Domain string
	// UptimeName is the display name of the uptime check. Defaults to Domain.
	UptimeName string
	// AlertName is the display name of the alert policy. Defaults to UptimeName.
	AlertName string
	// MatchPattern of the forwarding rule. Defaults to Domain + "/*".
	MatchPattern string
	// TargetURL traffic is forwarded to.
	TargetURL string
	// StatusCode of the redirect.
	StatusCode int
	// Service is the spec used by Provision.
	Service api.ServiceSpec
}

func (c *Config) uptimeName() string {
	if c.UptimeName != "" {
		return c.UptimeName
	}
	return c.Domain
}

func (c *Config) alertName() string {
	if c.AlertName != "" {
		return c.AlertName
	}
	return c.uptimeName()
}

func (c *Config) matchPattern() string {
	if c.MatchPattern != "" {
		return c.MatchPattern
	}
	return c.Domain + "/*"
}

// Orchestrator runs the switch state machine.
type Orchestrator struct {
	config      Config
	controllers Controllers

	logger *logrus.Entry
}

type stepFunc func(ctx context.Context) (string, error)

type stage struct {
	step Step
	fn   stepFunc
}

// run executes the stages in order, stopping at the first failure.
func (o *Orchestrator) run(ctx context.Context, direction Direction, payload string, stages []stage) (*Report, error) {
	report := &Report{
		RunID:     uuid.NewString(),
		Direction: direction,
		Steps:     []StepResult{},
		Started:   time.Now(),
	}

	logger := o.logger.WithFields(logrus.Fields{
		"run-id":    report.RunID,
		"direction": direction,
	})
	if payload != "" {
		logger.Infof("Run triggered with payload: %s", payload)
	}
	logger.Info("Starting run.")

	for _, s := range stages {
		stepLogger := logger.WithField("step", s.step)
		stepLogger.Info("Running step.")

		detail, err := s.fn(ctx)
		if err != nil {
			stepLogger.Errorf("Step failed: %v", err)
			report.Failed = s.step
			report.Error = err.Error()
			report.Finished = time.Now()
			return report, &StepError{Direction: direction, Step: s.step, Err: err}
		}

		stepLogger.Infof("Step done. %s", detail)
		report.Steps = append(report.Steps, StepResult{Step: s.step, Detail: detail})
	}

	report.Finished = time.Now()
	logger.Infof("Run completed in %v.", report.Finished.Sub(report.Started))
	return report, nil
}

func (o *Orchestrator) disableMonitoring(ctx context.Context) (string, error) {
	result, err := o.controllers.Health.Disable(ctx, o.config.uptimeName(), o.config.alertName())
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("deleted %d alert policies and %d uptime checks",
		result.AlertPolicies, result.UptimeChecks), nil
}

func (o *Orchestrator) enableMonitoring(ctx context.Context) (string, error) {
	policy, err := o.controllers.Health.Enable(ctx, o.config.uptimeName(), o.config.alertName())
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("created uptime check %s and alert policy %s", policy.Check.Name, policy.Alert.Name), nil
}

func (o *Orchestrator) allowPublic(ctx context.Context) (string, error) {
	return "public invoke allowed", o.controllers.Access.AllowPublic(ctx)
}

func (o *Orchestrator) disallowPublic(ctx context.Context) (string, error) {
	return "public invoke disallowed", o.controllers.Access.DisallowPublic(ctx)
}

func (o *Orchestrator) installRule(ctx context.Context) (string, error) {
	rule, err := o.controllers.Edge.Install(ctx, o.config.matchPattern(), o.config.TargetURL, o.config.StatusCode)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("installed rule %s for '%s'", rule.ID, rule.MatchPattern), nil
}

func (o *Orchestrator) removeRule(ctx context.Context) (string, error) {
	return fmt.Sprintf("removed first rule matching '%s', if any", o.config.matchPattern()),
		o.controllers.Edge.Remove(ctx, o.config.matchPattern())
}

// Switch stops monitoring the domain, allows public invoke on the service and
// forwards the domain traffic to the target URL.
func (o *Orchestrator) Switch(ctx context.Context, payload string) (*Report, error) {
	return o.run(ctx, Switch, payload, []stage{
		{StepDisableMonitoring, o.disableMonitoring},
		{StepAllowPublic, o.allowPublic},
		{StepInstallRule, o.installRule},
	})
}

// Unswitch disallows public invoke on the service, monitors the domain again
// and removes the forwarding rule.
func (o *Orchestrator) Unswitch(ctx context.Context, payload string) (*Report, error) {
	return o.run(ctx, Unswitch, payload, []stage{
		{StepDisallowPublic, o.disallowPublic},
		{StepEnableMonitoring, o.enableMonitoring},
		{StepRemoveRule, o.removeRule},
	})
}

// Provision creates the service, allows public invoke and attaches the domain.
// If the service already exists, nothing is done.
func (o *Orchestrator) Provision(ctx context.Context, payload string) (*Report, error) {
	exists, err := o.controllers.Resource.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if exists {
		o.logger.Info("Service already exists, skipping provisioning.")
		return o.run(ctx, Provision, payload, nil)
	}

	return o.run(ctx, Provision, payload, []stage{
		{StepCreateService, func(ctx context.Context) (string, error) {
			handle, err := o.controllers.Resource.Create(ctx, &o.config.Service)
			return fmt.Sprintf("created %s", handle), err
		}},
		{StepAllowPublic, o.allowPublic},
		{StepAttachDomain, func(ctx context.Context) (string, error) {
			return fmt.Sprintf("attached '%s'", o.config.Domain), o.controllers.Domain.Attach(ctx, o.config.Domain)
		}},
	})
}

// Teardown deletes the service.
func (o *Orchestrator) Teardown(ctx context.Context, payload string) (*Report, error) {
	return o.run(ctx, Teardown, payload, []stage{
		{StepDeleteService, func(ctx context.Context) (string, error) {
			return "service deleted", o.controllers.Resource.Delete(ctx)
		}},
	})
}

// Run dispatches a run of the given direction.
func (o *Orchestrator) Run(ctx context.Context, direction Direction, payload string) (*Report, error) {
	switch direction {
	case Switch:
		return o.Switch(ctx, payload)
	case Unswitch:
		return o.Unswitch(ctx, payload)
	case Provision:
		return o.Provision(ctx, payload)
	case Teardown:
		return o.Teardown(ctx, payload)
	}
	return nil, fmt.Errorf("unknown direction '%s'", direction)
}

// Status queries all systems and derives the state of the domain.
func (o *Orchestrator) Status(ctx context.Context) (*Status, error) {
	status := &Status{}

	exists, err := o.controllers.Resource.Exists(ctx)
	if err != nil {
		return nil, err
	}
	status.ServiceExists = exists

	if exists {
		if status.Public, err = o.controllers.Access.IsPublic(ctx); err != nil {
			return nil, err
		}
	}

	checks, err := o.controllers.Health.FindUptimeChecks(ctx, o.config.uptimeName())
	if err != nil {
		return nil, err
	}
	status.UptimeChecks = len(checks)

	alerts, err := o.controllers.Health.FindAlertPolicies(ctx, o.config.alertName())
	if err != nil {
		return nil, err
	}
	status.AlertPolicies = len(alerts)

	rules, err := o.controllers.Edge.Find(ctx, o.config.matchPattern())
	if err != nil {
		return nil, err
	}
	status.EdgeRules = len(rules)

	status.State = deriveState(status)
	return status, nil
}

func deriveState(s *Status) api.DomainState {
	switch {
	case s.ServiceExists && !s.Public && s.UptimeChecks > 0 && s.AlertPolicies > 0 && s.EdgeRules == 0:
		return api.DirectMonitored
	case s.ServiceExists && s.Public && s.UptimeChecks == 0 && s.AlertPolicies == 0 && s.EdgeRules > 0:
		return api.SwitchedUnmonitored
	}
	return api.Indeterminate
}

// NewOrchestrator returns a new orchestrator.
func NewOrchestrator(config Config, controllers Controllers) *Orchestrator {
	return &Orchestrator{
		config:      config,
		controllers: controllers,
		logger: logrus.WithFields(logrus.Fields{
			"component": "switchover.orchestrator",
			"domain":    config.Domain,
		}),
	}
}
