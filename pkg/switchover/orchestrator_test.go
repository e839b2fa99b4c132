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

package switchover_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/willgleich/gleich-tech-switch/pkg/api"
	"github.com/willgleich/gleich-tech-switch/pkg/compute"
	"github.com/willgleich/gleich-tech-switch/pkg/edge"
	"github.com/willgleich/gleich-tech-switch/pkg/health"
	"github.com/willgleich/gleich-tech-switch/pkg/providers/fake"
	"github.com/willgleich/gleich-tech-switch/pkg/providers/monitoring"
	"github.com/willgleich/gleich-tech-switch/pkg/switchover"
)

const (
	domain  = "d.example.com"
	project = "project"
	account = "account"
	target  = "https://backup.example.com"
)

var handle = api.NewRemoteServiceHandle("web", project, "us-central1")

type fixture struct {
	cloud        *fake.Cloud
	zoneID       string
	orchestrator *switchover.Orchestrator
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithPattern(t, "")
}

func newFixtureWithPattern(t *testing.T, matchPattern string) *fixture {
	cloud := fake.NewCloud()
	t.Cleanup(cloud.Close)

	resource := compute.NewGuardedResource(handle, cloud.RunClient())
	controllers := switchover.Controllers{
		Resource: resource,
		Access:   compute.NewAccessPolicyController(resource),
		Domain:   compute.NewDomainBinding(resource),
		Edge: edge.NewRouteController(cloud.CloudflareClient(), edge.Config{
			AccountID: account,
			Priority:  1,
		}),
		Health: health.NewMonitorController(cloud.MonitoringClient(), health.Config{
			Project: project,
			Host:    domain,
		}),
	}

	return &fixture{
		cloud:  cloud,
		zoneID: cloud.AddZone(account, "example.com"),
		orchestrator: switchover.NewOrchestrator(switchover.Config{
			Domain:       domain,
			MatchPattern: matchPattern,
			TargetURL:    target,
			StatusCode:   302,
			Service:      api.ServiceSpec{Image: "gcr.io/project/web:1", CPU: "1000m", Memory: "256Mi"},
		}, controllers),
	}
}

// directMonitored sets up a served and monitored domain.
func (f *fixture) directMonitored(t *testing.T) {
	f.cloud.AddService(handle.Parent(), handle.Name())
	checkName := f.cloud.AddUptimeCheck(project, *monitoring.NewUptimeCheck(project, domain, domain))
	f.cloud.AddAlertPolicy(project, *monitoring.NewUptimeAlertPolicy(domain, domain,
		(&api.UptimeCheck{Name: checkName}).ID(), nil))

	status, err := f.orchestrator.Status(context.Background())
	require.Nil(t, err)
	require.Equal(t, api.DirectMonitored, status.State)
}

func (f *fixture) checksNamed(name string) int {
	n := 0
	for _, check := range f.cloud.UptimeChecks() {
		if check.DisplayName == name {
			n++
		}
	}
	return n
}

func TestSwitchUnswitch(t *testing.T) {
	f := newFixture(t)
	f.directMonitored(t)
	ctx := context.Background()

	report, err := f.orchestrator.Run(ctx, switchover.Switch, `{"incident":"1"}`)
	require.Nil(t, err)
	require.NotEmpty(t, report.RunID)
	require.Empty(t, report.Failed)
	require.Equal(t, []switchover.Step{
		switchover.StepDisableMonitoring,
		switchover.StepAllowPublic,
		switchover.StepInstallRule,
	}, steps(report))

	require.Zero(t, f.checksNamed(domain))
	require.Empty(t, f.cloud.AlertPolicies())
	policy := f.cloud.Policy(handle.ResourceName())
	require.True(t, policy.HasPublicInvoke())
	rules := f.cloud.PageRules(f.zoneID)
	require.Len(t, rules, 1)
	require.Equal(t, domain+"/*", rules[0].Pattern())
	require.Equal(t, target, rules[0].ForwardingRule().TargetURL)

	status, err := f.orchestrator.Status(ctx)
	require.Nil(t, err)
	require.Equal(t, api.SwitchedUnmonitored, status.State)

	report, err = f.orchestrator.Run(ctx, switchover.Unswitch, "")
	require.Nil(t, err)
	require.Equal(t, []switchover.Step{
		switchover.StepDisallowPublic,
		switchover.StepEnableMonitoring,
		switchover.StepRemoveRule,
	}, steps(report))

	policy = f.cloud.Policy(handle.ResourceName())
	require.False(t, policy.HasPublicInvoke())
	require.Equal(t, 1, f.checksNamed(domain))
	require.Len(t, f.cloud.AlertPolicies(), 1)
	require.Empty(t, f.cloud.PageRules(f.zoneID))

	status, err = f.orchestrator.Status(ctx)
	require.Nil(t, err)
	require.Equal(t, &switchover.Status{
		ServiceExists: true,
		UptimeChecks:  1,
		AlertPolicies: 1,
		State:         api.DirectMonitored,
	}, status)
}

func TestSwitchUnswitchConfiguredPattern(t *testing.T) {
	pattern := "*d.example.com/*"
	f := newFixtureWithPattern(t, pattern)
	f.directMonitored(t)
	ctx := context.Background()

	_, err := f.orchestrator.Run(ctx, switchover.Switch, "")
	require.Nil(t, err)
	rules := f.cloud.PageRules(f.zoneID)
	require.Len(t, rules, 1)
	require.Equal(t, pattern, rules[0].Pattern())

	status, err := f.orchestrator.Status(ctx)
	require.Nil(t, err)
	require.Equal(t, 1, status.EdgeRules)
	require.Equal(t, api.SwitchedUnmonitored, status.State)

	_, err = f.orchestrator.Run(ctx, switchover.Unswitch, "")
	require.Nil(t, err)
	require.Empty(t, f.cloud.PageRules(f.zoneID))

	status, err = f.orchestrator.Status(ctx)
	require.Nil(t, err)
	require.Equal(t, api.DirectMonitored, status.State)
}

func TestSwitchAbortsAtFailedStep(t *testing.T) {
	f := newFixture(t)
	f.directMonitored(t)
	f.cloud.Fail(fake.Run, http.MethodPost, ":setIamPolicy", http.StatusForbidden)

	report, err := f.orchestrator.Run(context.Background(), switchover.Switch, "")

	var stepErr *switchover.StepError
	require.ErrorAs(t, err, &stepErr)
	require.Equal(t, switchover.Switch, stepErr.Direction)
	require.Equal(t, switchover.StepAllowPublic, stepErr.Step)
	require.ErrorIs(t, err, api.ErrRemoteCallFailed)

	require.Equal(t, switchover.StepAllowPublic, report.Failed)
	require.NotEmpty(t, report.Error)
	require.Equal(t, []switchover.Step{switchover.StepDisableMonitoring}, steps(report))

	// completed steps are not undone and later steps do not run
	require.Zero(t, f.checksNamed(domain))
	require.Empty(t, f.cloud.PageRules(f.zoneID))

	status, err := f.orchestrator.Status(context.Background())
	require.Nil(t, err)
	require.Equal(t, api.Indeterminate, status.State)
}

func TestSwitchMissingService(t *testing.T) {
	f := newFixture(t)

	_, err := f.orchestrator.Switch(context.Background(), "")
	require.ErrorIs(t, err, api.ErrPreconditionFailed)
	require.Empty(t, f.cloud.CallsTo(fake.Run))
	require.Empty(t, f.cloud.CallsTo(fake.Cloudflare))
}

func TestUnswitchWithoutRule(t *testing.T) {
	f := newFixture(t)
	f.cloud.AddService(handle.Parent(), handle.Name())

	_, err := f.orchestrator.Unswitch(context.Background(), "")
	require.Nil(t, err)
	require.Empty(t, f.cloud.CallsTo(fake.Cloudflare))
}

func TestProvisionTeardown(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	report, err := f.orchestrator.Run(ctx, switchover.Provision, "")
	require.Nil(t, err)
	require.Equal(t, []switchover.Step{
		switchover.StepCreateService,
		switchover.StepAllowPublic,
		switchover.StepAttachDomain,
	}, steps(report))

	require.True(t, f.cloud.HasService(handle.ResourceName()))
	provisioned := f.cloud.Policy(handle.ResourceName())
	require.True(t, provisioned.HasPublicInvoke())
	_, ok := f.cloud.DomainMapping(handle.Parent(), domain)
	require.True(t, ok)

	// provisioning an existing service does nothing
	f.cloud.ResetCalls()
	report, err = f.orchestrator.Run(ctx, switchover.Provision, "")
	require.Nil(t, err)
	require.Empty(t, report.Steps)
	require.Empty(t, f.cloud.Calls())

	report, err = f.orchestrator.Run(ctx, switchover.Teardown, "")
	require.Nil(t, err)
	require.Equal(t, []switchover.Step{switchover.StepDeleteService}, steps(report))
	require.False(t, f.cloud.HasService(handle.ResourceName()))

	_, err = f.orchestrator.Run(ctx, switchover.Teardown, "")
	require.ErrorIs(t, err, api.ErrPreconditionFailed)
}

func TestUnknownDirection(t *testing.T) {
	f := newFixture(t)

	_, err := f.orchestrator.Run(context.Background(), switchover.Direction("sideways"), "")
	require.NotNil(t, err)

	var stepErr *switchover.StepError
	require.False(t, errors.As(err, &stepErr))
}

func TestStatusWithoutService(t *testing.T) {
	f := newFixture(t)

	status, err := f.orchestrator.Status(context.Background())
	require.Nil(t, err)
	require.False(t, status.ServiceExists)
	require.Equal(t, api.Indeterminate, status.State)
}

func steps(report *switchover.Report) []switchover.Step {
	result := []switchover.Step{}
	for _, s := range report.Steps {
		result = append(result, s.Step)
	}
	return result
}
