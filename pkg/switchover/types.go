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

package switchover

import (
	"context"
	"fmt"
	"time"

	"github.com/willgleich/gleich-tech-switch/pkg/api"
	"github.com/willgleich/gleich-tech-switch/pkg/health"
)

// Direction of a run.
type Direction string

const (
	// Switch forwards traffic away from the compute service.
	Switch Direction = "switch"
	// Unswitch restores direct serving and monitoring.
	Unswitch Direction = "unswitch"
	// Provision creates and exposes the compute service.
	Provision Direction = "provision"
	// Teardown deletes the compute service.
	Teardown Direction = "teardown"
)

// Step of a run.
type Step string

const (
	StepDisableMonitoring Step = "disable-monitoring"
	StepAllowPublic       Step = "allow-public"
	StepInstallRule       Step = "install-edge-rule"
	StepDisallowPublic    Step = "disallow-public"
	StepEnableMonitoring  Step = "enable-monitoring"
	StepRemoveRule        Step = "remove-edge-rule"
	StepCreateService     Step = "create-service"
	StepAttachDomain      Step = "attach-domain"
	StepDeleteService     Step = "delete-service"
)

// StepError is returned when a step fails. Steps completed before it are not undone.
type StepError struct {
	Direction Direction
	Step      Step
	Err       error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s aborted at step %s: %v", e.Direction, e.Step, e.Err)
}

// Unwrap returns the step failure.
func (e *StepError) Unwrap() error {
	return e.Err
}

// StepResult describes a completed step.
type StepResult struct {
	Step   Step   `json:"step"`
	Detail string `json:"detail,omitempty"`
}

// Report of a run.
type Report struct {
	RunID     string       `json:"runID"`
	Direction Direction    `json:"direction"`
	Steps     []StepResult `json:"steps"`
	Failed    Step         `json:"failed,omitempty"`
	Error     string       `json:"error,omitempty"`
	Started   time.Time    `json:"started"`
	Finished  time.Time    `json:"finished"`
}

// Status is the observed state of the managed domain.
type Status struct {
	ServiceExists bool            `json:"serviceExists"`
	Public        bool            `json:"public"`
	UptimeChecks  int             `json:"uptimeChecks"`
	AlertPolicies int             `json:"alertPolicies"`
	EdgeRules     int             `json:"edgeRules"`
	State         api.DomainState `json:"state"`
}

// Resource is the guarded compute service.
type Resource interface {
	Exists(ctx context.Context) (bool, error)
	Create(ctx context.Context, spec *api.ServiceSpec) (api.RemoteServiceHandle, error)
	Delete(ctx context.Context) error
}

// AccessController toggles public invoke permission.
type AccessController interface {
	AllowPublic(ctx context.Context) error
	DisallowPublic(ctx context.Context) error
	IsPublic(ctx context.Context) (bool, error)
}

// DomainAttacher attaches custom domains.
type DomainAttacher interface {
	Attach(ctx context.Context, domain string) error
}

// RouteController manages forwarding rules.
type RouteController interface {
	Install(ctx context.Context, domainPattern, targetURL string, statusCode int) (*api.ForwardingRule, error)
	Remove(ctx context.Context, domainPattern string) error
	Find(ctx context.Context, domainPattern string) ([]api.ForwardingRule, error)
}

// HealthController manages health check policies.
type HealthController interface {
	Enable(ctx context.Context, uptimeName, alertName string) (*api.HealthCheckPolicy, error)
	Disable(ctx context.Context, uptimeName, alertName string) (*health.DisableResult, error)
	FindUptimeChecks(ctx context.Context, displayName string) ([]api.UptimeCheck, error)
	FindAlertPolicies(ctx context.Context, displayName string) ([]api.AlertPolicy, error)
}

// Controllers used by an orchestrator. All are required.
type Controllers struct {
	Resource Resource
	Access   AccessController
	Domain   DomainAttacher
	Edge     RouteController
	Health   HealthController
}
