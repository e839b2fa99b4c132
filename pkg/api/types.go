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

package api

// The API package defines the object model shared by the switch controllers.
// Every object described here is owned and persisted by an external provider:
// a compute service and its access policy live in the compute provider, a
// forwarding rule lives in the edge provider, and an uptime check with its
// alert policy live in the monitoring provider. The switch holds none of them
// between invocations; each run re-reads them from the provider.

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

const (
	// InvokerRole is the role granting permission to invoke a compute service.
	InvokerRole = "roles/run.invoker"
	// AllUsers is the principal representing anyone, authenticated or not.
	AllUsers = "allUsers"
)

// RemoteServiceHandle identifies a compute service within a project and region.
// The handle is immutable: its fields can only be set by NewRemoteServiceHandle.
type RemoteServiceHandle struct {
	name    string
	project string
	region  string
}

// NewRemoteServiceHandle returns a handle for the named service.
func NewRemoteServiceHandle(name, project, region string) RemoteServiceHandle {
	return RemoteServiceHandle{name: name, project: project, region: region}
}

// Name of the service.
func (h RemoteServiceHandle) Name() string {
	return h.name
}

// Project owning the service.
func (h RemoteServiceHandle) Project() string {
	return h.project
}

// Region hosting the service.
func (h RemoteServiceHandle) Region() string {
	return h.region
}

// Parent returns the collection path of services in the handle project and region.
func (h RemoteServiceHandle) Parent() string {
	return fmt.Sprintf("projects/%s/locations/%s", h.project, h.region)
}

// ResourceName returns the fully qualified resource name of the service.
func (h RemoteServiceHandle) ResourceName() string {
	return h.Parent() + "/services/" + h.name
}

func (h RemoteServiceHandle) String() string {
	return h.ResourceName()
}

// ServiceSpec is the desired configuration of a compute service at creation time.
// Traffic is always routed 100% to the latest revision.
type ServiceSpec struct {
	// Image is the container image reference.
	Image string `json:"image"`
	// Concurrency is the maximum number of concurrent requests per instance.
	Concurrency int64 `json:"concurrency"`
	// Timeout is the request timeout.
	Timeout time.Duration `json:"timeout"`
	// CPU limit of the container (e.g., 1000m).
	CPU string `json:"cpu"`
	// Memory limit of the container (e.g., 256Mi).
	Memory string `json:"memory"`
	// Port the container listens on.
	Port int32 `json:"port"`
	// MaxScale is the maximal number of autoscaled instances.
	MaxScale int `json:"maxScale"`
}

// Binding grants a role to a list of principals.
type Binding struct {
	// Role granted.
	Role string `json:"role"`
	// Members are the principals the role is granted to.
	Members []string `json:"members"`
}

// PublicInvokeBinding returns the binding granting invoke permission to anyone.
func PublicInvokeBinding() Binding {
	return Binding{Role: InvokerRole, Members: []string{AllUsers}}
}

// IsPublicOnly returns true if the principal set of the binding is exactly {allUsers}.
func (b Binding) IsPublicOnly() bool {
	if len(b.Members) == 0 {
		return false
	}
	for _, member := range b.Members {
		if member != AllUsers {
			return false
		}
	}
	return true
}

// AccessPolicy is a set of role bindings attached to a compute service.
type AccessPolicy struct {
	// Version of the policy schema.
	Version int `json:"version,omitempty"`
	// Bindings of the policy.
	Bindings []Binding `json:"bindings,omitempty"`
	// Etag is used by the provider for optimistic concurrency control.
	Etag string `json:"etag,omitempty"`
}

// HasPublicInvoke returns true if anyone may invoke the service.
func (p *AccessPolicy) HasPublicInvoke() bool {
	if p == nil {
		return false
	}
	for _, b := range p.Bindings {
		if b.Role == InvokerRole && slices.Contains(b.Members, AllUsers) {
			return true
		}
	}
	return false
}

// WithoutPublicOnly returns a copy of the policy without bindings whose
// principal set is exactly {allUsers}.
func (p *AccessPolicy) WithoutPublicOnly() *AccessPolicy {
	filtered := &AccessPolicy{Version: p.Version, Etag: p.Etag}
	for _, b := range p.Bindings {
		if !b.IsPublicOnly() {
			filtered.Bindings = append(filtered.Bindings, b)
		}
	}
	return filtered
}

// Zone is an edge-routing zone (a registered domain on the edge network).
type Zone struct {
	// ID of the zone assigned by the provider.
	ID string `json:"id"`
	// Name is the domain name of the zone.
	Name string `json:"name"`
}

// ForwardingRule redirects requests matching a pattern to a different URL.
// The switch does not retain rule identifiers; rules are found by pattern.
type ForwardingRule struct {
	// ID of the rule assigned by the provider. Empty before creation.
	ID string `json:"id,omitempty"`
	// MatchPattern is the request URL pattern (e.g., d.example.com/*).
	MatchPattern string `json:"matchPattern"`
	// TargetURL requests are forwarded to.
	TargetURL string `json:"targetURL"`
	// StatusCode of the redirect response (301 or 302).
	StatusCode int `json:"statusCode"`
	// Priority of the rule among the zone rules.
	Priority int `json:"priority"`
}

// Matches returns true if the rule pattern starts with the given domain pattern.
func (r *ForwardingRule) Matches(domainPattern string) bool {
	return strings.HasPrefix(r.MatchPattern, domainPattern)
}

// UptimeCheck is a periodic HTTPS probe against a monitored host.
type UptimeCheck struct {
	// Name is the provider resource name. Empty before creation.
	Name string `json:"name,omitempty"`
	// DisplayName is the only key correlating the check across calls.
	DisplayName string `json:"displayName"`
	// Host being probed.
	Host string `json:"host"`
	// Period between probes.
	Period time.Duration `json:"period"`
	// Timeout of a single probe.
	Timeout time.Duration `json:"timeout"`
}

// ID returns the last segment of the check resource name.
func (c *UptimeCheck) ID() string {
	return c.Name[strings.LastIndex(c.Name, "/")+1:]
}

// AlertPolicy fires notifications when an uptime check fails.
type AlertPolicy struct {
	// Name is the provider resource name. Empty before creation.
	Name string `json:"name,omitempty"`
	// DisplayName correlates the policy across calls.
	DisplayName string `json:"displayName"`
	// NotificationChannels notified when the policy fires.
	NotificationChannels []string `json:"notificationChannels,omitempty"`
}

// HealthCheckPolicy is an uptime check together with the alert policy watching it.
type HealthCheckPolicy struct {
	// Check is the uptime check.
	Check UptimeCheck `json:"check"`
	// Alert is the alert policy referencing the check.
	Alert AlertPolicy `json:"alert"`
}

// DomainState is the state of the managed domain, derived from live queries.
type DomainState string

const (
	// DirectMonitored means traffic is served directly and the domain is monitored.
	DirectMonitored DomainState = "DIRECT_MONITORED"
	// SwitchedUnmonitored means traffic is forwarded away and monitoring is off.
	SwitchedUnmonitored DomainState = "SWITCHED_UNMONITORED"
	// Indeterminate means the observed systems disagree (e.g., a partial run).
	Indeterminate DomainState = "INDETERMINATE"
)
