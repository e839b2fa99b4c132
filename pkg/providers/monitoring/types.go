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

package monitoring

import (
	"fmt"
	"time"

	"github.com/willgleich/gleich-tech-switch/pkg/api"
	"github.com/willgleich/gleich-tech-switch/pkg/providers/google"
)

// Probe and alert parameters of the uptime checks created by the switch.
const (
	CheckPeriod     = 60 * time.Second
	CheckTimeout    = 5 * time.Second
	CheckPort       = 443
	CheckPath       = "/"
	AlertWindow     = 20 * time.Minute
	AlertDuration   = 60 * time.Second
	AlertTrigger    = 1
	CheckPassedType = "monitoring.googleapis.com/uptime_check/check_passed"
)

// UptimeCheckConfig is an uptime check configuration.
type UptimeCheckConfig struct {
	Name              string             `json:"name,omitempty"`
	DisplayName       string             `json:"displayName"`
	MonitoredResource *MonitoredResource `json:"monitoredResource,omitempty"`
	HTTPCheck         *HTTPCheck         `json:"httpCheck,omitempty"`
	Period            google.Duration    `json:"period"`
	Timeout           google.Duration    `json:"timeout"`
}

// MonitoredResource is the resource probed by an uptime check.
type MonitoredResource struct {
	Type   string            `json:"type"`
	Labels map[string]string `json:"labels,omitempty"`
}

// HTTPCheck configures an HTTP(S) probe.
type HTTPCheck struct {
	UseSSL        bool   `json:"useSsl"`
	Path          string `json:"path"`
	Port          int    `json:"port"`
	ValidateSSL   bool   `json:"validateSsl"`
	RequestMethod string `json:"requestMethod"`
}

// AlertPolicy is an alerting policy.
type AlertPolicy struct {
	Name                 string      `json:"name,omitempty"`
	DisplayName          string      `json:"displayName"`
	Combiner             string      `json:"combiner,omitempty"`
	Conditions           []Condition `json:"conditions,omitempty"`
	NotificationChannels []string    `json:"notificationChannels,omitempty"`
	Enabled              bool        `json:"enabled"`
}

// Condition of an alert policy.
type Condition struct {
	DisplayName        string           `json:"displayName"`
	ConditionThreshold *MetricThreshold `json:"conditionThreshold,omitempty"`
}

// MetricThreshold is a condition comparing a time series to a threshold.
type MetricThreshold struct {
	Filter         string          `json:"filter"`
	Comparison     string          `json:"comparison"`
	ThresholdValue float64         `json:"thresholdValue"`
	Duration       google.Duration `json:"duration"`
	Trigger        *Trigger        `json:"trigger,omitempty"`
	Aggregations   []Aggregation   `json:"aggregations,omitempty"`
}

// Trigger sets how many time series must fail for the condition to fire.
type Trigger struct {
	Count int32 `json:"count"`
}

// Aggregation aligns and reduces time series.
type Aggregation struct {
	AlignmentPeriod    google.Duration `json:"alignmentPeriod"`
	PerSeriesAligner   string          `json:"perSeriesAligner"`
	CrossSeriesReducer string          `json:"crossSeriesReducer"`
	GroupByFields      []string        `json:"groupByFields,omitempty"`
}

type listUptimeCheckConfigsResponse struct {
	UptimeCheckConfigs []UptimeCheckConfig `json:"uptimeCheckConfigs,omitempty"`
	NextPageToken      string              `json:"nextPageToken,omitempty"`
}

type listAlertPoliciesResponse struct {
	AlertPolicies []AlertPolicy `json:"alertPolicies,omitempty"`
	NextPageToken string        `json:"nextPageToken,omitempty"`
}

// CheckPassedFilter returns the time series filter selecting the results of an uptime check.
func CheckPassedFilter(checkID string) string {
	return fmt.Sprintf(`metric.type="%s" resource.type="uptime_url" metric.label."check_id"="%s"`,
		CheckPassedType, checkID)
}

// NewUptimeCheck returns an HTTPS GET uptime check probing the host.
func NewUptimeCheck(project, displayName, host string) *UptimeCheckConfig {
	return &UptimeCheckConfig{
		DisplayName: displayName,
		MonitoredResource: &MonitoredResource{
			Type:   "uptime_url",
			Labels: map[string]string{"project_id": project, "host": host},
		},
		HTTPCheck: &HTTPCheck{
			UseSSL:        true,
			Path:          CheckPath,
			Port:          CheckPort,
			ValidateSSL:   true,
			RequestMethod: "GET",
		},
		Period:  google.Duration{Duration: CheckPeriod},
		Timeout: google.Duration{Duration: CheckTimeout},
	}
}

// NewUptimeAlertPolicy returns an alert policy firing when the uptime check with
// the given id fails, notifying the given channels.
func NewUptimeAlertPolicy(displayName, host, checkID string, channels []string) *AlertPolicy {
	return &AlertPolicy{
		DisplayName: displayName,
		Combiner:    "OR",
		Conditions: []Condition{{
			DisplayName: "Uptime Health Check on " + host,
			ConditionThreshold: &MetricThreshold{
				Filter:         CheckPassedFilter(checkID),
				Comparison:     "COMPARISON_GT",
				ThresholdValue: 1,
				Duration:       google.Duration{Duration: AlertDuration},
				Trigger:        &Trigger{Count: AlertTrigger},
				Aggregations: []Aggregation{{
					AlignmentPeriod:    google.Duration{Duration: AlertWindow},
					PerSeriesAligner:   "ALIGN_NEXT_OLDER",
					CrossSeriesReducer: "REDUCE_COUNT_FALSE",
					GroupByFields:      []string{"resource.*"},
				}},
			},
		}},
		NotificationChannels: channels,
		Enabled:              true,
	}
}

// UptimeCheck converts the configuration to its summary.
func (c *UptimeCheckConfig) UptimeCheck() api.UptimeCheck {
	check := api.UptimeCheck{
		Name:        c.Name,
		DisplayName: c.DisplayName,
		Period:      c.Period.Duration,
		Timeout:     c.Timeout.Duration,
	}
	if c.MonitoredResource != nil {
		check.Host = c.MonitoredResource.Labels["host"]
	}
	return check
}

// AlertPolicy converts the policy to its summary.
func (p *AlertPolicy) AlertPolicy() api.AlertPolicy {
	return api.AlertPolicy{
		Name:                 p.Name,
		DisplayName:          p.DisplayName,
		NotificationChannels: p.NotificationChannels,
	}
}
