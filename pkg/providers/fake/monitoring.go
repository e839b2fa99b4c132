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

package fake

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi"
	"github.com/google/uuid"

	"github.com/willgleich/gleich-tech-switch/pkg/providers/monitoring"
)

type monitoringState struct {
	checks []monitoring.UptimeCheckConfig
	alerts []monitoring.AlertPolicy
}

func newMonitoringState() *monitoringState {
	return &monitoringState{}
}

// AddUptimeCheck stores an uptime check and returns its resource name.
func (c *Cloud) AddUptimeCheck(project string, check monitoring.UptimeCheckConfig) string {
	c.lock.Lock()
	defer c.lock.Unlock()
	check.Name = fmt.Sprintf("projects/%s/uptimeCheckConfigs/%s", project, uuid.NewString())
	c.monitoring.checks = append(c.monitoring.checks, check)
	return check.Name
}

// AddAlertPolicy stores an alert policy and returns its resource name.
func (c *Cloud) AddAlertPolicy(project string, policy monitoring.AlertPolicy) string {
	c.lock.Lock()
	defer c.lock.Unlock()
	policy.Name = fmt.Sprintf("projects/%s/alertPolicies/%s", project, uuid.NewString())
	c.monitoring.alerts = append(c.monitoring.alerts, policy)
	return policy.Name
}

// UptimeChecks returns the stored uptime checks.
func (c *Cloud) UptimeChecks() []monitoring.UptimeCheckConfig {
	c.lock.Lock()
	defer c.lock.Unlock()
	return append([]monitoring.UptimeCheckConfig(nil), c.monitoring.checks...)
}

// AlertPolicies returns the stored alert policies.
func (c *Cloud) AlertPolicies() []monitoring.AlertPolicy {
	c.lock.Lock()
	defer c.lock.Unlock()
	return append([]monitoring.AlertPolicy(nil), c.monitoring.alerts...)
}

func (c *Cloud) routeMonitoring(r chi.Router) {
	r.Route("/v3/projects/{project}", func(r chi.Router) {
		r.Get("/uptimeCheckConfigs", c.listUptimeChecks)
		r.Post("/uptimeCheckConfigs", c.createUptimeCheck)
		r.Delete("/uptimeCheckConfigs/{id}", c.deleteUptimeCheck)
		r.Get("/alertPolicies", c.listAlertPolicies)
		r.Post("/alertPolicies", c.createAlertPolicy)
		r.Delete("/alertPolicies/{id}", c.deleteAlertPolicy)
	})
}

// pageOffset parses a page token, which is the offset of the page.
func pageOffset(r *http.Request) (int, error) {
	token := r.URL.Query().Get("pageToken")
	if token == "" {
		return 0, nil
	}
	return strconv.Atoi(token)
}

func (c *Cloud) listUptimeChecks(w http.ResponseWriter, r *http.Request) {
	prefix := fmt.Sprintf("projects/%s/uptimeCheckConfigs/", chi.URLParam(r, "project"))

	var checks []monitoring.UptimeCheckConfig
	for _, check := range c.monitoring.checks {
		if strings.HasPrefix(check.Name, prefix) {
			checks = append(checks, check)
		}
	}

	offset, err := pageOffset(r)
	if err != nil {
		writeGoogleError(w, http.StatusBadRequest, "invalid page token")
		return
	}

	// an empty list is returned as an empty object
	resp := map[string]any{}
	start, end := c.page(len(checks), offset)
	if end > start {
		resp["uptimeCheckConfigs"] = checks[start:end]
	}
	if end < len(checks) {
		resp["nextPageToken"] = strconv.Itoa(end)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (c *Cloud) createUptimeCheck(w http.ResponseWriter, r *http.Request) {
	var check monitoring.UptimeCheckConfig
	if err := decodeBody(r, &check); err != nil {
		writeGoogleError(w, http.StatusBadRequest, err.Error())
		return
	}
	if check.DisplayName == "" {
		writeGoogleError(w, http.StatusBadRequest, "missing display name")
		return
	}

	check.Name = fmt.Sprintf("projects/%s/uptimeCheckConfigs/%s", chi.URLParam(r, "project"), uuid.NewString())
	c.monitoring.checks = append(c.monitoring.checks, check)
	writeJSON(w, http.StatusOK, &check)
}

func (c *Cloud) deleteUptimeCheck(w http.ResponseWriter, r *http.Request) {
	name := fmt.Sprintf("projects/%s/uptimeCheckConfigs/%s", chi.URLParam(r, "project"), chi.URLParam(r, "id"))
	for i, check := range c.monitoring.checks {
		if check.Name == name {
			c.monitoring.checks = append(c.monitoring.checks[:i], c.monitoring.checks[i+1:]...)
			writeJSON(w, http.StatusOK, map[string]any{})
			return
		}
	}
	writeGoogleError(w, http.StatusNotFound, fmt.Sprintf("uptime check %s not found", name))
}

func (c *Cloud) listAlertPolicies(w http.ResponseWriter, r *http.Request) {
	prefix := fmt.Sprintf("projects/%s/alertPolicies/", chi.URLParam(r, "project"))

	var policies []monitoring.AlertPolicy
	for _, policy := range c.monitoring.alerts {
		if strings.HasPrefix(policy.Name, prefix) {
			policies = append(policies, policy)
		}
	}

	offset, err := pageOffset(r)
	if err != nil {
		writeGoogleError(w, http.StatusBadRequest, "invalid page token")
		return
	}

	resp := map[string]any{}
	start, end := c.page(len(policies), offset)
	if end > start {
		resp["alertPolicies"] = policies[start:end]
	}
	if end < len(policies) {
		resp["nextPageToken"] = strconv.Itoa(end)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (c *Cloud) createAlertPolicy(w http.ResponseWriter, r *http.Request) {
	var policy monitoring.AlertPolicy
	if err := decodeBody(r, &policy); err != nil {
		writeGoogleError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(policy.Conditions) == 0 {
		writeGoogleError(w, http.StatusBadRequest, "alert policy has no conditions")
		return
	}

	policy.Name = fmt.Sprintf("projects/%s/alertPolicies/%s", chi.URLParam(r, "project"), uuid.NewString())
	c.monitoring.alerts = append(c.monitoring.alerts, policy)
	writeJSON(w, http.StatusOK, &policy)
}

func (c *Cloud) deleteAlertPolicy(w http.ResponseWriter, r *http.Request) {
	name := fmt.Sprintf("projects/%s/alertPolicies/%s", chi.URLParam(r, "project"), chi.URLParam(r, "id"))
	for i, policy := range c.monitoring.alerts {
		if policy.Name == name {
			c.monitoring.alerts = append(c.monitoring.alerts[:i], c.monitoring.alerts[i+1:]...)
			writeJSON(w, http.StatusOK, map[string]any{})
			return
		}
	}
	writeGoogleError(w, http.StatusNotFound, fmt.Sprintf("alert policy %s not found", name))
}
