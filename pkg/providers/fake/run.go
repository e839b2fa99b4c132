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
	"sort"
	"strconv"
	"strings"

	"github.com/go-chi/chi"
	"github.com/google/uuid"

	"github.com/willgleich/gleich-tech-switch/pkg/api"
	"github.com/willgleich/gleich-tech-switch/pkg/providers/run"
)

type runState struct {
	services       map[string]run.Service
	policies       map[string]api.AccessPolicy
	domainMappings map[string]run.DomainMapping
}

func newRunState() *runState {
	return &runState{
		services:       make(map[string]run.Service),
		policies:       make(map[string]api.AccessPolicy),
		domainMappings: make(map[string]run.DomainMapping),
	}
}

// AddService stores a service under parent, with an empty access policy.
func (c *Cloud) AddService(parent, name string) {
	c.lock.Lock()
	defer c.lock.Unlock()

	resource := parent + "/services/" + name
	c.run.services[resource] = namedService(name)
	c.run.policies[resource] = api.AccessPolicy{Version: 1, Etag: newEtag()}
}

// HasService returns true if the service resource exists.
func (c *Cloud) HasService(resource string) bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	_, ok := c.run.services[resource]
	return ok
}

// Service returns the stored service body.
func (c *Cloud) Service(resource string) (run.Service, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()
	service, ok := c.run.services[resource]
	return service, ok
}

// Policy returns the access policy of a service resource.
func (c *Cloud) Policy(resource string) api.AccessPolicy {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.run.policies[resource]
}

// SetPolicy replaces the access policy of a service resource.
func (c *Cloud) SetPolicy(resource string, policy api.AccessPolicy) {
	c.lock.Lock()
	defer c.lock.Unlock()
	policy.Etag = newEtag()
	c.run.policies[resource] = policy
}

// DomainMapping returns the domain mapping stored under parent.
func (c *Cloud) DomainMapping(parent, domain string) (run.DomainMapping, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()
	mapping, ok := c.run.domainMappings[parent+"/domainmappings/"+domain]
	return mapping, ok
}

func namedService(name string) run.Service {
	service := run.Service{}
	service.APIVersion = run.ServingAPIVersion
	service.Kind = "Service"
	service.Name = name
	return service
}

func newEtag() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// handleRun dispatches compute requests. Custom methods (":getIamPolicy")
// do not fit the router patterns, so the path is parsed here.
func (c *Cloud) handleRun(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "*")

	switch {
	case strings.HasSuffix(path, ":getIamPolicy") && r.Method == http.MethodGet:
		c.getIAMPolicy(w, strings.TrimSuffix(path, ":getIamPolicy"))
	case strings.HasSuffix(path, ":setIamPolicy") && r.Method == http.MethodPost:
		c.setIAMPolicy(w, r, strings.TrimSuffix(path, ":setIamPolicy"))
	case strings.HasSuffix(path, "/domainmappings") && r.Method == http.MethodPost:
		c.createDomainMapping(w, r, strings.TrimSuffix(path, "/domainmappings"))
	case strings.HasSuffix(path, "/services") && r.Method == http.MethodGet:
		c.listServices(w, r, strings.TrimSuffix(path, "/services"))
	case strings.HasSuffix(path, "/services") && r.Method == http.MethodPost:
		c.createService(w, r, strings.TrimSuffix(path, "/services"))
	case strings.Contains(path, "/services/") && r.Method == http.MethodDelete:
		c.deleteService(w, path)
	default:
		writeGoogleError(w, http.StatusNotFound, fmt.Sprintf("no route for %s %s", r.Method, path))
	}
}

func (c *Cloud) listServices(w http.ResponseWriter, r *http.Request, parent string) {
	var names []string
	for resource := range c.run.services {
		if strings.HasPrefix(resource, parent+"/services/") {
			names = append(names, resource)
		}
	}
	sort.Strings(names)

	offset := 0
	if token := r.URL.Query().Get("continue"); token != "" {
		var err error
		if offset, err = strconv.Atoi(token); err != nil {
			writeGoogleError(w, http.StatusBadRequest, "invalid continue token")
			return
		}
	}

	start, end := c.page(len(names), offset)
	list := run.ServiceList{}
	list.APIVersion = run.ServingAPIVersion
	list.Kind = "ServiceList"
	for _, name := range names[start:end] {
		list.Items = append(list.Items, c.run.services[name])
	}
	if end < len(names) {
		list.Continue = strconv.Itoa(end)
	}

	writeJSON(w, http.StatusOK, &list)
}

func (c *Cloud) createService(w http.ResponseWriter, r *http.Request, parent string) {
	var service run.Service
	if err := decodeBody(r, &service); err != nil {
		writeGoogleError(w, http.StatusBadRequest, err.Error())
		return
	}
	if service.Name == "" {
		writeGoogleError(w, http.StatusBadRequest, "missing service name")
		return
	}

	resource := parent + "/services/" + service.Name
	if _, ok := c.run.services[resource]; ok {
		writeGoogleError(w, http.StatusConflict, fmt.Sprintf("service %s already exists", service.Name))
		return
	}

	c.run.services[resource] = service
	c.run.policies[resource] = api.AccessPolicy{Version: 1, Etag: newEtag()}
	writeJSON(w, http.StatusOK, &service)
}

func (c *Cloud) deleteService(w http.ResponseWriter, resource string) {
	if _, ok := c.run.services[resource]; !ok {
		writeGoogleError(w, http.StatusNotFound, fmt.Sprintf("service %s not found", resource))
		return
	}

	delete(c.run.services, resource)
	delete(c.run.policies, resource)
	writeJSON(w, http.StatusOK, map[string]string{"status": "Success"})
}

func (c *Cloud) getIAMPolicy(w http.ResponseWriter, resource string) {
	policy, ok := c.run.policies[resource]
	if !ok {
		writeGoogleError(w, http.StatusNotFound, fmt.Sprintf("resource %s not found", resource))
		return
	}
	writeJSON(w, http.StatusOK, &policy)
}

func (c *Cloud) setIAMPolicy(w http.ResponseWriter, r *http.Request, resource string) {
	current, ok := c.run.policies[resource]
	if !ok {
		writeGoogleError(w, http.StatusNotFound, fmt.Sprintf("resource %s not found", resource))
		return
	}

	var request struct {
		Policy api.AccessPolicy `json:"policy"`
	}
	if err := decodeBody(r, &request); err != nil {
		writeGoogleError(w, http.StatusBadRequest, err.Error())
		return
	}

	if request.Policy.Etag != "" && request.Policy.Etag != current.Etag {
		writeGoogleError(w, http.StatusConflict, "etag mismatch")
		return
	}

	updated := request.Policy
	updated.Etag = newEtag()
	c.run.policies[resource] = updated
	writeJSON(w, http.StatusOK, &updated)
}

func (c *Cloud) createDomainMapping(w http.ResponseWriter, r *http.Request, parent string) {
	var mapping run.DomainMapping
	if err := decodeBody(r, &mapping); err != nil {
		writeGoogleError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, ok := c.run.services[parent+"/services/"+mapping.Spec.RouteName]; !ok {
		writeGoogleError(w, http.StatusNotFound, fmt.Sprintf("route %s not found", mapping.Spec.RouteName))
		return
	}

	key := parent + "/domainmappings/" + mapping.Name
	if _, ok := c.run.domainMappings[key]; ok {
		writeGoogleError(w, http.StatusConflict, fmt.Sprintf("domain mapping %s already exists", mapping.Name))
		return
	}

	c.run.domainMappings[key] = mapping
	writeJSON(w, http.StatusOK, &mapping)
}
