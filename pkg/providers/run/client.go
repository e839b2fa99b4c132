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

// Package run is a client of the Cloud Run Admin API (v1).
package run

import (
	"context"
	"net/url"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/willgleich/gleich-tech-switch/pkg/api"
	"github.com/willgleich/gleich-tech-switch/pkg/providers/google"
	"github.com/willgleich/gleich-tech-switch/pkg/util/jsonapi"
	"github.com/willgleich/gleich-tech-switch/pkg/util/rest"
)

const (
	// DefaultEndpoint is the Cloud Run Admin API endpoint.
	DefaultEndpoint = "https://run.googleapis.com"
	// Provider names the Cloud Run provider in errors.
	Provider = "run"
)

// Client for the Cloud Run Admin API.
type Client struct {
	rest *rest.Client

	logger *logrus.Entry
}

// ListServices returns all services under parent (projects/P/locations/L).
func (c *Client) ListServices(ctx context.Context, parent string) ([]Service, error) {
	var services []Service
	token := ""
	for {
		path := "/v1/" + parent + "/services"
		if token != "" {
			path += "?continue=" + url.QueryEscape(token)
		}

		var list ServiceList
		if err := c.rest.Get(ctx, "list services", path, &list); err != nil {
			return nil, err
		}

		services = append(services, list.Items...)
		if list.Continue == "" {
			break
		}
		token = list.Continue
	}

	c.logger.Debugf("Listed %d services under %s.", len(services), parent)
	return services, nil
}

// CreateService creates a service under parent.
func (c *Client) CreateService(ctx context.Context, parent string, service *Service) (*Service, error) {
	c.logger.Infof("Creating service '%s' under %s.", service.Name, parent)

	var created Service
	if err := c.rest.Post(ctx, "create service", "/v1/"+parent+"/services", service, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// DeleteService deletes the service with the given resource name.
func (c *Client) DeleteService(ctx context.Context, name string) error {
	c.logger.Infof("Deleting service %s.", name)
	return c.rest.Delete(ctx, "delete service", "/v1/"+name, nil)
}

// GetIAMPolicy returns the access policy of a resource.
func (c *Client) GetIAMPolicy(ctx context.Context, resource string) (*api.AccessPolicy, error) {
	var policy api.AccessPolicy
	if err := c.rest.Get(ctx, "get iam policy", "/v1/"+resource+":getIamPolicy", &policy); err != nil {
		return nil, err
	}
	return &policy, nil
}

// SetIAMPolicy replaces the access policy of a resource.
func (c *Client) SetIAMPolicy(ctx context.Context, resource string, policy *api.AccessPolicy) (*api.AccessPolicy, error) {
	c.logger.Infof("Setting IAM policy of %s (%d bindings).", resource, len(policy.Bindings))

	var updated api.AccessPolicy
	err := c.rest.Post(ctx, "set iam policy", "/v1/"+resource+":setIamPolicy",
		&setIAMPolicyRequest{Policy: policy}, &updated)
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// CreateDomainMapping creates a domain mapping under parent.
func (c *Client) CreateDomainMapping(ctx context.Context, parent string, mapping *DomainMapping) (*DomainMapping, error) {
	c.logger.Infof("Mapping domain '%s' to route '%s'.", mapping.Name, mapping.Spec.RouteName)

	var created DomainMapping
	err := c.rest.Post(ctx, "create domain mapping", "/v1/"+parent+"/domainmappings", mapping, &created)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// NewClient returns a new Cloud Run client for the given endpoint.
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
		logger: logrus.WithField("component", "providers.run"),
	}
}
