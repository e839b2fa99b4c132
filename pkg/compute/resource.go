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

// Package compute controls a single named compute service: its existence,
// its public-invoke permission and its custom domain.
package compute

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/willgleich/gleich-tech-switch/pkg/api"
	"github.com/willgleich/gleich-tech-switch/pkg/providers/run"
)

// ServiceClient is the compute API used by the controllers.
type ServiceClient interface {
	ListServices(ctx context.Context, parent string) ([]run.Service, error)
	CreateService(ctx context.Context, parent string, service *run.Service) (*run.Service, error)
	DeleteService(ctx context.Context, name string) error
	GetIAMPolicy(ctx context.Context, resource string) (*api.AccessPolicy, error)
	SetIAMPolicy(ctx context.Context, resource string, policy *api.AccessPolicy) (*api.AccessPolicy, error)
	CreateDomainMapping(ctx context.Context, parent string, mapping *run.DomainMapping) (*run.DomainMapping, error)
}

// Requirement is the existence state a guarded operation requires.
type Requirement int

const (
	// MustExist requires the service to exist.
	MustExist Requirement = iota
	// MustNotExist requires the service to be absent.
	MustNotExist
)

// GuardedResource wraps a named compute service. Every mutating operation is
// preceded by a live existence check, and refused if the check fails.
type GuardedResource struct {
	handle api.RemoteServiceHandle
	client ServiceClient

	logger *logrus.Entry
}

// Handle returns the handle of the service.
func (r *GuardedResource) Handle() api.RemoteServiceHandle {
	return r.handle
}

// Exists looks the service up by name in its project and region.
func (r *GuardedResource) Exists(ctx context.Context) (bool, error) {
	services, err := r.client.ListServices(ctx, r.handle.Parent())
	if err != nil {
		return false, fmt.Errorf("unable to list services: %w", err)
	}

	for i := range services {
		if services[i].Name == r.handle.Name() {
			return true, nil
		}
	}
	return false, nil
}

// guard runs fn only if the existence of the service matches the requirement.
func (r *GuardedResource) guard(ctx context.Context, operation string, requirement Requirement, fn func() error) error {
	exists, err := r.Exists(ctx)
	if err != nil {
		return fmt.Errorf("unable to %s %s: %w", operation, r.handle.Name(), err)
	}

	switch {
	case requirement == MustNotExist && exists:
		r.logger.Warnf("Refusing to %s: service already exists.", operation)
		return &api.PreconditionFailedError{
			Resource:  r.handle.String(),
			Operation: operation,
			Reason:    api.AlreadyExists,
			Remedy:    "delete the service first",
		}
	case requirement == MustExist && !exists:
		r.logger.Warnf("Refusing to %s: service does not exist.", operation)
		return &api.PreconditionFailedError{
			Resource:  r.handle.String(),
			Operation: operation,
			Reason:    api.NotFound,
			Remedy:    "create the service first",
		}
	}

	return fn()
}

// Create creates the service with the given spec, serving 100% of the traffic
// from its latest revision. The service must not exist.
func (r *GuardedResource) Create(ctx context.Context, spec *api.ServiceSpec) (api.RemoteServiceHandle, error) {
	err := r.guard(ctx, "create", MustNotExist, func() error {
		service, err := run.NewService(r.handle, spec)
		if err != nil {
			return err
		}

		if _, err := r.client.CreateService(ctx, r.handle.Parent(), service); err != nil {
			return fmt.Errorf("unable to create service: %w", err)
		}

		r.logger.Infof("Created service with image '%s'.", spec.Image)
		return nil
	})
	if err != nil {
		return api.RemoteServiceHandle{}, err
	}

	return r.handle, nil
}

// Delete deletes the service. The service must exist.
func (r *GuardedResource) Delete(ctx context.Context) error {
	return r.guard(ctx, "delete", MustExist, func() error {
		if err := r.client.DeleteService(ctx, r.handle.ResourceName()); err != nil {
			return fmt.Errorf("unable to delete service: %w", err)
		}

		r.logger.Info("Deleted service.")
		return nil
	})
}

// NewGuardedResource returns a guarded resource for the handle service.
func NewGuardedResource(handle api.RemoteServiceHandle, client ServiceClient) *GuardedResource {
	return &GuardedResource{
		handle: handle,
		client: client,
		logger: logrus.WithFields(logrus.Fields{
			"component": "compute.resource",
			"service":   handle.Name(),
		}),
	}
}
