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

package compute

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/willgleich/gleich-tech-switch/pkg/api"
)

// AccessPolicyController toggles public invoke permission on a service.
type AccessPolicyController struct {
	resource *GuardedResource

	logger *logrus.Entry
}

// AllowPublic replaces the service bindings with a single binding granting
// invoke permission to anyone. Other bindings are not preserved.
func (c *AccessPolicyController) AllowPublic(ctx context.Context) error {
	return c.resource.guard(ctx, "allow public access to", MustExist, func() error {
		policy := &api.AccessPolicy{Bindings: []api.Binding{api.PublicInvokeBinding()}}
		if _, err := c.resource.client.SetIAMPolicy(ctx, c.resource.handle.ResourceName(), policy); err != nil {
			return fmt.Errorf("unable to allow public access: %w", err)
		}

		c.logger.Info("Public invoke allowed.")
		return nil
	})
}

// DisallowPublic removes every binding whose principals are exactly {allUsers},
// keeping all other bindings.
func (c *AccessPolicyController) DisallowPublic(ctx context.Context) error {
	return c.resource.guard(ctx, "disallow public access to", MustExist, func() error {
		resource := c.resource.handle.ResourceName()

		policy, err := c.resource.client.GetIAMPolicy(ctx, resource)
		if err != nil {
			return fmt.Errorf("unable to get access policy: %w", err)
		}

		filtered := policy.WithoutPublicOnly()
		if _, err := c.resource.client.SetIAMPolicy(ctx, resource, filtered); err != nil {
			return fmt.Errorf("unable to disallow public access: %w", err)
		}

		c.logger.Infof("Public invoke disallowed (%d bindings removed).",
			len(policy.Bindings)-len(filtered.Bindings))
		return nil
	})
}

// IsPublic returns true if anyone may invoke the service.
func (c *AccessPolicyController) IsPublic(ctx context.Context) (bool, error) {
	var public bool
	err := c.resource.guard(ctx, "read access policy of", MustExist, func() error {
		policy, err := c.resource.client.GetIAMPolicy(ctx, c.resource.handle.ResourceName())
		if err != nil {
			return fmt.Errorf("unable to get access policy: %w", err)
		}

		public = policy.HasPublicInvoke()
		return nil
	})
	return public, err
}

// NewAccessPolicyController returns a controller of the resource access policy.
func NewAccessPolicyController(resource *GuardedResource) *AccessPolicyController {
	return &AccessPolicyController{
		resource: resource,
		logger: logrus.WithFields(logrus.Fields{
			"component": "compute.access",
			"service":   resource.handle.Name(),
		}),
	}
}
