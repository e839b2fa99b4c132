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

	"github.com/willgleich/gleich-tech-switch/pkg/providers/run"
)

// DomainBinding attaches custom domains to a service.
type DomainBinding struct {
	resource *GuardedResource

	logger *logrus.Entry
}

// Attach maps the domain to the service route. Existing mappings are not
// checked, so attaching a mapped domain returns the provider conflict error.
func (b *DomainBinding) Attach(ctx context.Context, domain string) error {
	return b.resource.guard(ctx, "attach domain to", MustExist, func() error {
		mapping := run.NewDomainMapping(b.resource.handle, domain)
		if _, err := b.resource.client.CreateDomainMapping(ctx, b.resource.handle.Parent(), mapping); err != nil {
			return fmt.Errorf("unable to attach domain '%s': %w", domain, err)
		}

		b.logger.Infof("Attached domain '%s'.", domain)
		return nil
	})
}

// NewDomainBinding returns a domain binding of the resource.
func NewDomainBinding(resource *GuardedResource) *DomainBinding {
	return &DomainBinding{
		resource: resource,
		logger: logrus.WithFields(logrus.Fields{
			"component": "compute.domain",
			"service":   resource.handle.Name(),
		}),
	}
}
