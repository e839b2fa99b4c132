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

package subcommand

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/willgleich/gleich-tech-switch/cmd/switchctl/app"
	cmdutil "github.com/willgleich/gleich-tech-switch/cmd/util"
)

func serviceCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Manage the compute service",
		Long:  `Manage the compute service. Every mutating command checks the service existence first.`,
	}

	cmd.AddCommand(
		serviceActionCmd(root, "exists", "Check if the service exists", func(ctx context.Context, a *app.App) (any, error) {
			exists, err := a.Resource.Exists(ctx)
			return map[string]bool{"exists": exists}, err
		}),
		serviceActionCmd(root, "create", "Create the service", func(ctx context.Context, a *app.App) (any, error) {
			spec := a.Config.ServiceSpec()
			handle, err := a.Resource.Create(ctx, &spec)
			return map[string]string{"created": handle.ResourceName()}, err
		}),
		serviceActionCmd(root, "delete", "Delete the service", func(ctx context.Context, a *app.App) (any, error) {
			return map[string]string{"deleted": a.Resource.Handle().ResourceName()}, a.Resource.Delete(ctx)
		}),
		serviceActionCmd(root, "allow-public", "Allow anyone to invoke the service", func(ctx context.Context, a *app.App) (any, error) {
			return map[string]bool{"public": true}, a.Access.AllowPublic(ctx)
		}),
		serviceActionCmd(root, "disallow-public", "Disallow anonymous invocation of the service", func(ctx context.Context, a *app.App) (any, error) {
			return map[string]bool{"public": false}, a.Access.DisallowPublic(ctx)
		}),
		attachDomainCmd(root),
	)

	return cmd
}

func serviceActionCmd(root *rootOptions, use, short string, action func(context.Context, *app.App) (any, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Long:  short + ".",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := root.app()
			if err != nil {
				return err
			}

			result, err := action(cmd.Context(), a)
			if err != nil {
				return err
			}
			return root.print(result)
		},
	}
}

// attachDomainOptions is the command line options for 'service attach-domain'.
type attachDomainOptions struct {
	root   *rootOptions
	domain string
}

func attachDomainCmd(root *rootOptions) *cobra.Command {
	o := attachDomainOptions{root: root}
	cmd := &cobra.Command{
		Use:   "attach-domain",
		Short: "Map a custom domain to the service",
		Long:  `Map a custom domain to the service. An already mapped domain fails with the provider conflict error.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd.Context())
		},
	}

	o.addFlags(cmd.Flags())
	cmdutil.MarkFlagsRequired(cmd, []string{"domain"})
	return cmd
}

// addFlags registers flags for the CLI.
func (o *attachDomainOptions) addFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.domain, "domain", "", "Domain to attach.")
}

// run performs the execution of the 'service attach-domain' subcommand.
func (o *attachDomainOptions) run(ctx context.Context) error {
	a, err := o.root.app()
	if err != nil {
		return err
	}

	if err := a.Domain.Attach(ctx, o.domain); err != nil {
		return err
	}

	return o.root.print(map[string]string{"attached": fmt.Sprintf("%s -> %s", o.domain, a.Resource.Handle().Name())})
}
