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

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func edgeCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edge",
		Short: "Manage the forwarding rule of the domain",
		Long:  `Manage the forwarding rule of the domain on the edge network.`,
	}

	cmd.AddCommand(edgeInstallCmd(root), edgeRemoveCmd(root), edgeListCmd(root))
	return cmd
}

// edgeInstallOptions is the command line options for 'edge install'.
type edgeInstallOptions struct {
	root       *rootOptions
	pattern    string
	target     string
	statusCode int
}

func edgeInstallCmd(root *rootOptions) *cobra.Command {
	o := edgeInstallOptions{root: root}
	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install a forwarding rule",
		Long:  `Install a forwarding rule. Existing rules are not checked, so repeated installs create overlapping rules.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd.Context())
		},
	}

	o.addFlags(cmd.Flags())
	return cmd
}

// addFlags registers flags for the CLI.
func (o *edgeInstallOptions) addFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.pattern, "pattern", "", "URL pattern to match (defaults to the configured one).")
	fs.StringVar(&o.target, "target", "", "URL to forward to (defaults to the configured one).")
	fs.IntVar(&o.statusCode, "status-code", 0, "Redirect status code, 301 or 302 (defaults to the configured one).")
}

// run performs the execution of the 'edge install' subcommand.
func (o *edgeInstallOptions) run(ctx context.Context) error {
	a, err := o.root.app()
	if err != nil {
		return err
	}

	pattern, target, statusCode := o.pattern, o.target, o.statusCode
	if pattern == "" {
		pattern = a.Config.Edge.MatchPattern
	}
	if target == "" {
		target = a.Config.Edge.TargetURL
	}
	if statusCode == 0 {
		statusCode = a.Config.Edge.StatusCode
	}

	rule, err := a.Edge.Install(ctx, pattern, target, statusCode)
	if err != nil {
		return err
	}
	return o.root.print(rule)
}

// edgeDomainOptions is the command line options for 'edge remove' and 'edge list'.
type edgeDomainOptions struct {
	root   *rootOptions
	domain string
}

// addFlags registers flags for the CLI.
func (o *edgeDomainOptions) addFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.domain, "domain", "", "Prefix of the rule patterns (defaults to the configured match pattern).")
}

func (o *edgeDomainOptions) patternOrDefault(configured string) string {
	if o.domain != "" {
		return o.domain
	}
	return configured
}

func edgeRemoveCmd(root *rootOptions) *cobra.Command {
	o := edgeDomainOptions{root: root}
	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Remove the first forwarding rule matching the domain",
		Long:  `Remove the first forwarding rule whose pattern starts with the domain. Succeeds if none matches.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.root.app()
			if err != nil {
				return err
			}

			pattern := o.patternOrDefault(a.Config.Edge.MatchPattern)
			if err := a.Edge.Remove(cmd.Context(), pattern); err != nil {
				return err
			}
			return o.root.print(map[string]string{"removed": pattern})
		},
	}

	o.addFlags(cmd.Flags())
	return cmd
}

func edgeListCmd(root *rootOptions) *cobra.Command {
	o := edgeDomainOptions{root: root}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the forwarding rules matching the domain",
		Long:  `List the forwarding rules whose pattern starts with the domain.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.root.app()
			if err != nil {
				return err
			}

			rules, err := a.Edge.Find(cmd.Context(), o.patternOrDefault(a.Config.Edge.MatchPattern))
			if err != nil {
				return err
			}
			return o.root.print(rules)
		},
	}

	o.addFlags(cmd.Flags())
	return cmd
}
