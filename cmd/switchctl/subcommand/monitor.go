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

	"github.com/willgleich/gleich-tech-switch/pkg/api"
)

func monitorCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Manage the health check policy of the domain",
		Long: `Manage the uptime check and alert policy of the domain. Both are matched by
display name, which the monitoring provider does not keep unique.`,
	}

	cmd.AddCommand(
		monitorActionCmd(root, "enable", "Create the uptime check and its alert policy"),
		monitorActionCmd(root, "disable", "Delete all uptime checks and alert policies with the display names"),
		monitorActionCmd(root, "list", "List the uptime checks and alert policies with the display names"),
	)
	return cmd
}

// monitorOptions is the command line options for the 'monitor' subcommands.
type monitorOptions struct {
	root       *rootOptions
	action     string
	uptimeName string
	alertName  string
}

func monitorActionCmd(root *rootOptions, action, short string) *cobra.Command {
	o := monitorOptions{root: root, action: action}
	cmd := &cobra.Command{
		Use:   action,
		Short: short,
		Long:  short + ". Names default to the configured ones.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd.Context())
		},
	}

	o.addFlags(cmd.Flags())
	return cmd
}

// addFlags registers flags for the CLI.
func (o *monitorOptions) addFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.uptimeName, "uptime-name", "", "Display name of the uptime check.")
	fs.StringVar(&o.alertName, "alert-name", "", "Display name of the alert policy.")
}

// run performs the execution of a 'monitor' subcommand.
func (o *monitorOptions) run(ctx context.Context) error {
	a, err := o.root.app()
	if err != nil {
		return err
	}

	uptimeName := o.uptimeName
	if uptimeName == "" {
		uptimeName = a.Config.Monitoring.UptimeName
	}
	alertName := o.alertName
	if alertName == "" {
		alertName = a.Config.Monitoring.AlertName
	}

	switch o.action {
	case "enable":
		policy, err := a.Health.Enable(ctx, uptimeName, alertName)
		if err != nil {
			return err
		}
		return o.root.print(policy)
	case "disable":
		result, err := a.Health.Disable(ctx, uptimeName, alertName)
		if err != nil {
			return err
		}
		return o.root.print(result)
	}

	checks, err := a.Health.FindUptimeChecks(ctx, uptimeName)
	if err != nil {
		return err
	}
	alerts, err := a.Health.FindAlertPolicies(ctx, alertName)
	if err != nil {
		return err
	}

	return o.root.print(struct {
		UptimeChecks  []api.UptimeCheck `json:"uptimeChecks"`
		AlertPolicies []api.AlertPolicy `json:"alertPolicies"`
	}{checks, alerts})
}
