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
	"errors"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/willgleich/gleich-tech-switch/pkg/switchover"
)

var runDescriptions = map[switchover.Direction]string{
	switchover.Switch:    "Stop monitoring the domain, allow public invoke and forward the domain traffic",
	switchover.Unswitch:  "Disallow public invoke, monitor the domain and remove the forwarding rule",
	switchover.Provision: "Create the service, allow public invoke and attach the domain, unless the service exists",
	switchover.Teardown:  "Delete the service",
}

// runOptions is the command line options for the run commands.
type runOptions struct {
	root      *rootOptions
	direction switchover.Direction
	payload   string
}

func runCmd(root *rootOptions, direction switchover.Direction) *cobra.Command {
	o := runOptions{root: root, direction: direction}
	cmd := &cobra.Command{
		Use:   string(direction),
		Short: runDescriptions[direction],
		Long:  runDescriptions[direction] + ".",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd.Context())
		},
	}

	o.addFlags(cmd.Flags())
	return cmd
}

// addFlags registers flags for the CLI.
func (o *runOptions) addFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.payload, "payload", "", "Opaque text logged with the run.")
}

// run performs the execution of a run command.
func (o *runOptions) run(ctx context.Context) error {
	a, err := o.root.app()
	if err != nil {
		return err
	}

	report, err := a.Orchestrator.Run(ctx, o.direction, o.payload)
	var stepErr *switchover.StepError
	if report != nil && (err == nil || errors.As(err, &stepErr)) {
		if printErr := o.root.print(report); printErr != nil {
			return printErr
		}
	}
	return err
}
