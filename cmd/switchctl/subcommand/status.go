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
	"github.com/spf13/cobra"
)

func statusCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the observed state of the domain",
		Long: `Query the compute, monitoring and edge providers and derive the state of
the domain: DIRECT_MONITORED, SWITCHED_UNMONITORED or INDETERMINATE.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := root.app()
			if err != nil {
				return err
			}

			status, err := a.Orchestrator.Status(cmd.Context())
			if err != nil {
				return err
			}
			return root.print(status)
		},
	}
}
