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

// Package util holds helpers shared by the command line tools.
package util

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// MarkFlagsRequired marks flags of the command as required.
// An unknown flag is a programming error and terminates the process.
func MarkFlagsRequired(cmd *cobra.Command, flags []string) {
	for _, f := range flags {
		if err := cmd.MarkFlagRequired(f); err != nil {
			logrus.Fatalf("Error marking required flag '%s' of '%s': %v", f, cmd.Name(), err)
		}
	}
}
