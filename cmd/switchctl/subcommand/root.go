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

// Package subcommand implements the switchctl commands.
package subcommand

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"sigs.k8s.io/yaml"

	"github.com/willgleich/gleich-tech-switch/cmd/switchctl/app"
	"github.com/willgleich/gleich-tech-switch/pkg/config"
	"github.com/willgleich/gleich-tech-switch/pkg/switchover"
	logutils "github.com/willgleich/gleich-tech-switch/pkg/util/log"
)

const (
	// logLevel is the default log level.
	logLevel = "info"

	outputJSON = "json"
	outputYAML = "yaml"
)

// rootOptions are the options shared by all commands.
type rootOptions struct {
	configFile string
	logLevel   string
	logFormat  string
	logFile    string
	output     string

	out    io.Writer
	logOut *os.File
}

// addFlags registers flags for the CLI.
func (o *rootOptions) addFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&o.configFile, "config", "c", config.DefaultConfigFile, "Path to the configuration file.")
	fs.StringVar(&o.logLevel, "log-level", logLevel, "The log level. One of fatal, error, warn, info, debug.")
	fs.StringVar(&o.logFormat, "log-format", logutils.FormatText, "The log format. One of text, json.")
	fs.StringVar(&o.logFile, "log-file", "",
		"Path to a file where logs will be written. If not specified, logs will be printed to stderr.")
	fs.StringVarP(&o.output, "output", "o", outputYAML, "Output format. One of yaml, json.")
}

func (o *rootOptions) setLog() error {
	f, err := logutils.Set(o.logLevel, o.logFormat, o.logFile)
	if err != nil {
		return err
	}
	o.logOut = f
	return nil
}

func (o *rootOptions) closeLog() {
	if o.logOut == nil {
		return
	}
	if err := o.logOut.Close(); err != nil {
		logrus.Errorf("Cannot close log file: %v", err)
	}
}

// app loads the configuration and builds the clients.
func (o *rootOptions) app() (*app.App, error) {
	return app.Load(o.configFile)
}

// print writes an object in the selected output format.
func (o *rootOptions) print(obj any) error {
	var (
		data []byte
		err  error
	)
	switch o.output {
	case outputJSON:
		data, err = json.MarshalIndent(obj, "", "  ")
		data = append(data, '\n')
	case outputYAML:
		data, err = yaml.Marshal(obj)
	default:
		return fmt.Errorf("unknown output format '%s'", o.output)
	}
	if err != nil {
		return fmt.Errorf("unable to encode output: %w", err)
	}

	_, err = o.out.Write(data)
	return err
}

// NewRootCmd returns the switchctl command with all subcommands.
func NewRootCmd() *cobra.Command {
	o := &rootOptions{out: os.Stdout}
	cmd := &cobra.Command{
		Use:   "switchctl",
		Short: "switchctl moves the traffic of a domain away from a compute service and back",
		Long: `switchctl moves the traffic of a domain away from a managed compute service
onto an alternate origin (switch), and restores direct serving and monitoring (unswitch).`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			o.out = cmd.OutOrStdout()
			return o.setLog()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			o.closeLog()
		},
	}

	o.addFlags(cmd.PersistentFlags())

	cmd.AddCommand(
		runCmd(o, switchover.Switch),
		runCmd(o, switchover.Unswitch),
		runCmd(o, switchover.Provision),
		runCmd(o, switchover.Teardown),
		statusCmd(o),
		serviceCmd(o),
		monitorCmd(o),
		edgeCmd(o),
		serveCmd(o),
		versionCmd(o),
	)

	return cmd
}
