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
	"crypto/tls"
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/willgleich/gleich-tech-switch/cmd/switchctl/app"
	"github.com/willgleich/gleich-tech-switch/pkg/config"
	"github.com/willgleich/gleich-tech-switch/pkg/trigger"
	"github.com/willgleich/gleich-tech-switch/pkg/util/runnable"
	utiltls "github.com/willgleich/gleich-tech-switch/pkg/util/tls"
)

// listenAddress is the default address of the trigger server.
const listenAddress = "0.0.0.0:8080"

// serveOptions is the command line options for 'serve'.
type serveOptions struct {
	root    *rootOptions
	address string
	watch   bool
	tlsCert string
	tlsKey  string
	tlsCA   string
}

// reloader rebuilds the orchestrator of the trigger server on configuration changes.
type reloader struct {
	server *trigger.Server
}

// SetConfig implements config.Consumer.
func (r *reloader) SetConfig(cfg *config.Config) error {
	a, err := app.New(cfg)
	if err != nil {
		return err
	}

	r.server.SetRunner(a.Orchestrator)
	logrus.WithField("component", "serve").Info("Configuration reloaded.")
	return nil
}

func serveCmd(root *rootOptions) *cobra.Command {
	o := serveOptions{root: root}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP trigger endpoints",
		Long: `Serve POST /switch, POST /unswitch, GET /status and GET /healthz.
Runs are serialized: a run requested while another is in progress gets 409 Conflict.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run()
		},
	}

	o.addFlags(cmd.Flags())
	return cmd
}

// addFlags registers flags for the CLI.
func (o *serveOptions) addFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.address, "listen", listenAddress, "Address of the trigger server.")
	fs.BoolVar(&o.watch, "watch", true, "Reload the configuration file when it changes.")
	fs.StringVar(&o.tlsCert, "tls-cert", "", "Certificate file. If set, the server serves HTTPS.")
	fs.StringVar(&o.tlsKey, "tls-key", "", "Private key file of the certificate.")
	fs.StringVar(&o.tlsCA, "tls-ca", "", "CA file verifying client certificates. If set, clients must present one.")
}

// tlsConfig returns the TLS configuration of the server, or nil for plain HTTP.
func (o *serveOptions) tlsConfig() (*tls.Config, error) {
	if o.tlsCert == "" && o.tlsKey == "" {
		if o.tlsCA != "" {
			return nil, errors.New("--tls-ca requires --tls-cert and --tls-key")
		}
		return nil, nil
	}
	if o.tlsCert == "" || o.tlsKey == "" {
		return nil, errors.New("--tls-cert and --tls-key must be set together")
	}

	parsed, err := utiltls.ParseFiles(o.tlsCert, o.tlsKey, o.tlsCA)
	if err != nil {
		return nil, err
	}

	logrus.WithField("component", "serve").Infof("Serving TLS for %v.", parsed.DNSNames())
	return parsed.ServerConfig(), nil
}

// run performs the execution of the 'serve' subcommand.
func (o *serveOptions) run() error {
	a, err := o.root.app()
	if err != nil {
		return err
	}

	tlsConfig, err := o.tlsConfig()
	if err != nil {
		return err
	}

	server := trigger.NewServer(a.Orchestrator, tlsConfig)

	manager := runnable.NewManager()
	manager.AddServer(o.address, server)

	if o.watch {
		watcher := config.NewWatcher(o.root.configFile)
		watcher.AddConsumer(&reloader{server: server})
		manager.Add(watcher)
	}

	release := manager.StopOnSignal()
	defer release()

	return manager.Run()
}
