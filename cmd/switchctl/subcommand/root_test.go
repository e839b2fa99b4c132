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

package subcommand_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"sigs.k8s.io/yaml"

	"github.com/willgleich/gleich-tech-switch/cmd/switchctl/subcommand"
	"github.com/willgleich/gleich-tech-switch/pkg/api"
	"github.com/willgleich/gleich-tech-switch/pkg/providers/fake"
	"github.com/willgleich/gleich-tech-switch/pkg/switchover"
)

func writeConfig(t *testing.T, cloud *fake.Cloud) string {
	data := fmt.Sprintf(`
project: project
region: us-central1
domain: d.example.com
service:
  name: web
  image: gcr.io/project/web:1
edge:
  accountID: account
  targetURL: https://backup.example.com
  token: edge-token
credentials:
  token: %s
endpoints:
  run: %s
  monitoring: %s
  cloudflare: %s
  secretManager: %s
`, fake.Token, cloud.RunURL(), cloud.MonitoringURL(), cloud.CloudflareURL(), cloud.SecretManagerURL())

	path := filepath.Join(t.TempDir(), "switch.yaml")
	require.Nil(t, os.WriteFile(path, []byte(data), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	var out bytes.Buffer
	cmd := subcommand.NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestProvisionAndStatus(t *testing.T) {
	cloud := fake.NewCloud()
	defer cloud.Close()
	cloud.AddZone("account", "example.com")
	path := writeConfig(t, cloud)

	out, err := execute(t, "-c", path, "-o", "json", "provision")
	require.Nil(t, err)

	var report switchover.Report
	require.Nil(t, json.Unmarshal([]byte(out), &report))
	require.Equal(t, switchover.Provision, report.Direction)
	require.Len(t, report.Steps, 3)

	out, err = execute(t, "-c", path, "monitor", "enable")
	require.Nil(t, err)
	require.NotEmpty(t, out)

	_, err = execute(t, "-c", path, "service", "disallow-public")
	require.Nil(t, err)

	out, err = execute(t, "-c", path, "status")
	require.Nil(t, err)

	var status switchover.Status
	require.Nil(t, yaml.Unmarshal([]byte(out), &status))
	require.Equal(t, api.DirectMonitored, status.State)
}

func TestSwitchFailurePrintsReport(t *testing.T) {
	cloud := fake.NewCloud()
	defer cloud.Close()
	path := writeConfig(t, cloud)
	cloud.AddService("projects/project/locations/us-central1", "web")

	// no zone for the domain
	out, err := execute(t, "-c", path, "-o", "json", "switch", "--payload", "alert")
	require.ErrorIs(t, err, api.ErrZoneNotFound)

	var report switchover.Report
	require.Nil(t, json.NewDecoder(bytes.NewReader([]byte(out))).Decode(&report))
	require.Equal(t, switchover.StepInstallRule, report.Failed)
}

func TestInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "switch.yaml")
	require.Nil(t, os.WriteFile(path, []byte("domain: d.example.com\n"), 0o600))

	_, err := execute(t, "-c", path, "status")
	require.ErrorContains(t, err, "missing project")
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.Nil(t, err)
	require.NotEmpty(t, out)
}
