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

package monitoring_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"

	"github.com/willgleich/gleich-tech-switch/pkg/api"
	"github.com/willgleich/gleich-tech-switch/pkg/providers/fake"
	"github.com/willgleich/gleich-tech-switch/pkg/providers/monitoring"
)

const project = "project"

func TestNewUptimeAlertPolicy(t *testing.T) {
	policy := monitoring.NewUptimeAlertPolicy("alert", "d.example.com", "check-1", []string{"channel"})

	data, err := json.Marshal(policy)
	require.Nil(t, err)

	var decoded map[string]any
	require.Nil(t, json.Unmarshal(data, &decoded))
	require.Equal(t, "OR", decoded["combiner"])
	require.Equal(t, true, decoded["enabled"])

	condition := decoded["conditions"].([]any)[0].(map[string]any)
	require.Equal(t, "Uptime Health Check on d.example.com", condition["displayName"])

	threshold := condition["conditionThreshold"].(map[string]any)
	require.Equal(t, "COMPARISON_GT", threshold["comparison"])
	require.Equal(t, float64(1), threshold["thresholdValue"])
	require.Equal(t, "60s", threshold["duration"])
	require.Equal(t, map[string]any{"count": float64(1)}, threshold["trigger"])
	require.Contains(t, threshold["filter"], `metric.label."check_id"="check-1"`)

	aggregation := threshold["aggregations"].([]any)[0].(map[string]any)
	require.Equal(t, "1200s", aggregation["alignmentPeriod"])
	require.Equal(t, "ALIGN_NEXT_OLDER", aggregation["perSeriesAligner"])
	require.Equal(t, "REDUCE_COUNT_FALSE", aggregation["crossSeriesReducer"])
}

func TestNewUptimeCheck(t *testing.T) {
	check := monitoring.NewUptimeCheck(project, "uptime", "d.example.com")
	require.Equal(t, "uptime_url", check.MonitoredResource.Type)
	require.Equal(t, "d.example.com", check.MonitoredResource.Labels["host"])
	require.Equal(t, 443, check.HTTPCheck.Port)
	require.True(t, check.HTTPCheck.UseSSL)

	summary := check.UptimeCheck()
	require.Equal(t, "d.example.com", summary.Host)
	require.Equal(t, monitoring.CheckPeriod, summary.Period)
	require.Equal(t, monitoring.CheckTimeout, summary.Timeout)
}

func TestUptimeChecks(t *testing.T) {
	cloud := fake.NewCloud()
	defer cloud.Close()
	cloud.PageSize = 2
	client := cloud.MonitoringClient()
	ctx := context.Background()

	checks, err := client.ListUptimeChecks(ctx, project)
	require.Nil(t, err)
	require.Empty(t, checks)

	for i := 0; i < 3; i++ {
		_, err := client.CreateUptimeCheck(ctx, project,
			monitoring.NewUptimeCheck(project, fmt.Sprintf("uptime-%d", i), "d.example.com"))
		require.Nil(t, err)
	}
	cloud.AddUptimeCheck("other", monitoring.UptimeCheckConfig{DisplayName: "uptime-0"})

	checks, err = client.ListUptimeChecks(ctx, project)
	require.Nil(t, err)
	require.Len(t, checks, 3)
	require.Equal(t, monitoring.CheckPeriod, checks[0].Period.Duration)

	require.Nil(t, client.DeleteUptimeCheck(ctx, checks[1].Name))
	err = client.DeleteUptimeCheck(ctx, checks[1].Name)
	require.True(t, api.IsRemoteCode(err, codes.NotFound))

	checks, err = client.ListUptimeChecks(ctx, project)
	require.Nil(t, err)
	require.Len(t, checks, 2)
}

func TestAlertPolicies(t *testing.T) {
	cloud := fake.NewCloud()
	defer cloud.Close()
	client := cloud.MonitoringClient()
	ctx := context.Background()

	created, err := client.CreateAlertPolicy(ctx, project,
		monitoring.NewUptimeAlertPolicy("alert", "d.example.com", "check-1", nil))
	require.Nil(t, err)
	require.NotEmpty(t, created.Name)
	require.Equal(t, "alert", created.AlertPolicy().DisplayName)

	// a policy without conditions is rejected
	_, err = client.CreateAlertPolicy(ctx, project, &monitoring.AlertPolicy{DisplayName: "empty"})
	require.True(t, api.IsRemoteCode(err, codes.InvalidArgument))

	policies, err := client.ListAlertPolicies(ctx, project)
	require.Nil(t, err)
	require.Len(t, policies, 1)

	require.Nil(t, client.DeleteAlertPolicy(ctx, created.Name))
	require.Empty(t, cloud.AlertPolicies())
}
