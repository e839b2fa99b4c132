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

package api_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"

	"github.com/willgleich/gleich-tech-switch/pkg/api"
)

func TestRemoteServiceHandle(t *testing.T) {
	handle := api.NewRemoteServiceHandle("web", "project", "us-central1")
	require.Equal(t, "projects/project/locations/us-central1", handle.Parent())
	require.Equal(t, "projects/project/locations/us-central1/services/web", handle.ResourceName())
	require.Equal(t, handle.ResourceName(), handle.String())
}

func TestAccessPolicy(t *testing.T) {
	var nilPolicy *api.AccessPolicy
	require.False(t, nilPolicy.HasPublicInvoke())

	viewer := api.Binding{Role: "roles/run.viewer", Members: []string{"user:a@example.com"}}
	mixed := api.Binding{Role: api.InvokerRole, Members: []string{api.AllUsers, "user:b@example.com"}}
	policy := &api.AccessPolicy{
		Version:  1,
		Etag:     "etag",
		Bindings: []api.Binding{viewer, api.PublicInvokeBinding(), mixed},
	}
	require.True(t, policy.HasPublicInvoke())

	// only bindings granted to allUsers alone are removed
	filtered := policy.WithoutPublicOnly()
	require.Equal(t, "etag", filtered.Etag)
	require.Equal(t, []api.Binding{viewer, mixed}, filtered.Bindings)
	require.True(t, filtered.HasPublicInvoke())

	require.False(t, (&api.AccessPolicy{Bindings: []api.Binding{viewer}}).HasPublicInvoke())
	require.False(t, api.Binding{Role: api.InvokerRole}.IsPublicOnly())
	require.Len(t, policy.Bindings, 3)
}

func TestForwardingRuleMatches(t *testing.T) {
	rule := api.ForwardingRule{MatchPattern: "d.example.com/*"}
	require.True(t, rule.Matches("d.example.com"))
	require.True(t, rule.Matches("d.example.com/*"))
	require.False(t, rule.Matches("e.example.com"))
}

func TestUptimeCheckID(t *testing.T) {
	check := api.UptimeCheck{Name: "projects/p/uptimeCheckConfigs/check-1"}
	require.Equal(t, "check-1", check.ID())
	require.Equal(t, "plain", (&api.UptimeCheck{Name: "plain"}).ID())
}

func TestErrors(t *testing.T) {
	precondition := fmt.Errorf("wrapped: %w", &api.PreconditionFailedError{
		Resource:  "web",
		Operation: "create",
		Reason:    api.AlreadyExists,
		Remedy:    "delete the service first",
	})
	require.ErrorIs(t, precondition, api.ErrPreconditionFailed)
	require.False(t, errors.Is(precondition, api.ErrRemoteCallFailed))
	require.Contains(t, precondition.Error(), "(delete the service first)")

	zoneErr := &api.ZoneNotFoundError{Zone: "example.com", Account: "account"}
	require.ErrorIs(t, zoneErr, api.ErrZoneNotFound)
	require.Equal(t, "zone 'example.com' not found in account 'account'", zoneErr.Error())

	remote := &api.RemoteCallError{Provider: "run", Operation: "list", Status: 404, Code: codes.NotFound}
	credential := &api.CredentialUnavailableError{Secret: "key", Err: remote}
	require.ErrorIs(t, credential, api.ErrCredentialUnavailable)
	require.ErrorIs(t, credential, api.ErrRemoteCallFailed)
	require.True(t, api.IsRemoteCode(credential, codes.NotFound))
	require.False(t, api.IsRemoteCode(errors.New("plain"), codes.NotFound))
}

func TestHTTPStatusCode(t *testing.T) {
	for status, code := range map[int]codes.Code{
		400: codes.InvalidArgument,
		401: codes.Unauthenticated,
		403: codes.PermissionDenied,
		404: codes.NotFound,
		409: codes.AlreadyExists,
		412: codes.FailedPrecondition,
		429: codes.ResourceExhausted,
		500: codes.Internal,
		503: codes.Unavailable,
		418: codes.Unknown,
	} {
		require.Equal(t, code, api.HTTPStatusCode(status), status)
	}
}
