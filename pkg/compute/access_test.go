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

package compute_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/willgleich/gleich-tech-switch/pkg/api"
	"github.com/willgleich/gleich-tech-switch/pkg/providers/fake"
)

var viewer = api.Binding{Role: "roles/run.viewer", Members: []string{"user:a@example.com"}}

func TestAllowPublicReplacesBindings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.cloud.AddService(handle.Parent(), handle.Name())
	f.cloud.SetPolicy(handle.ResourceName(), api.AccessPolicy{Bindings: []api.Binding{viewer}})

	require.Nil(t, f.access.AllowPublic(ctx))
	require.Equal(t, []api.Binding{api.PublicInvokeBinding()}, f.cloud.Policy(handle.ResourceName()).Bindings)

	public, err := f.access.IsPublic(ctx)
	require.Nil(t, err)
	require.True(t, public)

	// allowing twice leaves a single binding
	require.Nil(t, f.access.AllowPublic(ctx))
	require.Len(t, f.cloud.Policy(handle.ResourceName()).Bindings, 1)
}

func TestDisallowPublic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.cloud.AddService(handle.Parent(), handle.Name())

	mixed := api.Binding{Role: api.InvokerRole, Members: []string{api.AllUsers, "user:b@example.com"}}
	f.cloud.SetPolicy(handle.ResourceName(), api.AccessPolicy{
		Bindings: []api.Binding{viewer, api.PublicInvokeBinding(), mixed},
	})

	require.Nil(t, f.access.DisallowPublic(ctx))
	require.Equal(t, []api.Binding{viewer, mixed}, f.cloud.Policy(handle.ResourceName()).Bindings)

	// idempotent: the policy is written back unchanged
	require.Nil(t, f.access.DisallowPublic(ctx))
	require.Equal(t, []api.Binding{viewer, mixed}, f.cloud.Policy(handle.ResourceName()).Bindings)
	require.Len(t, f.cloud.CallsTo(fake.Run), 2)
}

func TestDisallowPublicOnPrivateService(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.cloud.AddService(handle.Parent(), handle.Name())

	require.Nil(t, f.access.DisallowPublic(ctx))
	require.Empty(t, f.cloud.Policy(handle.ResourceName()).Bindings)

	public, err := f.access.IsPublic(ctx)
	require.Nil(t, err)
	require.False(t, public)
}

func TestDisallowPublicStaleEtag(t *testing.T) {
	f := newFixture(t)
	f.cloud.AddService(handle.Parent(), handle.Name())
	f.cloud.Fail(fake.Run, http.MethodPost, ":setIamPolicy", http.StatusConflict)

	err := f.access.DisallowPublic(context.Background())
	require.ErrorIs(t, err, api.ErrRemoteCallFailed)
}

func TestAttachDomain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.cloud.AddService(handle.Parent(), handle.Name())

	require.Nil(t, f.domain.Attach(ctx, "d.example.com"))

	mapping, ok := f.cloud.DomainMapping(handle.Parent(), "d.example.com")
	require.True(t, ok)
	require.Equal(t, handle.Name(), mapping.Spec.RouteName)

	// mapped domains are not checked before attaching
	err := f.domain.Attach(ctx, "d.example.com")
	require.ErrorIs(t, err, api.ErrRemoteCallFailed)
}
