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

package secretmanager_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/willgleich/gleich-tech-switch/pkg/api"
	"github.com/willgleich/gleich-tech-switch/pkg/providers/fake"
	"github.com/willgleich/gleich-tech-switch/pkg/providers/secretmanager"
)

func TestGetSecret(t *testing.T) {
	cloud := fake.NewCloud()
	defer cloud.Close()
	client := cloud.SecretManagerClient()
	ctx := context.Background()

	cloud.AddSecret("project", "cloudflare-api-key", "token\n")
	cloud.AddSecret("project", "blank", "  ")

	value, err := client.GetSecret(ctx, "project", "cloudflare-api-key")
	require.Nil(t, err)
	require.Equal(t, "token", value)

	_, err = client.GetSecret(ctx, "project", "missing")
	require.ErrorIs(t, err, api.ErrCredentialUnavailable)
	require.ErrorIs(t, err, api.ErrRemoteCallFailed)

	var credErr *api.CredentialUnavailableError
	_, err = client.GetSecret(ctx, "project", "blank")
	require.ErrorAs(t, err, &credErr)
	require.Equal(t, "blank", credErr.Secret)
}

func TestVersionName(t *testing.T) {
	require.Equal(t, "projects/p/secrets/s/versions/latest", secretmanager.VersionName("p", "s", ""))
	require.Equal(t, "projects/p/secrets/s/versions/3", secretmanager.VersionName("p", "s", "3"))
}
