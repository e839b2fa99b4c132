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

// Package secretmanager reads secret payloads from the Secret Manager API (v1).
package secretmanager

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/willgleich/gleich-tech-switch/pkg/api"
	"github.com/willgleich/gleich-tech-switch/pkg/providers/google"
	"github.com/willgleich/gleich-tech-switch/pkg/util/jsonapi"
	"github.com/willgleich/gleich-tech-switch/pkg/util/rest"
)

const (
	// DefaultEndpoint is the Secret Manager API endpoint.
	DefaultEndpoint = "https://secretmanager.googleapis.com"
	// Provider names the secret provider in errors.
	Provider = "secretmanager"
	// LatestVersion is the alias of the newest enabled secret version.
	LatestVersion = "latest"
)

// AccessResponse is the response of a secret version access.
type AccessResponse struct {
	Name    string        `json:"name"`
	Payload SecretPayload `json:"payload"`
}

// SecretPayload holds the base64-encoded secret data.
type SecretPayload struct {
	Data string `json:"data"`
}

// Client for the Secret Manager API.
type Client struct {
	rest *rest.Client

	logger *logrus.Entry
}

// VersionName returns the resource name of a secret version.
func VersionName(project, secret, version string) string {
	if version == "" {
		version = LatestVersion
	}
	return fmt.Sprintf("projects/%s/secrets/%s/versions/%s", project, secret, version)
}

// GetSecret returns the payload of the latest version of a secret.
// Any failure is returned as an *api.CredentialUnavailableError.
func (c *Client) GetSecret(ctx context.Context, project, secret string) (string, error) {
	name := VersionName(project, secret, LatestVersion)
	c.logger.Debugf("Accessing secret version %s.", name)

	var resp AccessResponse
	if err := c.rest.Get(ctx, "access secret version", "/v1/"+name+":access", &resp); err != nil {
		return "", &api.CredentialUnavailableError{Secret: secret, Err: err}
	}

	data, err := base64.StdEncoding.DecodeString(resp.Payload.Data)
	if err != nil {
		return "", &api.CredentialUnavailableError{
			Secret: secret,
			Err:    fmt.Errorf("unable to decode payload: %w", err),
		}
	}

	value := strings.TrimSpace(string(data))
	if value == "" {
		return "", &api.CredentialUnavailableError{
			Secret: secret,
			Err:    fmt.Errorf("empty payload"),
		}
	}

	return value, nil
}

// NewClient returns a new Secret Manager client for the given endpoint.
func NewClient(endpoint string, source oauth2.TokenSource) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	return &Client{
		rest: rest.NewClient(&rest.Config{
			Client:      jsonapi.NewAuthorizedClient(endpoint, source),
			Provider:    Provider,
			DecodeError: google.DecodeError,
		}),
		logger: logrus.WithField("component", "providers.secretmanager"),
	}
}
