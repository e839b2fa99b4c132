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

package google

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/jwa"
	"github.com/lestrrat-go/jwx/jwk"
	"github.com/lestrrat-go/jwx/jwt"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	oauth2google "golang.org/x/oauth2/google"
)

const (
	// CloudPlatformScope grants access to all Google Cloud APIs.
	CloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"
	// DefaultTokenURI is the OAuth2 token endpoint used when a key does not specify one.
	DefaultTokenURI = "https://oauth2.googleapis.com/token"

	jwtBearerGrantType  = "urn:ietf:params:oauth:grant-type:jwt-bearer"
	assertionLifetime   = time.Hour
	tokenRequestTimeout = 10 * time.Second
)

// ServiceAccountKey is a JSON service-account key file.
type ServiceAccountKey struct {
	Type         string `json:"type"`
	ProjectID    string `json:"project_id"`
	PrivateKeyID string `json:"private_key_id"`
	PrivateKey   string `json:"private_key"`
	ClientEmail  string `json:"client_email"`
	TokenURI     string `json:"token_uri"`
}

// ReadServiceAccountKey reads a service-account key file.
func ReadServiceAccountKey(path string) (*ServiceAccountKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read service account key: %w", err)
	}

	var key ServiceAccountKey
	if err := json.Unmarshal(data, &key); err != nil {
		return nil, fmt.Errorf("cannot parse service account key '%s': %w", path, err)
	}

	if key.ClientEmail == "" || key.PrivateKey == "" {
		return nil, fmt.Errorf("service account key '%s' is missing client_email or private_key", path)
	}

	if key.TokenURI == "" {
		key.TokenURI = DefaultTokenURI
	}

	return &key, nil
}

// tokenResponse is the body returned by the token endpoint.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

func (r *tokenResponse) token() (*oauth2.Token, error) {
	if r.AccessToken == "" {
		return nil, errors.New("token response is missing access_token")
	}

	token := &oauth2.Token{
		AccessToken: r.AccessToken,
		TokenType:   r.TokenType,
	}
	if r.ExpiresIn > 0 {
		token.Expiry = time.Now().Add(time.Duration(r.ExpiresIn) * time.Second)
	}
	return token, nil
}

// serviceAccountSource exchanges a signed JWT assertion for an access token.
type serviceAccountSource struct {
	email    string
	tokenURI string
	scopes   []string
	signKey  jwk.Key
	client   *http.Client

	logger *logrus.Entry
}

// assertion returns a signed JWT asserting the service account identity.
func (s *serviceAccountSource) assertion(now time.Time) ([]byte, error) {
	token, err := jwt.NewBuilder().
		Issuer(s.email).
		Audience([]string{s.tokenURI}).
		IssuedAt(now).
		Expiration(now.Add(assertionLifetime)).
		Claim("scope", strings.Join(s.scopes, " ")).
		Build()
	if err != nil {
		return nil, fmt.Errorf("unable to build assertion: %w", err)
	}

	signed, err := jwt.Sign(token, jwa.RS256, s.signKey)
	if err != nil {
		return nil, fmt.Errorf("unable to sign assertion: %w", err)
	}

	return signed, nil
}

// Token implements oauth2.TokenSource.
func (s *serviceAccountSource) Token() (*oauth2.Token, error) {
	s.logger.Debug("Requesting access token.")

	assertion, err := s.assertion(time.Now())
	if err != nil {
		return nil, err
	}

	form := url.Values{
		"grant_type": {jwtBearerGrantType},
		"assertion":  {string(assertion)},
	}

	ctx, cancel := context.WithTimeout(context.Background(), tokenRequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURI, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("unable to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return doTokenRequest(s.client, req)
}

// NewServiceAccountTokenSource returns a token source issuing access tokens
// for a service account key. Tokens are reused until they expire.
func NewServiceAccountTokenSource(key *ServiceAccountKey, scopes ...string) (oauth2.TokenSource, error) {
	privateKey, err := parsePrivateKey(key.PrivateKey)
	if err != nil {
		return nil, err
	}

	signKey, err := jwk.New(privateKey)
	if err != nil {
		return nil, fmt.Errorf("unable to create JWK signing key: %w", err)
	}

	if key.PrivateKeyID != "" {
		if err := signKey.Set(jwk.KeyIDKey, key.PrivateKeyID); err != nil {
			return nil, fmt.Errorf("unable to set key id: %w", err)
		}
	}

	if len(scopes) == 0 {
		scopes = []string{CloudPlatformScope}
	}

	tokenURI := key.TokenURI
	if tokenURI == "" {
		tokenURI = DefaultTokenURI
	}

	return oauth2.ReuseTokenSource(nil, &serviceAccountSource{
		email:    key.ClientEmail,
		tokenURI: tokenURI,
		scopes:   scopes,
		signKey:  signKey,
		client:   &http.Client{Timeout: tokenRequestTimeout},
		logger: logrus.WithFields(logrus.Fields{
			"component": "providers.google.service-account",
			"email":     key.ClientEmail,
		}),
	}), nil
}

// NewMetadataTokenSource returns a token source backed by the metadata server,
// for the default service account. GCE_METADATA_HOST overrides the server address.
// Tokens are reused until they expire.
func NewMetadataTokenSource(scopes ...string) oauth2.TokenSource {
	if len(scopes) == 0 {
		scopes = []string{CloudPlatformScope}
	}
	return oauth2google.ComputeTokenSource("", scopes...)
}

// NewStaticTokenSource returns a token source always returning the given token.
func NewStaticTokenSource(accessToken string) oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
}

func doTokenRequest(client *http.Client, req *http.Request) (*oauth2.Token, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to request token: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("unable to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token request failed (%d): %s", resp.StatusCode, body)
	}

	var tokenResp tokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("unable to decode token response: %w", err)
	}

	return tokenResp.token()
}

func parsePrivateKey(encoded string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(encoded))
	if block == nil {
		return nil, errors.New("private key is not PEM encoded")
	}

	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("unsupported private key type %T", key)
		}
		return rsaKey, nil
	}

	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("unable to parse private key: %w", err)
	}
	return key, nil
}
