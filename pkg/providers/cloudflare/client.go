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

// Package cloudflare is a client of the Cloudflare v4 API, limited to zones and page rules.
package cloudflare

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"google.golang.org/grpc/codes"

	"github.com/willgleich/gleich-tech-switch/pkg/api"
	"github.com/willgleich/gleich-tech-switch/pkg/util/jsonapi"
	"github.com/willgleich/gleich-tech-switch/pkg/util/rest"
)

const (
	// DefaultEndpoint is the Cloudflare API endpoint.
	DefaultEndpoint = "https://api.cloudflare.com/client/v4"
	// Provider names the Cloudflare provider in errors.
	Provider = "cloudflare"

	zonesPerPage = 50
)

// Client for the Cloudflare API.
type Client struct {
	rest *rest.Client

	logger *logrus.Entry
}

// call issues a request and decodes the envelope result into out.
func (c *Client) call(ctx context.Context, operation, method, path string, in, out any) (*ResultInfo, error) {
	var envelope Envelope
	if err := c.rest.Do(ctx, operation, method, path, in, &envelope); err != nil {
		return nil, err
	}

	if !envelope.Success {
		return nil, &api.RemoteCallError{
			Provider:  Provider,
			Operation: operation,
			Status:    http.StatusOK,
			Code:      codes.Unknown,
			Message:   joinMessages(envelope.Errors),
		}
	}

	if out != nil && len(envelope.Result) > 0 {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return nil, fmt.Errorf("unable to decode %s result: %w", operation, err)
		}
	}

	return envelope.ResultInfo, nil
}

// ListZones returns all zones of the account (all zones visible to the token if accountID is empty).
func (c *Client) ListZones(ctx context.Context, accountID string) ([]Zone, error) {
	var zones []Zone
	for page := 1; ; page++ {
		query := url.Values{
			"page":     {strconv.Itoa(page)},
			"per_page": {strconv.Itoa(zonesPerPage)},
		}
		if accountID != "" {
			query.Set("account.id", accountID)
		}

		var result []Zone
		info, err := c.call(ctx, "list zones", http.MethodGet, "/zones?"+query.Encode(), nil, &result)
		if err != nil {
			return nil, err
		}

		zones = append(zones, result...)
		if info == nil || page >= info.TotalPages || len(result) == 0 {
			break
		}
	}

	c.logger.Debugf("Listed %d zones.", len(zones))
	return zones, nil
}

// ListPageRules returns all page rules of a zone.
func (c *Client) ListPageRules(ctx context.Context, zoneID string) ([]PageRule, error) {
	var rules []PageRule
	if _, err := c.call(ctx, "list page rules", http.MethodGet, "/zones/"+zoneID+"/pagerules", nil, &rules); err != nil {
		return nil, err
	}
	return rules, nil
}

// CreatePageRule creates a page rule in a zone.
func (c *Client) CreatePageRule(ctx context.Context, zoneID string, rule *PageRule) (*PageRule, error) {
	c.logger.Infof("Creating page rule for '%s' in zone %s.", rule.Pattern(), zoneID)

	var created PageRule
	if _, err := c.call(ctx, "create page rule", http.MethodPost, "/zones/"+zoneID+"/pagerules", rule, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// DeletePageRule deletes a page rule from a zone.
func (c *Client) DeletePageRule(ctx context.Context, zoneID, ruleID string) error {
	c.logger.Infof("Deleting page rule %s in zone %s.", ruleID, zoneID)

	_, err := c.call(ctx, "delete page rule", http.MethodDelete, "/zones/"+zoneID+"/pagerules/"+ruleID, nil, nil)
	return err
}

// decodeError converts a non-success response to an *api.RemoteCallError,
// using the envelope error messages when present.
func decodeError(provider, operation string, resp *jsonapi.Response) error {
	remoteErr := &api.RemoteCallError{
		Provider:  provider,
		Operation: operation,
		Status:    resp.Status,
		Code:      api.HTTPStatusCode(resp.Status),
		Message:   strings.TrimSpace(string(resp.Body)),
	}

	var envelope Envelope
	if err := json.Unmarshal(resp.Body, &envelope); err == nil && len(envelope.Errors) > 0 {
		remoteErr.Message = joinMessages(envelope.Errors)
	}

	return remoteErr
}

func joinMessages(messages []Message) string {
	parts := make([]string, 0, len(messages))
	for _, m := range messages {
		parts = append(parts, fmt.Sprintf("%d: %s", m.Code, m.Message))
	}
	return strings.Join(parts, "; ")
}

// NewClient returns a new Cloudflare client authorizing requests with an API token.
func NewClient(endpoint, apiToken string) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: apiToken, TokenType: "Bearer"})
	return &Client{
		rest: rest.NewClient(&rest.Config{
			Client:      jsonapi.NewAuthorizedClient(endpoint, source),
			Provider:    Provider,
			DecodeError: decodeError,
		}),
		logger: logrus.WithField("component", "providers.cloudflare"),
	}
}
