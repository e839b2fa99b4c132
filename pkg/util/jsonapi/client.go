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

package jsonapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

// DefaultTimeout is the timeout of a single request issued by a client
// created with NewAuthorizedClient.
const DefaultTimeout = 30 * time.Second

// Client for issuing HTTP requests.
type Client struct {
	client    *http.Client
	serverURL string

	logger *logrus.Entry
}

// Response for a request.
type Response struct {
	Status int
	Body   []byte
}

// OK returns true for a 2xx status.
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Get sends an HTTP GET request.
func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

// Post sends an HTTP POST request.
func (c *Client) Post(ctx context.Context, path string, body []byte) (*Response, error) {
	return c.do(ctx, http.MethodPost, path, body)
}

// Put sends an HTTP PUT request.
func (c *Client) Put(ctx context.Context, path string, body []byte) (*Response, error) {
	return c.do(ctx, http.MethodPut, path, body)
}

// Delete sends an HTTP DELETE request.
func (c *Client) Delete(ctx context.Context, path string, body []byte) (*Response, error) {
	return c.do(ctx, http.MethodDelete, path, body)
}

// ServerURL returns the server URL configured for this client.
func (c *Client) ServerURL() string {
	return c.serverURL
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (*Response, error) {
	requestLogger := c.logger.WithFields(logrus.Fields{"method": method, "path": path})

	requestLogger.WithField("body-length", len(body)).Debugf("Issuing request.")
	requestLogger.Debugf("Request body: %s.", body)

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.serverURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("unable to create http request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to perform http request: %w", err)
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			requestLogger.Warnf("Cannot close response body: %v.", err)
		}
	}()

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("unable to read response body: %w", err)
	}

	requestLogger.WithField("body-length", len(body)).Debugf("Received response: %d.", resp.StatusCode)
	requestLogger.Debugf("Response body: %s.", body)

	return &Response{
		Status: resp.StatusCode,
		Body:   body,
	}, nil
}

// NewClient returns a new HTTP client for the given server URL.
func NewClient(serverURL string, client *http.Client) *Client {
	serverURL = strings.TrimSuffix(serverURL, "/")
	return &Client{
		client:    client,
		serverURL: serverURL,
		logger: logrus.WithFields(logrus.Fields{
			"component":  "http-client",
			"server-url": serverURL}),
	}
}

// NewAuthorizedClient returns a new HTTP client which authorizes every
// request with a bearer token taken from the token source.
func NewAuthorizedClient(serverURL string, source oauth2.TokenSource) *Client {
	return NewClient(serverURL, &http.Client{
		Transport: &oauth2.Transport{
			Source: source,
			Base:   http.DefaultTransport,
		},
		Timeout: DefaultTimeout,
	})
}
