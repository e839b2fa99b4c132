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

package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"

	"github.com/willgleich/gleich-tech-switch/pkg/api"
	"github.com/willgleich/gleich-tech-switch/pkg/util/jsonapi"
)

// ErrorDecoder converts a non-success response to an error.
type ErrorDecoder func(provider, operation string, resp *jsonapi.Response) error

// Config specifies a client configuration.
type Config struct {
	// Client is the underlying HTTP client.
	Client *jsonapi.Client
	// Provider names the remote system, used in errors.
	Provider string
	// DecodeError converts a non-success response to an error.
	// If nil, DefaultErrorDecoder is used.
	DecodeError ErrorDecoder
}

// Client for issuing REST-JSON requests against a single provider.
type Client struct {
	client      *jsonapi.Client
	provider    string
	decodeError ErrorDecoder
}

// Get an object into out.
func (c *Client) Get(ctx context.Context, operation, path string, out any) error {
	return c.Do(ctx, operation, http.MethodGet, path, nil, out)
}

// Post an object, decoding the response into out (if not nil).
func (c *Client) Post(ctx context.Context, operation, path string, in, out any) error {
	return c.Do(ctx, operation, http.MethodPost, path, in, out)
}

// Delete an object, decoding the response into out (if not nil).
func (c *Client) Delete(ctx context.Context, operation, path string, out any) error {
	return c.Do(ctx, operation, http.MethodDelete, path, nil, out)
}

// Do issues a request. Any failure to reach the provider, and any non-2xx
// response, is returned as an *api.RemoteCallError.
func (c *Client) Do(ctx context.Context, operation, method, path string, in, out any) error {
	var body []byte
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("unable to encode object: %w", err)
		}
		body = encoded
	}

	var (
		resp *jsonapi.Response
		err  error
	)
	switch method {
	case http.MethodGet:
		resp, err = c.client.Get(ctx, path)
	case http.MethodPost:
		resp, err = c.client.Post(ctx, path, body)
	case http.MethodPut:
		resp, err = c.client.Put(ctx, path, body)
	case http.MethodDelete:
		resp, err = c.client.Delete(ctx, path, body)
	default:
		return fmt.Errorf("unsupported method: %s", method)
	}
	if err != nil {
		return &api.RemoteCallError{
			Provider:  c.provider,
			Operation: operation,
			Code:      codes.Unavailable,
			Err:       err,
		}
	}

	if !resp.OK() {
		return c.decodeError(c.provider, operation, resp)
	}

	if out == nil || len(resp.Body) == 0 {
		return nil
	}

	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("unable to decode %s response: %w", operation, err)
	}

	return nil
}

// DefaultErrorDecoder returns the response body as the error message.
func DefaultErrorDecoder(provider, operation string, resp *jsonapi.Response) error {
	return &api.RemoteCallError{
		Provider:  provider,
		Operation: operation,
		Status:    resp.Status,
		Code:      api.HTTPStatusCode(resp.Status),
		Message:   string(resp.Body),
	}
}

// NewClient returns a new REST-JSON client.
func NewClient(config *Config) *Client {
	decodeError := config.DecodeError
	if decodeError == nil {
		decodeError = DefaultErrorDecoder
	}

	return &Client{
		client:      config.Client,
		provider:    config.Provider,
		decodeError: decodeError,
	}
}
