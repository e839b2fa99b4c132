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
	"encoding/json"
	"strings"

	"google.golang.org/grpc/codes"

	"github.com/willgleich/gleich-tech-switch/pkg/api"
	"github.com/willgleich/gleich-tech-switch/pkg/util/jsonapi"
)

// errorEnvelope is the error body returned by Google REST APIs.
type errorEnvelope struct {
	Error struct {
		Code    int        `json:"code"`
		Message string     `json:"message"`
		Status  codes.Code `json:"status"`
	} `json:"error"`
}

// DecodeError converts a non-success Google API response to an *api.RemoteCallError.
func DecodeError(provider, operation string, resp *jsonapi.Response) error {
	remoteErr := &api.RemoteCallError{
		Provider:  provider,
		Operation: operation,
		Status:    resp.Status,
		Code:      api.HTTPStatusCode(resp.Status),
		Message:   strings.TrimSpace(string(resp.Body)),
	}

	var envelope errorEnvelope
	if err := json.Unmarshal(resp.Body, &envelope); err != nil || envelope.Error.Message == "" {
		return remoteErr
	}

	remoteErr.Message = envelope.Error.Message
	if envelope.Error.Status != codes.OK {
		remoteErr.Code = envelope.Error.Status
	}
	return remoteErr
}
