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

package google_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"

	"github.com/willgleich/gleich-tech-switch/pkg/api"
	"github.com/willgleich/gleich-tech-switch/pkg/providers/google"
	"github.com/willgleich/gleich-tech-switch/pkg/util/jsonapi"
)

func TestDuration(t *testing.T) {
	data, err := json.Marshal(google.Seconds(60))
	require.Nil(t, err)
	require.JSONEq(t, `"60s"`, string(data))

	data, err = json.Marshal(google.Duration{Duration: 20 * time.Minute})
	require.Nil(t, err)
	require.JSONEq(t, `"1200s"`, string(data))

	var d google.Duration
	require.Nil(t, json.Unmarshal([]byte(`"1.5s"`), &d))
	require.Equal(t, 1500*time.Millisecond, d.Duration)

	require.NotNil(t, json.Unmarshal([]byte(`"60"`), &d))
	require.NotNil(t, json.Unmarshal([]byte(`60`), &d))
}

func TestDecodeError(t *testing.T) {
	err := google.DecodeError("run", "list services", &jsonapi.Response{
		Status: 404,
		Body:   []byte(`{"error":{"code":404,"message":"service not found","status":"NOT_FOUND"}}`),
	})

	var remoteErr *api.RemoteCallError
	require.ErrorAs(t, err, &remoteErr)
	require.Equal(t, "run", remoteErr.Provider)
	require.Equal(t, 404, remoteErr.Status)
	require.Equal(t, codes.NotFound, remoteErr.Code)
	require.Equal(t, "service not found", remoteErr.Message)
	require.ErrorIs(t, err, api.ErrRemoteCallFailed)

	// the envelope status takes precedence over the HTTP status
	err = google.DecodeError("run", "set policy", &jsonapi.Response{
		Status: 400,
		Body:   []byte(`{"error":{"code":400,"message":"stale","status":"FAILED_PRECONDITION"}}`),
	})
	require.True(t, api.IsRemoteCode(err, codes.FailedPrecondition))

	// plain bodies are kept as the message
	err = google.DecodeError("monitoring", "create check", &jsonapi.Response{
		Status: 503,
		Body:   []byte("upstream unavailable\n"),
	})
	require.ErrorAs(t, err, &remoteErr)
	require.Equal(t, codes.Unavailable, remoteErr.Code)
	require.Equal(t, "upstream unavailable", remoteErr.Message)
}
