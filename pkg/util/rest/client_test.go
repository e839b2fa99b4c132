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

package rest_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"

	"github.com/willgleich/gleich-tech-switch/pkg/api"
	"github.com/willgleich/gleich-tech-switch/pkg/providers/google"
	"github.com/willgleich/gleich-tech-switch/pkg/util/jsonapi"
	"github.com/willgleich/gleich-tech-switch/pkg/util/rest"
)

type object struct {
	Name string `json:"name"`
}

func newServer(t *testing.T) *httptest.Server {
	r := chi.NewRouter()
	r.Get("/objects/{name}", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"name":"` + chi.URLParam(r, "name") + `"}`))
	})
	r.Post("/objects", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.JSONEq(t, `{"name":"new"}`, string(body))
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte("already exists"))
	})
	r.Delete("/objects/{name}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return httptest.NewServer(r)
}

func TestClient(t *testing.T) {
	server := newServer(t)
	defer server.Close()

	client := rest.NewClient(&rest.Config{
		Client:   jsonapi.NewAuthorizedClient(server.URL+"/", google.NewStaticTokenSource("token")),
		Provider: "test",
	})
	ctx := context.Background()

	var obj object
	require.Nil(t, client.Get(ctx, "get object", "/objects/a", &obj))
	require.Equal(t, "a", obj.Name)

	err := client.Post(ctx, "create object", "/objects", &object{Name: "new"}, nil)
	var remoteErr *api.RemoteCallError
	require.ErrorAs(t, err, &remoteErr)
	require.Equal(t, "test", remoteErr.Provider)
	require.Equal(t, "create object", remoteErr.Operation)
	require.Equal(t, http.StatusConflict, remoteErr.Status)
	require.Equal(t, codes.AlreadyExists, remoteErr.Code)
	require.Equal(t, "already exists", remoteErr.Message)

	require.Nil(t, client.Delete(ctx, "delete object", "/objects/a", &obj))

	err = client.Do(ctx, "patch object", http.MethodPatch, "/objects/a", nil, nil)
	require.ErrorContains(t, err, "unsupported method")
}

func TestClientUnreachable(t *testing.T) {
	server := newServer(t)
	url := server.URL
	server.Close()

	client := rest.NewClient(&rest.Config{
		Client:   jsonapi.NewClient(url, http.DefaultClient),
		Provider: "test",
	})

	err := client.Get(context.Background(), "get object", "/objects/a", nil)
	require.True(t, api.IsRemoteCode(err, codes.Unavailable))
	require.ErrorIs(t, err, api.ErrRemoteCallFailed)
}
