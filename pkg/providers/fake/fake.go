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

// Package fake serves in-memory renditions of the compute, monitoring, edge and
// secret APIs over HTTP, for tests. Every mutating call is recorded.
package fake

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/go-chi/chi"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"

	"github.com/willgleich/gleich-tech-switch/pkg/providers/cloudflare"
	"github.com/willgleich/gleich-tech-switch/pkg/providers/google"
	"github.com/willgleich/gleich-tech-switch/pkg/providers/monitoring"
	"github.com/willgleich/gleich-tech-switch/pkg/providers/run"
	"github.com/willgleich/gleich-tech-switch/pkg/providers/secretmanager"
)

// Provider names, as recorded in calls.
const (
	Run           = run.Provider
	Monitoring    = monitoring.Provider
	Cloudflare    = cloudflare.Provider
	SecretManager = secretmanager.Provider
)

// Call is a recorded mutating request.
type Call struct {
	Provider string
	Method   string
	Path     string
}

// fault makes matching requests fail.
type fault struct {
	provider string
	method   string
	fragment string
	status   int
}

// Cloud is a set of fake provider servers sharing one lock.
type Cloud struct {
	lock sync.Mutex

	// PageSize limits list responses. Zero disables paging.
	PageSize int

	run        *runState
	monitoring *monitoringState
	cloudflare *cloudflareState
	secrets    map[string]string

	calls  []Call
	faults []fault

	runServer        *httptest.Server
	monitoringServer *httptest.Server
	cloudflareServer *httptest.Server
	secretsServer    *httptest.Server

	logger *logrus.Entry
}

// RunURL returns the endpoint of the compute API.
func (c *Cloud) RunURL() string {
	return c.runServer.URL
}

// MonitoringURL returns the endpoint of the monitoring API.
func (c *Cloud) MonitoringURL() string {
	return c.monitoringServer.URL
}

// CloudflareURL returns the endpoint of the edge API.
func (c *Cloud) CloudflareURL() string {
	return c.cloudflareServer.URL
}

// SecretManagerURL returns the endpoint of the secret API.
func (c *Cloud) SecretManagerURL() string {
	return c.secretsServer.URL
}

// Token is the bearer token accepted by the fake servers.
const Token = "fake-token"

// RunClient returns a compute client of the fake.
func (c *Cloud) RunClient() *run.Client {
	return run.NewClient(c.RunURL(), google.NewStaticTokenSource(Token))
}

// MonitoringClient returns a monitoring client of the fake.
func (c *Cloud) MonitoringClient() *monitoring.Client {
	return monitoring.NewClient(c.MonitoringURL(), google.NewStaticTokenSource(Token))
}

// CloudflareClient returns an edge client of the fake.
func (c *Cloud) CloudflareClient() *cloudflare.Client {
	return cloudflare.NewClient(c.CloudflareURL(), Token)
}

// SecretManagerClient returns a secret client of the fake.
func (c *Cloud) SecretManagerClient() *secretmanager.Client {
	return secretmanager.NewClient(c.SecretManagerURL(), google.NewStaticTokenSource(Token))
}

// Calls returns the mutating calls recorded so far.
func (c *Cloud) Calls() []Call {
	c.lock.Lock()
	defer c.lock.Unlock()
	return append([]Call(nil), c.calls...)
}

// CallsTo returns the mutating calls recorded for a provider.
func (c *Cloud) CallsTo(provider string) []Call {
	var calls []Call
	for _, call := range c.Calls() {
		if call.Provider == provider {
			calls = append(calls, call)
		}
	}
	return calls
}

// ResetCalls clears the recorded calls.
func (c *Cloud) ResetCalls() {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.calls = nil
}

// Fail makes every request of the provider with the given method, whose path
// contains fragment, fail with status. An empty method matches any method.
func (c *Cloud) Fail(provider, method, fragment string, status int) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.faults = append(c.faults, fault{provider: provider, method: method, fragment: fragment, status: status})
}

// ClearFaults removes all injected failures.
func (c *Cloud) ClearFaults() {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.faults = nil
}

// Close shuts down all servers.
func (c *Cloud) Close() {
	c.runServer.Close()
	c.monitoringServer.Close()
	c.cloudflareServer.Close()
	c.secretsServer.Close()
}

// middleware checks authorization, applies faults and records mutating calls.
// The cloud lock is held while the handler runs.
func (c *Cloud) middleware(provider string, writeError func(w http.ResponseWriter, status int, msg string)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			c.lock.Lock()
			defer c.lock.Unlock()

			c.logger.Debugf("%s %s %s", provider, r.Method, r.URL.Path)

			if r.Method != http.MethodGet {
				c.calls = append(c.calls, Call{Provider: provider, Method: r.Method, Path: r.URL.Path})
			}

			for _, f := range c.faults {
				if f.provider != provider || (f.method != "" && f.method != r.Method) {
					continue
				}
				if strings.Contains(r.URL.Path, f.fragment) {
					writeError(w, f.status, "injected failure")
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// writeGoogleError writes a Google API error envelope.
func writeGoogleError(w http.ResponseWriter, status int, msg string) {
	code := googleCode(status)
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"code":    status,
			"message": msg,
			"status":  code,
		},
	})
}

func googleCode(status int) codes.Code {
	switch status {
	case http.StatusBadRequest:
		return codes.InvalidArgument
	case http.StatusNotFound:
		return codes.NotFound
	case http.StatusConflict:
		return codes.AlreadyExists
	case http.StatusUnauthorized:
		return codes.Unauthenticated
	case http.StatusForbidden:
		return codes.PermissionDenied
	}
	return codes.Internal
}

func decodeBody(r *http.Request, out any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(out)
}

// page returns the bounds of the page starting at offset.
func (c *Cloud) page(total, offset int) (int, int) {
	if offset > total {
		offset = total
	}
	end := total
	if c.PageSize > 0 && offset+c.PageSize < total {
		end = offset + c.PageSize
	}
	return offset, end
}

// NewCloud starts the fake provider servers.
func NewCloud() *Cloud {
	c := &Cloud{
		run:        newRunState(),
		monitoring: newMonitoringState(),
		cloudflare: newCloudflareState(),
		secrets:    make(map[string]string),
		logger:     logrus.WithField("component", "providers.fake"),
	}

	runRouter := chi.NewRouter()
	runRouter.Use(c.middleware(Run, writeGoogleError))
	runRouter.HandleFunc("/v1/*", c.handleRun)
	c.runServer = httptest.NewServer(runRouter)

	monitoringRouter := chi.NewRouter()
	monitoringRouter.Use(c.middleware(Monitoring, writeGoogleError))
	c.routeMonitoring(monitoringRouter)
	c.monitoringServer = httptest.NewServer(monitoringRouter)

	cloudflareRouter := chi.NewRouter()
	cloudflareRouter.Use(c.middleware(Cloudflare, writeCloudflareError))
	c.routeCloudflare(cloudflareRouter)
	c.cloudflareServer = httptest.NewServer(cloudflareRouter)

	secretsRouter := chi.NewRouter()
	secretsRouter.Use(c.middleware(SecretManager, writeGoogleError))
	secretsRouter.Get("/v1/*", c.handleSecretAccess)
	c.secretsServer = httptest.NewServer(secretsRouter)

	return c
}
