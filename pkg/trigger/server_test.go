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

package trigger_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/willgleich/gleich-tech-switch/pkg/api"
	"github.com/willgleich/gleich-tech-switch/pkg/switchover"
	"github.com/willgleich/gleich-tech-switch/pkg/trigger"
)

type runner struct {
	lock     sync.Mutex
	payloads []string

	started chan struct{}
	release chan struct{}
	err     error
}

func (r *runner) Run(ctx context.Context, direction switchover.Direction, payload string) (*switchover.Report, error) {
	r.lock.Lock()
	r.payloads = append(r.payloads, payload)
	r.lock.Unlock()

	if r.started != nil {
		close(r.started)
		<-r.release
	}

	report := &switchover.Report{RunID: "run", Direction: direction, Steps: []switchover.StepResult{}}
	if r.err != nil {
		report.Failed = switchover.StepAllowPublic
		return report, &switchover.StepError{Direction: direction, Step: switchover.StepAllowPublic, Err: r.err}
	}
	return report, ctx.Err()
}

func (r *runner) Status(context.Context) (*switchover.Status, error) {
	return &switchover.Status{ServiceExists: true, State: api.Indeterminate}, nil
}

func newServer(t *testing.T, r trigger.Runner) *httptest.Server {
	server := httptest.NewServer(trigger.NewServer(r, nil).Router())
	t.Cleanup(server.Close)
	return server
}

func decode(t *testing.T, resp *http.Response, out any) {
	defer resp.Body.Close()
	require.Nil(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestRun(t *testing.T) {
	r := &runner{}
	server := newServer(t, r)

	resp, err := http.Post(server.URL+trigger.SwitchPath, "application/json", strings.NewReader(`{"alert":"down"}`))
	require.Nil(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var report switchover.Report
	decode(t, resp, &report)
	require.Equal(t, switchover.Switch, report.Direction)
	require.Equal(t, []string{`{"alert":"down"}`}, r.payloads)

	resp, err = http.Post(server.URL+trigger.UnswitchPath, "application/json", http.NoBody)
	require.Nil(t, err)
	decode(t, resp, &report)
	require.Equal(t, switchover.Unswitch, report.Direction)

	// runs are triggered by POST only
	resp, err = http.Get(server.URL + trigger.SwitchPath)
	require.Nil(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestRunFailure(t *testing.T) {
	server := newServer(t, &runner{err: errors.New("denied")})

	resp, err := http.Post(server.URL+trigger.SwitchPath, "application/json", http.NoBody)
	require.Nil(t, err)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	var report switchover.Report
	decode(t, resp, &report)
	require.Equal(t, switchover.StepAllowPublic, report.Failed)
}

func TestConcurrentRunRejected(t *testing.T) {
	r := &runner{started: make(chan struct{}), release: make(chan struct{})}
	server := newServer(t, r)

	done := make(chan int)
	go func() {
		resp, err := http.Post(server.URL+trigger.SwitchPath, "application/json", http.NoBody)
		if err != nil {
			done <- 0
			return
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		done <- resp.StatusCode
	}()
	<-r.started

	resp, err := http.Post(server.URL+trigger.UnswitchPath, "application/json", http.NoBody)
	require.Nil(t, err)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	close(r.release)
	require.Equal(t, http.StatusOK, <-done)
	require.Len(t, r.payloads, 1)
}

func TestStatusAndHealthz(t *testing.T) {
	server := newServer(t, &runner{})

	resp, err := http.Get(server.URL + trigger.StatusPath)
	require.Nil(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status switchover.Status
	decode(t, resp, &status)
	require.True(t, status.ServiceExists)
	require.Equal(t, api.Indeterminate, status.State)

	resp, err = http.Get(server.URL + trigger.HealthzPath)
	require.Nil(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSetRunner(t *testing.T) {
	first, second := &runner{}, &runner{}
	s := trigger.NewServer(first, nil)
	server := httptest.NewServer(s.Router())
	defer server.Close()

	s.SetRunner(second)
	resp, err := http.Post(server.URL+trigger.SwitchPath, "application/json", strings.NewReader("x"))
	require.Nil(t, err)
	resp.Body.Close()

	require.Empty(t, first.payloads)
	require.Equal(t, []string{"x"}, second.payloads)
}

func TestServe(t *testing.T) {
	s := trigger.NewServer(&runner{}, nil)
	require.Nil(t, s.Listen("127.0.0.1:0"))

	errCh := make(chan error, 1)
	go func() { errCh <- s.Start() }()

	resp, err := http.Get("http://" + s.Address() + trigger.HealthzPath)
	require.Nil(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Nil(t, s.GracefulStop())
	require.Nil(t, <-errCh)
	_ = s.Close()
}
