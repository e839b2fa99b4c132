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

// Package trigger serves the HTTP endpoints invoking switch runs.
// Runs are serialized: a request arriving while a run is in progress is
// rejected with 409 Conflict.
package trigger

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/willgleich/gleich-tech-switch/pkg/switchover"
	utilhttp "github.com/willgleich/gleich-tech-switch/pkg/util/http"
)

const (
	// SwitchPath triggers a switch run.
	SwitchPath = "/switch"
	// UnswitchPath triggers an unswitch run.
	UnswitchPath = "/unswitch"
	// StatusPath returns the observed domain state.
	StatusPath = "/status"
	// HealthzPath returns 200 while the server is up.
	HealthzPath = "/healthz"

	maxPayloadSize = 64 * 1024
)

// Runner executes runs and reports status.
type Runner interface {
	Run(ctx context.Context, direction switchover.Direction, payload string) (*switchover.Report, error)
	Status(ctx context.Context) (*switchover.Status, error)
}

// Server is the trigger HTTP server.
type Server struct {
	*utilhttp.Server

	runLock    sync.Mutex
	runnerLock sync.RWMutex
	runner     Runner

	logger *logrus.Entry
}

// SetRunner replaces the runner used by subsequent requests.
func (s *Server) SetRunner(runner Runner) {
	s.runnerLock.Lock()
	defer s.runnerLock.Unlock()
	s.runner = runner
}

func (s *Server) getRunner() Runner {
	s.runnerLock.RLock()
	defer s.runnerLock.RUnlock()
	return s.runner
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warnf("Unable to write response: %v.", err)
	}
}

func (s *Server) handleRun(direction switchover.Direction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadSize))
		if err != nil {
			s.writeJSON(w, http.StatusBadRequest, &errorResponse{Error: err.Error()})
			return
		}

		if !s.runLock.TryLock() {
			s.logger.Warnf("Rejecting %s: a run is in progress.", direction)
			s.writeJSON(w, http.StatusConflict, &errorResponse{Error: "a run is in progress"})
			return
		}
		defer s.runLock.Unlock()

		// a started run is not abandoned when the caller disconnects
		ctx := context.WithoutCancel(r.Context())
		report, err := s.getRunner().Run(ctx, direction, string(payload))
		if err != nil {
			var stepErr *switchover.StepError
			if report != nil && errors.As(err, &stepErr) {
				s.writeJSON(w, http.StatusInternalServerError, report)
				return
			}
			s.writeJSON(w, http.StatusInternalServerError, &errorResponse{Error: err.Error()})
			return
		}

		s.writeJSON(w, http.StatusOK, report)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.getRunner().Status(r.Context())
	if err != nil {
		s.writeJSON(w, http.StatusInternalServerError, &errorResponse{Error: err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// NewServer returns a new trigger server invoking the runner.
// A nil tlsConfig serves plain HTTP.
func NewServer(runner Runner, tlsConfig *tls.Config) *Server {
	s := &Server{
		Server: utilhttp.NewServer("trigger", tlsConfig),
		runner: runner,
		logger: logrus.WithField("component", "trigger.server"),
	}

	router := s.Router()
	router.Post(SwitchPath, s.handleRun(switchover.Switch))
	router.Post(UnswitchPath, s.handleRun(switchover.Unswitch))
	router.Get(StatusPath, s.handleStatus)
	router.Get(HealthzPath, s.handleHealthz)

	return s
}
