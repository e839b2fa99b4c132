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

// Package http wraps an HTTP server with a chi router, runnable by the runnable manager.
package http

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/sirupsen/logrus"

	"github.com/willgleich/gleich-tech-switch/pkg/util/tcp"
)

// ShutdownTimeout bounds the wait for in-flight requests on GracefulStop.
const ShutdownTimeout = 30 * time.Second

// Server is a wrapper of an HTTP server.
type Server struct {
	tcp.Listener

	router chi.Router
	server *http.Server

	logger    *logrus.Entry
	logWriter *io.PipeWriter
}

// Router returns the server (chi-)router.
func (s *Server) Router() chi.Router {
	return s.router
}

// Start serving on the listener. TLS is used if the server has a TLS configuration.
func (s *Server) Start() error {
	defer func() {
		s.server.ErrorLog = nil
		if err := s.logWriter.Close(); err != nil {
			s.logger.Warnf("unable to close http server log writer: %v", err)
		}
	}()

	var err error
	if s.server.TLSConfig != nil {
		err = s.server.ServeTLS(s.GetListener(), "", "")
	} else {
		err = s.server.Serve(s.GetListener())
	}

	if errors.Is(err, http.ErrServerClosed) {
		s.logger.Info("Server closed by demand.")
		return nil
	}
	return err
}

// Stop the server.
func (s *Server) Stop() error {
	return s.server.Close()
}

// GracefulStop does a graceful stop of the server.
func (s *Server) GracefulStop() error {
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// NewServer returns a new server. A nil tlsConfig serves plain HTTP.
func NewServer(name string, tlsConfig *tls.Config) *Server {
	logger := logrus.WithFields(logrus.Fields{
		"component": "util.http",
		"name":      name,
	})
	logWriter := logger.WriterLevel(logrus.ErrorLevel)

	router := chi.NewRouter()
	if logrus.GetLevel() >= logrus.DebugLevel {
		router.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
			Logger:  logger,
			NoColor: true,
		}))
	}
	router.Use(middleware.Recoverer)

	return &Server{
		Listener: tcp.NewListener(name),
		router:   router,
		server: &http.Server{
			Handler:           router,
			TLSConfig:         tlsConfig,
			ErrorLog:          log.New(logWriter, "", 0),
			ReadHeaderTimeout: time.Second,
		},
		logger:    logger,
		logWriter: logWriter,
	}
}
