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

// Package runnable runs a set of servers and background instances together,
// stopping all of them once one fails.
package runnable

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/sirupsen/logrus"
)

// Instance represents a runnable instance.
type Instance interface {
	Name() string
	Start() error
	Stop() error
	GracefulStop() error
}

// Server represents a runnable server.
type Server interface {
	Instance
	Listen(address string) error
	Close() error
}

// Manager manages a set of runnables.
type Manager struct {
	lock sync.Mutex

	runnables     []Instance
	serverAddress map[Server]string
	errors        map[Instance]error

	logger *logrus.Entry
}

// AddServer adds a new server listening on the given address.
func (m *Manager) AddServer(listenAddress string, server Server) {
	m.Add(server)
	m.serverAddress[server] = listenAddress
}

// Add a new runnable.
func (m *Manager) Add(runnable Instance) {
	m.runnables = append(m.runnables, runnable)
}

// Run starts all runnables and blocks until all of them stop.
// If one runnable fails, the others are asked to stop.
func (m *Manager) Run() error {
	defer func() {
		for server := range m.serverAddress {
			if err := server.Close(); err != nil {
				m.logger.Warnf("Error closing server '%s': %v.", server.Name(), err)
			}
		}
	}()

	for server, listenAddress := range m.serverAddress {
		if err := server.Listen(listenAddress); err != nil {
			return fmt.Errorf("unable to create listener for server '%s' on %s: %w",
				server.Name(), listenAddress, err)
		}
	}

	failed := make(chan struct{}, len(m.runnables))
	done := make(chan struct{})

	go func() {
		select {
		case <-failed:
			if err := m.Stop(); err != nil {
				m.logger.Warnf("Error stopping: %v.", err)
			} else {
				m.logger.Infof("Asked all runnables to stop.")
			}
		case <-done:
		}
	}()

	wg := &sync.WaitGroup{}
	wg.Add(len(m.runnables))

	for _, runnable := range m.runnables {
		go func(runnable Instance) {
			defer wg.Done()

			m.logger.Infof("Starting runnable '%s'.", runnable.Name())
			err := runnable.Start()
			m.logger.Infof("Runnable '%s' stopped: %v.", runnable.Name(), err)

			m.lock.Lock()
			m.errors[runnable] = err
			m.lock.Unlock()

			if err != nil {
				failed <- struct{}{}
			}
		}(runnable)
	}

	wg.Wait()
	close(done)

	var errs []error
	for runnable, err := range m.errors {
		if err != nil {
			errs = append(errs, fmt.Errorf("error running '%s': %w", runnable.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// StopOnSignal gracefully stops all runnables on SIGINT or SIGTERM.
// The returned function releases the signal handler.
func (m *Manager) StopOnSignal() func() {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		select {
		case sig := <-signals:
			m.logger.Infof("Received %v.", sig)
			if err := m.GracefulStop(); err != nil {
				m.logger.Warnf("Error stopping: %v.", err)
			}
		case <-done:
		}
	}()

	return func() {
		signal.Stop(signals)
		close(done)
	}
}

// Stop all runnables.
func (m *Manager) Stop() error {
	m.logger.Info("Stopping.")

	var errs []error
	for _, runnable := range m.runnables {
		if err := runnable.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("unable to stop '%s': %w", runnable.Name(), err))
		}
	}

	return errors.Join(errs...)
}

// GracefulStop gracefully stops all runnables.
func (m *Manager) GracefulStop() error {
	m.logger.Info("Gracefully stopping.")

	var errs []error
	for _, runnable := range m.runnables {
		if err := runnable.GracefulStop(); err != nil {
			errs = append(errs, fmt.Errorf("unable to gracefully stop '%s': %w", runnable.Name(), err))
		}
	}

	return errors.Join(errs...)
}

// NewManager returns a new empty runnable manager.
func NewManager() *Manager {
	return &Manager{
		serverAddress: make(map[Server]string),
		errors:        make(map[Instance]error),
		logger:        logrus.WithField("component", "util.runnable"),
	}
}
