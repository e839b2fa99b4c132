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

package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Consumer of configuration updates.
type Consumer interface {
	SetConfig(config *Config) error
}

// Watcher reloads the configuration file when it changes.
type Watcher struct {
	path     string
	interval time.Duration

	stopCh    chan struct{}
	stopOnce  sync.Once
	consumers []Consumer

	logger *logrus.Entry
}

// Name of the watcher.
func (w *Watcher) Name() string {
	return "config-watcher"
}

// AddConsumer adds a new configuration consumer.
// This function is not thread-safe.
func (w *Watcher) AddConsumer(consumer Consumer) {
	w.consumers = append(w.consumers, consumer)
}

// ReadConfigAndUpdateConsumers loads the configuration and updates the consumers.
func (w *Watcher) ReadConfigAndUpdateConsumers() error {
	w.logger.Infof("Loading configuration.")

	config, err := Load(w.path)
	if err != nil {
		return err
	}

	for _, consumer := range w.consumers {
		if err := consumer.SetConfig(config); err != nil {
			return fmt.Errorf("error setting configuration on %v: %w", consumer, err)
		}
	}

	return nil
}

// Start the watcher. An invalid file is logged and skipped, keeping the
// previous configuration.
func (w *Watcher) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("cannot initialize file watcher: %w", err)
	}

	defer func() {
		if err := watcher.Close(); err != nil {
			w.logger.Warnf("Cannot close watcher: %v", err)
		}
	}()

	// editors and mounted secrets replace the file, so watch its directory
	dir := filepath.Dir(w.path)
	w.logger.Infof("Watching: %s.", dir)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("cannot watch directory '%s': %w", dir, err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	name := filepath.Base(w.path)
	modified := false
	for {
		select {
		case <-w.stopCh:
			return nil
		case event := <-watcher.Events:
			w.logger.Debugf("Event: %v", event)
			if filepath.Base(event.Name) == name {
				modified = true
			}
		case err := <-watcher.Errors:
			w.logger.Errorf("Error: %v", err)
			return err
		case <-ticker.C:
			if !modified {
				continue
			}

			w.logger.Infof("Configuration modified.")
			modified = false

			if err := w.ReadConfigAndUpdateConsumers(); err != nil {
				w.logger.Errorf("Keeping previous configuration: %v.", err)
			}
		}
	}
}

// Stop the watcher.
func (w *Watcher) Stop() error {
	w.stopOnce.Do(func() { close(w.stopCh) })
	return nil
}

// GracefulStop does a graceful stop of the watcher.
func (w *Watcher) GracefulStop() error {
	return w.Stop()
}

// NewWatcher returns a new configuration file watcher.
func NewWatcher(path string) *Watcher {
	return &Watcher{
		path:     path,
		interval: time.Second,
		stopCh:   make(chan struct{}),
		logger:   logrus.WithField("component", "config.watcher"),
	}
}
