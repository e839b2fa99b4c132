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

// Package config loads the switch configuration from a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/yaml"

	"github.com/willgleich/gleich-tech-switch/pkg/api"
	"github.com/willgleich/gleich-tech-switch/pkg/edge"
	"github.com/willgleich/gleich-tech-switch/pkg/health"
	"github.com/willgleich/gleich-tech-switch/pkg/switchover"
)

const (
	// DefaultConfigFile is the configuration file used if none is given.
	DefaultConfigFile = "switch.yaml"

	// DefaultConcurrency is the default maximal number of concurrent requests per instance.
	DefaultConcurrency = 80
	// DefaultTimeout is the default request timeout of the service.
	DefaultTimeout = 300 * time.Second
	// DefaultCPU is the default CPU limit of the service container.
	DefaultCPU = "1000m"
	// DefaultMemory is the default memory limit of the service container.
	DefaultMemory = "256Mi"
	// DefaultPort is the default container port.
	DefaultPort = 8080
	// DefaultMaxScale is the default maximal number of instances.
	DefaultMaxScale = 1000
	// DefaultStatusCode is the default redirect status of forwarding rules.
	DefaultStatusCode = 302
	// DefaultPriority is the default priority of forwarding rules.
	DefaultPriority = 1
	// DefaultTokenSecret is the default name of the secret holding the edge API token.
	DefaultTokenSecret = "cloudflare-api-key"
)

// Service configures the compute service.
type Service struct {
	Name        string          `json:"name"`
	Image       string          `json:"image"`
	Concurrency int64           `json:"concurrency,omitempty"`
	Timeout     metav1.Duration `json:"timeout,omitempty"`
	CPU         string          `json:"cpu,omitempty"`
	Memory      string          `json:"memory,omitempty"`
	Port        int32           `json:"port,omitempty"`
	MaxScale    int             `json:"maxScale,omitempty"`
}

// Monitoring configures the health check policy of the domain.
type Monitoring struct {
	// Host probed. Defaults to the domain.
	Host string `json:"host,omitempty"`
	// UptimeName is the uptime check display name. Defaults to the domain.
	UptimeName string `json:"uptimeName,omitempty"`
	// AlertName is the alert policy display name. Defaults to UptimeName.
	AlertName            string   `json:"alertName,omitempty"`
	NotificationChannels []string `json:"notificationChannels,omitempty"`
}

// Edge configures the forwarding rule.
type Edge struct {
	AccountID string `json:"accountID,omitempty"`
	// Zone overrides the zone derived from the domain.
	Zone string `json:"zone,omitempty"`
	// MatchPattern defaults to "<domain>/*".
	MatchPattern string `json:"matchPattern,omitempty"`
	TargetURL    string `json:"targetURL"`
	StatusCode   int    `json:"statusCode,omitempty"`
	Priority     int    `json:"priority,omitempty"`
	// TokenSecret names the secret holding the API token.
	TokenSecret string `json:"tokenSecret,omitempty"`
	// Token is used instead of TokenSecret if set.
	Token string `json:"token,omitempty"`
}

// Credentials configures the Google API credentials.
// If neither is set, the metadata server is used (GCE_METADATA_HOST overrides its address).
type Credentials struct {
	KeyFile string `json:"keyFile,omitempty"`
	Token   string `json:"token,omitempty"`
}

// Endpoints overrides the provider API endpoints.
type Endpoints struct {
	Run           string `json:"run,omitempty"`
	Monitoring    string `json:"monitoring,omitempty"`
	Cloudflare    string `json:"cloudflare,omitempty"`
	SecretManager string `json:"secretManager,omitempty"`
}

// Config of the switch.
type Config struct {
	Project     string      `json:"project"`
	Region      string      `json:"region"`
	Domain      string      `json:"domain"`
	Service     Service     `json:"service"`
	Monitoring  Monitoring  `json:"monitoring,omitempty"`
	Edge        Edge        `json:"edge"`
	Credentials Credentials `json:"credentials,omitempty"`
	Endpoints   Endpoints   `json:"endpoints,omitempty"`
}

// SetDefaults fills unset fields with their defaults.
func (c *Config) SetDefaults() {
	if c.Service.Concurrency == 0 {
		c.Service.Concurrency = DefaultConcurrency
	}
	if c.Service.Timeout.Duration == 0 {
		c.Service.Timeout.Duration = DefaultTimeout
	}
	if c.Service.CPU == "" {
		c.Service.CPU = DefaultCPU
	}
	if c.Service.Memory == "" {
		c.Service.Memory = DefaultMemory
	}
	if c.Service.Port == 0 {
		c.Service.Port = DefaultPort
	}
	if c.Service.MaxScale == 0 {
		c.Service.MaxScale = DefaultMaxScale
	}

	if c.Monitoring.Host == "" {
		c.Monitoring.Host = c.Domain
	}
	if c.Monitoring.UptimeName == "" {
		c.Monitoring.UptimeName = c.Domain
	}
	if c.Monitoring.AlertName == "" {
		c.Monitoring.AlertName = c.Monitoring.UptimeName
	}

	if c.Edge.MatchPattern == "" && c.Domain != "" {
		c.Edge.MatchPattern = c.Domain + "/*"
	}
	if c.Edge.StatusCode == 0 {
		c.Edge.StatusCode = DefaultStatusCode
	}
	if c.Edge.Priority == 0 {
		c.Edge.Priority = DefaultPriority
	}
	if c.Edge.TokenSecret == "" {
		c.Edge.TokenSecret = DefaultTokenSecret
	}
}

// Validate returns an error joining all missing or invalid fields.
func (c *Config) Validate() error {
	var errs []error
	required := map[string]string{
		"project":        c.Project,
		"region":         c.Region,
		"domain":         c.Domain,
		"service.name":   c.Service.Name,
		"edge.targetURL": c.Edge.TargetURL,
	}
	for _, field := range []string{"project", "region", "domain", "service.name", "edge.targetURL"} {
		if required[field] == "" {
			errs = append(errs, fmt.Errorf("missing %s", field))
		}
	}

	if c.Edge.StatusCode != 301 && c.Edge.StatusCode != 302 {
		errs = append(errs, fmt.Errorf("invalid edge.statusCode %d: must be 301 or 302", c.Edge.StatusCode))
	}
	if c.Credentials.KeyFile != "" && c.Credentials.Token != "" {
		errs = append(errs, errors.New("credentials.keyFile and credentials.token are mutually exclusive"))
	}

	return errors.Join(errs...)
}

// Handle returns the handle of the compute service.
func (c *Config) Handle() api.RemoteServiceHandle {
	return api.NewRemoteServiceHandle(c.Service.Name, c.Project, c.Region)
}

// ServiceSpec returns the creation spec of the compute service.
func (c *Config) ServiceSpec() api.ServiceSpec {
	return api.ServiceSpec{
		Image:       c.Service.Image,
		Concurrency: c.Service.Concurrency,
		Timeout:     c.Service.Timeout.Duration,
		CPU:         c.Service.CPU,
		Memory:      c.Service.Memory,
		Port:        c.Service.Port,
		MaxScale:    c.Service.MaxScale,
	}
}

// EdgeConfig returns the route controller configuration.
func (c *Config) EdgeConfig() edge.Config {
	return edge.Config{
		AccountID: c.Edge.AccountID,
		Zone:      c.Edge.Zone,
		Priority:  c.Edge.Priority,
	}
}

// HealthConfig returns the monitor controller configuration.
func (c *Config) HealthConfig() health.Config {
	return health.Config{
		Project:              c.Project,
		Host:                 c.Monitoring.Host,
		NotificationChannels: c.Monitoring.NotificationChannels,
	}
}

// SwitchConfig returns the orchestrator configuration.
func (c *Config) SwitchConfig() switchover.Config {
	return switchover.Config{
		Domain:       c.Domain,
		UptimeName:   c.Monitoring.UptimeName,
		AlertName:    c.Monitoring.AlertName,
		MatchPattern: c.Edge.MatchPattern,
		TargetURL:    c.Edge.TargetURL,
		StatusCode:   c.Edge.StatusCode,
		Service:      c.ServiceSpec(),
	}
}

// Parse decodes a YAML configuration, applies defaults and validates it.
func Parse(data []byte) (*Config, error) {
	var config Config
	if err := yaml.UnmarshalStrict(data, &config); err != nil {
		return nil, fmt.Errorf("unable to decode configuration: %w", err)
	}

	config.SetDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Load reads the configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read configuration file: %w", err)
	}

	config, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return config, nil
}
