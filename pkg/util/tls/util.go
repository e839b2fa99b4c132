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

// Package tls loads the certificates of the trigger server.
package tls

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
)

// ParseFiles reads a certificate key pair, and optionally a CA used to verify
// client certificates. An empty ca disables client authentication.
func ParseFiles(cert, key, ca string) (*ParsedCertData, error) {
	rawCertificate, err := os.ReadFile(cert)
	if err != nil {
		return nil, fmt.Errorf("unable to read certificate file: %w", err)
	}

	rawPrivateKey, err := os.ReadFile(key)
	if err != nil {
		return nil, fmt.Errorf("unable to read private key file: %w", err)
	}

	certificate, err := tls.X509KeyPair(rawCertificate, rawPrivateKey)
	if err != nil {
		return nil, fmt.Errorf("unable to parse certificate keypair: %w", err)
	}

	x509cert, err := x509.ParseCertificate(certificate.Certificate[0])
	if err != nil {
		return nil, fmt.Errorf("unable to parse x509 certificate: %w", err)
	}

	data := &ParsedCertData{
		certificate: certificate,
		x509cert:    x509cert,
	}

	if ca == "" {
		return data, nil
	}

	rawCA, err := os.ReadFile(ca)
	if err != nil {
		return nil, fmt.Errorf("unable to read CA file '%s': %w", ca, err)
	}

	data.ca = x509.NewCertPool()
	if !data.ca.AppendCertsFromPEM(rawCA) {
		return nil, errors.New("unable to parse CA file")
	}

	return data, nil
}

// ParsedCertData contains a parsed TLS certificate and an optional client CA.
type ParsedCertData struct {
	certificate tls.Certificate
	ca          *x509.CertPool
	x509cert    *x509.Certificate
}

// ServerConfig returns a TLS configuration for a server.
// Client certificates are required if a CA was loaded.
func (c *ParsedCertData) ServerConfig() *tls.Config {
	config := &tls.Config{
		MinVersion:   tls.VersionTLS12,
		Certificates: []tls.Certificate{c.certificate},
	}
	if c.ca != nil {
		config.ClientCAs = c.ca
		config.ClientAuth = tls.RequireAndVerifyClientCert
	}
	return config
}

// DNSNames returns the certificate DNS names.
func (c *ParsedCertData) DNSNames() []string {
	return c.x509cert.DNSNames
}
