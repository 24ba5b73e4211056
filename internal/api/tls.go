// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"crypto/tls"
	"fmt"
	"os"

	"github.com/tailscale/tscert"
)

// CheckTLSConfig validates TLS configuration and returns whether TLS should be enabled.
// Returns an error if configuration is invalid.
func CheckTLSConfig(certPath, keyPath string) (bool, error) {
	// Neither specified - no TLS
	if certPath == "" && keyPath == "" {
		return false, nil
	}

	// Only one specified - invalid config
	if certPath == "" || keyPath == "" {
		return false, fmt.Errorf("both tls_cert and tls_key must be specified (got cert=%q, key=%q)", certPath, keyPath)
	}

	if !fileExists(certPath) {
		return false, fmt.Errorf("tls_cert file not found: %s", certPath)
	}
	if !fileExists(keyPath) {
		return false, fmt.Errorf("tls_key file not found: %s", keyPath)
	}

	return true, nil
}

// BuildTLSConfig returns the server TLS configuration, or nil when the
// server should speak plain HTTP.
func BuildTLSConfig(cfg ServerConfig) (*tls.Config, error) {
	if cfg.TLSTailscale {
		if cfg.TLSCert != "" || cfg.TLSKey != "" {
			return nil, fmt.Errorf("tls_tailscale cannot be combined with tls_cert/tls_key")
		}
		return &tls.Config{GetCertificate: tscert.GetCertificate}, nil
	}

	enabled, err := CheckTLSConfig(cfg.TLSCert, cfg.TLSKey)
	if err != nil || !enabled {
		return nil, err
	}
	cert, err := tls.LoadX509KeyPair(cfg.TLSCert, cfg.TLSKey)
	if err != nil {
		return nil, fmt.Errorf("load TLS cert/key: %w", err)
	}
	return &tls.Config{Certificates: []tls.Certificate{cert}}, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
