// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeSelfSigned writes a throwaway certificate and key into dir.
func writeSelfSigned(t *testing.T, dir string) (certPath, keyPath string) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "localhost"},
		DNSNames:     []string{"localhost"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	certPath = filepath.Join(dir, "cert.pem")
	keyPath = filepath.Join(dir, "key.pem")
	require.NoError(t, os.WriteFile(certPath, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0600))
	require.NoError(t, os.WriteFile(keyPath, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0600))
	return certPath, keyPath
}

func TestCheckTLSConfig(t *testing.T) {
	dir := t.TempDir()
	certPath, keyPath := writeSelfSigned(t, dir)

	enabled, err := CheckTLSConfig("", "")
	assert.NoError(t, err)
	assert.False(t, enabled)

	_, err = CheckTLSConfig(certPath, "")
	assert.Error(t, err)

	_, err = CheckTLSConfig(certPath, filepath.Join(dir, "missing.pem"))
	assert.ErrorContains(t, err, "tls_key file not found")

	enabled, err = CheckTLSConfig(certPath, keyPath)
	assert.NoError(t, err)
	assert.True(t, enabled)
}

func TestBuildTLSConfig(t *testing.T) {
	t.Run("plain http", func(t *testing.T) {
		cfg, err := BuildTLSConfig(ServerConfig{})
		assert.NoError(t, err)
		assert.Nil(t, cfg)
	})

	t.Run("cert and key", func(t *testing.T) {
		certPath, keyPath := writeSelfSigned(t, t.TempDir())
		cfg, err := BuildTLSConfig(ServerConfig{TLSCert: certPath, TLSKey: keyPath})
		require.NoError(t, err)
		require.NotNil(t, cfg)
		assert.Len(t, cfg.Certificates, 1)
	})

	t.Run("bad key pair", func(t *testing.T) {
		dir := t.TempDir()
		certPath, _ := writeSelfSigned(t, dir)
		bogus := filepath.Join(dir, "bogus.pem")
		require.NoError(t, os.WriteFile(bogus, []byte("not a key"), 0600))

		_, err := BuildTLSConfig(ServerConfig{TLSCert: certPath, TLSKey: bogus})
		assert.ErrorContains(t, err, "load TLS cert/key")
	})

	t.Run("tailscale", func(t *testing.T) {
		cfg, err := BuildTLSConfig(ServerConfig{TLSTailscale: true})
		require.NoError(t, err)
		require.NotNil(t, cfg)
		assert.NotNil(t, cfg.GetCertificate)
		assert.Empty(t, cfg.Certificates)
	})

	t.Run("tailscale with files", func(t *testing.T) {
		_, err := BuildTLSConfig(ServerConfig{TLSTailscale: true, TLSCert: "c", TLSKey: "k"})
		assert.Error(t, err)
	})
}

func TestServer_ListenAndServeRejectsBadTLS(t *testing.T) {
	s := NewServer(ServerConfig{Host: "127.0.0.1", Port: 0, TLSCert: "/nonexistent/cert.pem", TLSKey: "/nonexistent/key.pem"},
		Dependencies{})
	err := s.ListenAndServe()
	assert.ErrorContains(t, err, "TLS configuration error")
}
