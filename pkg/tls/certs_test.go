package tls

import (
	"crypto/x509"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSelfSigned(t *testing.T) {
	cfg := DefaultCertificateConfig()
	cfg.Hosts = append(cfg.Hosts, "stubs.internal")

	gen, err := GenerateSelfSigned(cfg)
	require.NoError(t, err)

	cert := gen.Certificate
	assert.Equal(t, "localhost", cert.Subject.CommonName)
	assert.ElementsMatch(t, []string{"localhost", "stubs.internal"}, cert.DNSNames)
	require.Len(t, cert.IPAddresses, 2)
	assert.Equal(t, "127.0.0.1", cert.IPAddresses[0].String())
	assert.Contains(t, cert.ExtKeyUsage, x509.ExtKeyUsageServerAuth)
	assert.WithinDuration(t, time.Now().Add(DefaultValidity), cert.NotAfter, time.Hour)
	assert.Contains(t, string(gen.CertPEM), "BEGIN CERTIFICATE")
	assert.Contains(t, string(gen.KeyPEM), "BEGIN EC PRIVATE KEY")

	pool := x509.NewCertPool()
	pool.AddCert(cert)
	_, err = cert.Verify(x509.VerifyOptions{DNSName: "stubs.internal", Roots: pool})
	assert.NoError(t, err)
}

func TestGenerateSelfSigned_DefaultValidity(t *testing.T) {
	gen, err := GenerateSelfSigned(CertificateConfig{CommonName: "x", Hosts: []string{"x"}})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(DefaultValidity), gen.Certificate.NotAfter, time.Hour)
}

func TestServerConfig(t *testing.T) {
	t.Run("generated", func(t *testing.T) {
		cfg, err := ServerConfig("", "", DefaultCertificateConfig())
		require.NoError(t, err)
		require.Len(t, cfg.Certificates, 1)
	})

	t.Run("from files", func(t *testing.T) {
		gen, err := GenerateSelfSigned(DefaultCertificateConfig())
		require.NoError(t, err)
		dir := t.TempDir()
		certFile := filepath.Join(dir, "cert.pem")
		keyFile := filepath.Join(dir, "key.pem")
		require.NoError(t, os.WriteFile(certFile, gen.CertPEM, 0o644))
		require.NoError(t, os.WriteFile(keyFile, gen.KeyPEM, 0o600))

		cfg, err := ServerConfig(certFile, keyFile, CertificateConfig{})
		require.NoError(t, err)
		require.Len(t, cfg.Certificates, 1)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := ServerConfig(filepath.Join(t.TempDir(), "nope.pem"), "key.pem", CertificateConfig{})
		assert.ErrorContains(t, err, "failed to load certificate")
	})

	t.Run("half a pair", func(t *testing.T) {
		_, err := ServerConfig("cert.pem", "", CertificateConfig{})
		assert.ErrorContains(t, err, "must be given together")
	})
}
