// Package tls provides the server certificate of the HTTPS stubs listener:
// loaded from PEM files, or generated and self-signed for local use.
package tls

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"net"
	"time"
)

// DefaultValidity is the lifetime of a generated certificate.
const DefaultValidity = 365 * 24 * time.Hour

// CertificateConfig contains options for certificate generation.
type CertificateConfig struct {
	Organization string
	CommonName   string
	// Hosts are DNS names or IP addresses; IPs become IP SANs.
	Hosts    []string
	ValidFor time.Duration
}

// DefaultCertificateConfig covers localhost and the loopback addresses.
func DefaultCertificateConfig() CertificateConfig {
	return CertificateConfig{
		Organization: "stubd",
		CommonName:   "localhost",
		Hosts:        []string{"localhost", "127.0.0.1", "::1"},
		ValidFor:     DefaultValidity,
	}
}

// GeneratedCertificate contains a generated certificate and its PEM forms.
type GeneratedCertificate struct {
	Certificate *x509.Certificate
	PrivateKey  *ecdsa.PrivateKey
	CertPEM     []byte
	KeyPEM      []byte
}

// GenerateSelfSigned creates a P-256 key and a self-signed server
// certificate for cfg.Hosts.
func GenerateSelfSigned(cfg CertificateConfig) (*GeneratedCertificate, error) {
	if cfg.ValidFor <= 0 {
		cfg.ValidFor = DefaultValidity
	}

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate private key: %w", err)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("failed to generate serial number: %w", err)
	}

	now := time.Now()
	template := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			Organization: []string{cfg.Organization},
			CommonName:   cfg.CommonName,
		},
		NotBefore:             now.Add(-time.Minute),
		NotAfter:              now.Add(cfg.ValidFor),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}
	for _, h := range cfg.Hosts {
		if ip := net.ParseIP(h); ip != nil {
			template.IPAddresses = append(template.IPAddresses, ip)
		} else {
			template.DNSNames = append(template.DNSNames, h)
		}
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return nil, fmt.Errorf("failed to create certificate: %w", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal private key: %w", err)
	}

	return &GeneratedCertificate{
		Certificate: cert,
		PrivateKey:  key,
		CertPEM:     pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}),
		KeyPEM:      pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}),
	}, nil
}

// ServerConfig returns the TLS configuration of the HTTPS listener. With
// both certFile and keyFile set the pair is loaded from disk; with neither
// a certificate is generated for cfg.
func ServerConfig(certFile, keyFile string, cfg CertificateConfig) (*tls.Config, error) {
	var pair tls.Certificate
	switch {
	case certFile != "" && keyFile != "":
		var err error
		pair, err = tls.LoadX509KeyPair(certFile, keyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load certificate: %w", err)
		}
	case certFile != "" || keyFile != "":
		return nil, errors.New("certificate and key files must be given together")
	default:
		gen, err := GenerateSelfSigned(cfg)
		if err != nil {
			return nil, err
		}
		pair, err = tls.X509KeyPair(gen.CertPEM, gen.KeyPEM)
		if err != nil {
			return nil, fmt.Errorf("failed to build key pair: %w", err)
		}
	}
	return &tls.Config{
		Certificates: []tls.Certificate{pair},
		MinVersion:   tls.VersionTLS12,
	}, nil
}
