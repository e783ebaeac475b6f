// Package tls builds TLS configurations for the oximeter's HTTP and gRPC
// listeners and for ppgctl.
//
// All configurations require TLS 1.3. Client certificate verification
// (mutual TLS) is enabled on the server only when a CA file is supplied.
package tls

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
)

// Config holds TLS certificate file paths for client or server configuration.
type Config struct {
	Enabled  bool
	CertFile string
	KeyFile  string
	CAFile   string
}

// Validate checks that the files a server needs are present.
// CAFile is optional; when set it must exist as well.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.CertFile == "" || c.KeyFile == "" {
		return errors.New("tls enabled but cert/key files not specified")
	}

	return statFiles(c.CertFile, c.KeyFile, c.CAFile)
}

// Mutual reports whether client certificates will be required.
func (c Config) Mutual() bool {
	return c.Enabled && c.CAFile != ""
}

// NewServerTLSConfig loads the server key pair and, when caFile is not empty,
// requires clients to present a certificate signed by that CA.
func NewServerTLSConfig(certFile, keyFile, caFile string) (*tls.Config, error) {
	if certFile == "" {
		return nil, errors.New("certificate file path cannot be empty")
	}
	if keyFile == "" {
		return nil, errors.New("key file path cannot be empty")
	}
	if err := statFiles(certFile, keyFile, caFile); err != nil {
		return nil, err
	}

	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("load server certificate: %w", err)
	}

	cfg := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS13,
	}

	if caFile != "" {
		pool, err := loadCAPool(caFile)
		if err != nil {
			return nil, err
		}
		cfg.ClientCAs = pool
		cfg.ClientAuth = tls.RequireAndVerifyClientCert
	}

	return cfg, nil
}

// NewClientTLSConfig creates a client configuration. caFile replaces the
// system roots when set; certFile and keyFile are presented to servers that
// require mutual TLS and must be given together.
func NewClientTLSConfig(certFile, keyFile, caFile string) (*tls.Config, error) {
	if (certFile == "") != (keyFile == "") {
		return nil, errors.New("client certificate and key must be set together")
	}
	if err := statFiles(certFile, keyFile, caFile); err != nil {
		return nil, err
	}

	cfg := &tls.Config{MinVersion: tls.VersionTLS13}

	if certFile != "" {
		cert, err := tls.LoadX509KeyPair(certFile, keyFile)
		if err != nil {
			return nil, fmt.Errorf("load client certificate: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}

	if caFile != "" {
		pool, err := loadCAPool(caFile)
		if err != nil {
			return nil, err
		}
		cfg.RootCAs = pool
	}

	return cfg, nil
}

func loadCAPool(caFile string) (*x509.CertPool, error) {
	caCert, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("read CA certificate: %w", err)
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caCert) {
		return nil, errors.New("failed to parse CA certificate")
	}
	return pool, nil
}

// statFiles checks every non-empty path.
func statFiles(paths ...string) error {
	for _, path := range paths {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("tls file %q: %w", path, err)
		}
	}
	return nil
}
