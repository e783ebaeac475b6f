package httpx

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	pulseoxtls "github.com/HatiCode/pulseox/pkg/tls"
)

// NewClient creates an HTTP client. When tlsCfg is enabled the client
// verifies the server against CAFile and presents CertFile/KeyFile if set.
func NewClient(tlsCfg pulseoxtls.Config, timeout time.Duration) (*http.Client, error) {
	var cryptoTLSConfig *tls.Config

	if tlsCfg.Enabled {
		var err error
		cryptoTLSConfig, err = pulseoxtls.NewClientTLSConfig(tlsCfg.CertFile, tlsCfg.KeyFile, tlsCfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("create TLS config: %w", err)
		}
	}

	transport := &http.Transport{
		MaxIdleConns:        4,
		IdleConnTimeout:     30 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
		TLSClientConfig:     cryptoTLSConfig,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}, nil
}
