package probe

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// TLSConfig returns the client TLS configuration for the token request.
//
// With a CA bundle, only that bundle is trusted. Without one, certificate
// verification is skipped unless strict is set, in which case the system
// roots apply.
func TLSConfig(caCert string, strict bool) (*tls.Config, error) {
	if caCert == "" {
		if strict {
			return &tls.Config{MinVersion: tls.VersionTLS12}, nil
		}
		return &tls.Config{InsecureSkipVerify: true}, nil //nolint:gosec // matches keystone_authtoken without cacert
	}

	pem, err := os.ReadFile(caCert)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA cert: %w", err)
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no PEM certificates found in CA cert %s", caCert)
	}

	return &tls.Config{
		RootCAs:    pool,
		MinVersion: tls.VersionTLS12,
	}, nil
}

// caCertExists reports whether path names a regular file
func caCertExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
