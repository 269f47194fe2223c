package probe

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/footprintai/keystone-probe/internal/config"
)

// Endpoint is the identity service location taken from auth_uri
type Endpoint struct {
	BaseURL string
	Scheme  string
	Host    string
	Port    string
}

// TLS reports whether the token request runs over https
func (e Endpoint) TLS() bool {
	return e.Scheme == "https"
}

// Address returns host:port for dialing
func (e Endpoint) Address() string {
	return net.JoinHostPort(e.Host, e.Port)
}

// TokensURL returns the password authentication URL
func (e Endpoint) TokensURL() string {
	return e.BaseURL + "/auth/tokens"
}

// ParseEndpoint extracts host and port from the auth_uri option.
// The port falls back to the scheme default when the URI omits it.
func ParseEndpoint(params config.ConnectionParams) (Endpoint, error) {
	if params.Empty() {
		return Endpoint{}, fmt.Errorf("section [%s] not found in config", config.Section)
	}

	raw, found := params.AuthURI()
	if !found {
		return Endpoint{}, fmt.Errorf("%s is not set in [%s]", config.KeyAuthURI, config.Section)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Endpoint{}, fmt.Errorf("%s is empty", config.KeyAuthURI)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Endpoint{}, fmt.Errorf("invalid %s: %w", config.KeyAuthURI, err)
	}

	var defaultPort string
	switch u.Scheme {
	case "http":
		defaultPort = "80"
	case "https":
		defaultPort = "443"
	default:
		return Endpoint{}, fmt.Errorf("invalid %s %q: unsupported scheme %q", config.KeyAuthURI, raw, u.Scheme)
	}

	// hosts compare and print case-insensitively, like urlparse().hostname
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return Endpoint{}, fmt.Errorf("invalid %s %q: missing host", config.KeyAuthURI, raw)
	}

	port := u.Port()
	if port == "" {
		port = defaultPort
	} else if n, err := strconv.Atoi(port); err != nil || n < 1 || n > 65535 {
		return Endpoint{}, fmt.Errorf("invalid %s %q: port out of range", config.KeyAuthURI, raw)
	}

	return Endpoint{
		BaseURL: strings.TrimSuffix(raw, "/"),
		Scheme:  u.Scheme,
		Host:    host,
		Port:    port,
	}, nil
}
