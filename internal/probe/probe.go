package probe

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/footprintai/keystone-probe/internal/config"
)

const (
	// DefaultConnectTimeout bounds the TCP reachability check
	DefaultConnectTimeout = 5 * time.Second

	// DefaultRequestTimeout bounds the whole token request
	DefaultRequestTimeout = 10 * time.Second
)

var (
	// ErrUnreachable is returned when the identity service port refuses or
	// drops the TCP connection
	ErrUnreachable = errors.New("keystone server unreachable")

	// ErrAuthRejected is returned when the service answers without issuing
	// a token
	ErrAuthRejected = errors.New("token request rejected")

	// ErrBadCACert is returned when cacert does not name a regular file
	ErrBadCACert = errors.New("no such CA cert")
)

// Runner checks a keystone endpoint once per Run call. It holds no state
// between runs.
type Runner struct {
	connectTimeout time.Duration
	requestTimeout time.Duration
	strictTLS      bool
	projectScope   bool
	dialer         Dialer
	logger         *slog.Logger
}

// Option configures a Runner
type Option func(*Runner)

// WithConnectTimeout sets the TCP reachability timeout
func WithConnectTimeout(d time.Duration) Option {
	return func(r *Runner) { r.connectTimeout = d }
}

// WithRequestTimeout sets the token request timeout
func WithRequestTimeout(d time.Duration) Option {
	return func(r *Runner) { r.requestTimeout = d }
}

// WithStrictTLS verifies the server certificate against the system roots
// when no cacert is configured, instead of skipping verification.
func WithStrictTLS(strict bool) Option {
	return func(r *Runner) { r.strictTLS = strict }
}

// WithProjectScope requests a project scoped token when project_name is set
func WithProjectScope(scoped bool) Option {
	return func(r *Runner) { r.projectScope = scoped }
}

// WithDialer replaces the network dialer used by both checks
func WithDialer(d Dialer) Option {
	return func(r *Runner) { r.dialer = d }
}

// WithLogger sets the debug logger
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// New creates a Runner
func New(opts ...Option) *Runner {
	r := &Runner{
		connectTimeout: DefaultConnectTimeout,
		requestTimeout: DefaultRequestTimeout,
		dialer:         &net.Dialer{},
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the probe against params and returns its terminal result.
// Every fault, including a panic, ends in exactly one Result.
func (r *Runner) Run(ctx context.Context, params config.ConnectionParams) (result Result) {
	defer func() {
		if rec := recover(); rec != nil {
			result = Unexpected(fmt.Errorf("%v", rec))
		}
	}()

	endpoint, err := ParseEndpoint(params)
	if err != nil {
		return Unexpected(err)
	}
	r.logger.Debug("parsed auth_uri", "host", endpoint.Host, "port", endpoint.Port)

	if err := CheckReachable(ctx, r.dialer, endpoint.Address(), r.connectTimeout); err != nil {
		if isResolveError(err) {
			return Unexpected(err)
		}
		r.logger.Debug("tcp check failed", "addr", endpoint.Address(), "error", err)
		return unreachable(endpoint.Host, endpoint.Port, err)
	}
	r.logger.Debug("tcp check passed", "addr", endpoint.Address())

	caCert, _ := params.CACert()
	if caCert != "" && !caCertExists(caCert) {
		return badCACert(caCert)
	}
	// plain http never consults the trust settings
	var tlsConfig *tls.Config
	if endpoint.TLS() {
		tlsConfig, err = TLSConfig(caCert, r.strictTLS)
		if err != nil {
			return Unexpected(err)
		}
		r.logger.Debug("tls trust", "cacert", caCert, "verify", !tlsConfig.InsecureSkipVerify)
	}

	client := newTokenClient(r.dialer, tlsConfig, r.requestTimeout)
	defer client.close()

	url := endpoint.TokensURL()
	r.logger.Debug("requesting token", "url", url)
	if err := client.issueToken(ctx, url, newAuthRequest(params, r.projectScope)); err != nil {
		if errors.Is(err, ErrAuthRejected) {
			r.logger.Debug("token request rejected", "error", err)
			return authRejected(endpoint.Host, err)
		}
		return Unexpected(err)
	}

	return success()
}
