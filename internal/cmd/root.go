package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/footprintai/keystone-probe/internal/config"
	"github.com/footprintai/keystone-probe/internal/metrics"
	"github.com/footprintai/keystone-probe/internal/probe"
	"github.com/footprintai/keystone-probe/pkg/version"
)

// metricsFlushTimeout bounds the OTLP push after the probe finished
const metricsFlushTimeout = 5 * time.Second

type rootOptions struct {
	connectTimeout time.Duration
	requestTimeout time.Duration
	strictTLS      bool
	projectScope   bool
	otlpEndpoint   string
	verbose        bool
}

// newRootCmd builds the check-keystone command. exitCode receives the
// status of the probe once RunE completes.
func newRootCmd(exitCode *int) *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "check-keystone CONFIG_FILE",
		Short: "Check Keystone API.",
		Long: `Check that a Keystone identity service issues tokens.

The probe reads the [keystone_authtoken] section of CONFIG_FILE, verifies that
the auth_uri host accepts TCP connections, then requests a token with the
"password" method. The result is one line on stdout and a plugin exit code:

  0  OK        a token was issued
  2  CRITICAL  the port is unreachable or no token was issued
  3  UNKNOWN   bad CA cert path, bad configuration or any unexpected error

Without a cacert option the server certificate is not verified; use
--strict-tls to verify it against the system roots instead.`,
		Example: `  # Check using the service configuration
  check-keystone /etc/nova/nova.conf

  # Tighter timeouts for a busy monitoring host
  check-keystone --connect-timeout 2s --timeout 5s /etc/glance/glance-api.conf

  # Push the outcome to an OpenTelemetry collector
  check-keystone --otlp-endpoint http://otel-collector:4318 /etc/nova/nova.conf`,
		Version:       version.String(),
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			*exitCode = runCheck(cmd.Context(), opts, args[0], cmd.OutOrStdout(), cmd.ErrOrStderr())
			return nil
		},
	}
	rootCmd.SetVersionTemplate("{{.Version}}\n")

	rootCmd.Flags().DurationVar(&opts.connectTimeout, "connect-timeout", probe.DefaultConnectTimeout, "TCP reachability check timeout")
	rootCmd.Flags().DurationVar(&opts.requestTimeout, "timeout", probe.DefaultRequestTimeout, "token request timeout")
	rootCmd.Flags().BoolVar(&opts.strictTLS, "strict-tls", false, "verify the server certificate against system roots when no cacert is configured")
	rootCmd.Flags().BoolVar(&opts.projectScope, "scope-project", false, "request a token scoped to project_name")
	rootCmd.Flags().StringVar(&opts.otlpEndpoint, "otlp-endpoint", "", "OTLP/HTTP endpoint URL to export probe metrics to")
	rootCmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug output on stderr")

	return rootCmd
}

// Execute runs the command line and returns the process exit code.
// Usage errors exit UNKNOWN; --help and --version exit OK.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	exitCode := int(probe.StatusOK)

	rootCmd := newRootCmd(&exitCode)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		fmt.Fprintln(stderr, rootCmd.UsageString())
		return int(probe.StatusUnknown)
	}

	return exitCode
}

// runCheck loads the config, runs the probe and prints its one-line result
func runCheck(ctx context.Context, opts *rootOptions, configFile string, stdout, stderr io.Writer) int {
	logger := newLogger(stderr, opts.verbose).With("run", uuid.NewString())
	logger.Debug("starting check",
		"version", version.GetVersion(),
		"commit", version.GetCommitHash(),
		"go", version.GoVersion,
		"platform", version.Platform,
		"config", configFile)

	start := time.Now()

	var result probe.Result
	params, err := config.Load(configFile)
	if err != nil {
		result = probe.Unexpected(err)
	} else {
		runner := probe.New(
			probe.WithConnectTimeout(opts.connectTimeout),
			probe.WithRequestTimeout(opts.requestTimeout),
			probe.WithStrictTLS(opts.strictTLS),
			probe.WithProjectScope(opts.projectScope),
			probe.WithLogger(logger),
		)
		result = runner.Run(ctx, params)
	}
	elapsed := time.Since(start)

	logger.Debug("check finished", "status", result.Status.String(), "elapsed", elapsed, "error", result.Err)
	fmt.Fprintln(stdout, result.String())

	if opts.otlpEndpoint != "" {
		exportResult(ctx, logger, opts.otlpEndpoint, result, elapsed)
	}

	return result.Status.ExitCode()
}

// exportResult pushes result to the collector. Failures are logged only;
// they never change the reported status.
func exportResult(ctx context.Context, logger *slog.Logger, endpoint string, result probe.Result, elapsed time.Duration) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), metricsFlushTimeout)
	defer cancel()

	recorder, err := metrics.New(ctx, endpoint)
	if err != nil {
		logger.Warn("metrics export disabled", "error", err)
		return
	}
	recorder.Record(ctx, result, elapsed)
	if err := recorder.Shutdown(ctx); err != nil {
		logger.Warn("failed to export metrics", "endpoint", endpoint, "error", err)
	}
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	if !verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
