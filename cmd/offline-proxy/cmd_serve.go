package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sternrassler/offline-cache/pkg/cache"
	"github.com/Sternrassler/offline-cache/pkg/fetch"
	"github.com/Sternrassler/offline-cache/pkg/logging"
	"github.com/Sternrassler/offline-cache/pkg/metrics"
	"github.com/spf13/cobra"
)

var cmdServe = &cobra.Command{
	Use:   "serve",
	Short: "Install the worker and serve the caching proxy",
	Long: `
The "serve" command precaches the application shell, activates the worker and
serves requests as a forward proxy (absolute request URLs) or a reverse proxy
for --origin (relative request URLs). Every path on --port is proxied;
/health, /ready and /metrics are served on --admin-port.

Sending SIGHUP reloads the configuration file and installs it as a new
version. The running version keeps control if the install fails.

EXIT STATUS
===========

Exit status is 0 after a clean shutdown, and non-zero if the first install
failed or the server could not start.
`,
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runServe(ctx, globalOptions, serveOptions)
	},
}

// ServeOptions bundles all options for the serve command.
type ServeOptions struct {
	Port            string
	AdminPort       string
	UserAgent       string
	ShutdownTimeout time.Duration
}

var serveOptions ServeOptions

func init() {
	cmdRoot.AddCommand(cmdServe)

	f := cmdServe.Flags()
	f.StringVar(&serveOptions.Port, "port", getEnv("PORT", "8080"), "proxy listen port (env PORT)")
	f.StringVar(&serveOptions.AdminPort, "admin-port", getEnv("ADMIN_PORT", "9090"), "listen port for /health, /ready and /metrics (env ADMIN_PORT)")
	f.StringVar(&serveOptions.UserAgent, "user-agent", getEnv("USER_AGENT", fetch.DefaultConfig().UserAgent), "User-Agent for network fetches (env USER_AGENT)")
	f.DurationVar(&serveOptions.ShutdownTimeout, "shutdown-timeout", getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second), "time allowed for in-flight requests and cache writes on shutdown")
}

func runServe(ctx context.Context, opts GlobalOptions, serve ServeOptions) error {
	logger := logging.NewLogger(logging.ComponentProxy)

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	storage, closeStorage, err := openStorage(ctx, opts)
	if err != nil {
		return err
	}
	defer closeStorage()

	fetchCfg := fetch.DefaultConfig()
	fetchCfg.UserAgent = serve.UserAgent
	fetcher := fetch.New(fetchCfg)

	p := newProxy(fetcher)
	if _, err := installVersion(ctx, cfg, storage, fetcher, p); err != nil {
		return fmt.Errorf("install worker: %w", err)
	}

	go reloadOnHangup(ctx, opts, storage, fetcher, p)

	// The proxy listener forwards every path, so operational endpoints get
	// their own listener.
	srv := &http.Server{
		Addr:              ":" + serve.Port,
		Handler:           p,
		ReadHeaderTimeout: 10 * time.Second,
	}
	admin := &http.Server{
		Addr:              ":" + serve.AdminPort,
		Handler:           newAdminMux(storage, p),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info().
			Str("addr", srv.Addr).
			Str("origin", cfg.Origin).
			Str("version", version).
			Msg("Starting offline proxy")
		errCh <- srv.ListenAndServe()
	}()
	go func() {
		logger.Info().Str("addr", admin.Addr).Msg("Starting admin server")
		errCh <- admin.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), serve.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("Server shutdown incomplete")
	}
	if err := p.Drain(shutdownCtx); err != nil {
		logger.Warn().Err(err).Int("pending", p.Pending()).Msg("Abandoned background cache writes")
	}
	if err := admin.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("Admin server shutdown incomplete")
	}
	return nil
}

// reloadOnHangup installs a new version from the configuration file on every
// SIGHUP until ctx is done.
func reloadOnHangup(ctx context.Context, opts GlobalOptions, storage cache.Storage, fetcher fetch.Fetcher, p *proxy) {
	logger := logging.NewLogger(logging.ComponentProxy)

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
		}

		cfg, err := loadConfig(opts)
		if err != nil {
			logger.Error().Err(err).Msg("Reload failed, keeping current version")
			continue
		}
		if _, err := installVersion(ctx, cfg, storage, fetcher, p); err != nil {
			logger.Error().Err(err).Msg("Upgrade failed, keeping current version")
		}
	}
}

// newAdminMux serves the operational endpoints.
func newAdminMux(storage cache.Storage, p *proxy) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/ready", readyHandler(storage, p))
	mux.Handle("/metrics", metrics.Handler())
	return mux
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

// readyHandler reports ready once a version is active and storage answers.
func readyHandler(storage cache.Storage, p *proxy) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if p.Active() == nil {
			http.Error(w, "no active worker", http.StatusServiceUnavailable)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if _, err := storage.Keys(ctx); err != nil {
			http.Error(w, fmt.Sprintf("storage unavailable: %v", err), http.StatusServiceUnavailable)
			return
		}

		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK")
	}
}
