package cli

import (
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/roach88/todosync/internal/bus"
	"github.com/roach88/todosync/internal/gateway"
	"github.com/roach88/todosync/internal/server"
	"github.com/roach88/todosync/internal/service"
	"github.com/roach88/todosync/internal/store"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr string
	DB   string
	Seed bool

	// Listener, when set, is served instead of listening on Addr.
	Listener net.Listener

	// IDs overrides the item ID generator. Defaults to UUIDv7.
	IDs service.IDGenerator
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the todo server",
		Long: `Run the todo server: the HTTP query and mutation API, the WebSocket
push stream at /api/subscribe, /healthz and Prometheus /metrics.

Items live in memory unless --db names a sqlite file or a postgres URL.

Example:
  todosync serve --seed
  todosync serve --addr :4000 --db ./todos.db
  todosync serve --db postgres://localhost/todos --config todosync.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (default from config)")
	cmd.Flags().StringVar(&opts.DB, "db", "", "sqlite path or postgres URL (default in memory)")
	cmd.Flags().BoolVar(&opts.Seed, "seed", false, "load the sample items into an empty store")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	cfg, err := opts.load(cmd)
	if err != nil {
		return err
	}
	if opts.Addr != "" {
		cfg.Server.Addr = opts.Addr
	}
	if opts.DB != "" {
		cfg.Server.DB = opts.DB
	}
	if opts.Seed {
		cfg.Server.Seed = true
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	slog.Info("opening store", "db", cfg.Server.DB)
	st, err := store.Open(cfg.Server.DB)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open store", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing store", "error", closeErr)
		}
	}()

	ids := opts.IDs
	if ids == nil {
		ids = service.UUIDv7Generator{}
	}
	if cfg.Server.Seed {
		n, err := store.Seed(ctx, st, ids.Generate, time.Now(), store.DefaultSamples)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to seed store", err)
		}
		slog.Info("store seeded", "items", n)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	b := bus.New()
	gw := gateway.New(b, gateway.WithRegisterer(reg))
	svc := service.New(st, b,
		service.WithIDGenerator(ids),
		service.WithMetrics(service.NewMetrics(reg)),
	)
	srv := server.New(svc, gw,
		server.WithRegistry(reg),
		server.WithAllowedOrigins(cfg.Server.AllowedOrigins...),
	)

	ln := opts.Listener
	if ln == nil {
		ln, err = net.Listen("tcp", cfg.Server.Addr)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to listen", err)
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Serving on http://%s\n", ln.Addr())
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")

	if err := srv.Run(ctx, ln); err != nil {
		return WrapExitError(ExitFailure, "server error", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}
