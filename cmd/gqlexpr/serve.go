package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	config "github.com/hanpama/gqlexpr/internal/config"
	demo "github.com/hanpama/gqlexpr/internal/demo"
	eventbus "github.com/hanpama/gqlexpr/internal/eventbus"
	metrics "github.com/hanpama/gqlexpr/internal/metrics"
	otel "github.com/hanpama/gqlexpr/internal/otel"
	server "github.com/hanpama/gqlexpr/internal/server"
)

func (c *cli) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP GraphQL endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, c.cfg, c.demoOptions())
		},
	}
	c.bind(cmd.Flags(), func(fs *pflag.FlagSet) {
		fs.String("server.addr", ":8080", "HTTP listen address")
		fs.String("server.path", "/graphql", "GraphQL endpoint path")
		fs.String("server.metrics-path", "/metrics", "Prometheus metrics path; empty disables it")
		fs.Bool("server.pretty", false, "pretty-print JSON responses")
		fs.Duration("server.timeout", 10*time.Second, "per-request timeout")
		fs.Int64("server.max-body-bytes", 1<<20, "request body limit in bytes")
		fs.StringSlice("server.metadata-header", nil, "forward an HTTP header to service calls as gRPC metadata; repeatable")
		fs.StringSlice("server.cors-origin", nil, "allowed CORS origin; repeatable")
		fs.String("server.jwt-secret", "", "HMAC secret verifying bearer tokens; empty makes every request anonymous")
		fs.Bool("server.graphiql", true, "serve GraphiQL to browsers")
		fs.String("otel.endpoint", "", "OTLP gRPC collector endpoint")
		fs.String("otel.service", "gqlexpr", "OpenTelemetry service name")
	})
	return cmd
}

// handler assembles the HTTP routes: the GraphQL endpoint and, when
// configured, the metrics endpoint.
func handler(cfg *config.Config, app *demo.App, reg *prometheus.Registry) (http.Handler, error) {
	opts := []server.Option{
		server.WithTimeout(cfg.Server.Timeout),
		server.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
		server.WithGraphiQL(cfg.Server.GraphiQL),
		server.WithRootValue(app.Root),
	}
	if cfg.Server.Pretty {
		opts = append(opts, server.WithPretty())
	}
	if len(cfg.Server.MetadataHeaders) > 0 {
		opts = append(opts, server.WithMetadataHeaders(cfg.Server.MetadataHeaders...))
	}
	if len(cfg.Server.CORSOrigins) > 0 {
		opts = append(opts, server.WithCORS(cfg.Server.CORSOrigins...))
	}
	if cfg.Server.JWTSecret != "" {
		opts = append(opts, server.WithJWTSecret([]byte(cfg.Server.JWTSecret)))
	}
	h, err := server.New(app.Executor, opts...)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle(cfg.Server.Path, h)
	if cfg.Server.MetricsPath != "" {
		mux.Handle(cfg.Server.MetricsPath, metrics.Handler(reg))
	}
	return mux, nil
}

func serve(ctx context.Context, cfg *config.Config, opts demo.Options) error {
	eventbus.Use(eventbus.New())
	defer eventbus.Use(nil)

	shutdownTracing, err := otel.Setup(cfg.Otel.Endpoint, cfg.Otel.Service)
	if err != nil {
		return err
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	unsubscribe := metrics.New(reg).Subscribe()
	defer unsubscribe()

	app, err := demo.New(ctx, opts)
	if err != nil {
		return err
	}
	defer app.Close()

	h, err := handler(cfg, app, reg)
	if err != nil {
		return err
	}
	srv := &http.Server{Addr: cfg.Server.Addr, Handler: h, ReadHeaderTimeout: 10 * time.Second}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	log.WithFields(log.Fields{"addr": cfg.Server.Addr, "path": cfg.Server.Path}).Info("GraphQL server listening")

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
