package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"frizo/fee_risk_engine/internal/app"
	"frizo/fee_risk_engine/internal/config"
	"frizo/fee_risk_engine/internal/logger"
	"frizo/fee_risk_engine/internal/metrics"
	"frizo/fee_risk_engine/internal/version"
	"frizo/fee_risk_engine/pkg/utils"
)

const defaultConfigFile = "configs/config.yaml"

func main() {
	// Command line flags
	var (
		showVersion = flag.Bool("version", false, "Show version information")
		showHelp    = flag.Bool("help", false, "Show help information")
		configFile  = flag.String("config", defaultConfigFile, "Path to configuration file (YAML)")
		logLevel    = flag.String("log-level", "", "Log level (debug, info, warn, error)")
		demo        = flag.String("demo", app.DemoAll, "Demo to run ("+strings.Join(app.Demos, ", ")+")")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Get().String())
		os.Exit(0)
	}

	if *showHelp {
		fmt.Printf("%s %s\n\n", version.Name, version.Short())
		fmt.Println("Usage:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	if !utils.Contains(app.Demos, strings.ToLower(*demo)) {
		fmt.Fprintf(os.Stderr, "unknown -demo %q (known: %s)\n", *demo, strings.Join(app.Demos, ", "))
		os.Exit(1)
	}

	// the default file is optional, an explicit one is not
	path := *configFile
	if path == defaultConfigFile && !utils.FileExists(path) {
		path = ""
	}
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	log := logger.NewForEnv(cfg.LogLevel, cfg.Environment)
	logger.SetDefault(log)
	defer func() { _ = log.Sync() }()

	log.Info("Starting "+version.Name,
		"version", version.Short(),
		"environment", cfg.Environment,
		"config", path,
		"demo", *demo,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, *demo); err != nil {
		log.Error("Application error", "error", err)
		_ = log.Sync()
		os.Exit(1)
	}
	log.Info(version.Name + " stopped")
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger, demo string) error {
	var (
		m   *metrics.Metrics
		srv *http.Server
	)
	if cfg.Metrics.Addr != "" {
		registry := prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m = metrics.NewMetrics(registry)
		srv = serveMetrics(cfg.Metrics.Addr, registry, log)
	}

	engine, err := app.New(cfg, log, os.Stdout, m)
	if err != nil {
		return err
	}
	if err := engine.Run(ctx, demo); err != nil {
		return err
	}

	if srv == nil {
		return nil
	}

	// keep /metrics up until interrupted
	log.Info("Demo finished, serving metrics until SIGINT/SIGTERM", "addr", cfg.Metrics.Addr)
	<-ctx.Done()
	log.Info("Shutting down...")
	return cleanup(srv, log)
}

func serveMetrics(addr string, registry *prometheus.Registry, log *logger.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics listener failed", "addr", addr, "error", err)
		}
	}()
	return srv
}

func cleanup(srv *http.Server, log *logger.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown metrics server: %w", err)
	}
	log.Debug("Cleanup completed")
	return nil
}
