package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/shurlinet/relnet/internal/config"
	"github.com/shurlinet/relnet/internal/metrics"
	"github.com/shurlinet/relnet/pkg/netcore"
)

func runServe(args []string) {
	if err := doServe(args, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		osExit(1)
	}
}

func doServe(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configFlag := fs.String("config", "", "path to config file")
	portFlag := fs.Int("port", 0, "override socket.port from the config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfgFile, err := config.FindConfigFile(*configFlag)
	var cfg *config.Config
	if err != nil {
		cfg = config.Default()
	} else {
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("config error: %w", err)
		}
	}
	if *portFlag != 0 {
		cfg.Socket.Port = *portFlag
	}
	// serve has exactly one listener and never calls PollEvents, so queued
	// dispatch would leave every callback dead; dispatch inline instead.
	cfg.Features.UnsyncedEvents = true

	if cfgFile != "" {
		if err := config.Archive(cfgFile); err != nil {
			slog.Default().Warn("failed to archive config as last-known-good", "err", err)
		}
	}

	log := slog.Default()
	socket := netcore.NewUDPSocket(log)
	listener := &loggingListener{log: log}

	var opts []netcore.Option
	var m *metrics.Metrics
	if cfg.Telemetry.MetricsEnabled {
		m = metrics.New(version, runtimeGoVersion())
		opts = append(opts, netcore.WithMetrics(m))
	}

	mgr := netcore.NewManager(cfg, socket, peerEngineFactory, listener, opts...)
	if err := mgr.Start(cfg.Socket.Port); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	fmt.Fprintf(stdout, "relnet listening on port %d\n", cfg.Socket.Port)

	if m != nil {
		go serveMetrics(m, log)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	fmt.Fprintln(stdout, "shutting down")
	return mgr.Stop()
}

func serveMetrics(m *metrics.Metrics, log *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	log.Info("metrics endpoint listening", "addr", ":9090")
	if err := http.ListenAndServe(":9090", mux); err != nil {
		log.Warn("metrics server stopped", "err", err)
	}
}
