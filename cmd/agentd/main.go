// Command agentd runs the agent control plane: it supervises the helper
// process and serves the control socket, driving both from a single
// poll-based event loop. A headless browsing surface backs the control
// routes, which makes the daemon useful on its own for automation and
// testing; a GUI host embeds the same packages against its own loop and
// surface instead.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"github.com/lespaceman/athena-browser-sub000/internal/control"
	"github.com/lespaceman/athena-browser-sub000/internal/infrastructure/config"
	"github.com/lespaceman/athena-browser-sub000/internal/infrastructure/logging"
	"github.com/lespaceman/athena-browser-sub000/internal/infrastructure/monitoring"
	"github.com/lespaceman/athena-browser-sub000/internal/reactor"
	"github.com/lespaceman/athena-browser-sub000/internal/supervisor"
	"github.com/lespaceman/athena-browser-sub000/internal/surface"
	"github.com/lespaceman/athena-browser-sub000/internal/surface/headless"
)

func main() {
	var (
		configPath    = flag.String("config", "", "Path to YAML config file (overrides environment)")
		helperEntry   = flag.String("helper", "", "Helper entry script (overrides config)")
		controlSocket = flag.String("socket", "", "Control socket path (overrides config)")
		logLevel      = flag.String("log-level", "", "Log level: debug, info, warn, error")
	)
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *helperEntry != "" {
		cfg.Helper.Entry = *helperEntry
	}
	if *controlSocket != "" {
		cfg.Control.SocketPath = *controlSocket
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if cfg.Control.SocketPath == "" {
		cfg.Control.SocketPath = defaultControlSocket()
	}

	log, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("agentd failed", zap.Error(err))
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func defaultControlSocket() string {
	return filepath.Join(os.TempDir(), fmt.Sprintf("athena-agent-%d-control.sock", os.Getuid()))
}

func run(cfg *config.Config, log *logging.Logger) error {
	metrics := monitoring.NewMetrics()
	loop := reactor.NewPoll(log)

	handle := surface.NewHandle()
	handle.Attach(headless.New(headless.DefaultConfig()))
	defer handle.Detach()

	routes := control.NewRouteTable()
	control.NewHandlers(handle, log).RegisterAll(routes)

	srv := control.NewServer(control.Config{
		SocketPath:     cfg.Control.SocketPath,
		MaxBodyBytes:   cfg.Control.MaxBodyBytes,
		GzipMinBytes:   cfg.Control.GzipMinBytes,
		RateLimitRPS:   float64(cfg.Control.RateLimitRPS),
		RateLimitBurst: cfg.Control.RateLimitBurst,
		IdleTimeout:    cfg.Control.IdleTimeout,
	}, routes, loop, log, metrics)
	if err := srv.Serve(); err != nil {
		return err
	}
	defer srv.Shutdown()

	sup := supervisor.New(supervisor.Config{
		HelperPath:          cfg.Helper.Executable,
		HelperArgs:          helperArgs(cfg),
		Env:                 helperEnv(cfg),
		StartupTimeout:      cfg.Helper.StartupTimeout,
		HealthInterval:      cfg.Helper.HealthInterval,
		HealthTimeout:       cfg.Helper.HealthTimeout,
		RestartMaxAttempts:  cfg.Helper.RestartMaxAttempts,
		InitialBackoff:      cfg.Helper.RestartBackoff,
		BackoffCeiling:      cfg.Helper.BackoffCeiling,
		GracefulStopTimeout: cfg.Helper.GracefulStop,
		UsePTY:              cfg.Helper.UsePTY,
	}, loop, log, metrics)
	defer sup.Shutdown()

	if cfg.Helper.Entry != "" {
		if err := sup.Initialize(); err != nil {
			return fmt.Errorf("helper startup: %w", err)
		}
		log.Info("helper supervised", zap.String("socket", sup.SocketPath()))
	} else {
		log.Warn("no helper entry configured, running control plane only")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info("received signal, shutting down", zap.String("signal", sig.String()))
		cancel()
	}()

	log.Info("agentd running", zap.String("control_socket", cfg.Control.SocketPath))
	loop.Run(ctx)
	return nil
}

func helperArgs(cfg *config.Config) []string {
	if cfg.Helper.Entry == "" {
		return nil
	}
	return []string{cfg.Helper.Entry}
}

// helperEnv suggests a socket path to the helper. The helper may still pick
// its own; whatever it announces in the readiness line wins.
func helperEnv(cfg *config.Config) []string {
	if cfg.Helper.SocketPath == "" {
		return nil
	}
	return []string{"ATHENA_HELPER_SOCKET=" + cfg.Helper.SocketPath}
}
