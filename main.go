// pattern: Imperative Shell
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"tessera/internal/cli"
	"tessera/internal/config"
	"tessera/internal/instance"
	"tessera/internal/ipc"
	"tessera/internal/logging"
	"tessera/internal/server"
)

var version = "dev"

func main() {
	// Stop parsing flags after the first non-flag arg (the subcommand),
	// so that --help after a subcommand is handled by the subcommand.
	flag.CommandLine.SetInterspersed(false)

	configDir := flag.StringP("config-dir", "c", "", "config directory (default: ~/.config/tessera)")
	logLevel := flag.String("log-level", "", "override the configured log level")
	reference := flag.Bool("reference", false, "print the scripting guide and command reference")

	// Override flag.Usage before Parse so --help uses the CLI app's help
	flag.Usage = func() {
		app := cli.BuildApp(version, *configDir)
		app.PrintHelp(os.Stderr)
		flag.PrintDefaults()
	}

	flag.Parse()

	app := cli.BuildApp(version, *configDir)

	if *reference {
		app.PrintReference(os.Stdout)
		return
	}

	if app.Execute(flag.Args()) {
		if err := runCompositor(*configDir, *logLevel); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
}

// loadConfig reads and validates the config for configDir, applying the
// command line log level.
func loadConfig(configDir, logLevel string) (config.Config, error) {
	cfg, err := config.LoadFrom(cli.ConfigPath(configDir))
	if err != nil {
		return cfg, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config:\n%w", err)
	}
	return cfg, nil
}

// runCompositor runs the compositor and its IPC server until SIGINT or
// SIGTERM.
func runCompositor(configDir, logLevel string) error {
	cfg, err := loadConfig(configDir, logLevel)
	if err != nil {
		return err
	}

	dataDir := cli.ResolveDataDir(configDir)

	// Acquire single-instance lock
	inst, err := instance.Acquire(dataDir)
	if err != nil {
		return err
	}
	defer inst.Release()

	logManager, err := logging.NewManager(logging.Config{
		FilePath:       filepath.Join(dataDir, "tessera.log"),
		MaxSizeMB:      10,
		MaxBackups:     3,
		MaxAgeDays:     7,
		ChannelBufSize: 1000,
		Level:          cfg.LogLevel,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer func() { _ = logManager.Close() }()

	logs := logging.NewBroadcaster(logging.DefaultHistory)
	go logs.Run(logManager.Entries())

	appLogger := logManager.For("app")
	appLogger.Info("tessera starting", "version", version, "outputs", len(cfg.Outputs))

	srv, err := server.New(server.Options{Config: cfg, Logs: logManager})
	if err != nil {
		return err
	}

	ipcServer := ipc.New(ipc.Config{Bind: cfg.IPC.Bind, Port: cfg.IPC.Port}, srv, logManager, logs)
	srv.OnEvent(ipcServer.Publish)

	ln, err := ipcServer.Listen()
	if err != nil {
		appLogger.Error("ipc listen error", "error", err)
		return err
	}

	// Publish the instance record for CLI discovery
	rec := instance.Record{
		Addr:    ipcServer.Addr(),
		Session: ipcServer.Session(),
		PID:     os.Getpid(),
		Started: time.Now(),
	}
	if err := inst.Publish(rec); err != nil {
		appLogger.Error("failed to write instance record", "error", err)
	}
	appLogger.Info("ipc listening", "addr", rec.Addr, "session", rec.Session)

	go func() {
		if err := ipcServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("ipc server error", "error", err)
		}
	}()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := ipcServer.Shutdown(ctx); err != nil {
			appLogger.Error("ipc server shutdown error", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	watcher, err := config.NewWatcher(cli.ConfigPath(configDir), logManager.For("config"), func(next config.Config) {
		if logLevel != "" {
			next.LogLevel = logLevel
		}
		if err := next.Validate(); err != nil {
			appLogger.Warn("ignoring invalid config", "error", err)
			return
		}
		logManager.SetLevel(next.LogLevel)
		rctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := srv.Reload(rctx, next); err != nil {
			appLogger.Warn("config reload failed", "error", err)
		}
	})
	if err != nil {
		appLogger.Warn("config watcher unavailable", "error", err)
	} else {
		go func() {
			if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				appLogger.Warn("config watcher stopped", "error", err)
			}
		}()
	}

	err = srv.Run(ctx)
	if err != nil {
		appLogger.Error("compositor exited with error", "error", err)
	}
	appLogger.Info("tessera stopped")
	return err
}
