// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/logd/lib/clock"
	"github.com/bureau-foundation/logd/lib/config"
	"github.com/bureau-foundation/logd/lib/process"
	"github.com/bureau-foundation/logd/lib/version"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		process.Fatal(err)
	}
}

// flags holds the command line. Config-file values are overridden only
// by flags the user actually set.
type flags struct {
	set *pflag.FlagSet

	configPath     string
	socketPath     string
	logPath        string
	maxFileSize    config.ByteSize
	metricsAddress string
	logLevel       string
	logFormat      string
	showVersion    bool
}

func parseFlags(args []string) (*flags, error) {
	f := &flags{set: pflag.NewFlagSet("logd", pflag.ContinueOnError)}
	f.set.StringVar(&f.configPath, "config", "", "configuration file (default: $LOGD_CONFIG, then built-in defaults)")
	f.set.StringVar(&f.socketPath, "socket-path", "", "override socket_path")
	f.set.StringVar(&f.logPath, "log-path", "", "override log_path")
	f.set.Var(&f.maxFileSize, "max-file-size", "override max_file_size (e.g. 4MiB)")
	f.set.StringVar(&f.metricsAddress, "metrics-address", "", "override metrics_address (host:port, empty disables)")
	f.set.StringVar(&f.logLevel, "log-level", "info", "daemon diagnostic log level (debug, info, warn, error)")
	f.set.StringVar(&f.logFormat, "log-format", "json", "daemon diagnostic log format (json or text)")
	f.set.BoolVar(&f.showVersion, "version", false, "print version information and exit")
	if err := f.set.Parse(args); err != nil {
		return nil, err
	}
	if f.set.NArg() > 0 {
		return nil, fmt.Errorf("unexpected argument: %s", f.set.Arg(0))
	}
	return f, nil
}

// loadConfig reads the configuration file, applies flag overrides, and
// validates the result.
func (f *flags) loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	switch {
	case f.configPath != "":
		cfg, err = config.LoadFile(f.configPath)
	case os.Getenv(config.EnvironmentVariable) != "":
		cfg, err = config.Load()
	default:
		cfg = config.Default()
	}
	if err != nil {
		return nil, err
	}

	if f.set.Changed("socket-path") {
		cfg.SocketPath = f.socketPath
	}
	if f.set.Changed("log-path") {
		cfg.LogPath = f.logPath
	}
	if f.set.Changed("max-file-size") {
		cfg.MaxFileSize = f.maxFileSize
	}
	if f.set.Changed("metrics-address") {
		cfg.MetricsAddress = f.metricsAddress
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the daemon's own diagnostic logger. These lines go
// to stderr, never into the managed log file.
func (f *flags) newLogger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(f.logLevel)); err != nil {
		return nil, fmt.Errorf("--log-level: %w", err)
	}
	options := &slog.HandlerOptions{Level: level}
	switch f.logFormat {
	case "text":
		return slog.New(slog.NewTextHandler(w, options)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, options)), nil
	default:
		return nil, fmt.Errorf("--log-format: unknown format %q (want text or json)", f.logFormat)
	}
}

func run(args []string) error {
	f, err := parseFlags(args)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if f.showVersion {
		fmt.Printf("logd %s\n", version.Full())
		return nil
	}

	logger, err := f.newLogger(os.Stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	cfg, err := f.loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	lock, err := acquireInstanceLock(cfg.SocketPath)
	if err != nil {
		return err
	}
	defer lock.Release()

	daemon, err := newDaemon(cfg, clock.Real(), logger)
	if err != nil {
		return err
	}

	socket, err := listenSocket(cfg.SocketPath)
	if err != nil {
		daemon.files.Close()
		return err
	}
	defer os.Remove(cfg.SocketPath)

	var metricsListener net.Listener
	if cfg.MetricsAddress != "" {
		metricsListener, err = net.Listen("tcp", cfg.MetricsAddress)
		if err != nil {
			socket.Close()
			daemon.files.Close()
			return fmt.Errorf("listening for metrics on %s: %w", cfg.MetricsAddress, err)
		}
	}

	logger.Info("logd starting",
		version.Attrs(),
		"config", cfg.Source(),
		"socket_path", cfg.SocketPath,
		"log_path", cfg.LogPath,
		"max_file_size", cfg.MaxFileSize.String(),
		"max_files", cfg.MaxFiles,
		"rotation_mode", cfg.RotationMode.String(),
		"overflow_policy", cfg.OverflowPolicy.String(),
		"max_clients", cfg.MaxClients,
	)

	return daemon.Run(ctx, socket, metricsListener)
}
