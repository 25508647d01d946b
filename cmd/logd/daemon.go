// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bureau-foundation/logd/lib/clock"
	"github.com/bureau-foundation/logd/lib/config"
	"github.com/bureau-foundation/logd/lib/logfile"
)

// maxRotationCheck caps the period of time-based rotation checks.
const maxRotationCheck = time.Second

// Daemon owns every long-lived component. It is built once in run()
// and passed explicitly; nothing in the daemon is global.
type Daemon struct {
	config   *config.Config
	clock    clock.Clock
	logger   *slog.Logger
	files    *logfile.Manager
	registry *Registry
	drain    *drainLoop
	metrics  *metrics

	// connections tracks connection goroutines, from accept through
	// the final drain of their session.
	connections sync.WaitGroup
}

// newDaemon opens the log file chain and wires the components. The
// caller owns the returned daemon's Run.
func newDaemon(cfg *config.Config, clk clock.Clock, logger *slog.Logger) (*Daemon, error) {
	fileOptions := cfg.LogfileOptions()
	fileOptions.Clock = clk
	fileOptions.Logger = logger.With("component", "logfile")
	files, err := logfile.Open(fileOptions)
	if err != nil {
		return nil, fmt.Errorf("opening log files: %w", err)
	}

	registry := NewRegistry(cfg.MaxClients)
	daemonMetrics := newMetrics(registry, files)

	drain := newDrainLoop(registry, files, clk, logger.With("component", "drain"), daemonMetrics)
	drain.batchSize = cfg.BatchSize
	drain.flushInterval = cfg.FlushInterval()
	drain.autoFlush = cfg.AutoFlush
	if cfg.RotationMode != logfile.RotateSize {
		drain.rotationCheck = min(cfg.RotationInterval, maxRotationCheck)
	}

	return &Daemon{
		config:   cfg,
		clock:    clk,
		logger:   logger,
		files:    files,
		registry: registry,
		drain:    drain,
		metrics:  daemonMetrics,
	}, nil
}

// Run serves clients on socket until ctx is cancelled, then shuts
// down: the listener and every client connection are closed, readers
// finish their final drains, the drain loop makes one last pass, and
// the log file is closed. The whole sequence up to the file close is
// bounded by shutdown_grace. metricsListener may be
// nil.
func (d *Daemon) Run(ctx context.Context, socket net.Listener, metricsListener net.Listener) error {
	group, groupCtx := errgroup.WithContext(ctx)
	// drainStop carries the shutdown deadline. Waiting for connections
	// and the final drain pass share one shutdown_grace budget.
	drainStop := make(chan time.Time, 1)

	group.Go(func() error {
		d.drain.run(drainStop)
		return nil
	})
	group.Go(func() error {
		return d.acceptLoop(groupCtx, socket)
	})
	if d.config.IdleTimeout > 0 {
		group.Go(func() error {
			d.reapLoop(groupCtx)
			return nil
		})
	}
	if metricsListener != nil {
		group.Go(func() error {
			return d.serveMetrics(groupCtx, metricsListener)
		})
	}
	group.Go(func() error {
		<-groupCtx.Done()
		d.logger.Info("shutting down", "sessions", d.registry.Len())
		deadline := d.clock.Now().Add(d.config.ShutdownGrace)
		d.waitForConnections(d.config.ShutdownGrace)
		drainStop <- deadline
		return nil
	})

	runErr := group.Wait()
	if err := d.files.Close(); err != nil {
		d.logger.Error("closing log file", "error", err)
		if runErr == nil {
			runErr = err
		}
	}
	stats := d.files.Stats()
	d.logger.Info("daemon stopped",
		"bytes_written", stats.BytesWritten,
		"batches_written", stats.BatchesWritten,
		"batches_dropped", stats.BatchesDropped,
		"rotations", stats.Rotations,
	)
	return runErr
}

// waitForConnections waits for connection goroutines to finish, up to
// grace. Connections are already closing because their context ended.
func (d *Daemon) waitForConnections(grace time.Duration) {
	done := make(chan struct{})
	go func() {
		d.connections.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-d.clock.After(grace):
		d.logger.Warn("connections still open after shutdown grace", "sessions", d.registry.Len())
	}
}

// reapLoop closes sessions idle for longer than idle_timeout. A reaped
// session's reader sees the closed connection and takes the normal
// disconnect path, including the final drain.
func (d *Daemon) reapLoop(ctx context.Context) {
	interval := max(d.config.IdleTimeout/4, 10*time.Millisecond)
	ticker := d.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, session := range d.registry.Idle(d.clock.Now(), d.config.IdleTimeout) {
				d.logger.Info("reaping idle session",
					"session_id", session.ID,
					"idle", d.clock.Now().Sub(session.LastActivity()),
				)
				d.metrics.sessionsReaped.Inc()
				session.Close()
			}
		}
	}
}

func (d *Daemon) serveMetrics(ctx context.Context, listener net.Listener) error {
	server := &http.Server{
		Handler:           d.metrics.handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	stop := context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	})
	defer stop()

	d.logger.Info("serving metrics", "address", listener.Addr().String())
	if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}
