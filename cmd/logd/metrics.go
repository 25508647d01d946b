// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bureau-foundation/logd/lib/logfile"
)

const metricsNamespace = "logd"

// metrics holds the daemon's Prometheus collectors. Each daemon has
// its own registry so tests can run several daemons in one process.
type metrics struct {
	registry *prometheus.Registry

	sessionsOpened   prometheus.Counter
	sessionsRejected *prometheus.CounterVec
	sessionsReaped   prometheus.Counter
	protocolErrors   *prometheus.CounterVec

	recordsReceived prometheus.Counter
	recordsFiltered prometheus.Counter
	recordsDropped  prometheus.Counter
	recordsWritten  prometheus.Counter
	recordsLost     prometheus.Counter
	writeErrors     prometheus.Counter
	flushes         prometheus.Counter
}

func newMetrics(registry *Registry, files interface{ Stats() logfile.Stats }) *metrics {
	promRegistry := prometheus.NewRegistry()
	factory := promauto.With(promRegistry)

	m := &metrics{
		registry: promRegistry,
		sessionsOpened: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace, Name: "sessions_opened_total",
			Help: "Sessions that completed the handshake.",
		}),
		sessionsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace, Name: "sessions_rejected_total",
			Help: "Connections refused during the handshake, by reject code.",
		}, []string{"code"}),
		sessionsReaped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace, Name: "sessions_reaped_total",
			Help: "Sessions closed for inactivity.",
		}),
		protocolErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace, Name: "protocol_errors_total",
			Help: "Sessions ended by a malformed or unexpected frame.",
		}, []string{"kind"}),
		recordsReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace, Name: "records_received_total",
			Help: "LOG_RECORD frames decoded.",
		}),
		recordsFiltered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace, Name: "records_filtered_total",
			Help: "Records below min_log_level.",
		}),
		recordsDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace, Name: "records_dropped_total",
			Help: "Records lost to ring buffer overflow.",
		}),
		recordsWritten: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace, Name: "records_written_total",
			Help: "Records appended to the log file.",
		}),
		recordsLost: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace, Name: "records_lost_total",
			Help: "Records lost to write failures or abandoned at shutdown.",
		}),
		writeErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace, Name: "write_errors_total",
			Help: "Batches dropped after every write attempt failed.",
		}),
		flushes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace, Name: "flushes_total",
			Help: "FLUSH requests served.",
		}),
	}

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: metricsNamespace, Name: "sessions_active",
		Help: "Sessions currently connected.",
	}, func() float64 { return float64(registry.Len()) })

	fileCounter := func(name, help string, value func(logfile.Stats) uint64) {
		factory.NewCounterFunc(prometheus.CounterOpts{
			Namespace: metricsNamespace, Subsystem: "file", Name: name, Help: help,
		}, func() float64 { return float64(value(files.Stats())) })
	}
	fileCounter("bytes_written_total", "Bytes appended to the active file.",
		func(s logfile.Stats) uint64 { return s.BytesWritten })
	fileCounter("write_retries_total", "Write attempts retried after a failure.",
		func(s logfile.Stats) uint64 { return s.WriteRetries })
	fileCounter("rotations_total", "Completed rotations.",
		func(s logfile.Stats) uint64 { return s.Rotations })
	fileCounter("rotation_errors_total", "Rotations rolled back after a failed step.",
		func(s logfile.Stats) uint64 { return s.RotationErrors })
	fileCounter("compressions_total", "Rotated files compressed.",
		func(s logfile.Stats) uint64 { return s.Compressed })
	fileCounter("compression_errors_total", "Rotated files that failed to compress.",
		func(s logfile.Stats) uint64 { return s.CompressionErrors })

	return m
}

func (m *metrics) handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry}))
	return mux
}
