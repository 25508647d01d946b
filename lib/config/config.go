// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/docker/go-units"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/logd/lib/logfile"
	"github.com/bureau-foundation/logd/lib/record"
	"github.com/bureau-foundation/logd/lib/ringbuffer"
)

// EnvironmentVariable names the config file when no --config flag is given.
const EnvironmentVariable = "LOGD_CONFIG"

// maxSocketPath is the usable length of sun_path on Linux.
const maxSocketPath = 107

// Config is the full daemon configuration. It is read once at startup
// and never mutated afterwards.
type Config struct {
	// LogPath is the active log file. Rotated files live beside it.
	LogPath string `yaml:"log_path"`

	// MaxFileSize is the size threshold for size and hybrid rotation.
	MaxFileSize ByteSize `yaml:"max_file_size"`

	// MaxFiles is the number of rotated files kept.
	MaxFiles int `yaml:"max_files"`

	// BufferSize is the per-session ring buffer capacity in records.
	BufferSize int `yaml:"buffer_size"`

	// FlushIntervalMS is the drain period in milliseconds.
	FlushIntervalMS int `yaml:"flush_interval_ms"`

	// AutoFlush enables the periodic drain. When false, sessions are
	// drained on FLUSH, disconnect, shutdown, or when their buffer
	// passes three quarters full.
	AutoFlush bool `yaml:"auto_flush"`

	// MinLogLevel drops records below this level on ingest. Accepts a
	// name ("warn") or its number ("3").
	MinLogLevel record.Level `yaml:"min_log_level"`

	SocketPath string `yaml:"socket_path"`

	// MaxClients bounds concurrent sessions.
	MaxClients int `yaml:"max_clients"`

	RotationMode logfile.RotationMode `yaml:"rotation_mode"`

	// RotationInterval is the age threshold for time and hybrid rotation.
	RotationInterval time.Duration `yaml:"rotation_interval"`

	Compression logfile.Compression `yaml:"compression"`

	OverflowPolicy ringbuffer.Policy `yaml:"overflow_policy"`

	// BlockTimeout bounds how long a producer waits under the block
	// overflow policy.
	BlockTimeout time.Duration `yaml:"block_timeout"`

	// BatchSize is the most records taken from one session per drain.
	BatchSize int `yaml:"batch_size"`

	// IdleTimeout reaps sessions with no traffic for this long. Zero
	// disables reaping.
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// HandshakeTimeout bounds the wait for HELLO after accept.
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`

	// ShutdownGrace bounds the final drain on shutdown.
	ShutdownGrace time.Duration `yaml:"shutdown_grace"`

	// WriteRetries is how many times a failed batch write is retried.
	WriteRetries int `yaml:"write_retries"`

	// MetricsAddress, when set, serves Prometheus metrics over HTTP.
	MetricsAddress string `yaml:"metrics_address"`

	// source is the file this config was loaded from, for error messages.
	source string
}

// Default returns the configuration used for every key a file omits.
func Default() *Config {
	return &Config{
		LogPath:          "/data/local/tmp/logd/app.log",
		MaxFileSize:      4 * units.MiB,
		MaxFiles:         5,
		BufferSize:       1024,
		FlushIntervalMS:  1000,
		AutoFlush:        true,
		MinLogLevel:      record.LevelVerbose,
		SocketPath:       "/data/local/tmp/logd/logd.sock",
		MaxClients:       64,
		RotationMode:     logfile.RotateSize,
		RotationInterval: 24 * time.Hour,
		Compression:      logfile.CompressNone,
		OverflowPolicy:   ringbuffer.DropOldest,
		BlockTimeout:     100 * time.Millisecond,
		BatchSize:        256,
		IdleTimeout:      5 * time.Minute,
		HandshakeTimeout: 5 * time.Second,
		ShutdownGrace:    5 * time.Second,
		WriteRetries:     3,
	}
}

// Load loads configuration from the file named by LOGD_CONFIG. There
// is no fallback: an unset variable is an error.
func Load() (*Config, error) {
	path := os.Getenv(EnvironmentVariable)
	if path == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your logd config file, or use --config flag", EnvironmentVariable)
	}
	return LoadFile(path)
}

// LoadFile loads configuration from path on top of Default. The result
// is not validated; call Validate after applying flag overrides.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := cfg.decode(path, data); err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}
	cfg.source = path
	cfg.expandVariables()
	return cfg, nil
}

// decode parses data into c. JSON and JSONC files are stripped of
// comments and trailing commas, then parsed by the YAML decoder, which
// accepts JSON.
func (c *Config) decode(path string, data []byte) error {
	if strings.HasSuffix(path, ".json") || strings.HasSuffix(path, ".jsonc") {
		data = jsonc.ToJSON(data)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil {
		// An empty file decodes to io.EOF; it means "all defaults".
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	return nil
}

// FlushInterval returns FlushIntervalMS as a duration.
func (c *Config) FlushInterval() time.Duration {
	return time.Duration(c.FlushIntervalMS) * time.Millisecond
}

// Source returns the file the configuration was loaded from, or "" for
// a configuration built in code.
func (c *Config) Source() string { return c.source }

// LogfileOptions returns the file manager settings.
func (c *Config) LogfileOptions() logfile.Options {
	return logfile.Options{
		Path:         c.LogPath,
		MaxFileSize:  int64(c.MaxFileSize),
		MaxFiles:     c.MaxFiles,
		Mode:         c.RotationMode,
		Interval:     c.RotationInterval,
		Compression:  c.Compression,
		WriteRetries: c.WriteRetries,
	}
}

// RingOptions returns the per-session buffer settings.
func (c *Config) RingOptions() ringbuffer.Options {
	return ringbuffer.Options{
		Capacity:     c.BufferSize,
		Policy:       c.OverflowPolicy,
		BlockTimeout: c.BlockTimeout,
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} in path fields.
func (c *Config) expandVariables() {
	c.LogPath = expandVars(c.LogPath)
	c.SocketPath = expandVars(c.SocketPath)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return parts[2]
	})
}

// Validate checks every option and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error

	if c.LogPath == "" {
		errs = append(errs, errors.New("log_path is required"))
	}
	if c.MaxFileSize <= 0 {
		errs = append(errs, fmt.Errorf("max_file_size must be positive, got %d", c.MaxFileSize))
	}
	if c.MaxFiles < 1 {
		errs = append(errs, fmt.Errorf("max_files must be at least 1, got %d", c.MaxFiles))
	}
	if c.BufferSize < 1 {
		errs = append(errs, fmt.Errorf("buffer_size must be at least 1, got %d", c.BufferSize))
	}
	if c.FlushIntervalMS <= 0 {
		errs = append(errs, fmt.Errorf("flush_interval_ms must be positive, got %d", c.FlushIntervalMS))
	}
	if !c.MinLogLevel.Valid() {
		errs = append(errs, fmt.Errorf("min_log_level %s is not a valid level", c.MinLogLevel))
	}
	switch {
	case c.SocketPath == "":
		errs = append(errs, errors.New("socket_path is required"))
	case len(c.SocketPath) > maxSocketPath:
		errs = append(errs, fmt.Errorf("socket_path is %d bytes, longer than the %d byte unix socket limit",
			len(c.SocketPath), maxSocketPath))
	}
	if c.MaxClients < 1 {
		errs = append(errs, fmt.Errorf("max_clients must be at least 1, got %d", c.MaxClients))
	}
	if c.RotationMode > logfile.RotateHybrid {
		errs = append(errs, fmt.Errorf("rotation_mode %s is not valid", c.RotationMode))
	}
	if c.RotationMode != logfile.RotateSize && c.RotationInterval <= 0 {
		errs = append(errs, fmt.Errorf("rotation_interval must be positive for %s rotation", c.RotationMode))
	}
	if c.Compression > logfile.CompressLZ4 {
		errs = append(errs, fmt.Errorf("compression %s is not valid", c.Compression))
	}
	if c.OverflowPolicy > ringbuffer.BlockWithTimeout {
		errs = append(errs, fmt.Errorf("overflow_policy %s is not valid", c.OverflowPolicy))
	}
	if c.OverflowPolicy == ringbuffer.BlockWithTimeout && c.BlockTimeout <= 0 {
		errs = append(errs, errors.New("block_timeout must be positive for the block overflow policy"))
	}
	if c.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("batch_size must be at least 1, got %d", c.BatchSize))
	}
	if c.IdleTimeout < 0 {
		errs = append(errs, fmt.Errorf("idle_timeout must not be negative, got %s", c.IdleTimeout))
	}
	if c.HandshakeTimeout <= 0 {
		errs = append(errs, fmt.Errorf("handshake_timeout must be positive, got %s", c.HandshakeTimeout))
	}
	if c.ShutdownGrace <= 0 {
		errs = append(errs, fmt.Errorf("shutdown_grace must be positive, got %s", c.ShutdownGrace))
	}
	if c.WriteRetries < 0 {
		errs = append(errs, fmt.Errorf("write_retries must not be negative, got %d", c.WriteRetries))
	}

	if len(errs) > 0 {
		return &ConfigError{Path: c.source, Err: errors.Join(errs...)}
	}
	return nil
}

// ConfigError reports a configuration file that could not be parsed or
// failed validation. Startup treats it as fatal.
type ConfigError struct {
	// Path is the config file, or "" for a configuration built in code.
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid configuration: %v", e.Err)
	}
	return fmt.Sprintf("invalid configuration in %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// ExitCode is EX_CONFIG from sysexits.h.
func (e *ConfigError) ExitCode() int { return 78 }
