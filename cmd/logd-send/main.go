// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/logd/lib/config"
	"github.com/bureau-foundation/logd/lib/logclient"
	"github.com/bureau-foundation/logd/lib/process"
	"github.com/bureau-foundation/logd/lib/record"
	"github.com/bureau-foundation/logd/lib/version"
)

func main() {
	if err := run(os.Args[1:], os.Stdin); err != nil {
		process.Fatal(err)
	}
}

func run(args []string, stdin io.Reader) error {
	var (
		socketPath  string
		tag         string
		levelName   string
		flushAfter  bool
		timeout     time.Duration
		showVersion bool
	)
	flagSet := pflag.NewFlagSet("logd-send", pflag.ContinueOnError)
	flagSet.StringVar(&socketPath, "socket", config.Default().SocketPath, "logd socket path")
	flagSet.StringVarP(&tag, "tag", "t", "logd-send", "source tag for every record")
	flagSet.StringVarP(&levelName, "level", "l", "info", "record level (verbose, debug, info, warn, error, fatal)")
	flagSet.BoolVar(&flushAfter, "flush", true, "wait until the daemon has written every line before exiting")
	flagSet.DurationVar(&timeout, "timeout", 10*time.Second, "bound on connecting and on the final flush")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if showVersion {
		fmt.Printf("logd-send %s\n", version.Info())
		return nil
	}

	level, err := record.ParseLevel(levelName)
	if err != nil {
		return fmt.Errorf("--level: %w", err)
	}

	// Positional arguments form one message; otherwise each stdin
	// line is a record.
	var input io.Reader = stdin
	if flagSet.NArg() > 0 {
		input = stringsReader(flagSet.Args())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	client, err := logclient.Dial(dialCtx, socketPath, logclient.Options{Tag: tag, FlushAck: flushAfter})
	cancel()
	if err != nil {
		return err
	}
	defer client.Close()

	sent, err := send(client, level, input)
	if err != nil {
		return fmt.Errorf("after %d records: %w", sent, err)
	}

	if flushAfter {
		flushCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if err := client.Flush(flushCtx); err != nil {
			return fmt.Errorf("flushing %d records: %w", sent, err)
		}
	}
	return client.Close()
}

// sender is the part of *logclient.Client send uses.
type sender interface {
	Log(level record.Level, message string) error
}

// send logs every line of input and returns how many were sent.
func send(client sender, level record.Level, input io.Reader) (int, error) {
	scanner := bufio.NewScanner(input)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	sent := 0
	for scanner.Scan() {
		if err := client.Log(level, scanner.Text()); err != nil {
			return sent, err
		}
		sent++
	}
	if err := scanner.Err(); err != nil {
		return sent, fmt.Errorf("reading input: %w", err)
	}
	return sent, nil
}

// stringsReader joins command-line words into a single line.
func stringsReader(words []string) io.Reader {
	return strings.NewReader(strings.Join(words, " ") + "\n")
}
