// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/someonegg/msgdeliver"
	"github.com/someonegg/msgdeliver/config"
	"github.com/someonegg/msgdeliver/logger"
	"github.com/someonegg/msgdeliver/status"
	"github.com/urfave/cli/v2"
)

// loadConfig reads the configuration file if any, then applies the flags
// given on the command line.
func loadConfig(c *cli.Context, role msgdeliver.Role) (*config.Custom, error) {
	custom := config.Default()
	if file := c.String("config"); file != "" {
		var err error
		custom, err = config.Initialize(file)
		if err != nil {
			return nil, err
		}
	}
	custom.Transport.Role = string(role)

	if c.IsSet("log") {
		custom.Log.Level = c.Int("log")
	}
	if c.IsSet("filter") {
		custom.Log.Filter = c.String("filter")
	}
	if c.IsSet("dump") {
		custom.Log.Dump = c.Bool("dump")
	}
	if c.IsSet("compress") {
		custom.Transport.Compress = c.Bool("compress")
	}
	if c.IsSet("host") {
		custom.Transport.Host = c.String("host")
	}
	if c.IsSet("port") {
		custom.Transport.Port = c.Int("port")
	}
	if c.IsSet("backlog") {
		custom.Transport.Backlog = c.Int("backlog")
	}
	if c.IsSet("status") {
		custom.Status.Listen = c.String("status")
	}

	logger.SetLevel(custom.Log.Level)
	logger.SetLimiter(custom.Log.Limiter)
	err := logger.SetFilter(custom.Log.Filter)
	if err != nil {
		return nil, err
	}
	return custom, nil
}

func transportOptions(custom *config.Custom) msgdeliver.Options {
	opts := msgdeliver.DefaultOptions(msgdeliver.Role(custom.Transport.Role))
	opts.Host = custom.Transport.Host
	opts.Port = custom.Transport.Port
	opts.Backlog = custom.Transport.Backlog
	opts.MaxMessageSize = custom.Transport.MaxMessageSize
	opts.Compress = custom.Transport.Compress
	opts.FaultQueueSize = custom.Transport.FaultQueueSize
	opts.DialTimeout = custom.DialTimeout()
	if custom.Log.Dump {
		opts.Dump = os.Stderr
	}
	return opts
}

func serverCmd(c *cli.Context) error {
	custom, err := loadConfig(c, msgdeliver.RoleServer)
	if err != nil {
		return err
	}
	return run(custom, nil, os.Stdout, c.Bool("echo"))
}

func clientCmd(c *cli.Context) error {
	custom, err := loadConfig(c, msgdeliver.RoleClient)
	if err != nil {
		return err
	}
	return run(custom, os.Stdin, os.Stdout, false)
}

// run drives one transport until a signal arrives or, for a client, the
// connection is gone. Every input line becomes a message, every inbound
// message is printed to output as a line.
func run(custom *config.Custom, input io.Reader, output io.Writer, echo bool) error {
	t, err := msgdeliver.New(transportOptions(custom))
	if err != nil {
		return err
	}
	defer t.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	t.Start(ctx)

	if custom.Status.Listen != "" {
		server := status.NewServer(t)
		if _, err := server.Start(custom.Status.Listen); err != nil {
			return err
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			server.Shutdown(sctx)
		}()
	}

	go func() {
		for f := range t.Faults() {
			fmt.Fprintf(os.Stderr, "fault: %v\n", f)
		}
	}()

	if input != nil {
		go send(t, input)
	}
	if t.Role() == msgdeliver.RoleClient {
		var cancel context.CancelFunc
		ctx, cancel = context.WithCancel(ctx)
		defer cancel()
		go watchConnection(ctx, t, cancel)
	}

	for {
		m, err := t.Get(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			return err
		}
		fmt.Fprintf(output, "%s\n", m)
		if echo {
			t.Put(m)
		}
	}

	// print what already arrived.
	t.Stop()
	for {
		m, err := t.Get(context.Background())
		if err != nil {
			return nil
		}
		fmt.Fprintf(output, "%s\n", m)
	}
}

func send(t *msgdeliver.Transport, input io.Reader) {
	scanner := bufio.NewScanner(input)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		m := make(msgdeliver.Message, len(line))
		copy(m, line)
		t.Put(m)
	}
	if err := scanner.Err(); err != nil {
		logger.Errorf("read input: %v", err)
	}
}

// watchConnection cancels once the only client connection has ended.
func watchConnection(ctx context.Context, t *msgdeliver.Transport, cancel context.CancelFunc) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if t.Connections() == 0 {
				logger.Printf("connection to the server closed")
				cancel()
				return
			}
		}
	}
}
