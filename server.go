// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package msgdeliver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/someonegg/msgdeliver/logger"
)

const maxAcceptDelay = 1 * time.Second

// serverDriver accepts connections and gives each one a pump on the
// transport queues.
type serverDriver struct {
	ln net.Listener
}

func listenServer(opts Options) (*serverDriver, error) {
	ln, err := listen(opts.Host, opts.Port, opts.Backlog)
	if err != nil {
		addr := net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port))
		return nil, fmt.Errorf("msgdeliver: listen %s: %w", addr, err)
	}
	return &serverDriver{ln: ln}, nil
}

func (d *serverDriver) start(ctx context.Context, t *Transport) {
	t.wg.Add(1)
	go d.acceptLoop(ctx, t)
}

func (d *serverDriver) acceptLoop(ctx context.Context, t *Transport) {
	defer t.wg.Done()

	logger.Printf("msgdeliver server listening on %v", d.ln.Addr())

	var delay time.Duration
	for {
		conn, err := d.ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}

			// out of descriptors and the like, keep listening.
			if delay == 0 {
				delay = 5 * time.Millisecond
			} else {
				delay *= 2
			}
			if delay > maxAcceptDelay {
				delay = maxAcceptDelay
			}
			logger.Printf("accept error: %v; retrying in %v", err, delay)

			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			continue
		}
		delay = 0

		t.attach(ctx, conn)
	}
}

func (d *serverDriver) addr() net.Addr {
	return d.ln.Addr()
}

func (d *serverDriver) close() error {
	return d.ln.Close()
}
