// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package msgdeliver

import (
	"context"
	"fmt"
	"net"
	"strconv"
)

// clientDriver owns exactly one connection, there is no reconnection.
type clientDriver struct {
	conn net.Conn
}

func dialClient(opts Options) (*clientDriver, error) {
	addr := net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port))

	d := net.Dialer{Timeout: opts.DialTimeout}
	conn, err := d.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("msgdeliver: dial %s: %w", addr, err)
	}
	return &clientDriver{conn: conn}, nil
}

func (d *clientDriver) start(ctx context.Context, t *Transport) {
	t.attach(ctx, d.conn)
}

func (d *clientDriver) addr() net.Addr {
	return d.conn.LocalAddr()
}

func (d *clientDriver) close() error {
	return d.conn.Close()
}
