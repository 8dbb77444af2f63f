// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !unix

package msgdeliver

import (
	"net"
	"strconv"
)

// listen falls back to the platform default backlog.
func listen(host string, port, backlog int) (net.Listener, error) {
	return net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
}
