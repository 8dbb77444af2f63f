// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build unix

package msgdeliver

import (
	"fmt"
	"net"
	"os"
	"strconv"

	"golang.org/x/sys/unix"
)

// listen creates a TCP listener with address reuse and an explicit accept
// backlog, net.Listen gives no control over the latter.
func listen(host string, port, backlog int) (net.Listener, error) {
	addr, err := net.ResolveTCPAddr("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, err
	}

	var (
		domain = unix.AF_INET
		sa     unix.Sockaddr
	)
	if ip4 := addr.IP.To4(); ip4 != nil || addr.IP == nil {
		sa4 := &unix.SockaddrInet4{Port: addr.Port}
		copy(sa4.Addr[:], ip4)
		sa = sa4
	} else {
		domain = unix.AF_INET6
		sa6 := &unix.SockaddrInet6{Port: addr.Port}
		copy(sa6.Addr[:], addr.IP.To16())
		sa = sa6
	}

	fd, err := unix.Socket(domain, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return nil, os.NewSyscallError("socket", err)
	}
	unix.CloseOnExec(fd)

	closeFd := func(op string, err error) (net.Listener, error) {
		unix.Close(fd)
		return nil, os.NewSyscallError(op, err)
	}

	if err = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return closeFd("setsockopt", err)
	}
	if err = unix.Bind(fd, sa); err != nil {
		return closeFd("bind", err)
	}
	if err = unix.Listen(fd, backlog); err != nil {
		return closeFd("listen", err)
	}

	f := os.NewFile(uintptr(fd), fmt.Sprintf("msgdeliver-listener:%v", addr))
	defer f.Close()

	return net.FileListener(f)
}
