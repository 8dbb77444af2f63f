// Copyright 2017 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package msgdeliver

import (
	"bufio"
	"net"
)

type netbufconn struct {
	conn net.Conn
	*bufio.ReadWriter
}

func newNetbufConn(conn net.Conn) netbufconn {
	return netbufconn{
		conn:       conn,
		ReadWriter: bufio.NewReadWriter(bufio.NewReader(conn), bufio.NewWriter(conn)),
	}
}

func (c *netbufconn) Close() error {
	return c.conn.Close()
}

// NetconnMRW converts a net.Conn to a MessageReadWriter.
//
// Every message travels in one frame, see Encode. Reading and writing may
// happen concurrently, but not two reads or two writes at once.
type NetconnMRW struct {
	c      netbufconn
	maxLen uint32
}

// NewNetconnMRW wraps conn. Frames longer than maxLen are rejected when
// read, zero means no limit.
func NewNetconnMRW(conn net.Conn, maxLen uint32) NetconnMRW {
	return NetconnMRW{c: newNetbufConn(conn), maxLen: maxLen}
}

func (rw NetconnMRW) OnStop() {
	rw.c.Close()
}

func (rw NetconnMRW) RemoteAddr() net.Addr {
	return rw.c.conn.RemoteAddr()
}

func (rw NetconnMRW) ReadMessage() (Message, error) {
	return ReadFrame(rw.c, rw.maxLen)
}

func (rw NetconnMRW) WriteMessage(m Message) error {
	err := WriteFrame(rw.c, m)
	if err != nil {
		return err
	}

	return rw.c.Flush()
}

// NetconnPump creates a pump from a net.Conn.
func NetconnPump(conn net.Conn, out, in *Queue, maxLen uint32) *Pump {
	return NewPump(NewNetconnMRW(conn, maxLen), out, in)
}
