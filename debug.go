// Copyright 2017 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package msgdeliver

import (
	"fmt"
	"io"
	"net"
	"sync"
)

// MessageDump is a debugging helper, it implements the MessageReadWriter
// interface and provides message dump function.
//
// The dump format is:
//
//	R|W:MessageSize\nMessage\n\n
type MessageDump struct {
	RW   MessageReadWriter
	Dump io.Writer

	// Filter can be nil. If nil, dump all messages.
	Filter func(m Message, read bool) bool

	// the reading and writing loops share Dump.
	mu sync.Mutex
}

func (d *MessageDump) needDump(m Message, read bool) bool {
	if d.Filter != nil {
		return d.Filter(m, read)
	}
	return true
}

func (d *MessageDump) dump(m Message, read bool) {
	if !d.needDump(m, read) {
		return
	}

	dir := "W"
	if read {
		dir = "R"
	}

	// one write per record.
	b := fmt.Appendf(nil, "%v:%v\n", dir, len(m))
	b = append(b, m...)
	b = append(b, "\n\n"...)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.Dump.Write(b)
}

func (d *MessageDump) ReadMessage() (m Message, err error) {
	m, err = d.RW.ReadMessage()
	if err != nil {
		return
	}

	d.dump(m, true)
	return
}

func (d *MessageDump) WriteMessage(m Message) (err error) {
	err = d.RW.WriteMessage(m)
	if err != nil {
		return
	}

	d.dump(m, false)
	return
}

func (d *MessageDump) OnStop() {
	notifyStop(d.RW)
}

func (d *MessageDump) RemoteAddr() net.Addr {
	return remoteAddrOf(d.RW)
}

func remoteAddrOf(rw MessageReadWriter) net.Addr {
	if ra, ok := rw.(interface{ RemoteAddr() net.Addr }); ok {
		return ra.RemoteAddr()
	}
	return nil
}

// lockedWriter serializes writes of several dumps sharing one writer.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
