// Copyright 2017 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package msgdeliver

import (
	"errors"
	"io"
	"net"
	"syscall"
)

// Message is an opaque byte sequence, the transport imposes no structure.
type Message []byte

type MessageReader interface {
	ReadMessage() (Message, error)
}

type MessageWriter interface {
	WriteMessage(m Message) error
}

type MessageReadWriter interface {
	MessageReader
	MessageWriter
}

type StopNotifier interface {
	OnStop()
}

type StopNotifierFunc func()

func (f StopNotifierFunc) OnStop() {
	f()
}

// notifyStop forwards OnStop to rw when rw wants it, wrappers use it to keep
// the underlying connection closable.
func notifyStop(rw MessageReadWriter) {
	if sn, ok := rw.(StopNotifier); ok {
		sn.OnStop()
	}
}

// IsConnectionFailure reports whether err means the peer is gone (broken
// pipe, reset, closed connection). A message whose write failed this way is
// worth sending again on another connection.
func IsConnectionFailure(err error) bool {
	return errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, net.ErrClosed)
}
