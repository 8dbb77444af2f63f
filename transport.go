// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package msgdeliver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/uuid"
	"github.com/someonegg/gox/syncx"
	"github.com/someonegg/msgdeliver/logger"
)

type Role string

const (
	RoleClient Role = "client"
	RoleServer Role = "server"
)

const (
	DefaultPort           = 3040
	DefaultBacklog        = 1024
	DefaultFaultQueueSize = 64
)

var (
	ErrConfiguration = errors.New("msgdeliver: configuration error")
	ErrInvalidRole   = fmt.Errorf("%w: unsupported role", ErrConfiguration)
	ErrMissingHost   = fmt.Errorf("%w: client role requires a host", ErrConfiguration)
	ErrInvalidPort   = fmt.Errorf("%w: port out of range", ErrConfiguration)

	ErrTransportStopped = errors.New("msgdeliver: transport stopped")
)

// Options configures a Transport.
type Options struct {
	Role Role

	// Host is the peer to dial for a client. For a server it is the local
	// address to bind, empty means every IPv4 interface.
	Host string
	// Port 0 lets a server pick an ephemeral port, see Transport.Addr.
	Port    int
	Backlog int

	// MaxMessageSize bounds the frames accepted from peers, and the
	// decompressed messages with Compress. Zero means the full 4-byte length
	// range.
	MaxMessageSize uint32
	// Compress turns on zstd payload compression, peers must agree.
	Compress bool
	// Dump receives every message read or written when not nil.
	Dump io.Writer

	FaultQueueSize int
	DialTimeout    time.Duration
}

// DefaultOptions returns the options of a role with the default port and
// backlog.
func DefaultOptions(role Role) Options {
	return Options{
		Role:           role,
		Port:           DefaultPort,
		Backlog:        DefaultBacklog,
		FaultQueueSize: DefaultFaultQueueSize,
	}
}

// Fault reports the error which killed one connection.
type Fault struct {
	Conn       uuid.UUID
	RemoteAddr net.Addr
	Err        error
}

func (f Fault) Error() string {
	return fmt.Sprintf("connection %v (%v): %v", f.Conn, f.RemoteAddr, f.Err)
}

func (f Fault) Unwrap() error {
	return f.Err
}

type TransportStatistics struct {
	// all pumps, live and finished.
	Statistics

	// Put call
	OutputCount int64

	AcceptedCount   int64
	ActiveConns     int
	FaultCount      int64
	OutboundPending int
	InboundPending  int
}

// driver is the role specific part of a Transport.
type driver interface {
	start(ctx context.Context, t *Transport)
	addr() net.Addr
	close() error
}

// Transport exchanges messages with one peer (client) or any number of
// peers (server) through an outbound and an inbound queue shared by every
// connection.
type Transport struct {
	opts Options
	drv  driver

	out *Queue
	in  *Queue

	faultC chan Fault
	dump   io.Writer
	zstd   *ZstdCodec

	startOnce sync.Once
	stopOnce  sync.Once
	quitF     context.CancelFunc
	stopD     syncx.DoneChan
	wg        sync.WaitGroup

	mu     sync.Mutex
	pumps  map[*Pump]net.Addr
	closed Statistics

	outputCount   int64
	acceptedCount int64
	faultCount    int64
}

// New validates opts and performs the socket setup of the role: dialing for
// a client, binding and listening for a server. No worker runs before Start.
func New(opts Options) (*Transport, error) {
	if opts.Port < 0 || opts.Port > 65535 {
		return nil, ErrInvalidPort
	}
	if opts.FaultQueueSize <= 0 {
		opts.FaultQueueSize = DefaultFaultQueueSize
	}

	var (
		drv driver
		err error
	)
	switch opts.Role {
	case RoleClient:
		if opts.Host == "" {
			return nil, ErrMissingHost
		}
		drv, err = dialClient(opts)
	case RoleServer:
		if opts.Backlog <= 0 {
			opts.Backlog = DefaultBacklog
		}
		drv, err = listenServer(opts)
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, opts.Role)
	}
	if err != nil {
		return nil, err
	}

	var codec *ZstdCodec
	if opts.Compress {
		codec, err = NewZstdCodec(opts.MaxMessageSize)
		if err != nil {
			drv.close()
			return nil, err
		}
	}

	t := &Transport{
		opts:   opts,
		drv:    drv,
		out:    NewQueue(),
		in:     NewQueue(),
		faultC: make(chan Fault, opts.FaultQueueSize),
		stopD:  syncx.NewDoneChan(),
		pumps:  make(map[*Pump]net.Addr),
		zstd:   codec,
	}
	if opts.Dump != nil {
		t.dump = &lockedWriter{w: opts.Dump}
	}
	return t, nil
}

// Start begins the background workers. Calling it again has no effect.
func (t *Transport) Start(parent context.Context) {
	t.startOnce.Do(func() {
		if parent == nil {
			parent = context.Background()
		}

		var ctx context.Context
		ctx, t.quitF = context.WithCancel(parent)
		t.drv.start(ctx, t)
	})
}

// Stop terminates every worker and waits for them, then closes the Faults
// channel. Messages still queued stay queued, Get returns them before
// ErrTransportStopped.
func (t *Transport) Stop() {
	t.stopOnce.Do(func() {
		// no Start after Stop.
		t.startOnce.Do(func() {})

		if t.quitF != nil {
			t.quitF()
		}
		t.drv.close()
		t.wg.Wait()

		// every reporter is gone.
		close(t.faultC)
		if t.zstd != nil {
			t.zstd.Close()
		}

		t.out.Close()
		t.in.Close()
		t.stopD.SetDone()
	})
}

// StopD returns a done channel, it will be signaled when the transport is
// stopped.
func (t *Transport) StopD() syncx.DoneChanR {
	return t.stopD.R()
}

// Put enqueues m for transmission on some live connection. It never blocks.
func (t *Transport) Put(m Message) {
	atomic.AddInt64(&t.outputCount, 1)
	t.out.Put(m)
}

// Get dequeues the next inbound message, waiting until one arrives.
//
// Without a deadline on ctx, Get on a transport whose connections are all
// gone blocks until Stop.
func (t *Transport) Get(ctx context.Context) (Message, error) {
	m, err := t.in.Take(ctx)
	if err == ErrQueueClosed {
		return nil, ErrTransportStopped
	}
	return m, err
}

// Faults returns the channel of per-connection fatal errors, it is closed
// by Stop.
func (t *Transport) Faults() <-chan Fault {
	return t.faultC
}

func (t *Transport) Role() Role {
	return t.opts.Role
}

// Addr returns the listening address of a server, or the local address of
// a client connection.
func (t *Transport) Addr() net.Addr {
	return t.drv.addr()
}

// Pending returns the number of messages waiting for transmission.
func (t *Transport) Pending() int {
	return t.out.Len()
}

// Connections returns the number of connections with a running pump.
func (t *Transport) Connections() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pumps)
}

func (t *Transport) Statistics() TransportStatistics {
	t.mu.Lock()
	stat := TransportStatistics{
		Statistics:  t.closed,
		ActiveConns: len(t.pumps),
	}
	for p := range t.pumps {
		stat.Statistics.add(p.Statistics())
	}
	t.mu.Unlock()

	stat.OutputCount = atomic.LoadInt64(&t.outputCount)
	stat.AcceptedCount = atomic.LoadInt64(&t.acceptedCount)
	stat.FaultCount = atomic.LoadInt64(&t.faultCount)
	stat.OutboundPending = t.out.Len()
	stat.InboundPending = t.in.Len()
	return stat
}

// attach starts a pump for conn on the shared queues.
func (t *Transport) attach(ctx context.Context, conn net.Conn) {
	var rw MessageReadWriter = NewNetconnMRW(conn, t.opts.MaxMessageSize)
	if t.zstd != nil {
		rw = t.zstd.MRW(rw)
	}
	if t.dump != nil {
		rw = &MessageDump{RW: rw, Dump: t.dump}
	}

	p := NewPump(rw, t.out, t.in)
	raddr := conn.RemoteAddr()

	t.mu.Lock()
	t.pumps[p] = raddr
	t.mu.Unlock()
	atomic.AddInt64(&t.acceptedCount, 1)

	logger.Verbosef("connection %v from %v started", p.ID(), raddr)

	t.wg.Add(1)
	p.Start(ctx)
	go t.supervise(p, raddr)
}

func (t *Transport) supervise(p *Pump, raddr net.Addr) {
	defer t.wg.Done()

	<-p.StopD()

	t.mu.Lock()
	delete(t.pumps, p)
	t.closed.add(p.Statistics())
	t.mu.Unlock()

	err := p.Error()
	switch {
	case err == nil:
		logger.Verbosef("connection %v from %v closed", p.ID(), raddr)
	case IsConnectionFailure(err):
		logger.Verbosef("connection %v from %v lost: %v", p.ID(), raddr, err)
	default:
		t.report(Fault{Conn: p.ID(), RemoteAddr: raddr, Err: err})
	}
}

func (t *Transport) report(f Fault) {
	atomic.AddInt64(&t.faultCount, 1)
	logger.Errorf("%v", f)

	select {
	case t.faultC <- f:
	default:
		logger.Errorf("fault queue full, dropped fault of connection %v", f.Conn)
	}
}
