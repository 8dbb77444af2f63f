// Copyright 2017 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package msgdeliver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/gofrs/uuid"
	"github.com/someonegg/gox/syncx"
	"github.com/someonegg/msgdeliver/logger"
)

var (
	errUnknownPanic = errors.New("msgdeliver: unknown panic")
)

type legalPanic struct {
	err error
}

type Statistics struct {
	// from MessageReadWriter
	ReadedCount int64
	ReadedBytes int64

	// to MessageReadWriter
	WrittenCount int64
	WrittenBytes int64

	// failed writes, put back to the outbound queue or dropped
	RequeuedCount int64
	DroppedCount  int64
}

func (s *Statistics) add(o Statistics) {
	s.ReadedCount += o.ReadedCount
	s.ReadedBytes += o.ReadedBytes
	s.WrittenCount += o.WrittenCount
	s.WrittenBytes += o.WrittenBytes
	s.RequeuedCount += o.RequeuedCount
	s.DroppedCount += o.DroppedCount
}

// Pump binds one connection to a pair of queues. It has a working loop
// which drains the outbound queue to the connection and fills the inbound
// queue from it, parallelly and continuously.
//
// Several pumps may share the same queues. Pump supports concurrently access.
type Pump struct {
	id uuid.UUID

	mu    sync.Mutex
	err   error
	quitF context.CancelFunc
	stopD syncx.DoneChan

	rw  MessageReadWriter
	out *Queue
	in  *Queue

	rD syncx.DoneChan
	wD syncx.DoneChan

	stat Statistics

	panicLogF func(interface{})
}

// NewPump allocates and returns a new Pump.
//
// If rw implementes the StopNotifier interface, it will be called when
// the working loop exiting.
func NewPump(rw MessageReadWriter, out, in *Queue) *Pump {
	return &Pump{
		id:    uuid.Must(uuid.NewV4()),
		stopD: syncx.NewDoneChan(),

		rw:  rw,
		out: out,
		in:  in,

		rD: syncx.NewDoneChan(),
		wD: syncx.NewDoneChan(),

		panicLogF: thePanicLogFunc,
	}
}

// The default panic log function.
func thePanicLogFunc(v interface{}) {
	const size = 16 << 10
	buf := make([]byte, size)
	buf = buf[:runtime.Stack(buf, false)]
	logger.Errorf("pump panic: %v\n%s", v, buf)
}

// SetPanicLogFunc is optional.
func (p *Pump) SetPanicLogFunc(f func(panicV interface{})) {
	p.panicLogF = f
}

func (p *Pump) ID() uuid.UUID {
	return p.id
}

// Start will start the working loop.
func (p *Pump) Start(parent context.Context) {
	if parent == nil {
		parent = context.Background()
	}

	var ctx context.Context
	ctx, p.quitF = context.WithCancel(parent)

	go p.reading(ctx)
	go p.writing(ctx)
	go p.monitor(ctx)
}

func (p *Pump) monitor(ctx context.Context) {
	defer p.ending()

	select {
	case <-ctx.Done():
	case <-p.rD:
	case <-p.wD:
	}
}

func (p *Pump) ending() {
	if e := recover(); e != nil {
		p.recovered(e)
	}

	defer p.stopD.SetDone()

	// if ending from a worker.
	p.quitF()

	notifyStop(p.rw)

	<-p.rD
	<-p.wD
}

// recovered records a worker panic, the first error wins.
func (p *Pump) recovered(e interface{}) {
	var err error
	legal := false
	switch v := e.(type) {
	case legalPanic:
		legal = true
		err = v.err
	case error:
		err = v
	default:
		err = fmt.Errorf("%w: %v", errUnknownPanic, v)
	}
	if !legal && p.panicLogF != nil {
		p.panicLogF(e)
	}
	p.setErr(err)
}

func (p *Pump) setErr(err error) {
	if err == nil {
		return
	}
	p.mu.Lock()
	if p.err == nil {
		p.err = err
	}
	p.mu.Unlock()
}

// reading is the receiver, it ends on end-of-stream, framing error or
// connection failure.
func (p *Pump) reading(ctx context.Context) {
	defer func() {
		if e := recover(); e != nil {
			p.recovered(e)
		}

		p.rD.SetDone()
	}()

	for q := false; !q; {
		m := p.readMessage(ctx)

		p.in.Put(m)

		select {
		case <-ctx.Done():
			q = true
		default:
		}
	}
}

func (p *Pump) readMessage(ctx context.Context) Message {
	m, err := p.rw.ReadMessage()
	if err != nil {
		// end of stream, or the connection was closed by ourselves.
		if err == io.EOF || ctx.Err() != nil {
			panic(legalPanic{})
		}
		panic(legalPanic{err})
	}
	atomic.AddInt64(&p.stat.ReadedCount, 1)
	atomic.AddInt64(&p.stat.ReadedBytes, int64(len(m)))
	return m
}

// writing is the sender, its only idle suspension point is the outbound
// queue.
func (p *Pump) writing(ctx context.Context) {
	defer func() {
		if e := recover(); e != nil {
			p.recovered(e)
		}

		p.wD.SetDone()
	}()

	for {
		m, err := p.out.Take(ctx)
		if err != nil {
			return
		}
		p.writeMessage(ctx, m)
	}
}

func (p *Pump) writeMessage(ctx context.Context, m Message) {
	err := p.rw.WriteMessage(m)
	if err != nil {
		if IsConnectionFailure(err) {
			p.out.Put(m)
			atomic.AddInt64(&p.stat.RequeuedCount, 1)
		} else {
			atomic.AddInt64(&p.stat.DroppedCount, 1)
		}
		// the connection was closed by ourselves.
		if ctx.Err() != nil && IsConnectionFailure(err) {
			panic(legalPanic{})
		}
		panic(legalPanic{err})
	}
	atomic.AddInt64(&p.stat.WrittenCount, 1)
	atomic.AddInt64(&p.stat.WrittenBytes, int64(len(m)))
}

// Stop requests to stop the pump, the working loop will stop asynchronously.
func (p *Pump) Stop() {
	if p.quitF != nil {
		p.quitF()
	}
}

// StopD returns a done channel, it will be signaled when the pump is stopped.
func (p *Pump) StopD() syncx.DoneChanR {
	return p.stopD.R()
}

func (p *Pump) Stopped() bool {
	return p.stopD.R().Done()
}

// Error returns the error which stopped the pump, nil for a clean end.
// It is meaningful after the pump stopped.
func (p *Pump) Error() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *Pump) Statistics() Statistics {
	return Statistics{
		ReadedCount:   atomic.LoadInt64(&p.stat.ReadedCount),
		ReadedBytes:   atomic.LoadInt64(&p.stat.ReadedBytes),
		WrittenCount:  atomic.LoadInt64(&p.stat.WrittenCount),
		WrittenBytes:  atomic.LoadInt64(&p.stat.WrittenBytes),
		RequeuedCount: atomic.LoadInt64(&p.stat.RequeuedCount),
		DroppedCount:  atomic.LoadInt64(&p.stat.DroppedCount),
	}
}

// UnderlyingMRW returns the internal message readwriter.
func (p *Pump) UnderlyingMRW() MessageReadWriter {
	return p.rw
}
