// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package msgdeliver

import (
	"context"
	"errors"
	"sync"

	"github.com/someonegg/gox/syncx"
)

var ErrQueueClosed = errors.New("msgdeliver: queue closed")

// Queue is an unbounded FIFO of messages, it supports any number of
// concurrent producers and consumers.
//
// Put never blocks. Take blocks until a message is available, the context
// is done or the queue is closed and drained.
type Queue struct {
	mu     sync.Mutex
	items  []Message
	head   int
	closed bool

	// one wake-up token, the consumer taking it passes it on while
	// messages remain.
	readyC chan struct{}
	closeD syncx.DoneChan
}

func NewQueue() *Queue {
	return &Queue{
		readyC: make(chan struct{}, 1),
		closeD: syncx.NewDoneChan(),
	}
}

// Put appends m to the tail of the queue. It always succeeds, even after
// Close; such messages stay pending.
func (q *Queue) Put(m Message) {
	q.mu.Lock()
	q.items = append(q.items, m)
	q.mu.Unlock()

	q.wake()
}

func (q *Queue) wake() {
	select {
	case q.readyC <- struct{}{}:
	default:
	}
}

// TryTake removes the head of the queue without blocking.
func (q *Queue) TryTake() (Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.head == len(q.items) {
		return nil, false
	}

	m := q.items[q.head]
	q.items[q.head] = nil
	q.head++

	switch {
	case q.head == len(q.items):
		q.items = q.items[:0]
		q.head = 0
	case q.head >= 64 && q.head*2 >= len(q.items):
		n := copy(q.items, q.items[q.head:])
		for i := n; i < len(q.items); i++ {
			q.items[i] = nil
		}
		q.items = q.items[:n]
		q.head = 0
	}

	if q.head < len(q.items) {
		q.wake()
	}
	return m, true
}

// Take removes the head of the queue, waiting for one if necessary.
//
// It returns ctx.Err() if ctx is done first, or ErrQueueClosed once the
// queue is closed and empty.
func (q *Queue) Take(ctx context.Context) (Message, error) {
	for {
		if m, ok := q.TryTake(); ok {
			return m, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-q.closeD:
			if m, ok := q.TryTake(); ok {
				return m, nil
			}
			return nil, ErrQueueClosed
		case <-q.readyC:
		}
	}
}

// Len returns the number of pending messages.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}

// Close wakes every blocked Take. Pending messages can still be taken.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	q.closeD.SetDone()
}

func (q *Queue) Closed() bool {
	return q.closeD.R().Done()
}
