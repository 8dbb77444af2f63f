// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package msgdeliver

import (
	"errors"
	"fmt"
	"math/bits"
	"net"
	"sync"

	"github.com/klauspost/compress/zstd"
)

var ErrCompressedPayload = errors.New("msgdeliver: invalid compressed payload")

// ZstdCodec holds the encoder and the decoder shared by every connection of
// a transport. EncodeAll and DecodeAll are safe for concurrent use.
type ZstdCodec struct {
	enc    *zstd.Encoder
	dec    *zstd.Decoder
	maxLen uint32
}

// NewZstdCodec creates a codec whose decoded messages are at most maxLen
// bytes, zero means no limit.
func NewZstdCodec(maxLen uint32) (*ZstdCodec, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}

	dopts := []zstd.DOption{zstd.WithDecoderConcurrency(0)}
	if maxLen > 0 {
		dopts = append(dopts, zstd.WithDecoderMaxMemory(decoderLimit(maxLen)))
	}
	dec, err := zstd.NewReader(nil, dopts...)
	if err != nil {
		enc.Close()
		return nil, err
	}

	return &ZstdCodec{enc: enc, dec: dec, maxLen: maxLen}, nil
}

// decoderLimit bounds the decoder memory. The window of a frame is rounded
// up to a power of two, so the exact limit is checked after decoding.
func decoderLimit(maxLen uint32) uint64 {
	limit := uint64(1) << bits.Len32(maxLen)
	if limit < minDecoderLimit {
		limit = minDecoderLimit
	}
	return limit
}

const minDecoderLimit = 1 << 20

// MRW compresses every message written to rw and decompresses every
// message read from it. Both peers must use it, there is no negotiation.
func (c *ZstdCodec) MRW(rw MessageReadWriter) MessageReadWriter {
	return &zstdMRW{rw: rw, c: c}
}

func (c *ZstdCodec) Close() {
	c.enc.Close()
	c.dec.Close()
}

var (
	zstdOnce  sync.Once
	zstdErr   error
	zstdCodec *ZstdCodec
)

// ZstdMRW is like ZstdCodec.MRW, with a process wide codec without size
// limit.
func ZstdMRW(rw MessageReadWriter) (MessageReadWriter, error) {
	zstdOnce.Do(func() {
		zstdCodec, zstdErr = NewZstdCodec(0)
	})
	if zstdErr != nil {
		return nil, zstdErr
	}
	return zstdCodec.MRW(rw), nil
}

type zstdMRW struct {
	rw MessageReadWriter
	c  *ZstdCodec
}

func (z *zstdMRW) OnStop() {
	notifyStop(z.rw)
}

func (z *zstdMRW) RemoteAddr() net.Addr {
	return remoteAddrOf(z.rw)
}

func (z *zstdMRW) ReadMessage() (Message, error) {
	p, err := z.rw.ReadMessage()
	if err != nil {
		return nil, err
	}

	m, err := z.c.dec.DecodeAll(p, nil)
	if err != nil {
		if errors.Is(err, zstd.ErrDecoderSizeExceeded) || errors.Is(err, zstd.ErrWindowSizeExceeded) {
			return nil, fmt.Errorf("%w: %v", ErrFrameTooLarge, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrCompressedPayload, err)
	}
	if z.c.maxLen > 0 && uint64(len(m)) > uint64(z.c.maxLen) {
		return nil, ErrFrameTooLarge
	}
	return m, nil
}

func (z *zstdMRW) WriteMessage(m Message) error {
	return z.rw.WriteMessage(z.c.enc.EncodeAll(m, make([]byte, 0, len(m))))
}
