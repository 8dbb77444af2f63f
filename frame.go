// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package msgdeliver

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// Frame layout on the wire:
//
//	Preamble(7-bytes)Length(4-bytes uint, big-endian)Message Terminator(2-bytes)
const (
	PreambleSize   = 7
	LengthSize     = 4
	TerminatorSize = 2
	FrameOverhead  = PreambleSize + LengthSize + TerminatorSize

	// MaxMessageLength is the largest message the length field can carry.
	MaxMessageLength = math.MaxUint32
)

var (
	preamble   = [PreambleSize]byte{0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x02}
	terminator = [TerminatorSize]byte{0x03, 0x04}
)

var (
	ErrFraming           = errors.New("msgdeliver: framing error")
	ErrInvalidPreamble   = fmt.Errorf("%w: invalid preamble", ErrFraming)
	ErrInvalidTerminator = fmt.Errorf("%w: invalid terminator", ErrFraming)
	ErrTruncatedFrame    = fmt.Errorf("%w: truncated frame", ErrFraming)
	ErrFrameTooLarge     = fmt.Errorf("%w: frame exceeds the message size limit", ErrFraming)

	ErrMessageTooLarge = errors.New("msgdeliver: message too large to encode")
)

// Preamble returns a copy of the frame preamble.
func Preamble() []byte {
	return append([]byte(nil), preamble[:]...)
}

// Terminator returns a copy of the frame terminator.
func Terminator() []byte {
	return append([]byte(nil), terminator[:]...)
}

// Encode returns the wire frame of m.
//
// Encode panics if m is longer than MaxMessageLength, use WriteFrame to get
// an error instead.
func Encode(m Message) []byte {
	return AppendFrame(make([]byte, 0, FrameOverhead+len(m)), m)
}

// AppendFrame appends the wire frame of m to dst and returns the extended
// buffer. It panics under the same condition as Encode.
func AppendFrame(dst []byte, m Message) []byte {
	if uint64(len(m)) > MaxMessageLength {
		panic(ErrMessageTooLarge)
	}
	dst = append(dst, preamble[:]...)
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(m)))
	dst = append(dst, m...)
	return append(dst, terminator[:]...)
}

// WriteFrame writes the wire frame of m to w.
func WriteFrame(w io.Writer, m Message) error {
	if uint64(len(m)) > MaxMessageLength {
		return ErrMessageTooLarge
	}

	var hdr [PreambleSize + LengthSize]byte
	copy(hdr[:], preamble[:])
	binary.BigEndian.PutUint32(hdr[PreambleSize:], uint32(len(m)))

	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	if _, err := w.Write(m); err != nil {
		return err
	}
	_, err := w.Write(terminator[:])
	return err
}

// Decode reads one frame from r and returns its message.
//
// It returns io.EOF if r ends before the first byte of a frame, that is
// the clean end of the stream. Malformed frames return an error wrapping
// ErrFraming.
func Decode(r io.Reader) (Message, error) {
	return ReadFrame(r, 0)
}

// ReadFrame is like Decode but rejects frames whose length field exceeds
// maxLen. Zero means no limit.
func ReadFrame(r io.Reader, maxLen uint32) (Message, error) {
	var hdr [PreambleSize + LengthSize]byte

	n, err := io.ReadFull(r, hdr[:PreambleSize])
	if err != nil {
		if n == 0 && err == io.EOF {
			return nil, io.EOF
		}
		return nil, truncated(err)
	}
	if !bytes.Equal(hdr[:PreambleSize], preamble[:]) {
		return nil, ErrInvalidPreamble
	}

	if _, err = io.ReadFull(r, hdr[PreambleSize:]); err != nil {
		return nil, truncated(err)
	}
	l := binary.BigEndian.Uint32(hdr[PreambleSize:])
	if maxLen > 0 && l > maxLen {
		return nil, ErrFrameTooLarge
	}

	m, err := readPayload(r, l)
	if err != nil {
		return nil, truncated(err)
	}

	var eot [TerminatorSize]byte
	if _, err = io.ReadFull(r, eot[:]); err != nil {
		return nil, truncated(err)
	}
	if eot != terminator {
		return nil, ErrInvalidTerminator
	}

	return m, nil
}

// Larger payloads grow with the bytes actually received, the length field
// alone never decides the allocation.
const payloadStep = 64 << 10

func readPayload(r io.Reader, l uint32) (Message, error) {
	if l <= payloadStep {
		m := make(Message, l)
		if _, err := io.ReadFull(r, m); err != nil {
			return nil, err
		}
		return m, nil
	}

	var buf bytes.Buffer
	buf.Grow(payloadStep)
	if _, err := io.CopyN(&buf, r, int64(l)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// The stream ended in the middle of a frame.
func truncated(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return ErrTruncatedFrame
	}
	return err
}
