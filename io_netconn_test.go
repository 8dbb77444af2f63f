package msgdeliver

import (
	"bytes"
	"errors"
	"io"
	"net"
	"testing"
	"time"
)

type mockNetConn struct {
	bytes.Buffer
	closed bool
}

func (c *mockNetConn) Close() error {
	c.closed = true
	return nil
}

func (c *mockNetConn) LocalAddr() net.Addr {
	return &net.TCPAddr{}
}

func (c *mockNetConn) RemoteAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 3040}
}

func (c *mockNetConn) SetDeadline(t time.Time) error {
	return nil
}

func (c *mockNetConn) SetReadDeadline(t time.Time) error {
	return nil
}

func (c *mockNetConn) SetWriteDeadline(t time.Time) error {
	return nil
}

func TestNetconnRead(test *testing.T) {
	c := &mockNetConn{}
	rw := NewNetconnMRW(c, 0)

	c.Buffer.Write(Encode([]byte("m1")))

	m, err := rw.ReadMessage()
	if string(m) != "m1" || err != nil {
		test.Fatal("netconn io: read normal")
	}

	m, err = rw.ReadMessage()
	if err != io.EOF {
		test.Fatal("netconn io: read end of stream", m, err)
	}

	f := Encode([]byte("m1"))
	f[0] = 0xff
	c.Buffer.Write(f)
	_, err = rw.ReadMessage()
	if !errors.Is(err, ErrInvalidPreamble) || !errors.Is(err, ErrFraming) {
		test.Fatal("netconn io: read wrong preamble", err)
	}
}

func TestNetconnReadTruncated(test *testing.T) {
	c := &mockNetConn{}
	rw := NewNetconnMRW(c, 0)

	f := Encode([]byte("m1"))
	c.Buffer.Write(f[:len(f)-1])

	_, err := rw.ReadMessage()
	if err != ErrTruncatedFrame {
		test.Fatal("netconn io: read truncated", err)
	}
}

func TestNetconnReadLimit(test *testing.T) {
	c := &mockNetConn{}
	rw := NewNetconnMRW(c, 4)

	c.Buffer.Write(Encode([]byte("1234")))
	c.Buffer.Write(Encode([]byte("12345")))

	if m, err := rw.ReadMessage(); string(m) != "1234" || err != nil {
		test.Fatal("netconn io: read at limit", err)
	}
	if _, err := rw.ReadMessage(); err != ErrFrameTooLarge {
		test.Fatal("netconn io: read over limit", err)
	}
}

func TestNetconnWrite(test *testing.T) {
	c := &mockNetConn{}
	rw := NewNetconnMRW(c, 0)

	err := rw.WriteMessage([]byte("m1"))
	if err != nil {
		test.Fatal(err)
	}

	if !bytes.Equal(c.Buffer.Bytes(), Encode([]byte("m1"))) {
		test.Fatal("netconn io: write wrong format")
	}

	m, err := rw.ReadMessage()
	if err != nil {
		test.Fatal(err)
	}

	if string(m) != "m1" {
		test.Fatal("netconn io: write wrong message")
	}
}

func TestNetconnStop(test *testing.T) {
	c := &mockNetConn{}
	rw := NewNetconnMRW(c, 0)

	if rw.RemoteAddr().String() != "127.0.0.1:3040" {
		test.Fatal("netconn io: remote addr", rw.RemoteAddr())
	}

	rw.OnStop()
	if !c.closed {
		test.Fatal("netconn io: not closed")
	}
}

func TestNetconnPump(test *testing.T) {
	client, server := net.Pipe()
	out, in := NewQueue(), NewQueue()

	pump := NetconnPump(server, out, in, 0)
	pump.Start(nil)

	go client.Write(Encode([]byte("hello")))

	m, err := in.Take(testContext(test))
	if err != nil || string(m) != "hello" {
		test.Fatal("netconn pump: read", err)
	}

	out.Put([]byte("world"))
	m, err = Decode(client)
	if err != nil || string(m) != "world" {
		test.Fatal("netconn pump: write", err)
	}

	client.Close()
	waitPump(test, pump)

	if err := pump.Error(); err != nil {
		test.Fatal("netconn pump: error", err)
	}
}
