package msgdeliver

import (
	"bytes"
	"fmt"
	"io"
	"net"
)

type mockMRW struct {
	rsus chan bool
	rcnt int
	rmax int
	rerr error // instead of io.EOF after rmax reads
	rpan interface{}

	wsus  chan bool
	wcnt  int
	wmax  int
	wfail bool  // fail from the first write
	werr  error // io.ErrClosedPipe if nil

	// length:Message
	b bytes.Buffer
}

func (rw *mockMRW) OnStop() {
	if rw.rsus != nil {
		close(rw.rsus)
	}
	if rw.wsus != nil {
		close(rw.wsus)
	}
}

func (rw *mockMRW) ReadMessage() (Message, error) {
	if rw.rsus != nil {
		<-rw.rsus
		return nil, net.ErrClosed
	}

	if rw.rpan != nil {
		panic(rw.rpan)
	}

	if rw.rmax > 0 && rw.rcnt >= rw.rmax {
		if rw.rerr != nil {
			return nil, rw.rerr
		}
		return nil, io.EOF
	}

	rw.rcnt++
	return []byte(fmt.Sprint("m", rw.rcnt)), nil
}

func (rw *mockMRW) WriteMessage(m Message) error {
	if rw.wsus != nil {
		<-rw.wsus
		return net.ErrClosed
	}

	if rw.wfail || (rw.wmax > 0 && rw.wcnt >= rw.wmax) {
		if rw.werr != nil {
			return rw.werr
		}
		return io.ErrClosedPipe
	}

	rw.wcnt++
	rw.b.WriteString(fmt.Sprint(len(m)))
	rw.b.WriteString(":")
	rw.b.Write(m)
	return nil
}
