package msgdeliver

import (
	"bytes"
	"testing"
)

func TestMessageDump(test *testing.T) {
	rw := &mockMRW{}

	dump := &bytes.Buffer{}

	md := &MessageDump{
		RW:   rw,
		Dump: dump,
	}

	m, err := md.ReadMessage()
	if err != nil {
		test.Fatal(err)
	}

	err = md.WriteMessage(m)
	if err != nil {
		test.Fatal(err)
	}

	if dump.String() != "R:2\nm1\n\nW:2\nm1\n\n" {
		test.Fatal("dump format", dump.String())
	}
}

func TestMessageDumpFilter(test *testing.T) {
	rw := &mockMRW{}

	dump := &bytes.Buffer{}

	md := &MessageDump{
		RW:     rw,
		Dump:   dump,
		Filter: func(m Message, read bool) bool { return !read },
	}

	m, err := md.ReadMessage()
	if err != nil {
		test.Fatal(err)
	}

	err = md.WriteMessage(m)
	if err != nil {
		test.Fatal(err)
	}

	if dump.Len() != 8 {
		test.Fatal("dump filter")
	}
}

func TestMessageDumpFailedWrite(test *testing.T) {
	rw := &mockMRW{wfail: true}

	dump := &bytes.Buffer{}
	md := &MessageDump{RW: rw, Dump: dump}

	if err := md.WriteMessage([]byte("m1")); err == nil {
		test.Fatal("write error")
	}
	if dump.Len() != 0 {
		test.Fatal("failed write dumped")
	}

	// OnStop reaches the wrapped readwriter.
	rw.rsus = make(chan bool)
	md.OnStop()
	select {
	case <-rw.rsus:
	default:
		test.Fatal("stop not forwarded")
	}
}
