// Copyright 2017 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package msgdeliver provides a message-oriented transport over TCP.
//
// A message is an opaque, variable-length byte array. On the wire every
// message travels in one frame:
//
//	01 00 00 00 00 00 02 | length (uint32, big-endian) | payload | 03 04
//
// A Transport plays one of two roles. A client dials one server and owns
// that single connection. A server listens and accepts any number of
// connections. Either way the application only sees two queues: Put appends
// to the outbound queue and Get takes from the inbound queue. Every
// connection is served by a Pump, whose reading loop fills the inbound
// queue and whose writing loop drains the outbound queue, so on a server a
// message put once is sent to exactly one connected peer, and messages from
// all peers merge into one inbound stream.
//
// A write failing because the peer is gone (broken pipe, reset) puts the
// message back to the outbound queue, another connection may deliver it.
// A malformed frame kills its connection only, the error is reported on
// Transport.Faults.
//
// The framing is exposed by Encode and Decode, and the per-connection layer
// by the MessageReadWriter interface, with NetconnMRW over net.Conn.
//
// Here is a quick example.
//
// Server
//
//	t, err := msgdeliver.New(msgdeliver.DefaultOptions(msgdeliver.RoleServer))
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer t.Stop()
//	t.Start(ctx)
//
//	for {
//		m, err := t.Get(ctx)
//		if err != nil {
//			return
//		}
//		t.Put(m) // echo
//	}
//
// Client
//
//	opts := msgdeliver.DefaultOptions(msgdeliver.RoleClient)
//	opts.Host = "127.0.0.1"
//	t, err := msgdeliver.New(opts)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer t.Stop()
//	t.Start(ctx)
//
//	t.Put([]byte("hello"))
//	m, err := t.Get(ctx)
package msgdeliver
