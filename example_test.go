// Copyright 2017 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package msgdeliver_test

import (
	"context"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/someonegg/msgdeliver"
)

func server(ctx context.Context) *msgdeliver.Transport {
	opts := msgdeliver.DefaultOptions(msgdeliver.RoleServer)
	opts.Host = "127.0.0.1"
	opts.Port = 0

	t, err := msgdeliver.New(opts)
	if err != nil {
		log.Fatal(err)
	}
	t.Start(ctx)

	// echo
	go func() {
		for {
			m, err := t.Get(ctx)
			if err != nil {
				return
			}
			t.Put(append(msgdeliver.Message("echo: "), m...))
		}
	}()

	return t
}

func client(ctx context.Context, addr net.Addr) *msgdeliver.Transport {
	opts := msgdeliver.DefaultOptions(msgdeliver.RoleClient)
	opts.Host = "127.0.0.1"
	opts.Port = addr.(*net.TCPAddr).Port

	t, err := msgdeliver.New(opts)
	if err != nil {
		log.Fatal(err)
	}
	t.Start(ctx)
	return t
}

func Example() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s := server(ctx)
	defer s.Stop()

	c := client(ctx, s.Addr())
	defer c.Stop()

	for _, m := range []string{"hello", "ask", "bye"} {
		c.Put(msgdeliver.Message(m))
	}

	for i := 0; i < 3; i++ {
		m, err := c.Get(ctx)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(string(m))
	}

	// Output:
	// echo: hello
	// echo: ask
	// echo: bye
}

func ExampleEncode() {
	f := msgdeliver.Encode(msgdeliver.Message("hi"))
	fmt.Printf("% x\n", f)

	// Output:
	// 01 00 00 00 00 00 02 00 00 00 02 68 69 03 04
}
