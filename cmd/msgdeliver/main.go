// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"github.com/someonegg/msgdeliver"
	"github.com/someonegg/msgdeliver/logger"
	"github.com/urfave/cli/v2"
)

const BuildVersion = "v0.1.0"

func main() {
	err := newApp().Run(os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "msgdeliver"
	app.Usage = "Exchange length-delimited messages over TCP."
	app.Version = BuildVersion
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "the TOML configuration file",
		},
		&cli.IntFlag{
			Name:    "log",
			Aliases: []string{"l"},
			Value:   logger.INFO,
			Usage:   "the log level",
		},
		&cli.StringFlag{
			Name:  "filter",
			Usage: "the RE2 regex pattern to filter log",
		},
		&cli.BoolFlag{
			Name:  "dump",
			Usage: "dump every message read or written to stderr",
		},
		&cli.BoolFlag{
			Name:  "compress",
			Usage: "compress message payloads with zstd, both peers must agree",
		},
	}
	app.EnableBashCompletion = true
	app.Commands = []*cli.Command{
		{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "Accept connections and print every inbound message",
			Action:  serverCmd,
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "host",
					Usage: "the local address to bind, all interfaces if empty",
				},
				&cli.IntFlag{
					Name:    "port",
					Aliases: []string{"p"},
					Value:   msgdeliver.DefaultPort,
					Usage:   "the port to listen",
				},
				&cli.IntFlag{
					Name:  "backlog",
					Value: msgdeliver.DefaultBacklog,
					Usage: "the accept backlog",
				},
				&cli.BoolFlag{
					Name:  "echo",
					Usage: "put every inbound message back to the outbound queue",
				},
				&cli.StringFlag{
					Name:  "status",
					Usage: "the `ADDR` of the HTTP status endpoint, disabled if empty",
				},
			},
		},
		{
			Name:    "client",
			Aliases: []string{"c"},
			Usage:   "Connect to a server, send every stdin line as a message",
			Action:  clientCmd,
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "host",
					Usage: "the server host",
				},
				&cli.IntFlag{
					Name:    "port",
					Aliases: []string{"p"},
					Value:   msgdeliver.DefaultPort,
					Usage:   "the server port",
				},
				&cli.StringFlag{
					Name:  "status",
					Usage: "the `ADDR` of the HTTP status endpoint, disabled if empty",
				},
			},
		},
	}
	return app
}
