// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config reads the msgdeliver TOML configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml"
)

const (
	DefaultRole     = "server"
	DefaultPort     = 3040
	DefaultBacklog  = 1024
	DefaultLogLevel = 2

	DefaultFaultQueueSize = 64
	DefaultDialTimeout    = 10 * time.Second
)

type Custom struct {
	Transport struct {
		Role           string `toml:"role"`
		Host           string `toml:"host"`
		Port           int    `toml:"port"`
		Backlog        int    `toml:"backlog"`
		MaxMessageSize uint32 `toml:"max-message-size"`
		Compress       bool   `toml:"compress"`
		FaultQueueSize int    `toml:"fault-queue-size"`
		DialTimeout    int    `toml:"dial-timeout"` // seconds
	} `toml:"transport"`
	Log struct {
		Level   int    `toml:"level"`
		Filter  string `toml:"filter"`
		Limiter int    `toml:"limiter"`
		Dump    bool   `toml:"dump"`
	} `toml:"log"`
	Status struct {
		Listen string `toml:"listen"`
	} `toml:"status"`
}

// Default returns the configuration used without a file.
func Default() *Custom {
	var config Custom
	config.applyDefaults(nil)
	return &config
}

func Initialize(file string) (*Custom, error) {
	f, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	tree, err := toml.LoadBytes(f)
	if err != nil {
		return nil, err
	}
	var config Custom
	err = tree.Unmarshal(&config)
	if err != nil {
		return nil, err
	}
	config.applyDefaults(tree)

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	return &config, nil
}

// applyDefaults fills the keys missing from tree, which is nil without a
// file. A port of 0 set in the file asks for an ephemeral port.
func (c *Custom) applyDefaults(tree *toml.Tree) {
	if c.Transport.Role == "" {
		c.Transport.Role = DefaultRole
	}
	if tree == nil || !tree.Has("transport.port") {
		c.Transport.Port = DefaultPort
	}
	if c.Transport.Backlog == 0 {
		c.Transport.Backlog = DefaultBacklog
	}
	if c.Transport.FaultQueueSize == 0 {
		c.Transport.FaultQueueSize = DefaultFaultQueueSize
	}
	if c.Transport.DialTimeout == 0 {
		c.Transport.DialTimeout = int(DefaultDialTimeout / time.Second)
	}
	if c.Log.Level == 0 {
		c.Log.Level = DefaultLogLevel
	}
}

func (c *Custom) validate() error {
	switch c.Transport.Role {
	case "client", "server":
	default:
		return fmt.Errorf("invalid transport role %q", c.Transport.Role)
	}
	if c.Transport.Port < 0 || c.Transport.Port > 65535 {
		return fmt.Errorf("invalid transport port %d", c.Transport.Port)
	}
	if c.Transport.Backlog < 0 {
		return fmt.Errorf("invalid transport backlog %d", c.Transport.Backlog)
	}
	return nil
}

func (c *Custom) DialTimeout() time.Duration {
	return time.Duration(c.Transport.DialTimeout) * time.Second
}
