// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package logger is the leveled log of msgdeliver. Nothing is printed until
// a level is set.
package logger

import (
	"fmt"
	"io"
	"log"
	"regexp"
	"sync/atomic"

	"github.com/cornelk/hashmap"
)

const (
	ERROR   = 1
	INFO    = 2
	VERBOSE = 3
	DEBUG   = 7
)

var (
	level   int32
	limiter int64
	filter  atomic.Value // *regexp.Regexp
	counter *hashmap.HashMap
)

func init() {
	counter = &hashmap.HashMap{}
}

func SetLevel(l int) {
	atomic.StoreInt32(&level, int32(l))
}

func Level() int {
	return int(atomic.LoadInt32(&level))
}

// SetLimiter caps how many times one formatted line is printed at the
// verbose and debug levels, zero means no cap.
func SetLimiter(l int) {
	atomic.StoreInt64(&limiter, int64(l))
}

// SetFilter keeps only the verbose and debug lines matching pattern.
func SetFilter(pattern string) error {
	if pattern == "" {
		filter.Store((*regexp.Regexp)(nil))
		return nil
	}
	reg, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	filter.Store(reg)
	return nil
}

func SetOutput(w io.Writer) {
	log.SetOutput(w)
}

func Errorf(format string, v ...interface{}) {
	if Level() >= ERROR {
		log.Printf("ERROR "+format, v...)
	}
}

func Println(v ...interface{}) {
	if Level() >= INFO {
		log.Println(v...)
	}
}

func Printf(format string, v ...interface{}) {
	if Level() >= INFO {
		log.Printf(format, v...)
	}
}

func Verbosef(format string, v ...interface{}) {
	printfAtLevel(VERBOSE, format, v...)
}

func Debugf(format string, v ...interface{}) {
	printfAtLevel(DEBUG, format, v...)
}

func printfAtLevel(l int, format string, v ...interface{}) {
	if Level() < l {
		return
	}
	out := filterOutput(format, v...)
	if out == "" {
		return
	}
	if !limiterAvailable(out) {
		return
	}
	log.Print(out)
}

func limiterAvailable(out string) bool {
	max := atomic.LoadInt64(&limiter)
	if max == 0 {
		return true
	}
	var i int64
	val, _ := counter.GetOrInsert(out, &i)
	actual := (val).(*int64)
	return atomic.AddInt64(actual, 1) <= max
}

func filterOutput(format string, v ...interface{}) string {
	out := fmt.Sprintf(format, v...)
	reg, _ := filter.Load().(*regexp.Regexp)
	if reg == nil || reg.MatchString(out) {
		return out
	}
	return ""
}
