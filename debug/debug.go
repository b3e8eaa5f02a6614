// https://github.com/usbarmory/ewok-kernel
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package debug implements the log syscall's line-oriented sink
// (ports.DebugSink, spec §4.8, §6), rate-limited so a misbehaving task
// cannot starve the console, wrapping the board's UART the way the
// board package redirects the runtime's own printk (see
// board/usbarmory/mk2/console.go).
package debug

import (
	"time"

	"golang.org/x/time/rate"
)

// UARTWriter is the narrow boundary to a concrete UART driver, matched
// to soc/imx6.UART's Write([]byte) method.
type UARTWriter interface {
	Write(buf []byte)
}

// MaxLinesPerSecond bounds the sustained log rate; bursts up to the
// same size are allowed.
const MaxLinesPerSecond = 200

// Sink implements ports.DebugSink over a UARTWriter, dropping lines
// that exceed the rate budget rather than blocking a caller in handler
// mode.
type Sink struct {
	uart    UARTWriter
	limiter *rate.Limiter
	dropped uint64
}

// NewSink wraps uart in a rate-limited line sink.
func NewSink(uart UARTWriter) *Sink {
	return &Sink{
		uart:    uart,
		limiter: rate.NewLimiter(rate.Limit(MaxLinesPerSecond), MaxLinesPerSecond),
	}
}

// WriteLine implements ports.DebugSink. A line that exceeds the rate
// budget is counted and dropped rather than stalling the caller.
func (s *Sink) WriteLine(line string) {
	if !s.limiter.AllowN(time.Now(), 1) {
		s.dropped++
		return
	}

	s.uart.Write([]byte(line))
	s.uart.Write([]byte("\n"))
}

// Flush is a no-op: the UART boundary writes synchronously, so there
// is nothing buffered to flush.
func (s *Sink) Flush() {}

// Dropped reports how many lines have been discarded by the rate
// limiter since the sink was created.
func (s *Sink) Dropped() uint64 {
	return s.dropped
}
