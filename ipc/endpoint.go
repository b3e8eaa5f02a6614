// https://github.com/usbarmory/ewok-kernel
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package ipc implements the bounded pool of endpoint records that
// back inter-task message passing (spec §4.3). An endpoint is a
// directed, single-slot mailbox; at most one endpoint exists at a
// time for any directed (sender, receiver) pair. Peers reference
// endpoints by index, never by pointer (spec §9), so the pool never
// aliases the task table.
package ipc

import "github.com/usbarmory/ewok-kernel/task"

// MaxPayload is the largest IPC message the endpoint buffer holds
// (spec §3, §6).
const MaxPayload = 128

// MaxEndpoints bounds the global endpoint pool (spec §3).
const MaxEndpoints = 10

// State is the endpoint lifecycle (spec §3).
type State int

const (
	Free State = iota
	Ready
	WaitForReceiver
)

func (s State) String() string {
	switch s {
	case Free:
		return "FREE"
	case Ready:
		return "READY"
	case WaitForReceiver:
		return "WAIT_FOR_RECEIVER"
	}
	return "?"
}

// Endpoint is a single directed mailbox.
type Endpoint struct {
	From  task.ID
	To    task.ID
	state State
	size  int
	data  [MaxPayload]byte
}

// State returns the endpoint's current lifecycle state.
func (e *Endpoint) State() State {
	return e.state
}

// Size returns the current payload length.
func (e *Endpoint) Size() int {
	return e.size
}

// Fill copies buf into the endpoint, sets from/to and transitions the
// endpoint to WaitForReceiver (spec §4.9 send step 4). e must be Ready.
func (e *Endpoint) Fill(from, to task.ID, buf []byte) {
	if e.state != Ready {
		panic("ipc: Fill on endpoint not in READY state")
	}

	e.bind(from, to)
	e.size = copy(e.data[:], buf)
	e.state = WaitForReceiver
}

// Drain copies the endpoint's payload into dst (truncated to
// len(dst)), returns the number of bytes copied and the sender id, and
// transitions the endpoint back to Ready (spec §4.9 recv step 5). e
// must be WaitForReceiver.
func (e *Endpoint) Drain(dst []byte) (n int, from task.ID) {
	if e.state != WaitForReceiver {
		panic("ipc: Drain on endpoint not in WAIT_FOR_RECEIVER state")
	}

	n = copy(dst, e.data[:e.size])
	from = e.From

	e.size = 0
	e.state = Ready

	return n, from
}
