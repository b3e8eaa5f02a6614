// https://github.com/usbarmory/ewok-kernel
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package ipc

import (
	"fmt"

	"github.com/usbarmory/ewok-kernel/task"
)

// Pool is the bounded array of endpoint records (spec §4.3). The pool
// itself stores no per-pair linkage; that lives in both peers'
// per-peer reference tables in the task table.
type Pool struct {
	endpoints [MaxEndpoints]Endpoint
}

// NewPool returns a pool with every slot Free.
func NewPool() *Pool {
	return &Pool{}
}

// Acquire returns the index of a Free slot, marking it Ready, or -1
// if the pool is exhausted (BUSY at the syscall layer).
func (p *Pool) Acquire() int {
	for i := range p.endpoints {
		if p.endpoints[i].state == Free {
			p.endpoints[i].state = Ready
			return i
		}
	}
	return -1
}

// Get returns the endpoint at idx. A negative or out-of-range idx is
// a kernel-internal bug.
func (p *Pool) Get(idx int) *Endpoint {
	if idx < 0 || idx >= len(p.endpoints) {
		panic(fmt.Sprintf("ipc: invalid endpoint index %d", idx))
	}
	return &p.endpoints[idx]
}

// Release resets idx to Free and zeros its payload.
func (p *Pool) Release(idx int) {
	e := p.Get(idx)
	*e = Endpoint{}
}

// bind sets an endpoint's directed pair fields; used only by Fill on
// the send path, kept unexported because from/to are fixed
// for an endpoint's whole lifetime between acquire and release.
func (e *Endpoint) bind(from, to task.ID) {
	e.From = from
	e.To = to
}
