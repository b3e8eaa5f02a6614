// https://github.com/usbarmory/ewok-kernel
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package device

import "fmt"

// Pool is the global kernel device-slot pool shared by every task's
// device table (spec §3: "Kernel augments it with ... State {NONE,
// RESERVED, REGISTERED, ENABLED, REG_FAIL}").
type Pool struct {
	slots [MaxSlots]Record
	used  [MaxSlots]bool
}

// NewPool returns an empty device-slot pool.
func NewPool() *Pool {
	return &Pool{}
}

// reserve allocates a free slot in the Reserved state, or returns -1
// if the pool is exhausted (spec §4.5 step 2).
func (p *Pool) reserve() int {
	for i := range p.used {
		if !p.used[i] {
			p.used[i] = true
			p.slots[i] = Record{State: Reserved}
			return i
		}
	}
	return -1
}

// release frees slot, undoing a reservation that failed a later
// registration step (spec §4.5 step 5 rollback).
func (p *Pool) release(slot int) {
	if slot < 0 || slot >= MaxSlots {
		panic(fmt.Sprintf("device: invalid slot %d on release", slot))
	}
	p.used[slot] = false
	p.slots[slot] = Record{}
}

// Get returns the record at slot. An invalid slot is a kernel bug.
func (p *Pool) Get(slot int) *Record {
	if slot < 0 || slot >= MaxSlots || !p.used[slot] {
		panic(fmt.Sprintf("device: invalid slot %d", slot))
	}
	return &p.slots[slot]
}
