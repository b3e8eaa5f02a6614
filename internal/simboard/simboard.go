// https://github.com/usbarmory/ewok-kernel
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package simboard implements host-side fakes for every ports.*
// collaborator interface, used by the host simulator (cmd/ewoksim) and
// by package tests that need a full Kernel without real hardware.
package simboard

import (
	"errors"
	"fmt"

	"github.com/usbarmory/ewok-kernel/task"
)

// Scheduler is a minimal fake with no election policy: RequestSchedule just
// records that a reschedule was asked for; Current returns whatever
// was last set by the test/simulator driving loop.
type Scheduler struct {
	current    task.ID
	Rescheduls int
}

func NewScheduler() *Scheduler { return &Scheduler{} }

func (s *Scheduler) RequestSchedule()      { s.Rescheduls++ }
func (s *Scheduler) Current() task.ID      { return s.current }
func (s *Scheduler) SetCurrent(id task.ID) { s.current = id }

// Sleep is an in-memory sleep queue.
type Sleep struct {
	deadlines map[task.ID]uint32
	deep      map[task.ID]bool
}

func NewSleep() *Sleep {
	return &Sleep{deadlines: map[task.ID]uint32{}, deep: map[task.ID]bool{}}
}

func (s *Sleep) Sleeping(id task.ID, ms uint32, deep bool) {
	s.deadlines[id] = ms
	s.deep[id] = deep
}

func (s *Sleep) IsSleeping(id task.ID) bool {
	_, ok := s.deadlines[id]
	return ok
}

func (s *Sleep) TryWakingUp(id task.ID) bool {
	if s.deep[id] {
		return false
	}
	if _, ok := s.deadlines[id]; !ok {
		return false
	}
	delete(s.deadlines, id)
	delete(s.deep, id)
	return true
}

// GPIO is an in-memory GPIO/EXTI fake keyed by kref.
type GPIO struct {
	high     map[uint8]bool
	locked   map[uint8]bool
	reserved map[uint8]bool
}

func NewGPIO() *GPIO {
	return &GPIO{high: map[uint8]bool{}, locked: map[uint8]bool{}, reserved: map[uint8]bool{}}
}

func (g *GPIO) Get(kref uint8) (bool, error)    { return g.high[kref], nil }
func (g *GPIO) Set(kref uint8, high bool) error { g.high[kref] = high; return nil }
func (g *GPIO) EnableEXTI(kref uint8) error     { g.locked[kref] = true; return nil }
func (g *GPIO) UnlockEXTI(kref uint8) error {
	if !g.locked[kref] {
		return errors.New("simboard: EXTI not locked")
	}
	delete(g.locked, kref)
	return nil
}

// Reserve implements device.GPIOBinder over the same kref space.
func (g *GPIO) Reserve(port, pin int) bool {
	kref := uint8(port<<4 | pin)
	if g.locked[kref] || g.reserved[kref] {
		return false
	}
	g.reserved[kref] = true
	return true
}

// DMA is an in-memory DMA controller fake.
type DMA struct {
	enabled map[[2]int]bool
}

func NewDMA() *DMA { return &DMA{enabled: map[[2]int]bool{}} }

func (d *DMA) Init(ctrl, stream int, dir task.DMADirection, addr uint32, size int) error {
	return nil
}

func (d *DMA) Enable(ctrl, stream int) error {
	d.enabled[[2]int{ctrl, stream}] = true
	return nil
}

func (d *DMA) Disable(ctrl, stream int) error {
	d.enabled[[2]int{ctrl, stream}] = false
	return nil
}

func (d *DMA) Reload(ctrl, stream int) error { return nil }

func (d *DMA) Reconfigure(ctrl, stream int, addr uint32, size int) error { return nil }

// MPU reports a fixed region count, matching the simulator's pretend
// memory-protection unit.
type MPU struct{ Regions int }

func (m MPU) RegionCount() int { return m.Regions }

// Entropy is a deterministic fake entropy source for tests: every call
// succeeds and fills buf with an incrementing counter, never BUSY
// unless Decline is set.
type Entropy struct {
	Decline bool
	counter byte
}

func (e *Entropy) GetRandomData(buf []byte) bool {
	if e.Decline {
		return false
	}
	for i := range buf {
		buf[i] = e.counter
		e.counter++
	}
	return true
}

// Debug collects emitted lines in memory for test assertions.
type Debug struct {
	Lines   []string
	flushes int
}

func (d *Debug) WriteLine(s string) { d.Lines = append(d.Lines, s) }
func (d *Debug) Flush()             { d.flushes++ }

// Memory is a flat byte-slice-backed address space.
type Memory struct {
	Bytes []byte
}

func NewMemory(size int) *Memory {
	return &Memory{Bytes: make([]byte, size)}
}

func (m *Memory) Read(addr uint32, buf []byte) {
	copy(buf, m.Bytes[addr:int(addr)+len(buf)])
}

func (m *Memory) Write(addr uint32, buf []byte) {
	copy(m.Bytes[addr:int(addr)+len(buf)], buf)
}

// Clock is a manually-advanced fake tick source.
type Clock struct {
	Milli, Micro, Cycle uint64
}

func (c *Clock) Milliseconds() uint64 { return c.Milli }
func (c *Clock) Microseconds() uint64 { return c.Micro }
func (c *Clock) Cycles() uint64       { return c.Cycle }

// Board is a fake system-reset boundary: Reset counts the request in
// Resets and then panics, so tests can recover and observe that it was
// requested.
type Board struct {
	Resets int
}

func (b *Board) Reset() {
	b.Resets++
	panic(fmt.Sprintf("simboard: reset requested (%d)", b.Resets))
}
