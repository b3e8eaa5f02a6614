// https://github.com/usbarmory/ewok-kernel
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package ports declares the narrow interfaces the coordination core
// consumes from its external collaborators: the scheduler's election
// policy, the sleep/timer queue, device/GPIO/DMA drivers, the
// random-number source and the debug log sink.
//
// None of these are implemented here. The kernel never reaches past a
// port to a concrete driver; boards wire concrete implementations at
// init time, tests wire fakes (see internal/simboard).
package ports

import "github.com/usbarmory/ewok-kernel/task"

// Scheduler is consumed on every syscall epilogue and softirq drain.
type Scheduler interface {
	// RequestSchedule asks the scheduler to re-elect the running task
	// before returning to user mode.
	RequestSchedule()

	// Current returns the task-id the scheduler last elected.
	Current() task.ID
}

// Sleep is the sleep/timer queue collaborator.
type Sleep interface {
	// Sleeping installs id in the sleep queue for ms milliseconds at
	// the given depth (deep sleepers are not woken by IPC sends).
	Sleeping(id task.ID, ms uint32, deep bool)

	// IsSleeping reports whether id is currently parked in the sleep
	// queue (used by IPC send to decide whether to wake a receiver).
	IsSleeping(id task.ID) bool

	// TryWakingUp removes id from the sleep queue if present and
	// eligible (non-deep); returns whether it woke the task.
	TryWakingUp(id task.ID) bool
}

// GPIOAccess is GPIO set/get/enable and EXTI enable, each scoped to a
// single kref-identified pin.
type GPIOAccess interface {
	Get(kref uint8) (high bool, err error)
	Set(kref uint8, high bool) error
	EnableEXTI(kref uint8) error
	UnlockEXTI(kref uint8) error
}

// DMAAccess is the DMA controller driver boundary: init, enable,
// disable and reconfigure a controller+stream pair.
type DMAAccess interface {
	Init(ctrl, stream int, dir task.DMADirection, addr uint32, size int) error
	Enable(ctrl, stream int) error
	Disable(ctrl, stream int) error
	Reload(ctrl, stream int) error
	Reconfigure(ctrl, stream int, addr uint32, size int) error
}

// MPU reports the number of memory-protection regions available for
// mapping devices, used to cap a task's AUTO-mapped device count.
type MPU interface {
	RegionCount() int
}

// EntropySource is the hardware random-number boundary consumed by
// get_random. A false return means the source declined (BUSY).
type EntropySource interface {
	GetRandomData(buf []byte) bool
}

// SystemReset triggers an unconditional hardware reset; Reset never
// returns on real hardware (spec §4.8).
type SystemReset interface {
	Reset()
}

// Clock is the tick source consumed by gettick, backing the three
// precisions named in spec §4.8 (milli, micro, cycle — the latter
// derived from having both milli and micro rights).
type Clock interface {
	Milliseconds() uint64
	Microseconds() uint64
	Cycles() uint64
}

// DebugSink is a line-oriented debug console with flush, the target
// of the log() syscall.
type DebugSink interface {
	WriteLine(s string)
	Flush()
}

// Memory is the flat address space syscalls read/write user buffers
// through, always after a sanitize.* check has admitted the range.
// On real hardware this is a direct unsafe.Pointer dereference; tests
// back it with a plain byte slice.
type Memory interface {
	Read(addr uint32, buf []byte)
	Write(addr uint32, buf []byte)
}
