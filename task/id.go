// https://github.com/usbarmory/ewok-kernel
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package task implements the per-task record, the per-mode state
// machine and the fixed-size task table that the rest of the
// coordination core mutates on every supervisor entry.
package task

import "fmt"

// ID is the closed task-identifier enumeration. AppMax is a build-time
// constant fixing N, the number of application tasks in the image.
type ID uint8

// AppMax is the configured maximum application task id. The wildcard
// receive scan (spec §9 open question) iterates App1..App1+AppMax-1.
const AppMax = 7

const (
	Unused ID = iota
	KernelIdle
	SoftIRQ
	App1
	App2
	App3
	App4
	App5
	App6
	App7
	// AnyApp is the wildcard sentinel, legal only as the peer argument
	// to ipc recv.
	AnyApp
	Max
)

var idNames = map[ID]string{
	Unused:     "unused",
	KernelIdle: "kernel-idle",
	SoftIRQ:    "softirq",
	App1:       "app1",
	App2:       "app2",
	App3:       "app3",
	App4:       "app4",
	App5:       "app5",
	App6:       "app6",
	App7:       "app7",
	AnyApp:     "any_app",
}

func (id ID) String() string {
	if s, ok := idNames[id]; ok {
		return s
	}
	return fmt.Sprintf("task(%d)", uint8(id))
}

// IsApp reports whether id names a concrete application task
// (App1..AppN), excluding the wildcard and kernel tasks.
func (id ID) IsApp() bool {
	return id >= App1 && id <= ID(App1)+AppMax-1
}

// Valid reports whether id is a populated, non-wildcard, in-range task
// identifier.
func (id ID) Valid() bool {
	return id > Unused && id < Max && id != AnyApp
}

// Mode is one of the two execution contexts a task carries state for.
type Mode int

const (
	Main Mode = iota
	ISR
)

func (m Mode) String() string {
	if m == ISR {
		return "isr"
	}
	return "main"
}

// DMADirection mirrors the static DMA record's direction field.
type DMADirection int

const (
	DMAToDevice DMADirection = iota
	DMAFromDevice
	DMABidirectional
)
