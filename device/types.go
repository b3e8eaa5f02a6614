// https://github.com/usbarmory/ewok-kernel
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package device implements registration of user devices, DMA
// channels and DMA-SHM windows during task initialisation (spec
// §4.5): sanitising the user-supplied descriptor, allocating a kernel
// slot, binding GPIOs and IRQ handlers, and enabling the device once
// INIT_DONE fires.
package device

import (
	"github.com/usbarmory/ewok-kernel/perm"
	"github.com/usbarmory/ewok-kernel/task"
)

// Per-descriptor caps (spec §3: "up to K GPIO entries, up to M IRQ
// entries").
const (
	MaxGPIOs = 4
	MaxIRQs  = 4

	// MaxSlots bounds the global kernel device-slot pool, shared by
	// every task's device table.
	MaxSlots = 64
)

// MapMode is the user-requested mapping policy (spec §3, §4.5).
type MapMode int

const (
	AUTO MapMode = iota
	VOLUNTARY
)

// Lifecycle is the kernel-side device record's registration state.
type Lifecycle int

const (
	None Lifecycle = iota
	Reserved
	Registered
	Enabled
	RegFail
)

// GPIO is one user-declared GPIO entry. Port/Pin are user-supplied;
// Kref and Locked are kernel-augmented during binding.
type GPIO struct {
	Port int
	Pin  int

	// Kref packs (port<<4)|pin once bound (GLOSSARY).
	Kref uint8

	// Trigger is true if the GPIO declares an EXTI trigger line.
	Trigger bool

	// Locked is true while the kernel owns the EXTI line pending an
	// explicit CFG_GPIO_UNLOCK_EXTI (spec §4.8).
	Locked bool
}

// IRQ is one user-declared interrupt entry: the line number and the
// user-mode handler function pointer bound to it. The ISR execution
// context is created lazily on first fire (spec §4.5 step 4).
type IRQ struct {
	Number  int
	Handler uint32
}

// UserDescriptor is the raw descriptor copied in from user memory
// (spec §3), before sanitisation.
type UserDescriptor struct {
	Name       string
	Base       uint32
	Size       uint32
	Mode       MapMode
	ReadOnly   bool
	RAMBacked  bool
	RegionMask uint32
	GPIOs      []GPIO
	IRQs       []IRQ
}

// Record is the kernel-side device record (spec §3): the sanitised
// descriptor plus kernel augmentation.
type Record struct {
	UserDescriptor

	Owner   task.ID
	Mapped  bool
	SoCName string
	State   Lifecycle
}

// SoCDevice is one static SoC device-catalogue entry (spec §6: "SoC
// device catalogue (names, base, size, IRQ list, GPIO ports)"),
// consumed at build time.
type SoCDevice struct {
	Name      string
	Base      uint32
	Size      uint32
	RAMBacked bool
	IRQs      []int
	Ports     []int

	// Requires lists the sub-permissions this device class demands
	// of its owning task (spec §4.5 step 1, e.g. a DMA-capable device
	// needs DEV_DMA).
	Requires []perm.Permission
}

// Catalogue looks up a named SoC device.
type Catalogue map[string]SoCDevice

func (c Catalogue) find(name string) (SoCDevice, bool) {
	d, ok := c[name]
	return d, ok
}
