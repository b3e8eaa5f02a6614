// https://github.com/usbarmory/ewok-kernel
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package syscall

import (
	"github.com/usbarmory/ewok-kernel/device"
	"github.com/usbarmory/ewok-kernel/sanitize"
	"github.com/usbarmory/ewok-kernel/svc"
	"github.com/usbarmory/ewok-kernel/task"
)

// sysCfg implements the CFG dispatch and its sub-ops (spec §4.8). Every
// sub-op requires init_done; GPIO sub-ops additionally require the
// kref to name a GPIO owned by one of the caller's registered devices.
func (k *Kernel) sysCfg(id task.ID, mode task.Mode) {
	rec := k.Table.Get(id)
	ctx := rec.Context(mode)

	if !rec.InitDone {
		k.finish(id, mode, svc.Denied)
		return
	}

	switch svc.CfgSubOp(ctx.Arg(1)) {
	case svc.CfgGPIOGet:
		k.cfgGPIOGet(id, mode)
	case svc.CfgGPIOSet:
		k.cfgGPIOSet(id, mode)
	case svc.CfgGPIOUnlockEXTI:
		k.cfgGPIOUnlockEXTI(id, mode)
	case svc.CfgDMAReconf:
		k.cfgDMAReconf(id, mode)
	case svc.CfgDMAReload:
		k.cfgDMAReload(id, mode)
	case svc.CfgDMADisable:
		k.cfgDMADisable(id, mode)
	case svc.CfgDevMap:
		k.cfgDevMap(id, mode)
	case svc.CfgDevUnmap:
		k.cfgDevUnmap(id, mode)
	default:
		k.finish(id, mode, svc.Inval)
	}
}

// findOwnedGPIO scans the caller's registered devices for the GPIO
// bound to kref, returning the owning device record and GPIO index.
func (k *Kernel) findOwnedGPIO(rec *task.Record, kref uint8) (*device.Record, int, bool) {
	for _, slot := range rec.Devices[:rec.NumDevices] {
		d := k.Devices.Get(slot)
		for i := range d.GPIOs {
			if d.GPIOs[i].Kref == kref {
				return d, i, true
			}
		}
	}
	return nil, 0, false
}

func (k *Kernel) cfgGPIOGet(id task.ID, mode task.Mode) {
	rec := k.Table.Get(id)
	ctx := rec.Context(mode)

	kref := uint8(ctx.Arg(2))
	outptr := ctx.Arg(3)

	if !sanitize.InRAMSlotScalar(outptr, 4, rec, mode) {
		k.finish(id, mode, svc.Inval)
		return
	}

	if _, _, ok := k.findOwnedGPIO(rec, kref); !ok {
		k.finish(id, mode, svc.Inval)
		return
	}

	high, err := k.GPIO.Get(kref)
	if err != nil {
		k.finish(id, mode, svc.Inval)
		return
	}

	var buf [4]byte
	if high {
		buf[0] = 1
	}
	k.Mem.Write(outptr, buf[:])

	k.finish(id, mode, svc.Done)
}

func (k *Kernel) cfgGPIOSet(id task.ID, mode task.Mode) {
	rec := k.Table.Get(id)
	ctx := rec.Context(mode)

	kref := uint8(ctx.Arg(2))
	high := ctx.Arg(3) != 0

	if _, _, ok := k.findOwnedGPIO(rec, kref); !ok {
		k.finish(id, mode, svc.Inval)
		return
	}

	if err := k.GPIO.Set(kref, high); err != nil {
		k.finish(id, mode, svc.Inval)
		return
	}

	k.finish(id, mode, svc.Done)
}

// cfgGPIOUnlockEXTI additionally requires the GPIO to declare an EXTI
// trigger and to be currently kernel-locked (spec §4.8).
func (k *Kernel) cfgGPIOUnlockEXTI(id task.ID, mode task.Mode) {
	rec := k.Table.Get(id)
	ctx := rec.Context(mode)

	kref := uint8(ctx.Arg(2))

	d, i, ok := k.findOwnedGPIO(rec, kref)
	if !ok || !d.GPIOs[i].Trigger || !d.GPIOs[i].Locked {
		k.finish(id, mode, svc.Inval)
		return
	}

	if err := k.GPIO.UnlockEXTI(kref); err != nil {
		k.finish(id, mode, svc.Inval)
		return
	}

	d.GPIOs[i].Locked = false

	k.finish(id, mode, svc.Done)
}

// findOwnedDMA resolves a DMA descriptor index into the caller's DMA
// table.
func (k *Kernel) findOwnedDMA(rec *task.Record, descriptor int) (*device.DMAChannel, bool) {
	if descriptor < 0 || descriptor >= rec.NumDMAChannels {
		return nil, false
	}
	return k.DMAs.Get(rec.DMAChannels[descriptor]), true
}

func (k *Kernel) cfgDMAReconf(id task.ID, mode task.Mode) {
	rec := k.Table.Get(id)
	ctx := rec.Context(mode)

	descriptor := int(ctx.Arg(2))
	ctrl := int(ctx.Arg(3))
	stream := int(ctx.Arg(4))
	dir := task.DMADirection(ctx.Arg(5))
	addr := ctx.Arg(6)
	size := int(ctx.Arg(7))

	ch, ok := k.findOwnedDMA(rec, descriptor)
	if !ok {
		k.finish(id, mode, svc.Inval)
		return
	}

	if err := device.Reconfigure(k.DMADrv, ch, ctrl, stream, dir, addr, size); err != nil {
		k.finish(id, mode, svc.Inval)
		return
	}

	k.finish(id, mode, svc.Done)
}

func (k *Kernel) cfgDMAReload(id task.ID, mode task.Mode) {
	rec := k.Table.Get(id)
	ctx := rec.Context(mode)

	descriptor := int(ctx.Arg(2))

	ch, ok := k.findOwnedDMA(rec, descriptor)
	if !ok {
		k.finish(id, mode, svc.Inval)
		return
	}

	if err := device.Reload(k.DMADrv, ch); err != nil {
		k.finish(id, mode, svc.Inval)
		return
	}

	k.finish(id, mode, svc.Done)
}

func (k *Kernel) cfgDMADisable(id task.ID, mode task.Mode) {
	rec := k.Table.Get(id)
	ctx := rec.Context(mode)

	descriptor := int(ctx.Arg(2))

	ch, ok := k.findOwnedDMA(rec, descriptor)
	if !ok {
		k.finish(id, mode, svc.Inval)
		return
	}

	if err := device.Disable(k.DMADrv, ch); err != nil {
		k.finish(id, mode, svc.Inval)
		return
	}

	k.finish(id, mode, svc.Done)
}

// cfgDevMap maps a VOLUNTARY device on its first use (spec §4.5: "a
// VOLUNTARY device is enabled on its first CFG_DEV_MAP").
func (k *Kernel) cfgDevMap(id task.ID, mode task.Mode) {
	rec := k.Table.Get(id)
	ctx := rec.Context(mode)

	descriptor := int(ctx.Arg(2))
	if descriptor < 0 || descriptor >= rec.NumDevices {
		k.finish(id, mode, svc.Inval)
		return
	}

	d := k.Devices.Get(rec.Devices[descriptor])
	device.Enable(d)
	d.Mapped = true

	k.finish(id, mode, svc.Done)
}

func (k *Kernel) cfgDevUnmap(id task.ID, mode task.Mode) {
	rec := k.Table.Get(id)
	ctx := rec.Context(mode)

	descriptor := int(ctx.Arg(2))
	if descriptor < 0 || descriptor >= rec.NumDevices {
		k.finish(id, mode, svc.Inval)
		return
	}

	d := k.Devices.Get(rec.Devices[descriptor])
	d.Mapped = false

	k.finish(id, mode, svc.Done)
}
