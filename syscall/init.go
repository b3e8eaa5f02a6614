// https://github.com/usbarmory/ewok-kernel
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package syscall

import (
	"encoding/binary"
	"strings"

	"github.com/usbarmory/ewok-kernel/device"
	"github.com/usbarmory/ewok-kernel/perm"
	"github.com/usbarmory/ewok-kernel/sanitize"
	"github.com/usbarmory/ewok-kernel/svc"
	"github.com/usbarmory/ewok-kernel/task"
)

// sysInit implements the INIT dispatch and its sub-ops (spec §4.5,
// §4.8). Every sub-op but DONE is only legal while init_done is false;
// once DONE fires init_done is monotonic (spec §8 invariant 4).
func (k *Kernel) sysInit(id task.ID, mode task.Mode) {
	rec := k.Table.Get(id)
	ctx := rec.Context(mode)

	switch svc.InitSubOp(ctx.Arg(1)) {
	case svc.InitGetTaskID:
		k.initGetTaskID(id, mode)
	case svc.InitDevAccess:
		k.initDevAccess(id, mode)
	case svc.InitDMA:
		k.initDMA(id, mode)
	case svc.InitDMASHM:
		k.initDMASHM(id, mode)
	case svc.InitDone:
		k.initDone(id, mode)
	default:
		k.finish(id, mode, svc.Inval)
	}
}

// initGetTaskID resolves a peer by name, case-insensitively, over
// App1..AppMax (spec §4.8).
func (k *Kernel) initGetTaskID(id task.ID, mode task.Mode) {
	rec := k.Table.Get(id)
	ctx := rec.Context(mode)

	nameptr := ctx.Arg(2)
	outid := ctx.Arg(3)

	if !sanitize.InRAMSlotScalar(nameptr, 16, rec, mode) || !sanitize.InRAMSlotScalar(outid, 4, rec, mode) {
		k.finish(id, mode, svc.Inval)
		return
	}

	if rec.InitDone {
		k.finish(id, mode, svc.Denied)
		return
	}

	nameBuf := make([]byte, 16)
	k.Mem.Read(nameptr, nameBuf)
	n := 0
	for n < len(nameBuf) && nameBuf[n] != 0 {
		n++
	}
	name := string(nameBuf[:n])

	for peer := task.App1; peer <= task.ID(task.App1)+task.AppMax-1; peer++ {
		peerRec := k.Table.Get(peer)
		if peerRec == nil || !strings.EqualFold(peerRec.Name, name) {
			continue
		}

		if !k.Oracle.SameDomain(id, peer) {
			k.finish(id, mode, svc.Inval)
			return
		}

		if k.Oracle.IPCGranted(id, peer) || k.Oracle.IPCGranted(peer, id) || k.Oracle.DMASHMGranted(id, peer) {
			var buf [4]byte
			binary.LittleEndian.PutUint32(buf[:], uint32(peer))
			k.Mem.Write(outid, buf[:])
			k.finish(id, mode, svc.Done)
			return
		}
	}

	k.finish(id, mode, svc.Inval)
}

// initDevAccess runs the staged device-registration protocol of spec
// §4.5 and stamps the new device's index in the caller's own device
// table into *outdesc.
func (k *Kernel) initDevAccess(id task.ID, mode task.Mode) {
	rec := k.Table.Get(id)
	ctx := rec.Context(mode)

	udev := ctx.Arg(2)
	outdesc := ctx.Arg(3)

	if !sanitize.InAnySlot(udev, device.DescriptorWireSize, rec, mode) || !sanitize.InRAMSlotScalar(outdesc, 4, rec, mode) {
		k.finish(id, mode, svc.Inval)
		return
	}

	desc := device.ReadUserDescriptor(k.Mem, udev)

	_, err := device.Register(k.Devices, k.Catalogue, k.GPIOBind, rec, k.Oracle, desc)

	var buf [4]byte
	switch err {
	case nil:
		binary.LittleEndian.PutUint32(buf[:], uint32(rec.NumDevices-1))
		k.Mem.Write(outdesc, buf[:])
		k.finish(id, mode, svc.Done)
	case device.ErrInval:
		binary.LittleEndian.PutUint32(buf[:], 0xffffffff)
		k.Mem.Write(outdesc, buf[:])
		k.finish(id, mode, svc.Inval)
	case device.ErrDenied:
		k.finish(id, mode, svc.Denied)
	case device.ErrBusy:
		k.finish(id, mode, svc.Busy)
	default:
		k.finish(id, mode, svc.Inval)
	}
}

// initDMA registers a DMA channel, gated by DEV_DMA (spec §4.5, §4.8).
func (k *Kernel) initDMA(id task.ID, mode task.Mode) {
	rec := k.Table.Get(id)
	ctx := rec.Context(mode)

	udma := ctx.Arg(2)
	outdesc := ctx.Arg(3)

	if !sanitize.InRAMSlot(udma, device.DMAWireSize, rec, mode) || !sanitize.InRAMSlotScalar(outdesc, 4, rec, mode) {
		k.finish(id, mode, svc.Inval)
		return
	}

	granted := k.Oracle.ResourceGranted(perm.DevDMA, id)

	d := device.ReadUserDMADescriptor(k.Mem, udma)

	ch := device.DMAChannel{
		Controller: d.Controller,
		Stream:     d.Stream,
		Direction:  task.DMADirection(d.Direction),
		Access:     task.Access(d.Access),
		RangeStart: d.Start,
		Length:     d.Length,
		Source:     id,
	}

	_, err := device.RegisterDMA(k.DMAs, rec, granted, ch)

	var buf [4]byte
	switch err {
	case nil:
		binary.LittleEndian.PutUint32(buf[:], uint32(rec.NumDMAChannels-1))
		k.Mem.Write(outdesc, buf[:])
		k.finish(id, mode, svc.Done)
	case device.ErrDenied:
		k.finish(id, mode, svc.Denied)
	case device.ErrBusy:
		k.finish(id, mode, svc.Busy)
	default:
		binary.LittleEndian.PutUint32(buf[:], 0xffffffff)
		k.Mem.Write(outdesc, buf[:])
		k.finish(id, mode, svc.Inval)
	}
}

// initDMASHM declares a DMA-SHM window into the target task's table,
// gated by dmashm_granted(initiator, target) (spec §4.5).
func (k *Kernel) initDMASHM(id task.ID, mode task.Mode) {
	rec := k.Table.Get(id)
	ctx := rec.Context(mode)

	ushm := ctx.Arg(2)

	if !sanitize.InRAMSlot(ushm, device.DMASHMWireSize, rec, mode) {
		k.finish(id, mode, svc.Inval)
		return
	}

	if rec.InitDone {
		k.finish(id, mode, svc.Denied)
		return
	}

	d := device.ReadUserDMASHMDescriptor(k.Mem, ushm)
	target := task.ID(d.Target)

	if !target.Valid() {
		k.finish(id, mode, svc.Inval)
		return
	}

	targetRec := k.Table.Get(target)
	granted := k.Oracle.DMASHMGranted(id, target)

	err := device.DeclareDMASHM(targetRec, id, granted, d.Controller, d.Stream, task.Access(d.Access), d.Start, d.Length, k.DMAClaims)

	switch err {
	case nil:
		k.finish(id, mode, svc.Done)
	case device.ErrDenied:
		k.finish(id, mode, svc.Denied)
	case device.ErrBusy:
		k.finish(id, mode, svc.Busy)
	default:
		k.finish(id, mode, svc.Inval)
	}
}

// initDone enables every AUTO device and every registered DMA channel,
// latches init_done and requests a reschedule (spec §4.5, §4.8).
func (k *Kernel) initDone(id task.ID, mode task.Mode) {
	rec := k.Table.Get(id)

	device.EnableAutoForTask(k.Devices, rec)
	k.DMAs.EnableAllForTask(rec, k.DMADrv)

	rec.InitDone = true

	k.finish(id, mode, svc.Done)
}
