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

	"github.com/usbarmory/ewok-kernel/perm"
	"github.com/usbarmory/ewok-kernel/sanitize"
	"github.com/usbarmory/ewok-kernel/svc"
	"github.com/usbarmory/ewok-kernel/task"
)

// TickPrecision selects the counter gettick reads.
type TickPrecision uint32

const (
	TickMilli TickPrecision = iota
	TickMicro
	TickCycle
)

// sysGetTick implements GETTICK (spec §4.8): outptr must lie in the
// caller's RAM slot, the required permission depends on the requested
// precision, and on success the 64-bit counter is written to outptr.
func (k *Kernel) sysGetTick(id task.ID, mode task.Mode) {
	rec := k.Table.Get(id)
	ctx := rec.Context(mode)

	outptr := ctx.Arg(1)
	prec := TickPrecision(ctx.Arg(2))

	if !sanitize.InRAMSlot(outptr, 8, rec, mode) {
		k.finish(id, mode, svc.Inval)
		return
	}

	var value uint64
	var granted bool

	switch prec {
	case TickMilli:
		granted = k.Oracle.ResourceGranted(perm.TimGetMilli, id)
		value = k.Clock.Milliseconds()
	case TickMicro:
		granted = k.Oracle.ResourceGranted(perm.TimGetMicro, id)
		value = k.Clock.Microseconds()
	case TickCycle:
		granted = k.Oracle.ResourceGranted(perm.TimGetCycle, id)
		value = k.Clock.Cycles()
	default:
		k.finish(id, mode, svc.Inval)
		return
	}

	if !granted {
		k.finish(id, mode, svc.Denied)
		return
	}

	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], value)
	k.Mem.Write(outptr, buf[:])

	k.finish(id, mode, svc.Done)
}
