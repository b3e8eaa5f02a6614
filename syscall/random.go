// https://github.com/usbarmory/ewok-kernel
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package syscall

import (
	"github.com/usbarmory/ewok-kernel/perm"
	"github.com/usbarmory/ewok-kernel/sanitize"
	"github.com/usbarmory/ewok-kernel/svc"
	"github.com/usbarmory/ewok-kernel/task"
)

// MaxRandomLen is the per-call cap on get_random (spec §4.8).
const MaxRandomLen = 16

// sysGetRandom implements GET_RANDOM (spec §4.8): requires init_done,
// buf in the caller's RAM slot, len <= MaxRandomLen and TSK_RNG.
// Returns BUSY if the entropy source declines.
func (k *Kernel) sysGetRandom(id task.ID, mode task.Mode) {
	rec := k.Table.Get(id)
	ctx := rec.Context(mode)

	if !rec.InitDone {
		k.finish(id, mode, svc.Denied)
		return
	}

	buf := ctx.Arg(1)
	ln := ctx.Arg(2)

	if ln > MaxRandomLen || !sanitize.InRAMSlot(buf, ln, rec, mode) {
		k.finish(id, mode, svc.Inval)
		return
	}

	if !k.Oracle.ResourceGranted(perm.TskRNG, id) {
		k.finish(id, mode, svc.Denied)
		return
	}

	data := make([]byte, ln)
	if !k.Entropy.GetRandomData(data) {
		k.finish(id, mode, svc.Busy)
		return
	}

	k.Mem.Write(buf, data)
	k.finish(id, mode, svc.Done)
}
