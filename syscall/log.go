// https://github.com/usbarmory/ewok-kernel
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package syscall

import (
	"github.com/usbarmory/ewok-kernel/sanitize"
	"github.com/usbarmory/ewok-kernel/svc"
	"github.com/usbarmory/ewok-kernel/task"
)

// MaxLogLen is the per-call message length cap on log (spec §4.8).
const MaxLogLen = 512

// sysLog implements LOG (spec §4.8): msg must lie in the caller's RAM
// slot and len < MaxLogLen. The line is emitted to the debug sink as
// "[name] msg". Reachable both as the top-level LOG dispatch and as
// the IPC LOG sub-op (spec §6).
func (k *Kernel) sysLog(id task.ID, mode task.Mode) {
	rec := k.Table.Get(id)
	ctx := rec.Context(mode)

	ln := ctx.Arg(1)
	msg := ctx.Arg(2)

	if ln >= MaxLogLen || !sanitize.InRAMSlot(msg, ln, rec, mode) {
		k.finish(id, mode, svc.Inval)
		return
	}

	buf := make([]byte, ln)
	k.Mem.Read(msg, buf)

	k.Debug.WriteLine("[" + rec.Name + "] " + string(buf))

	k.finish(id, mode, svc.Done)
}
