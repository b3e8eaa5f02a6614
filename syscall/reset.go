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
	"github.com/usbarmory/ewok-kernel/svc"
	"github.com/usbarmory/ewok-kernel/task"
)

// sysReset implements RESET (spec §4.8): requires TSK_RESET, then
// performs an unconditional system reset with no return. If the
// caller lacks the permission, the usual epilogue applies.
func (k *Kernel) sysReset(id task.ID, mode task.Mode) {
	if !k.Oracle.ResourceGranted(perm.TskReset, id) {
		k.finish(id, mode, svc.Denied)
		return
	}

	k.Board.Reset()
}
