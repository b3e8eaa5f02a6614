// https://github.com/usbarmory/ewok-kernel
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package syscall

import (
	"github.com/usbarmory/ewok-kernel/svc"
	"github.com/usbarmory/ewok-kernel/task"
)

// sysYield implements YIELD: a no-op side effect, the point being
// purely the reschedule request in the shared epilogue.
func (k *Kernel) sysYield(id task.ID, mode task.Mode) {
	k.finish(id, mode, svc.Done)
}
