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

// LockMode selects LOCK_ENTER/LOCK_EXIT.
type LockMode uint32

const (
	LockEnter LockMode = iota
	LockExit
)

// sysLock implements LOCK (spec §4.8, §9). Forbidden in ISR mode.
//
// The source this spec is drawn from writes the return value twice
// and finally forces RUNNABLE on every path, which silently defeats
// LOCK_ENTER (the caller never actually observes LOCKED). This repo
// treats that as a bug: LOCK_ENTER leaves the caller's state LOCKED,
// and calling it again while already LOCKED is idempotent (still
// returns DONE, does not re-enter or touch the state).
func (k *Kernel) sysLock(id task.ID, mode task.Mode) {
	if mode == task.ISR {
		k.finish(id, mode, svc.Denied)
		return
	}

	rec := k.Table.Get(id)
	ctx := rec.Context(mode)
	lm := LockMode(ctx.Arg(1))

	cur := rec.State(task.Main)

	switch lm {
	case LockEnter:
		if cur == task.Locked {
			ctx.SetReturn(uint32(svc.Done))
			return
		}
		ctx.SetReturn(uint32(svc.Done))
		k.Table.SetState(id, task.Main, task.Locked)
		k.Sched.RequestSchedule()

	case LockExit:
		if cur != task.Locked {
			k.finish(id, mode, svc.Inval)
			return
		}
		k.finish(id, mode, svc.Done)

	default:
		k.finish(id, mode, svc.Inval)
	}
}
