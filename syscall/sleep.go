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

// SleepMode selects the non-deep/deep sleep variant named in spec §3;
// only non-deep sleepers are wakeable by an IPC send.
type SleepMode uint32

const (
	SleepNormal SleepMode = iota
	SleepDeep
)

// sysSleep implements SLEEP (spec §4.8). Forbidden in ISR mode even
// though SLEEP is on the synchronous whitelist (the whitelist only
// says the router need not defer it; the handler still rejects a
// caller that cannot meaningfully sleep from inside its own ISR).
func (k *Kernel) sysSleep(id task.ID, mode task.Mode) {
	if mode == task.ISR {
		k.finish(id, mode, svc.Denied)
		return
	}

	rec := k.Table.Get(id)
	ctx := rec.Context(mode)

	ms := ctx.Arg(1)
	sm := SleepMode(ctx.Arg(2))

	deep := sm == SleepDeep

	k.Sleep.Sleeping(id, ms, deep)

	next := task.Sleeping
	if deep {
		next = task.SleepingDeep
	}

	ctx.SetReturn(uint32(svc.Done))
	k.Table.SetState(id, task.Main, next)
	k.Sched.RequestSchedule()
}
