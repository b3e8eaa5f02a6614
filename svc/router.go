// https://github.com/usbarmory/ewok-kernel
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package svc

import (
	"github.com/usbarmory/ewok-kernel/ports"
	"github.com/usbarmory/ewok-kernel/softirq"
	"github.com/usbarmory/ewok-kernel/task"
)

// Executor runs a syscall inline, using the dispatch number/arguments
// already decoded from the caller's saved context in mode. This is
// distinct from softirq.Dispatcher.RunSyscall, which always replays a
// deferred MAIN-mode call; syscall.Kernel implements both.
type Executor interface {
	RunInline(id task.ID, mode task.Mode)
}

// Router is the supervisor-call entry point (spec §4.6). WiseRepartition
// mirrors the compile-time flag of the same name: when set, MAIN-mode
// callers of whitelisted syscalls get them executed inline instead of
// deferred; ISR-mode callers always execute whitelisted syscalls
// inline regardless of the flag, because the ISR state machine (spec
// §4.4) has no blocked state to park a deferred ISR-mode caller in —
// an open question in spec §9 resolved this way in DESIGN.md.
type Router struct {
	Table           *task.Table
	Queue           *softirq.Queue
	Sched           ports.Scheduler
	WiseRepartition bool
}

// Enter processes one supervisor entry for id, trapping in mode with
// raw trap opcode raw (spec §6: 0=syscall, 1=main returned, 2=ISR
// returned, anything else is a fault). isrForceMainThread is only
// consulted for TrapISRReturn and reports whether the ISR record that
// just finished declares "force main thread" (spec §4.6).
func (r *Router) Enter(id task.ID, mode task.Mode, raw int, isrForceMainThread bool, exec Executor) {
	op, fault := ClassifyTrap(raw)

	if fault {
		r.Table.SetState(id, task.Main, task.Fault)
		r.Sched.RequestSchedule()
		return
	}

	switch op {
	case TrapMainReturn:
		r.Table.SetState(id, task.Main, task.Finished)
		r.Sched.RequestSchedule()

	case TrapISRReturn:
		r.Table.SetState(id, task.ISR, task.ISRDone)

		if isrForceMainThread {
			r.Table.SetForcedIfEligible(id, true)
		}

		r.Sched.RequestSchedule()

	case TrapSyscall:
		r.enterSyscall(id, mode, exec)
	}
}

func (r *Router) enterSyscall(id task.ID, mode task.Mode, exec Executor) {
	rec := r.Table.Get(id)
	ctx := rec.Context(mode)

	d := Dispatch(ctx.Arg(0))
	sub := ctx.Arg(1)

	if mode == task.ISR && !Whitelisted(d, sub) {
		ctx.SetReturn(uint32(Denied))
		return
	}

	if mode == task.ISR || (r.WiseRepartition && Whitelisted(d, sub)) {
		exec.RunInline(id, mode)
		return
	}

	r.defer_(id)
}

// defer_ parks the caller and hands the syscall to the soft-IRQ
// service task (spec §4.6 "deferred path"). Named with a trailing
// underscore only because `defer` is reserved.
func (r *Router) defer_(id task.ID) {
	r.Table.SetState(id, task.Main, task.SvcBlocked)
	r.Queue.PushSyscall(id)
	softirq.MarkRunnable(r.Table)
	r.Sched.RequestSchedule()
}
