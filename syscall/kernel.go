// https://github.com/usbarmory/ewok-kernel
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package syscall implements the one-handler-per-operation syscall
// layer (spec §4.8): yield, sleep, lock, reset, gettick, get_random,
// log, init(*), cfg(*) and ipc(*). Every handler validates its user
// arguments through sanitize, checks rights through perm, performs
// its side effect, sets the caller's return value, updates the
// caller's state and may request a reschedule — the shared epilogue
// discipline of spec §4.8.
package syscall

import (
	"github.com/usbarmory/ewok-kernel/device"
	"github.com/usbarmory/ewok-kernel/ipc"
	"github.com/usbarmory/ewok-kernel/perm"
	"github.com/usbarmory/ewok-kernel/ports"
	"github.com/usbarmory/ewok-kernel/softirq"
	"github.com/usbarmory/ewok-kernel/svc"
	"github.com/usbarmory/ewok-kernel/task"
)

// Kernel wires every component (A-G) together and implements the one
// handler per syscall operation (component H). It is the single
// mutable hub the rest of the core touches.
type Kernel struct {
	Table     *task.Table
	Endpoints *ipc.Pool
	Oracle    *perm.Oracle
	Devices   *device.Pool
	DMAs      *device.DMAPool
	DMAClaims *device.RangeSet
	Catalogue device.Catalogue
	Queue     *softirq.Queue

	Sched    ports.Scheduler
	Sleep    ports.Sleep
	GPIO     ports.GPIOAccess
	GPIOBind device.GPIOBinder
	DMADrv   ports.DMAAccess
	MPU      ports.MPU
	Entropy  ports.EntropySource
	Debug    ports.DebugSink
	Mem      ports.Memory
	Clock    ports.Clock
	Board    ports.SystemReset

	// ForceIPCEnabled mirrors the compile-time "force-IPC" feature
	// gating Table.SetForcedIfEligible (spec §4.4).
	ForceIPCEnabled bool
}

// RunInline executes a syscall immediately, for whitelisted ops
// admitted inline by svc.Router (spec §4.6). It satisfies svc.Executor.
func (k *Kernel) RunInline(id task.ID, mode task.Mode) {
	k.dispatch(id, mode)
}

// RunSyscall replays a deferred syscall on the soft-IRQ task's thread
// (spec §4.7); only MAIN-mode calls are ever deferred (see
// svc.Router), so mode is always task.Main here. It satisfies
// softirq.Dispatcher.
func (k *Kernel) RunSyscall(id task.ID) {
	k.dispatch(id, task.Main)
}

// RunISR sets the target's ISR context and marks its ISR state
// runnable (spec §4.7), for a pending user-mode ISR dispatch popped
// from the soft-IRQ queue. It satisfies softirq.Dispatcher.
func (k *Kernel) RunISR(id task.ID, irq int, handler uint32) {
	rec := k.Table.Get(id)
	ctx := rec.Context(task.ISR)
	ctx.PC = handler
	ctx.R[0] = uint32(irq)
	k.Table.SetState(id, task.ISR, task.Runnable)
}

func (k *Kernel) dispatch(id task.ID, mode task.Mode) {
	rec := k.Table.Get(id)
	ctx := rec.Context(mode)

	d := svc.Dispatch(ctx.Arg(0))

	switch d {
	case svc.Yield:
		k.sysYield(id, mode)
	case svc.Sleep:
		k.sysSleep(id, mode)
	case svc.Reset:
		k.sysReset(id, mode)
	case svc.GetTick:
		k.sysGetTick(id, mode)
	case svc.Lock:
		k.sysLock(id, mode)
	case svc.Log:
		k.sysLog(id, mode)
	case svc.GetRandom:
		k.sysGetRandom(id, mode)
	case svc.Init:
		k.sysInit(id, mode)
	case svc.Cfg:
		k.sysCfg(id, mode)
	case svc.IPC:
		k.sysIPC(id, mode)
	default:
		k.finish(id, mode, svc.Inval)
	}
}

// finish is the shared epilogue (spec §4.8): write the return code,
// transition the caller's state in mode to RUNNABLE, and in MAIN mode
// request a reschedule. Blocking handlers bypass this and manage
// their own state transition.
func (k *Kernel) finish(id task.ID, mode task.Mode, ret svc.Return) {
	rec := k.Table.Get(id)
	rec.Context(mode).SetReturn(uint32(ret))
	k.Table.SetState(id, mode, task.Runnable)

	if mode == task.Main {
		k.Sched.RequestSchedule()
	}
}
