// https://github.com/usbarmory/ewok-kernel
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package svc

import (
	"testing"

	"github.com/usbarmory/ewok-kernel/softirq"
	"github.com/usbarmory/ewok-kernel/task"
)

type fakeScheduler struct{ requests int }

func (s *fakeScheduler) RequestSchedule() { s.requests++ }
func (s *fakeScheduler) Current() task.ID { return task.App1 }

type fakeExecutor struct{ ran []task.ID }

func (e *fakeExecutor) RunInline(id task.ID, mode task.Mode) { e.ran = append(e.ran, id) }

func newRouter(wise bool) (*Router, *fakeScheduler, *fakeExecutor) {
	tab := task.NewTable()
	tab.Install(task.App1, &task.Record{})
	tab.Install(task.SoftIRQ, &task.Record{})

	sched := &fakeScheduler{}
	r := &Router{
		Table:           tab,
		Queue:           softirq.NewQueue(),
		Sched:           sched,
		WiseRepartition: wise,
	}
	return r, sched, &fakeExecutor{}
}

func setDispatch(r *Router, id task.ID, mode task.Mode, d Dispatch, sub uint32) {
	ctx := r.Table.Get(id).Context(mode)
	ctx.R[0] = uint32(d)
	ctx.R[1] = sub
}

func TestFaultTransitionsToFaultState(t *testing.T) {
	r, sched, exec := newRouter(false)

	r.Enter(task.App1, task.Main, 99, false, exec)

	if got := r.Table.State(task.App1, task.Main); got != task.Fault {
		t.Fatalf("state = %v, want Fault", got)
	}
	if sched.requests != 1 {
		t.Fatalf("requests = %d, want 1", sched.requests)
	}
}

func TestMainReturnFinishesTask(t *testing.T) {
	r, _, exec := newRouter(false)

	r.Enter(task.App1, task.Main, 1, false, exec)

	if got := r.Table.State(task.App1, task.Main); got != task.Finished {
		t.Fatalf("state = %v, want Finished", got)
	}
}

func TestNonWhitelistedSyscallIsDeferred(t *testing.T) {
	r, _, exec := newRouter(false)
	setDispatch(r, task.App1, task.Main, IPC, uint32(IPCSendSync))

	r.Enter(task.App1, task.Main, 0, false, exec)

	if len(exec.ran) != 0 {
		t.Fatal("non-whitelisted syscall should not run inline")
	}
	if got := r.Table.State(task.App1, task.Main); got != task.SvcBlocked {
		t.Fatalf("state = %v, want SvcBlocked", got)
	}
	if r.Queue.Len() != 1 {
		t.Fatalf("queue length = %d, want 1", r.Queue.Len())
	}
}

func TestWhitelistedSyscallRunsInlineWhenWiseRepartitionSet(t *testing.T) {
	r, _, exec := newRouter(true)
	setDispatch(r, task.App1, task.Main, Yield, 0)

	r.Enter(task.App1, task.Main, 0, false, exec)

	if len(exec.ran) != 1 || exec.ran[0] != task.App1 {
		t.Fatalf("ran = %v, want [App1]", exec.ran)
	}
	if r.Queue.Len() != 0 {
		t.Fatal("whitelisted inline syscall should not enqueue")
	}
}

func TestISRModeAlwaysRunsWhitelistedInline(t *testing.T) {
	r, _, exec := newRouter(false)
	setDispatch(r, task.App1, task.ISR, Yield, 0)

	r.Enter(task.App1, task.ISR, 0, false, exec)

	if len(exec.ran) != 1 {
		t.Fatal("ISR-mode whitelisted syscall should run inline regardless of WiseRepartition")
	}
}

func TestISRModeNonWhitelistedSyscallDenied(t *testing.T) {
	r, _, exec := newRouter(false)
	setDispatch(r, task.App1, task.ISR, IPC, uint32(IPCSendSync))

	r.Enter(task.App1, task.ISR, 0, false, exec)

	if len(exec.ran) != 0 {
		t.Fatal("ISR-mode non-whitelisted syscall should not run")
	}
	ctx := r.Table.Get(task.App1).Context(task.ISR)
	if Return(ctx.Arg(0)) != Denied {
		t.Fatalf("return = %v, want Denied", Return(ctx.Arg(0)))
	}
}
