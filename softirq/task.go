// https://github.com/usbarmory/ewok-kernel
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package softirq

import "github.com/usbarmory/ewok-kernel/task"

// MarkRunnable makes the soft-IRQ service task eligible for election,
// called whenever a work item is appended (spec §4.6: "mark the
// soft-IRQ service task RUNNABLE").
func MarkRunnable(t *task.Table) {
	t.SetRunnableIfBlocked(task.SoftIRQ)

	if t.State(task.SoftIRQ, task.Main) == task.Idle {
		t.SetState(task.SoftIRQ, task.Main, task.Runnable)
	}
}

// Run drains the queue when the scheduler elects the soft-IRQ task
// (spec §4.7: "a plain kernel task elected by the scheduler"). It runs
// with interrupts enabled but, being single-threaded, preempts nothing
// cooperative: the whole drain completes before the task yields.
func Run(q *Queue, d Dispatcher) {
	q.Drain(d)
}
