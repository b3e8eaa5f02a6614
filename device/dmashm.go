// https://github.com/usbarmory/ewok-kernel
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package device

import "github.com/usbarmory/ewok-kernel/task"

// DeclareDMASHM installs a DMA-SHM window into the target (consumer)
// task's table (spec §3, §4.5: "DMA-SHM declarations are copied into
// the target task's table; the granting task is the initiator, the
// target is the consumer"), gated by dmashmGranted(initiator, target).
// claims tracks every window declared so far across every task, so a
// second declaration can never alias memory already handed out to a
// different consumer.
func DeclareDMASHM(target *task.Record, initiator task.ID, granted bool, ctrl, stream int, access task.Access, start uint32, size int, claims *RangeSet) error {
	if target.InitDone {
		return ErrDenied
	}
	if !granted {
		return ErrDenied
	}
	if start+uint32(size) < start {
		return ErrInval
	}
	if !claims.Claim(start, size) {
		return ErrDenied
	}

	ok := target.AddDMASHM(task.DMASHMEntry{
		Initiator:  initiator,
		Controller: ctrl,
		Stream:     stream,
		Access:     access,
		Start:      start,
		Size:       size,
	})
	if !ok {
		claims.Release(start)
		return ErrBusy
	}

	return nil
}
