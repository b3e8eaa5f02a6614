// https://github.com/usbarmory/ewok-kernel
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package sanitize decides whether a user-supplied address range lies
// inside the caller's RAM, code/rodata, any-slot or DMA-shared region
// (spec §4.2). Every syscall that reads or writes user memory routes
// through here before dereference. All arithmetic is overflow-checked;
// userspace-supplied layout is never trusted.
package sanitize

import "github.com/usbarmory/ewok-kernel/task"

// inRange reports whether [ptr, ptr+size) lies fully within
// [start, end), rejecting a wrapping sum and (for data pointers)
// rejecting size == 0.
func inRange(ptr, size, start, end uint32, allowZero bool) bool {
	if size == 0 && !allowZero {
		return false
	}

	sum := ptr + size
	if sum < ptr {
		// overflow
		return false
	}

	return ptr >= start && sum <= end
}

// InRAMSlot reports whether [ptr, ptr+size) lies fully within t's RAM
// slot. The ISR mode shares the same RAM region as MAIN (spec §4.2:
// "no separate ISR stack region"); mode is accepted for symmetry with
// the other checks but does not change the bounds.
func InRAMSlot(ptr, size uint32, t *task.Record, mode task.Mode) bool {
	return inRange(ptr, size, t.RAMStart, t.RAMEnd, false)
}

// InRAMSlotScalar is InRAMSlot for a fixed-size scalar read, which
// accepts size == 0 (spec §4.2: "Size 0 is rejected for data-pointer
// checks but accepted for scalar-pointer checks").
func InRAMSlotScalar(ptr, size uint32, t *task.Record, mode task.Mode) bool {
	return inRange(ptr, size, t.RAMStart, t.RAMEnd, true)
}

// InTextSlot reports whether [ptr, ptr+size) lies fully within t's
// code+rodata extent.
func InTextSlot(ptr, size uint32, t *task.Record) bool {
	return inRange(ptr, size, t.CodeStart, t.CodeEnd, false)
}

// InAnySlot is the union of InRAMSlot and InTextSlot: used for sender
// payloads, which may legally point at read-only code/rodata (spec
// §4.9: "sender's payload may additionally reside in code/rodata").
func InAnySlot(ptr, size uint32, t *task.Record, mode task.Mode) bool {
	return InRAMSlot(ptr, size, t, mode) || InTextSlot(ptr, size, t)
}

// InDMASHM reports whether [ptr, ptr+size) lies inside one of t's
// declared DMA-SHM windows and the requested access is a subset of
// that window's granted access.
func InDMASHM(ptr, size uint32, access task.Access, t *task.Record) bool {
	if size == 0 {
		return false
	}

	sum := ptr + size
	if sum < ptr {
		return false
	}

	for _, w := range t.DMASHM {
		if !w.Used {
			continue
		}

		wEnd := w.Start + uint32(w.Size)
		if wEnd < w.Start {
			continue
		}

		if ptr >= w.Start && sum <= wEnd && w.Access.Allows(access) {
			return true
		}
	}

	return false
}
