// https://github.com/usbarmory/ewok-kernel
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package perm implements the permission oracle: pure predicates over
// the static per-image permission table (spec §4.1). Nothing here has
// side effects or touches the task table.
package perm

import "github.com/usbarmory/ewok-kernel/task"

// Table is the static, build-time permission table: two pairwise
// matrices and one resource register per task-id. It is wholly baked
// into the image (spec §3) and never mutated at runtime.
type Table struct {
	IPC       [task.Max][task.Max]bool
	DMASHM    [task.Max][task.Max]bool
	Resources [task.Max]uint32

	// DomainOf and HasDomain back SameDomain when domain enforcement
	// is compiled in. A task without an entry is domain-less.
	DomainOf  [task.Max]int
	HasDomain [task.Max]bool

	// EnforceDomains gates SameDomain; when false every pair is
	// considered same-domain (the feature is compiled out).
	EnforceDomains bool
}

// Oracle is the permission table bound to its query methods. It holds
// no other state.
type Oracle struct {
	t *Table
}

// New wraps a static Table as an Oracle.
func New(t *Table) *Oracle {
	return &Oracle{t: t}
}

// IPCGranted reports whether from may send to to. ANY_APP is not a
// valid argument here; callers resolve the wildcard themselves before
// calling (spec §4.1).
func (o *Oracle) IPCGranted(from, to task.ID) bool {
	if from == task.AnyApp || to == task.AnyApp {
		return false
	}
	if !from.Valid() || !to.Valid() {
		return false
	}
	return o.t.IPC[from][to]
}

// DMASHMGranted reports whether from may declare a DMA-SHM window
// hosted by to. The target's right to host is implied by a true
// result; there is no separate host-side check.
func (o *Oracle) DMASHMGranted(from, to task.ID) bool {
	if from == task.AnyApp || to == task.AnyApp {
		return false
	}
	if !from.Valid() || !to.Valid() {
		return false
	}
	return o.t.DMASHM[from][to]
}

// ResourceGranted reports whether task holds permission p, per the
// bit/field layout documented in bits.go. An unrecognised permission
// always returns false.
func (o *Oracle) ResourceGranted(p Permission, id task.ID) bool {
	if !id.Valid() {
		return false
	}
	return resourceGranted(o.t.Resources[id], p)
}

// SameDomain reports whether a and b share a security domain. Either
// side being ANY_APP is always a match; when domain enforcement is
// not compiled in, every pair matches.
func (o *Oracle) SameDomain(a, b task.ID) bool {
	if !o.t.EnforceDomains {
		return true
	}
	if a == task.AnyApp || b == task.AnyApp {
		return true
	}
	if !a.Valid() || !b.Valid() {
		return false
	}
	if !o.t.HasDomain[a] || !o.t.HasDomain[b] {
		return true
	}
	return o.t.DomainOf[a] == o.t.DomainOf[b]
}
