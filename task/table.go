// https://github.com/usbarmory/ewok-kernel
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package task

import "fmt"

// Table is the single fixed-size task table (spec §3). Records are
// never moved or freed; Empty marks an unused slot.
type Table struct {
	records [Max]*Record
}

// NewTable allocates an empty table with every slot initialised to
// Empty/Idle, ready for Install.
func NewTable() *Table {
	t := &Table{}
	for id := range t.records {
		t.records[id] = newEmptyRecord()
		t.records[id].ID = ID(id)
	}
	return t
}

// Install populates slot id from the static per-image task table at
// kernel bring-up. Calling Install twice on the same id is a kernel
// bug.
func (t *Table) Install(id ID, r *Record) {
	if !id.Valid() {
		panic(fmt.Sprintf("task: invalid id %d at install", id))
	}

	if t.records[id].state[Main] != Empty {
		panic(fmt.Sprintf("task: slot %s already installed", id))
	}

	r.ID = id
	r.state[Main] = Runnable
	r.state[ISR] = Idle
	t.records[id] = r
}

// Get returns the record for id, or nil if id is out of range.
func (t *Table) Get(id ID) *Record {
	if id < 0 || int(id) >= len(t.records) {
		return nil
	}
	return t.records[id]
}

// State returns the state of id in the given mode.
func (t *Table) State(id ID, mode Mode) State {
	r := t.Get(id)
	if r == nil {
		return Empty
	}
	return r.state[mode]
}

// legalMainTransitions enumerates the MAIN-state edges of spec §4.4.
// ISR-mode transitions are simpler and checked separately in
// SetState.
var legalMainTransitions = map[State]map[State]bool{
	Runnable: {
		SvcBlocked:     true,
		Sleeping:       true,
		SleepingDeep:   true,
		IPCSendBlocked: true,
		IPCRecvBlocked: true,
		IPCWaitAck:     true,
		Locked:         true,
		Fault:          true,
		Finished:       true,
		Forced:         true,
	},
	// SvcBlocked additionally admits the blocking outcomes a deferred
	// handler can produce on the service task's thread (spec §4.4 lists
	// these as RUNNABLE-origin edges, but a deferred syscall runs with
	// the caller still parked in SVC_BLOCKED from the router).
	SvcBlocked: {
		Runnable:       true,
		Fault:          true,
		IPCSendBlocked: true,
		IPCRecvBlocked: true,
		IPCWaitAck:     true,
		Locked:         true,
		Sleeping:       true,
		SleepingDeep:   true,
	},
	Sleeping: {
		Runnable: true,
		Fault:    true,
	},
	SleepingDeep: {
		Runnable: true,
		Fault:    true,
	},
	IPCSendBlocked: {
		SvcBlocked: true,
		Runnable:   true,
		Fault:      true,
	},
	IPCRecvBlocked: {
		SvcBlocked: true,
		Runnable:   true,
		Fault:      true,
	},
	IPCWaitAck: {
		SvcBlocked: true,
		Runnable:   true,
		Fault:      true,
	},
	Locked: {
		Runnable: true,
		Fault:    true,
	},
	Forced: {
		SvcBlocked: true,
		Runnable:   true,
		Fault:      true,
	},
	Idle: {
		Runnable: true,
		Forced:   true,
		Fault:    true,
	},
}

// legalISRTransitions enumerates the ISR-mode edges of spec §4.4.
var legalISRTransitions = map[State]map[State]bool{
	Idle:     {Runnable: true},
	Runnable: {ISRDone: true, Fault: true},
	ISRDone:  {Idle: true, Runnable: true},
}

// SetState transitions id's state in mode to next, enforcing the
// legal-transition tables of spec §4.4. An illegal transition is a
// kernel-internal bug and panics (spec §7).
func (t *Table) SetState(id ID, mode Mode, next State) {
	r := t.Get(id)
	if r == nil {
		panic(fmt.Sprintf("task: SetState on invalid id %d", id))
	}

	cur := r.state[mode]
	if cur == next {
		return
	}

	table := legalMainTransitions
	if mode == ISR {
		table = legalISRTransitions
	}

	if !table[cur][next] {
		panic(fmt.Sprintf("task: illegal %s-state transition %s -> %s for %s", mode, cur, next, id))
	}

	r.state[mode] = next
}

// SetRunnableIfBlocked transitions id's MAIN state SvcBlocked->Runnable
// or Idle->Runnable only (spec §4.4), otherwise it is a no-op. Used by
// collaborators (e.g. softirq.MarkRunnable) that must not clobber an
// unrelated state.
func (t *Table) SetRunnableIfBlocked(id ID) {
	r := t.Get(id)
	if r == nil {
		return
	}

	switch r.state[Main] {
	case SvcBlocked, Idle:
		r.state[Main] = Runnable
	}
}

// SetForcedIfEligible transitions id's MAIN state Runnable/Idle->Forced
// only when the force-IPC feature is compiled in; otherwise a no-op.
func (t *Table) SetForcedIfEligible(id ID, forceEnabled bool) {
	if !forceEnabled {
		return
	}

	r := t.Get(id)
	if r == nil {
		return
	}

	switch r.state[Main] {
	case Runnable, Idle:
		r.state[Main] = Forced
	}
}
