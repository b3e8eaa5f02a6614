// https://github.com/usbarmory/ewok-kernel
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package task

import "fmt"

// State is the per-mode task state. A task carries one State per Mode
// (spec §3).
type State int

const (
	Empty State = iota
	Runnable
	Forced
	SvcBlocked
	ISRDone
	Idle
	Sleeping
	SleepingDeep
	Fault
	Finished
	IPCSendBlocked
	IPCRecvBlocked
	IPCWaitAck
	Locked
)

var stateNames = [...]string{
	Empty:          "EMPTY",
	Runnable:       "RUNNABLE",
	Forced:         "FORCED",
	SvcBlocked:     "SVC_BLOCKED",
	ISRDone:        "ISR_DONE",
	Idle:           "IDLE",
	Sleeping:       "SLEEPING",
	SleepingDeep:   "SLEEPING_DEEP",
	Fault:          "FAULT",
	Finished:       "FINISHED",
	IPCSendBlocked: "IPC_SEND_BLOCKED",
	IPCRecvBlocked: "IPC_RECV_BLOCKED",
	IPCWaitAck:     "IPC_WAIT_ACK",
	Locked:         "LOCKED",
}

func (s State) String() string {
	if int(s) >= 0 && int(s) < len(stateNames) && stateNames[s] != "" {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether s is a state from which a task's MAIN
// context never resumes.
func (s State) Terminal() bool {
	return s == Fault || s == Finished
}

// Blocked reports whether s is a non-runnable, suspended state (spec
// §5 suspension points).
func (s State) Blocked() bool {
	switch s {
	case SvcBlocked, IPCSendBlocked, IPCRecvBlocked, IPCWaitAck,
		Sleeping, SleepingDeep, Locked, Idle:
		return true
	}
	return s.Terminal()
}
