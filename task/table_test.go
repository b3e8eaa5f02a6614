// https://github.com/usbarmory/ewok-kernel
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package task

import "testing"

func TestInstallAndGet(t *testing.T) {
	tab := NewTable()
	tab.Install(App1, &Record{Name: "one"})

	r := tab.Get(App1)
	if r == nil || r.Name != "one" {
		t.Fatalf("Get(App1) = %+v", r)
	}
	if r.state[Main] != Runnable {
		t.Fatalf("installed record main state = %v, want Runnable", r.state[Main])
	}
}

func TestInstallTwiceOnSameSlotPanics(t *testing.T) {
	tab := NewTable()
	tab.Install(App1, &Record{})

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on double install")
		}
	}()
	tab.Install(App1, &Record{})
}

func TestSetStateLegalTransition(t *testing.T) {
	tab := NewTable()
	tab.Install(App1, &Record{})

	tab.SetState(App1, Main, SvcBlocked)
	if got := tab.State(App1, Main); got != SvcBlocked {
		t.Fatalf("state = %v, want SvcBlocked", got)
	}
}

func TestSetStateIllegalTransitionPanics(t *testing.T) {
	tab := NewTable()
	tab.Install(App1, &Record{})

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on illegal transition")
		}
	}()
	// Runnable -> Idle is not a legal MAIN edge.
	tab.SetState(App1, Main, Idle)
}

// A deferred syscall handler runs with the caller still parked in
// SvcBlocked from the router (svc.Router.defer_), so every blocking
// outcome a handler can produce must be a legal SvcBlocked-origin
// edge, not only a Runnable-origin one.
func TestSvcBlockedAdmitsDeferredBlockingOutcomes(t *testing.T) {
	outcomes := []State{
		IPCSendBlocked, IPCRecvBlocked, IPCWaitAck, Locked, Sleeping, SleepingDeep,
	}

	for _, next := range outcomes {
		tab := NewTable()
		tab.Install(App1, &Record{})
		tab.SetState(App1, Main, SvcBlocked)

		tab.SetState(App1, Main, next)
		if got := tab.State(App1, Main); got != next {
			t.Errorf("SvcBlocked -> %v: got %v", next, got)
		}
	}
}

func TestSetRunnableIfBlockedNoOpWhenNotBlocked(t *testing.T) {
	tab := NewTable()
	tab.Install(App1, &Record{})
	tab.SetState(App1, Main, IPCSendBlocked)

	tab.SetRunnableIfBlocked(App1)
	if got := tab.State(App1, Main); got != IPCSendBlocked {
		t.Fatalf("state changed to %v, want unchanged IPCSendBlocked", got)
	}
}

func TestSetRunnableIfBlockedFromSvcBlocked(t *testing.T) {
	tab := NewTable()
	tab.Install(App1, &Record{})
	tab.SetState(App1, Main, SvcBlocked)

	tab.SetRunnableIfBlocked(App1)
	if got := tab.State(App1, Main); got != Runnable {
		t.Fatalf("state = %v, want Runnable", got)
	}
}

func TestISRTransitions(t *testing.T) {
	tab := NewTable()
	tab.Install(App1, &Record{})

	tab.SetState(App1, ISR, Runnable)
	tab.SetState(App1, ISR, ISRDone)
	tab.SetState(App1, ISR, Idle)

	if got := tab.State(App1, ISR); got != Idle {
		t.Fatalf("isr state = %v, want Idle", got)
	}
}
