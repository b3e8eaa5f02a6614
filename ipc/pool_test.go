// https://github.com/usbarmory/ewok-kernel
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package ipc

import (
	"testing"

	"github.com/usbarmory/ewok-kernel/task"
)

func TestAcquireExhaustsPool(t *testing.T) {
	p := NewPool()

	for i := 0; i < MaxEndpoints; i++ {
		if idx := p.Acquire(); idx < 0 {
			t.Fatalf("acquire %d: pool exhausted early", i)
		}
	}

	if idx := p.Acquire(); idx != -1 {
		t.Fatalf("acquire on exhausted pool = %d, want -1", idx)
	}
}

func TestReleaseFreesSlot(t *testing.T) {
	p := NewPool()
	idx := p.Acquire()

	p.Release(idx)

	if p.Get(idx).State() != Free {
		t.Fatalf("released endpoint state = %v, want Free", p.Get(idx).State())
	}
}

func TestFillThenDrainRoundTrip(t *testing.T) {
	p := NewPool()
	idx := p.Acquire()
	e := p.Get(idx)

	msg := []byte("hello")
	e.Fill(task.App1, task.App2, msg)

	if e.State() != WaitForReceiver {
		t.Fatalf("state after Fill = %v, want WaitForReceiver", e.State())
	}

	dst := make([]byte, 5)
	n, from := e.Drain(dst)

	if n != len(msg) || string(dst) != "hello" {
		t.Fatalf("Drain = %d %q, want 5 %q", n, dst, "hello")
	}
	if from != task.App1 {
		t.Fatalf("Drain from = %v, want App1", from)
	}
	if e.State() != Ready {
		t.Fatalf("state after Drain = %v, want Ready", e.State())
	}
}

func TestDrainWithNilDestinationConsumesMessage(t *testing.T) {
	p := NewPool()
	idx := p.Acquire()
	e := p.Get(idx)
	e.Fill(task.App1, task.App2, []byte("too long for the buffer"))

	n, _ := e.Drain(nil)
	if n != 0 {
		t.Fatalf("Drain(nil) copied %d bytes, want 0", n)
	}
	if e.State() != Ready || e.Size() != 0 {
		t.Fatalf("endpoint not fully drained: state=%v size=%d", e.State(), e.Size())
	}
}

func TestFillOnNonReadyEndpointPanics(t *testing.T) {
	p := NewPool()
	idx := p.Acquire()
	e := p.Get(idx)
	e.Fill(task.App1, task.App2, []byte("x"))

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic filling a non-Ready endpoint")
		}
	}()
	e.Fill(task.App3, task.App2, []byte("y"))
}
