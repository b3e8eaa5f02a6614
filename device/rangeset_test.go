// https://github.com/usbarmory/ewok-kernel
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package device

import (
	"testing"

	"github.com/usbarmory/ewok-kernel/task"
)

func TestRangeSetRejectsOverlap(t *testing.T) {
	s := NewRangeSet()

	if !s.Claim(0x1000, 0x100) {
		t.Fatal("first claim should succeed")
	}
	if s.Claim(0x1080, 0x100) {
		t.Fatal("overlapping claim should be rejected")
	}
	if !s.Claim(0x1100, 0x100) {
		t.Fatal("adjacent, non-overlapping claim should succeed")
	}
}

func TestRangeSetReleaseFreesRange(t *testing.T) {
	s := NewRangeSet()
	s.Claim(0x1000, 0x100)

	s.Release(0x1000)

	if !s.Claim(0x1000, 0x100) {
		t.Fatal("claim after release should succeed")
	}
}

func TestDeclareDMASHMRejectsAliasingWindow(t *testing.T) {
	claims := NewRangeSet()

	target1 := &task.Record{}
	target2 := &task.Record{}

	if err := DeclareDMASHM(target1, task.App1, true, 0, 0, task.ReadWrite, 0x4000, 0x200, claims); err != nil {
		t.Fatalf("first declare: %v", err)
	}
	if err := DeclareDMASHM(target2, task.App2, true, 0, 1, task.ReadWrite, 0x4100, 0x200, claims); err != ErrDenied {
		t.Fatalf("aliasing declare err = %v, want ErrDenied", err)
	}
}
