// https://github.com/usbarmory/ewok-kernel
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package debug

import "testing"

type fakeUART struct {
	writes [][]byte
}

func (u *fakeUART) Write(buf []byte) {
	cp := make([]byte, len(buf))
	copy(cp, buf)
	u.writes = append(u.writes, cp)
}

func TestWriteLineEmitsTextAndNewline(t *testing.T) {
	u := &fakeUART{}
	s := NewSink(u)

	s.WriteLine("hello")

	if len(u.writes) != 2 || string(u.writes[0]) != "hello" || string(u.writes[1]) != "\n" {
		t.Fatalf("writes = %v", u.writes)
	}
}

func TestWriteLineDropsOverRateBudget(t *testing.T) {
	u := &fakeUART{}
	s := NewSink(u)

	for i := 0; i < MaxLinesPerSecond+10; i++ {
		s.WriteLine("x")
	}

	if s.Dropped() == 0 {
		t.Fatal("expected some lines to be dropped once the burst budget is exceeded")
	}
}
