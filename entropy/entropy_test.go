// https://github.com/usbarmory/ewok-kernel
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package entropy

import "testing"

type fixedNoise struct {
	fail bool
}

func (f fixedNoise) Read(b []byte) (int, error) {
	if f.fail {
		return 0, nil
	}
	for i := range b {
		b[i] = byte(i)
	}
	return len(b), nil
}

func TestGetRandomDataFillsBuffer(t *testing.T) {
	s := New(fixedNoise{})

	buf := make([]byte, 16)
	if !s.GetRandomData(buf) {
		t.Fatal("expected GetRandomData to succeed")
	}

	allZero := true
	for _, b := range buf {
		if b != 0 {
			allZero = false
		}
	}
	if allZero {
		t.Fatal("expected non-zero random output")
	}
}

func TestGetRandomDataReportsBusyOnFailedReseed(t *testing.T) {
	s := New(fixedNoise{fail: true})

	if s.GetRandomData(make([]byte, 16)) {
		t.Fatal("expected BUSY (false) when the initial seed draw failed")
	}
}

func TestGetRandomDataReseedsAfterBudget(t *testing.T) {
	s := New(fixedNoise{})

	for i := 0; i < MaxDrawsBeforeReseed; i++ {
		if !s.GetRandomData(make([]byte, 4)) {
			t.Fatalf("draw %d: unexpected BUSY before budget exhausted", i)
		}
	}

	if !s.GetRandomData(make([]byte, 4)) {
		t.Fatal("expected reseed to succeed and draw to continue")
	}
	if s.draws != 1 {
		t.Fatalf("draws after reseed = %d, want 1", s.draws)
	}
}

func TestLCGFallbackProducesData(t *testing.T) {
	buf := make([]byte, 8)
	n, err := LCGFallback.Read(buf)
	if err != nil || n != len(buf) {
		t.Fatalf("LCGFallback.Read = %d, %v", n, err)
	}
}
