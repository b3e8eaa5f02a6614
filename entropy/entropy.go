// https://github.com/usbarmory/ewok-kernel
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package entropy implements the get_random syscall's hardware
// boundary (spec §4.8, ports.EntropySource): an AES-CTR deterministic
// bit generator reseeded from a hardware noise source through HKDF,
// adapted from the board support package's DRBG.
package entropy

import (
	"crypto/sha256"
	"sync"

	"golang.org/x/crypto/hkdf"

	"github.com/usbarmory/ewok-kernel/internal/rng"
)

// MaxDrawsBeforeReseed bounds how many get_random calls a seed serves
// before the source must reseed from hardware noise; a reseed
// failure at that point is what get_random's BUSY return reports
// (spec §4.8: "Returns BUSY if the entropy source declines").
const MaxDrawsBeforeReseed = 4096

// NoiseSource supplies raw hardware entropy to reseed the DRBG, such as
// a TRNG peripheral. It may return less than len(b) bytes of noise; a
// short read is treated as a failed reseed.
type NoiseSource interface {
	Read(b []byte) (n int, err error)
}

// Source is the get_random hardware boundary (ports.EntropySource): an
// AES-CTR DRBG reseeded periodically from a NoiseSource via HKDF-SHA256.
type Source struct {
	mu sync.Mutex

	noise  NoiseSource
	drbg   rng.DRBG
	draws  int
	seeded bool
}

// New returns a Source backed by noise, seeded immediately. If the
// initial seed draw fails, the returned Source always reports BUSY
// until a later reseed succeeds.
func New(noise NoiseSource) *Source {
	s := &Source{noise: noise}
	s.reseed()
	return s
}

func (s *Source) reseed() bool {
	raw := make([]byte, 32)
	n, err := s.noise.Read(raw)
	if err != nil || n != len(raw) {
		return false
	}

	kdf := hkdf.New(sha256.New, raw, nil, []byte("ewok-kernel get_random"))
	if _, err := kdf.Read(s.drbg.Seed[:]); err != nil {
		return false
	}

	s.draws = 0
	s.seeded = true
	return true
}

// GetRandomData implements ports.EntropySource. It reseeds once the
// draw budget is exhausted, or immediately if no seed has ever
// succeeded, and reports false (BUSY) if that reseed fails, leaving
// buf untouched.
func (s *Source) GetRandomData(buf []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.seeded || s.draws >= MaxDrawsBeforeReseed {
		if !s.reseed() {
			return false
		}
	}

	s.drbg.GetRandomData(buf)
	s.draws++

	return true
}

// lcgNoise is a NoiseSource fallback for boards without a dedicated
// TRNG, adapted from the runtime's early-boot LCG entropy path. It is
// not cryptographically strong and is meant only as a last-resort
// seed source.
type lcgNoise struct{}

func (lcgNoise) Read(b []byte) (int, error) {
	rng.GetLCGData(b)
	return len(b), nil
}

// LCGFallback is the degraded NoiseSource used when no hardware TRNG
// is wired (see board bring-up in cmd/ewoksim for the simulator case).
var LCGFallback NoiseSource = lcgNoise{}
