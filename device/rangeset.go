// https://github.com/usbarmory/ewok-kernel
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package device

import "container/list"

// reservation is one claimed [start, start+size) byte range.
type reservation struct {
	start uint32
	size  uint32
}

func (r reservation) end() uint32 { return r.start + r.size }

func (r reservation) overlaps(o reservation) bool {
	return r.start < o.end() && o.start < r.end()
}

// RangeSet tracks non-overlapping address ranges claimed across every
// task's DMA-SHM declarations, so two consumers can never be handed
// windows that alias the same physical memory. Adapted from the
// first-fit DMA buffer allocator's free-list bookkeeping, trimmed down
// to interval tracking only: DMA-SHM windows name an address the
// initiator already owns (spec §4.5), they are never allocated by the
// kernel, so there is nothing here to carve blocks out of, only
// overlaps to reject.
type RangeSet struct {
	claimed *list.List
}

// NewRangeSet returns an empty set.
func NewRangeSet() *RangeSet {
	return &RangeSet{claimed: list.New()}
}

// Claim reserves [start, start+size) if it does not overlap any range
// already claimed, returning false otherwise. The caller is expected
// to have already validated start+size for overflow.
func (s *RangeSet) Claim(start uint32, size int) bool {
	cand := reservation{start: start, size: uint32(size)}

	for e := s.claimed.Front(); e != nil; e = e.Next() {
		if e.Value.(reservation).overlaps(cand) {
			return false
		}
	}

	s.claimed.PushBack(cand)
	return true
}

// Release drops the claim starting at start, if any.
func (s *RangeSet) Release(start uint32) {
	for e := s.claimed.Front(); e != nil; e = e.Next() {
		if e.Value.(reservation).start == start {
			s.claimed.Remove(e)
			return
		}
	}
}
