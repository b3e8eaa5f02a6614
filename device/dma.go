// https://github.com/usbarmory/ewok-kernel
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package device

import (
	"github.com/usbarmory/ewok-kernel/ports"
	"github.com/usbarmory/ewok-kernel/task"
)

// DMAChannel is the kernel-side DMA channel record (spec §3),
// allocated into the global device-slot pool alongside device
// records, indexed by task.Record.DMAChannels.
type DMAChannel struct {
	Controller int
	Stream     int
	Direction  task.DMADirection
	Source     task.ID
	Target     task.ID
	Access     task.Access
	Length     int
	RangeStart uint32

	Owner task.ID
	State Lifecycle
}

// DMAPool is the global DMA-channel slot pool, structurally identical
// to the device-slot pool (spec §3: "up to 8" per task).
type DMAPool struct {
	slots [MaxSlots]DMAChannel
	used  [MaxSlots]bool
}

// NewDMAPool returns an empty DMA-channel slot pool.
func NewDMAPool() *DMAPool {
	return &DMAPool{}
}

// RegisterDMA validates and allocates a DMA channel for owner, gated
// by the DEV_DMA permission (spec §4.5: "init(DMA|DMA_SHM, ...) ...
// gated by DEV_DMA").
func RegisterDMA(pool *DMAPool, owner *task.Record, granted bool, ch DMAChannel) (slot int, err error) {
	if owner.InitDone {
		return -1, ErrDenied
	}
	if !granted {
		return -1, ErrDenied
	}
	if ch.RangeStart+uint32(ch.Length) < ch.RangeStart {
		return -1, ErrInval
	}
	if owner.NumDMAChannels >= task.MaxDMAChannels {
		return -1, ErrBusy
	}

	for i := range pool.used {
		if !pool.used[i] {
			pool.used[i] = true
			ch.Owner = owner.ID
			ch.State = Reserved
			pool.slots[i] = ch

			if !owner.AddDMAChannel(i) {
				pool.used[i] = false
				return -1, ErrBusy
			}

			pool.slots[i].State = Registered
			return i, nil
		}
	}

	return -1, ErrBusy
}

// Get returns the DMA channel at slot.
func (p *DMAPool) Get(slot int) *DMAChannel {
	return &p.slots[slot]
}

// EnableAllForTask enables every registered DMA channel owned by
// owner, called once at owner's own INIT_DONE (spec §4.5: "DMA
// channels are enabled at INIT_DONE"). Only the calling task's own
// channels are touched; a sibling task's channels stay Registered
// until that task reaches its own INIT_DONE.
func (p *DMAPool) EnableAllForTask(owner *task.Record, drv ports.DMAAccess) {
	for _, slot := range owner.DMAChannels[:owner.NumDMAChannels] {
		ch := p.Get(slot)
		if ch.State != Registered {
			continue
		}

		if err := drv.Init(ch.Controller, ch.Stream, ch.Direction, ch.RangeStart, ch.Length); err != nil {
			ch.State = RegFail
			continue
		}
		if err := drv.Enable(ch.Controller, ch.Stream); err != nil {
			ch.State = RegFail
			continue
		}
		ch.State = Enabled
	}
}

// Reconfigure applies a delta to an already-registered channel; the
// controller/channel/stream triple must match the original
// registration (spec §4.8: "reconf requires the ctrl/channel/stream
// to match the originally registered triple"), and direction is fixed
// at registration — a reconf that tries to change it is rejected
// outright, only size/address deltas are ever allowed.
func Reconfigure(drv ports.DMAAccess, ch *DMAChannel, ctrl, stream int, dir task.DMADirection, addr uint32, size int) error {
	if ch.Controller != ctrl || ch.Stream != stream {
		return ErrInval
	}
	if ch.Direction != dir {
		return ErrInval
	}
	if addr+uint32(size) < addr {
		return ErrInval
	}

	if err := drv.Reconfigure(ctrl, stream, addr, size); err != nil {
		return ErrInval
	}

	ch.RangeStart = addr
	ch.Length = size

	return nil
}

// Reload and Disable are single-bit stream operations (spec §4.8).
func Reload(drv ports.DMAAccess, ch *DMAChannel) error {
	if err := drv.Reload(ch.Controller, ch.Stream); err != nil {
		return ErrInval
	}
	return nil
}

func Disable(drv ports.DMAAccess, ch *DMAChannel) error {
	if err := drv.Disable(ch.Controller, ch.Stream); err != nil {
		return ErrInval
	}
	ch.State = Registered
	return nil
}
