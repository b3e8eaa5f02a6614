// https://github.com/usbarmory/ewok-kernel
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package task

// Kind distinguishes the privileged kernel tasks (idle, soft-IRQ) from
// user application tasks.
type Kind int

const (
	KernelTask Kind = iota
	UserTask
)

// MaxDevices, MaxDMAChannels and MaxDMASHM are the per-task resource
// caps named in spec §3.
const (
	MaxDevices     = 8
	MaxDMAChannels = 8
	MaxDMASHM      = 4

	// NoSlot marks an unused device/DMA table entry.
	NoSlot = -1
)

// Context is a saved register frame, one per Mode. Context switching
// itself is the scheduler's concern (out of scope, spec §1); the
// kernel only reads/writes the syscall argument and return-value
// registers of the frame belonging to the mode currently in a
// supervisor call.
type Context struct {
	R    [13]uint32
	SP   uint32
	LR   uint32
	PC   uint32
	CPSR uint32
}

// Arg returns argument register n (r0 is the dispatch number, r1 the
// sub-op, r2+ further arguments — spec §6).
func (c *Context) Arg(n int) uint32 {
	if n < 0 || n >= len(c.R) {
		return 0
	}
	return c.R[n]
}

// SetReturn writes the syscall return code into r0.
func (c *Context) SetReturn(v uint32) {
	c.R[0] = v
}

// DMASHMEntry is a DMA-SHM record living inside the target (consumer)
// task's table (spec §3, §4.5).
type DMASHMEntry struct {
	Used       bool
	Initiator  ID
	Controller int
	Stream     int
	Access     Access
	Start      uint32
	Size       int
}

// Access is a RO/RW access mode, used both for DMA-SHM windows and for
// the DMA access requested by a transfer.
type Access int

const (
	ReadOnly Access = iota
	ReadWrite
)

// Allows reports whether a requested access is a subset of the window
// access granted (RW windows allow RO requests too).
func (granted Access) Allows(requested Access) bool {
	if granted == ReadWrite {
		return true
	}
	return requested == ReadOnly
}

// EndpointRef is a per-peer reference into the IPC endpoint pool. The
// pool is referenced by index, never by pointer, to avoid aliasing
// between the task table and the endpoint pool (spec §9).
type EndpointRef struct {
	Index int
	Valid bool
}

// Record is a single task's entry in the task table. Slots are never
// moved or freed; Unused kind/id marks an empty slot logically, but
// the authoritative liveness check is a MAIN state other than Empty
// (Table.Install sets it to Runnable).
type Record struct {
	Name  string
	Entry uintptr
	Kind  Kind
	ID    ID

	// CurrentMode is which saved Context is live in hardware right
	// now; State/Context are still tracked per-Mode independently.
	CurrentMode Mode

	MPUSlot      int
	MPUSlotCount int

	Priority int

	HasDomain bool
	Domain    int

	Devices    [MaxDevices]int
	NumDevices int

	DMAChannels    [MaxDMAChannels]int
	NumDMAChannels int

	DMASHM [MaxDMASHM]DMASHMEntry

	InitDone bool

	RAMStart, RAMEnd   uint32
	CodeStart, CodeEnd uint32

	StackTop, StackBottom uint32
	StackSize             int

	state   [2]State
	context [2]Context

	// Endpoints is indexed by peer task-id; it is the inbound
	// reference table described in spec §3/§4.3/§4.9.
	Endpoints [Max]EndpointRef
}

func newEmptyRecord() *Record {
	r := &Record{
		ID:   Unused,
		Kind: KernelTask,
	}
	for i := range r.Devices {
		r.Devices[i] = NoSlot
	}
	for i := range r.DMAChannels {
		r.DMAChannels[i] = NoSlot
	}
	r.state[Main] = Empty
	r.state[ISR] = Idle
	return r
}

// State returns the task's state in the given mode.
func (r *Record) State(mode Mode) State {
	return r.state[mode]
}

// Context returns a pointer to the task's saved register frame for
// the given mode, for in-place mutation by syscall handlers.
func (r *Record) Context(mode Mode) *Context {
	return &r.context[mode]
}

// AddDevice appends a kernel device slot index to the task's device
// table. Returns false if the per-task cap (MaxDevices) is reached.
func (r *Record) AddDevice(slot int) bool {
	if r.NumDevices >= MaxDevices {
		return false
	}
	r.Devices[r.NumDevices] = slot
	r.NumDevices++
	return true
}

// RemoveLastDevice undoes the most recent AddDevice, used to roll
// back a failed registration (spec §4.5 step 5).
func (r *Record) RemoveLastDevice() {
	if r.NumDevices == 0 {
		return
	}
	r.NumDevices--
	r.Devices[r.NumDevices] = NoSlot
}

// AddDMAChannel is the DMA-table analogue of AddDevice.
func (r *Record) AddDMAChannel(slot int) bool {
	if r.NumDMAChannels >= MaxDMAChannels {
		return false
	}
	r.DMAChannels[r.NumDMAChannels] = slot
	r.NumDMAChannels++
	return true
}

// RemoveLastDMAChannel is the DMA-table analogue of RemoveLastDevice.
func (r *Record) RemoveLastDMAChannel() {
	if r.NumDMAChannels == 0 {
		return
	}
	r.NumDMAChannels--
	r.DMAChannels[r.NumDMAChannels] = NoSlot
}

// AddDMASHM installs a DMA-SHM window in the first free slot. Returns
// false if MaxDMASHM is reached.
func (r *Record) AddDMASHM(e DMASHMEntry) bool {
	for i := range r.DMASHM {
		if !r.DMASHM[i].Used {
			e.Used = true
			r.DMASHM[i] = e
			return true
		}
	}
	return false
}

// InRAM reports whether [ptr, ptr+size) lies fully within the task's
// RAM slot, rejecting pointer-arithmetic overflow.
func (r *Record) InRAM(ptr uint32, size uint32) bool {
	end := ptr + size
	if end < ptr {
		return false
	}
	return ptr >= r.RAMStart && end <= r.RAMEnd
}

// InCode reports whether [ptr, ptr+size) lies fully within the task's
// code+rodata extent.
func (r *Record) InCode(ptr uint32, size uint32) bool {
	end := ptr + size
	if end < ptr {
		return false
	}
	return ptr >= r.CodeStart && end <= r.CodeEnd
}
