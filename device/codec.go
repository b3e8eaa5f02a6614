// https://github.com/usbarmory/ewok-kernel
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package device

import (
	"encoding/binary"

	"github.com/usbarmory/ewok-kernel/ports"
)

// Wire layout of the user-supplied device descriptor (spec §3): a
// fixed-size record so init(DEVACCESS) can decode it with a single
// bounded read, never trusting a user-declared length.
const (
	nameLen = 16

	gpioWireSize = 4 // port, pin, trigger, pad
	irqWireSize  = 8 // number (u32), handler (u32)

	// DescriptorWireSize is the total byte length of the wire encoding:
	// name, base, size, mode+flags+pad, region mask, gpio/irq counts,
	// then the fixed GPIO and IRQ arrays.
	DescriptorWireSize = nameLen + 4 + 4 + 4 + 4 + 4 + MaxGPIOs*gpioWireSize + MaxIRQs*irqWireSize
)

// DecodeUserDescriptor parses the fixed-size wire encoding of a device
// descriptor out of buf (already copied in from the caller's sanitised
// RAM range).
func DecodeUserDescriptor(buf []byte) UserDescriptor {
	var d UserDescriptor

	off := 0
	nameEnd := off + nameLen
	raw := buf[off:nameEnd]
	n := 0
	for n < len(raw) && raw[n] != 0 {
		n++
	}
	d.Name = string(raw[:n])
	off = nameEnd

	d.Base = binary.LittleEndian.Uint32(buf[off:])
	off += 4
	d.Size = binary.LittleEndian.Uint32(buf[off:])
	off += 4

	flags := binary.LittleEndian.Uint32(buf[off:])
	off += 4
	d.Mode = MapMode(flags & 0x1)
	d.ReadOnly = flags&0x2 != 0
	d.RAMBacked = flags&0x4 != 0

	d.RegionMask = binary.LittleEndian.Uint32(buf[off:])
	off += 4

	counts := binary.LittleEndian.Uint32(buf[off:])
	off += 4
	numGPIOs := int(counts & 0xff)
	numIRQs := int((counts >> 8) & 0xff)
	if numGPIOs > MaxGPIOs {
		numGPIOs = MaxGPIOs
	}
	if numIRQs > MaxIRQs {
		numIRQs = MaxIRQs
	}

	gpioBase := off
	for i := 0; i < numGPIOs; i++ {
		b := buf[gpioBase+i*gpioWireSize:]
		d.GPIOs = append(d.GPIOs, GPIO{
			Port:    int(b[0]),
			Pin:     int(b[1]),
			Trigger: b[2] != 0,
		})
	}
	off = gpioBase + MaxGPIOs*gpioWireSize

	irqBase := off
	for i := 0; i < numIRQs; i++ {
		b := buf[irqBase+i*irqWireSize:]
		d.IRQs = append(d.IRQs, IRQ{
			Number:  int(binary.LittleEndian.Uint32(b)),
			Handler: binary.LittleEndian.Uint32(b[4:]),
		})
	}

	return d
}

// ReadUserDescriptor reads and decodes a descriptor from mem at ptr,
// which must already have been sanitised by the caller.
func ReadUserDescriptor(mem ports.Memory, ptr uint32) UserDescriptor {
	buf := make([]byte, DescriptorWireSize)
	mem.Read(ptr, buf)
	return DecodeUserDescriptor(buf)
}

// DMAWireSize is the byte length of the user-supplied DMA descriptor:
// controller, stream, direction, access, range start, length.
const DMAWireSize = 4 * 6

// UserDMADescriptor is the decoded wire form of a DMA registration
// request (spec §3: "Controller+stream identifiers, direction ...
// access mode, length, and memory range").
type UserDMADescriptor struct {
	Controller int
	Stream     int
	Direction  uint32
	Access     uint32
	Start      uint32
	Length     int
}

// ReadUserDMADescriptor reads and decodes a DMA descriptor from mem at
// ptr, which must already have been sanitised by the caller.
func ReadUserDMADescriptor(mem ports.Memory, ptr uint32) UserDMADescriptor {
	buf := make([]byte, DMAWireSize)
	mem.Read(ptr, buf)

	return UserDMADescriptor{
		Controller: int(binary.LittleEndian.Uint32(buf[0:])),
		Stream:     int(binary.LittleEndian.Uint32(buf[4:])),
		Direction:  binary.LittleEndian.Uint32(buf[8:]),
		Access:     binary.LittleEndian.Uint32(buf[12:]),
		Start:      binary.LittleEndian.Uint32(buf[16:]),
		Length:     int(binary.LittleEndian.Uint32(buf[20:])),
	}
}

// DMASHMWireSize is the byte length of the user-supplied DMA-SHM
// descriptor: target task-id, controller, stream, access, start,
// length.
const DMASHMWireSize = 4 * 6

// UserDMASHMDescriptor is the decoded wire form of a DMA-SHM
// declaration request (spec §3, §4.5).
type UserDMASHMDescriptor struct {
	Target     uint32
	Controller int
	Stream     int
	Access     uint32
	Start      uint32
	Length     int
}

// ReadUserDMASHMDescriptor reads and decodes a DMA-SHM descriptor from
// mem at ptr, which must already have been sanitised by the caller.
func ReadUserDMASHMDescriptor(mem ports.Memory, ptr uint32) UserDMASHMDescriptor {
	buf := make([]byte, DMASHMWireSize)
	mem.Read(ptr, buf)

	return UserDMASHMDescriptor{
		Target:     binary.LittleEndian.Uint32(buf[0:]),
		Controller: int(binary.LittleEndian.Uint32(buf[4:])),
		Stream:     int(binary.LittleEndian.Uint32(buf[8:])),
		Access:     binary.LittleEndian.Uint32(buf[12:]),
		Start:      binary.LittleEndian.Uint32(buf[16:]),
		Length:     int(binary.LittleEndian.Uint32(buf[20:])),
	}
}
