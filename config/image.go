// https://github.com/usbarmory/ewok-kernel
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package config holds the static, build-time per-image configuration
// named in spec §6: the task image table, the permission matrices and
// resource registers, and the SoC device catalogue. None of it is
// parsed from a file; like the board bring-up packages it is
// expressed directly as Go data, fixed at compile time.
package config

import (
	"github.com/usbarmory/ewok-kernel/device"
	"github.com/usbarmory/ewok-kernel/perm"
	"github.com/usbarmory/ewok-kernel/task"
)

// Slot geometry for the seven application tasks. A real image computes
// these from the linker script; the simulator and tests use a flat
// synthetic layout, one megabyte of RAM and one of code per task.
const (
	slotRAMSize  = 1 << 20
	slotCodeSize = 1 << 20
	ramBase      = 0x10000000
	codeBase     = 0x08000000
)

func ramSlot(n int) (start, end uint32) {
	start = ramBase + uint32(n)*slotRAMSize
	return start, start + slotRAMSize
}

func codeSlot(n int) (start, end uint32) {
	start = codeBase + uint32(n)*slotCodeSize
	return start, start + slotCodeSize
}

// appNames is App1..App7's static image names, matched case-
// insensitively by init(GETTASKID) (spec §4.8).
var appNames = [task.AppMax]string{
	"console", "storage", "crypto", "network", "sensor", "display", "updater",
}

// Tasks builds the static per-image task table and installs it into a
// fresh task.Table.
func Tasks() *task.Table {
	t := task.NewTable()

	for i := 0; i < task.AppMax; i++ {
		id := task.App1 + task.ID(i)

		ramStart, ramEnd := ramSlot(i)
		codeStart, codeEnd := codeSlot(i)

		rec := &task.Record{
			Name:         appNames[i],
			Kind:         task.UserTask,
			Priority:     1,
			RAMStart:     ramStart,
			RAMEnd:       ramEnd,
			CodeStart:    codeStart,
			CodeEnd:      codeEnd,
			StackTop:     ramEnd,
			StackBottom:  ramEnd - 4096,
			StackSize:    4096,
			MPUSlotCount: 4,
		}

		t.Install(id, rec)
	}

	return t
}

// Permissions builds the static IPC/DMASHM matrices and resource
// registers. The image below grants a representative, non-trivial
// topology: console may send to every app and log; storage and crypto
// may exchange DMA-SHM; updater holds TSK_RESET and TSK_UPGRADE.
func Permissions() *perm.Oracle {
	var tab perm.Table

	// console (App1) -> everyone, for notifications/logging fan-out.
	for peer := task.App2; peer <= task.ID(task.App1)+task.AppMax-1; peer++ {
		tab.IPC[task.App1][peer] = true
	}

	// storage (App2) <-> crypto (App3): request/response pairing.
	tab.IPC[task.App2][task.App3] = true
	tab.IPC[task.App3][task.App2] = true
	tab.DMASHM[task.App2][task.App3] = true

	// network (App4) -> storage, sensor (App5) -> network: simple
	// producer chains representative of the rest of the image.
	tab.IPC[task.App4][task.App2] = true
	tab.IPC[task.App5][task.App4] = true

	// Resource registers: console gets log/tick rights; crypto gets
	// CRYPTO_FULL and DMA; storage gets DMA; updater gets reset/upgrade.
	tab.Resources[task.App1] = bit(bitTimGetMilli) | bit(bitTimGetMicro)
	tab.Resources[task.App2] = bit(bitDevDMA)
	tab.Resources[task.App3] = bit(bitDevDMA) | (cryptoFull << posDevCrypto)
	tab.Resources[task.App4] = bit(bitDevBuses)
	tab.Resources[task.App5] = bit(bitDevEXTI) | bit(bitDevTIM)
	tab.Resources[task.App6] = bit(bitTimGetMilli)
	tab.Resources[task.App7] = bit(bitTskReset) | bit(bitTskUpgrade) | bit(bitTskRNG)

	return perm.New(&tab)
}

// Bit positions mirror perm/bits.go; kept here (rather than exported
// from perm) because only the static image needs to pack them, and
// perm's own API works in terms of named Permission values, not raw
// bit positions.
const (
	bitDevDMA      = 0
	posDevCrypto   = 1
	bitDevBuses    = 3
	bitDevEXTI     = 4
	bitDevTIM      = 5
	bitTimGetMilli = 6
	bitTimGetMicro = 7
	bitTskReset    = 10
	bitTskUpgrade  = 11
	bitTskRNG      = 13

	cryptoFull = 3
)

func bit(pos int) uint32 {
	return 1 << uint(pos)
}

// Devices builds the static SoC device catalogue (spec §6).
func Devices() device.Catalogue {
	return device.Catalogue{
		"gpio-bank1": {
			Name:  "gpio-bank1",
			Base:  0x0209c000,
			Size:  0x4000,
			Ports: []int{0, 1, 2, 3},
		},
		"usdhc1": {
			Name: "usdhc1",
			Base: 0x02190000,
			Size: 0x4000,
			IRQs: []int{54},
		},
		"dcp": {
			Name:     "dcp",
			Base:     0x02280000,
			Size:     0x4000,
			IRQs:     []int{49},
			Requires: []perm.Permission{perm.DevCryptoFull},
		},
		"sdma": {
			Name:     "sdma",
			Base:     0x020ec000,
			Size:     0x4000,
			IRQs:     []int{34},
			Requires: []perm.Permission{perm.DevDMA},
		},
	}
}
