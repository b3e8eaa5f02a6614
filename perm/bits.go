// https://github.com/usbarmory/ewok-kernel
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package perm

import "github.com/usbarmory/ewok-kernel/bits"

// Permission names the recognised resource-register checks (spec
// §4.1). Any value outside this set is rejected by ResourceGranted.
type Permission int

const (
	DevDMA Permission = iota
	DevCryptoUsr
	DevCryptoCfg
	DevCryptoFull
	DevBuses
	DevEXTI
	DevTIM
	TimGetMilli
	TimGetMicro
	TimGetCycle
	TskForceISR
	TskForceIPC
	TskReset
	TskUpgrade
	TskRNG
	MemDynamicMap
)

// Resource register bit layout. CRYPTO is a 2-bit exclusive-level
// field; every other recognised permission is a single bit.
const (
	bitDevDMA       = 0
	posDevCrypto    = 1
	maskDevCrypto   = 0x3
	bitDevBuses     = 3
	bitDevEXTI      = 4
	bitDevTIM       = 5
	bitTimGetMilli  = 6
	bitTimGetMicro  = 7
	bitTskForceISR  = 8
	bitTskForceIPC  = 9
	bitTskReset     = 10
	bitTskUpgrade   = 11
	bitMemDynMap    = 12
	bitTskRNG       = 13
	cryptoLevelUsr  = 1
	cryptoLevelCfg  = 2
	cryptoLevelFull = 3
)

// resourceGranted extracts the bit/field named by p from reg and
// compares it to the expected pattern. Unrecognised permissions
// return false.
func resourceGranted(reg uint32, p Permission) bool {
	switch p {
	case DevDMA:
		return bits.Get(&reg, bitDevDMA)
	case DevCryptoUsr:
		return bits.GetN(&reg, posDevCrypto, maskDevCrypto) == cryptoLevelUsr
	case DevCryptoCfg:
		return bits.GetN(&reg, posDevCrypto, maskDevCrypto) == cryptoLevelCfg
	case DevCryptoFull:
		return bits.GetN(&reg, posDevCrypto, maskDevCrypto) == cryptoLevelFull
	case DevBuses:
		return bits.Get(&reg, bitDevBuses)
	case DevEXTI:
		return bits.Get(&reg, bitDevEXTI)
	case DevTIM:
		return bits.Get(&reg, bitDevTIM)
	case TimGetMilli:
		return bits.Get(&reg, bitTimGetMilli)
	case TimGetMicro:
		return bits.Get(&reg, bitTimGetMicro)
	case TimGetCycle:
		return bits.Get(&reg, bitTimGetMilli) && bits.Get(&reg, bitTimGetMicro)
	case TskForceISR:
		return bits.Get(&reg, bitTskForceISR)
	case TskForceIPC:
		return bits.Get(&reg, bitTskForceIPC)
	case TskReset:
		return bits.Get(&reg, bitTskReset)
	case TskUpgrade:
		return bits.Get(&reg, bitTskUpgrade)
	case TskRNG:
		return bits.Get(&reg, bitTskRNG)
	case MemDynamicMap:
		return bits.Get(&reg, bitMemDynMap)
	default:
		return false
	}
}
