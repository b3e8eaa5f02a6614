// https://github.com/usbarmory/ewok-kernel
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package bits reads individual bits and bitfields out of a resource
// register (perm/bits.go), the packed uint32 the permission oracle
// consults for every ResourceGranted check. Registers are built once
// per image by config.Permissions and never mutated at runtime, so
// only the read side is needed here.
package bits

// Get reports whether the bit at pos is set in the pointed register.
func Get(addr *uint32, pos int) bool {
	return (int(*addr)>>pos)&1 == 1
}

// GetN returns the masked field at pos in the pointed register, for
// multi-bit fields such as a crypto access level.
func GetN(addr *uint32, pos int, mask int) uint32 {
	return uint32((int(*addr) >> pos) & mask)
}
