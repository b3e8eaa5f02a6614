// https://github.com/usbarmory/ewok-kernel
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package svc

// synchronousWhitelist is the set of syscalls admissible in ISR mode
// and, when the "wise repartition" build flag is set, executed inline
// in handler mode for every caller (spec §4.6).
var synchronousWhitelist = map[Dispatch]bool{
	Yield:   true,
	GetTick: true,
	Reset:   true,
	Sleep:   true,
	Lock:    true,
}

// synchronousCfgWhitelist is the subset of Cfg sub-ops admissible in
// ISR mode (spec §4.6).
var synchronousCfgWhitelist = map[CfgSubOp]bool{
	CfgGPIOGet:        true,
	CfgGPIOSet:        true,
	CfgGPIOUnlockEXTI: true,
	CfgDMAReload:      true,
	CfgDMAReconf:      true,
	CfgDMADisable:     true,
	CfgDevMap:         true,
	CfgDevUnmap:       true,
}

// Whitelisted reports whether dispatch (with subOp meaningful only for
// Cfg) is on the synchronous whitelist.
func Whitelisted(d Dispatch, subOp uint32) bool {
	if d == Cfg {
		return synchronousCfgWhitelist[CfgSubOp(subOp)]
	}
	return synchronousWhitelist[d]
}
