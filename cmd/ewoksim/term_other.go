// https://github.com/usbarmory/ewok-kernel
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build !linux

package main

import "errors"

// rawStdin is unsupported outside Linux hosts; the simulator falls
// back to line-buffered input.
func rawStdin() (restore func(), err error) {
	return nil, errors.New("ewoksim: raw terminal mode unsupported on this host")
}
