// https://github.com/usbarmory/ewok-kernel
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build linux

package main

import (
	"os"

	"golang.org/x/sys/unix"
)

// rawStdin puts stdin into raw mode (no echo, no line buffering, no
// signal keys), the way the real board's UART delivers bytes; nothing
// in the simulator reads stdin. restore must be called before the
// process exits.
func rawStdin() (restore func(), err error) {
	fd := int(os.Stdin.Fd())

	saved, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return nil, err
	}

	raw := *saved
	raw.Lflag &^= unix.ECHO | unix.ICANON | unix.ISIG
	raw.Iflag &^= unix.IXON | unix.ICRNL
	raw.Cc[unix.VMIN] = 1
	raw.Cc[unix.VTIME] = 0

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, &raw); err != nil {
		return nil, err
	}

	return func() {
		unix.IoctlSetTermios(fd, unix.TCSETS, saved)
	}, nil
}
