// https://github.com/usbarmory/ewok-kernel
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package device

import (
	"testing"

	"github.com/usbarmory/ewok-kernel/perm"
	"github.com/usbarmory/ewok-kernel/task"
)

func testCatalogue() Catalogue {
	return Catalogue{
		"uart1": {Name: "uart1", Base: 0x1000, Size: 0x100},
		"dcp":   {Name: "dcp", Base: 0x2000, Size: 0x100, Requires: []perm.Permission{perm.DevCryptoFull}},
	}
}

func testOracle(resources uint32) *perm.Oracle {
	var tab perm.Table
	tab.Resources[task.App1] = resources
	return perm.New(&tab)
}

func TestRegisterSucceedsAndEnablesAutoDevices(t *testing.T) {
	pool := NewPool()
	owner := &task.Record{ID: task.App1}
	oracle := testOracle(0)

	slot, err := Register(pool, testCatalogue(), nil, owner, oracle, UserDescriptor{
		Name: "uart1", Base: 0x1000, Size: 0x100, Mode: AUTO,
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if owner.NumDevices != 1 || owner.Devices[0] != slot {
		t.Fatalf("owner device table not updated: %+v", owner)
	}

	EnableAutoForTask(pool, owner)

	if pool.Get(slot).State != Enabled {
		t.Fatalf("state = %v, want Enabled", pool.Get(slot).State)
	}
	if NumMapped(pool, owner) != 1 {
		t.Fatalf("NumMapped = %d, want 1", NumMapped(pool, owner))
	}
}

func TestRegisterDeniedWithoutRequiredPermission(t *testing.T) {
	pool := NewPool()
	owner := &task.Record{ID: task.App1}
	oracle := testOracle(0)

	_, err := Register(pool, testCatalogue(), nil, owner, oracle, UserDescriptor{
		Name: "dcp", Base: 0x2000, Size: 0x100,
	})
	if err != ErrDenied {
		t.Fatalf("err = %v, want ErrDenied", err)
	}
	if owner.NumDevices != 0 {
		t.Fatalf("owner device table mutated on failed register: %+v", owner)
	}
}

func TestRegisterRejectsMismatchedBaseSize(t *testing.T) {
	pool := NewPool()
	owner := &task.Record{ID: task.App1}
	oracle := testOracle(0)

	_, err := Register(pool, testCatalogue(), nil, owner, oracle, UserDescriptor{
		Name: "uart1", Base: 0x1234, Size: 0x100,
	})
	if err != ErrInval {
		t.Fatalf("err = %v, want ErrInval", err)
	}
}

func TestRegisterAfterInitDoneDenied(t *testing.T) {
	pool := NewPool()
	owner := &task.Record{ID: task.App1, InitDone: true}
	oracle := testOracle(0)

	_, err := Register(pool, testCatalogue(), nil, owner, oracle, UserDescriptor{
		Name: "uart1", Base: 0x1000, Size: 0x100,
	})
	if err != ErrDenied {
		t.Fatalf("err = %v, want ErrDenied", err)
	}
}

func TestEnableLocksEXTIGPIOs(t *testing.T) {
	pool := NewPool()
	owner := &task.Record{ID: task.App1}
	oracle := testOracle(0)

	slot, err := Register(pool, testCatalogue(), nil, owner, oracle, UserDescriptor{
		Name: "uart1", Base: 0x1000, Size: 0x100,
		GPIOs: []GPIO{{Port: 1, Pin: 2, Trigger: true}},
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	Enable(pool.Get(slot))

	if !pool.Get(slot).GPIOs[0].Locked {
		t.Fatal("EXTI-triggering GPIO should be locked once enabled")
	}
}
