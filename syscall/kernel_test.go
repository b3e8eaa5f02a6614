// https://github.com/usbarmory/ewok-kernel
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package syscall

import (
	"encoding/binary"
	"testing"

	"github.com/usbarmory/ewok-kernel/device"
	"github.com/usbarmory/ewok-kernel/internal/simboard"
	"github.com/usbarmory/ewok-kernel/ipc"
	"github.com/usbarmory/ewok-kernel/perm"
	"github.com/usbarmory/ewok-kernel/softirq"
	"github.com/usbarmory/ewok-kernel/svc"
	"github.com/usbarmory/ewok-kernel/task"
)

func testKernel(t *testing.T) *Kernel {
	t.Helper()

	tab := task.NewTable()
	tab.Install(task.App1, &task.Record{
		Name:     "app1",
		RAMStart: 0x1000,
		RAMEnd:   0x2000,
	})
	tab.Install(task.App2, &task.Record{
		Name:     "app2",
		RAMStart: 0x4000,
		RAMEnd:   0x5000,
	})
	tab.Install(task.SoftIRQ, &task.Record{})

	var ptab perm.Table
	ptab.Resources[task.App1] = 0xffff
	ptab.IPC[task.App1][task.App2] = true
	ptab.IPC[task.App2][task.App1] = true

	return &Kernel{
		Table:     tab,
		Endpoints: ipc.NewPool(),
		Oracle:    perm.New(&ptab),
		Devices:   device.NewPool(),
		DMAs:      device.NewDMAPool(),
		DMAClaims: device.NewRangeSet(),
		Catalogue: device.Catalogue{},
		Queue:     softirq.NewQueue(),

		Sched:   simboard.NewScheduler(),
		Sleep:   simboard.NewSleep(),
		GPIO:    simboard.NewGPIO(),
		DMADrv:  simboard.NewDMA(),
		MPU:     simboard.MPU{Regions: 8},
		Entropy: &simboard.Entropy{},
		Debug:   &simboard.Debug{},
		Mem:     simboard.NewMemory(1 << 16),
		Clock:   &simboard.Clock{Milli: 42},
		Board:   &simboard.Board{},
	}
}

func dispatchCtx(k *Kernel, id task.ID, mode task.Mode) *task.Context {
	return k.Table.Get(id).Context(mode)
}

func TestSysYieldReturnsDoneAndRequestsSchedule(t *testing.T) {
	k := testKernel(t)
	ctx := dispatchCtx(k, task.App1, task.Main)
	ctx.R[0] = uint32(svc.Yield)

	k.RunInline(task.App1, task.Main)

	if svc.Return(ctx.Arg(0)) != svc.Done {
		t.Fatalf("return = %v, want Done", svc.Return(ctx.Arg(0)))
	}
	if k.Table.State(task.App1, task.Main) != task.Runnable {
		t.Fatalf("state = %v, want Runnable", k.Table.State(task.App1, task.Main))
	}
}

func TestSysGetTickMilli(t *testing.T) {
	k := testKernel(t)
	ctx := dispatchCtx(k, task.App1, task.Main)
	ctx.R[0] = uint32(svc.GetTick)
	ctx.R[1] = 0x1000 // outptr
	ctx.R[2] = uint32(TickMilli)

	k.RunInline(task.App1, task.Main)

	if svc.Return(ctx.Arg(0)) != svc.Done {
		t.Fatalf("return = %v, want Done", svc.Return(ctx.Arg(0)))
	}

	buf := make([]byte, 8)
	k.Mem.Read(0x1000, buf)
	var got uint64
	for i := 7; i >= 0; i-- {
		got = got<<8 | uint64(buf[i])
	}
	if got != 42 {
		t.Fatalf("tick value = %d, want 42", got)
	}
}

func TestSysGetTickDeniedWithoutPermission(t *testing.T) {
	k := testKernel(t)
	k.Oracle = perm.New(&perm.Table{}) // no resources granted

	ctx := dispatchCtx(k, task.App1, task.Main)
	ctx.R[0] = uint32(svc.GetTick)
	ctx.R[1] = 0x1000
	ctx.R[2] = uint32(TickMilli)

	k.RunInline(task.App1, task.Main)

	if svc.Return(ctx.Arg(0)) != svc.Denied {
		t.Fatalf("return = %v, want Denied", svc.Return(ctx.Arg(0)))
	}
}

func TestSysGetTickRejectsOutOfSlotPointer(t *testing.T) {
	k := testKernel(t)
	ctx := dispatchCtx(k, task.App1, task.Main)
	ctx.R[0] = uint32(svc.GetTick)
	ctx.R[1] = 0x9000 // outside App1's RAM slot
	ctx.R[2] = uint32(TickMilli)

	k.RunInline(task.App1, task.Main)

	if svc.Return(ctx.Arg(0)) != svc.Inval {
		t.Fatalf("return = %v, want Inval", svc.Return(ctx.Arg(0)))
	}
}

func TestSysLogEmitsLine(t *testing.T) {
	k := testKernel(t)
	k.Mem.Write(0x1000, []byte("hi"))

	ctx := dispatchCtx(k, task.App1, task.Main)
	ctx.R[0] = uint32(svc.Log)
	ctx.R[1] = 2
	ctx.R[2] = 0x1000

	k.RunInline(task.App1, task.Main)

	dbg := k.Debug.(*simboard.Debug)
	if len(dbg.Lines) != 1 || dbg.Lines[0] != "[app1] hi" {
		t.Fatalf("lines = %v", dbg.Lines)
	}
}

func TestSysGetRandomRequiresInitDone(t *testing.T) {
	k := testKernel(t)
	ctx := dispatchCtx(k, task.App1, task.Main)
	ctx.R[0] = uint32(svc.GetRandom)
	ctx.R[1] = 0x1000
	ctx.R[2] = 4

	k.RunInline(task.App1, task.Main)

	if svc.Return(ctx.Arg(0)) != svc.Denied {
		t.Fatalf("return = %v, want Denied", svc.Return(ctx.Arg(0)))
	}
}

func TestSysGetRandomSucceedsAfterInit(t *testing.T) {
	k := testKernel(t)
	k.Table.Get(task.App1).InitDone = true

	ctx := dispatchCtx(k, task.App1, task.Main)
	ctx.R[0] = uint32(svc.GetRandom)
	ctx.R[1] = 0x1000
	ctx.R[2] = 4

	k.RunInline(task.App1, task.Main)

	if svc.Return(ctx.Arg(0)) != svc.Done {
		t.Fatalf("return = %v, want Done", svc.Return(ctx.Arg(0)))
	}
}

func TestSysResetDeniedWithoutPermission(t *testing.T) {
	k := testKernel(t)
	k.Oracle = perm.New(&perm.Table{})

	ctx := dispatchCtx(k, task.App1, task.Main)
	ctx.R[0] = uint32(svc.Reset)

	k.RunInline(task.App1, task.Main)

	if svc.Return(ctx.Arg(0)) != svc.Denied {
		t.Fatalf("return = %v, want Denied", svc.Return(ctx.Arg(0)))
	}
	if k.Board.(*simboard.Board).Resets != 0 {
		t.Fatal("board should not have been reset")
	}
}

func TestSysResetGrantedCallsBoard(t *testing.T) {
	k := testKernel(t)

	ctx := dispatchCtx(k, task.App1, task.Main)
	ctx.R[0] = uint32(svc.Reset)

	defer func() {
		if recover() == nil {
			t.Fatal("expected simboard.Board.Reset to panic, simulating a non-returning reset")
		}
		if k.Board.(*simboard.Board).Resets != 1 {
			t.Fatal("board reset count should be 1")
		}
	}()

	k.RunInline(task.App1, task.Main)
}

// IPC send/recv end to end: App1 sends synchronously to App2, which is
// already blocked in a receive; App2's receive is re-queued and
// completes when the soft-IRQ queue is drained, and App2 gets the
// message.
func TestIPCSendToBlockedReceiverDeliversOnSoftIRQDrain(t *testing.T) {
	k := testKernel(t)
	k.Table.Get(task.App1).InitDone = true
	k.Table.Get(task.App2).InitDone = true

	// App2 blocks in a synchronous receive from App1 first. idSenderPtr
	// and sizePtr name in/out scalar slots in App2's own RAM: in with
	// the wanted sender and buffer capacity, out with the actual
	// sender and message length once a message arrives.
	const idSenderPtr, sizePtr, dstBuf = 0x4100, 0x4104, 0x4200

	putU32(k, idSenderPtr, uint32(task.App1))
	putU32(k, sizePtr, 5)

	recvCtx := dispatchCtx(k, task.App2, task.Main)
	recvCtx.R[0] = uint32(svc.IPC)
	recvCtx.R[1] = uint32(svc.IPCRecvSync)
	recvCtx.R[2] = idSenderPtr
	recvCtx.R[3] = sizePtr
	recvCtx.R[4] = dstBuf

	k.RunInline(task.App2, task.Main)
	if k.Table.State(task.App2, task.Main) != task.IPCRecvBlocked {
		t.Fatalf("App2 state = %v, want IPCRecvBlocked", k.Table.State(task.App2, task.Main))
	}

	k.Mem.Write(0x1000, []byte("howdy"))

	sendCtx := dispatchCtx(k, task.App1, task.Main)
	sendCtx.R[0] = uint32(svc.IPC)
	sendCtx.R[1] = uint32(svc.IPCSendSync)
	sendCtx.R[2] = uint32(task.App2)
	sendCtx.R[3] = 5
	sendCtx.R[4] = 0x1000

	k.RunInline(task.App1, task.Main)
	k.Queue.Drain(k)

	if k.Table.State(task.App2, task.Main) != task.Runnable {
		t.Fatalf("App2 state after delivery = %v, want Runnable", k.Table.State(task.App2, task.Main))
	}

	got := make([]byte, 5)
	k.Mem.Read(dstBuf, got)
	if string(got) != "howdy" {
		t.Fatalf("delivered payload = %q, want %q", got, "howdy")
	}
}

func TestSysSleepSetsDeepOrNormalState(t *testing.T) {
	k := testKernel(t)
	ctx := dispatchCtx(k, task.App1, task.Main)
	ctx.R[0] = uint32(svc.Sleep)
	ctx.R[1] = 1000
	ctx.R[2] = uint32(SleepDeep)

	k.RunInline(task.App1, task.Main)

	if svc.Return(ctx.Arg(0)) != svc.Done {
		t.Fatalf("return = %v, want Done", svc.Return(ctx.Arg(0)))
	}
	if k.Table.State(task.App1, task.Main) != task.SleepingDeep {
		t.Fatalf("state = %v, want SleepingDeep", k.Table.State(task.App1, task.Main))
	}

	sleep := k.Sleep.(*simboard.Sleep)
	if !sleep.IsSleeping(task.App1) {
		t.Fatal("expected the board sleep driver to record App1 as sleeping")
	}
}

func TestSysSleepDeniedInISRMode(t *testing.T) {
	k := testKernel(t)
	ctx := dispatchCtx(k, task.App1, task.ISR)
	ctx.R[0] = uint32(svc.Sleep)

	k.RunInline(task.App1, task.ISR)

	if svc.Return(ctx.Arg(0)) != svc.Denied {
		t.Fatalf("return = %v, want Denied", svc.Return(ctx.Arg(0)))
	}
}

func TestSysLockEnterIsIdempotent(t *testing.T) {
	k := testKernel(t)
	ctx := dispatchCtx(k, task.App1, task.Main)
	ctx.R[0] = uint32(svc.Lock)
	ctx.R[1] = uint32(LockEnter)

	k.RunInline(task.App1, task.Main)

	if svc.Return(ctx.Arg(0)) != svc.Done {
		t.Fatalf("return = %v, want Done", svc.Return(ctx.Arg(0)))
	}
	if k.Table.State(task.App1, task.Main) != task.Locked {
		t.Fatalf("state = %v, want Locked", k.Table.State(task.App1, task.Main))
	}

	// Entering again while already LOCKED must not disturb the state.
	ctx.R[0] = uint32(svc.Lock)
	ctx.R[1] = uint32(LockEnter)
	k.RunInline(task.App1, task.Main)

	if svc.Return(ctx.Arg(0)) != svc.Done {
		t.Fatalf("second enter return = %v, want Done", svc.Return(ctx.Arg(0)))
	}
	if k.Table.State(task.App1, task.Main) != task.Locked {
		t.Fatalf("state after second enter = %v, want Locked", k.Table.State(task.App1, task.Main))
	}
}

func TestSysLockExitWithoutLockIsInval(t *testing.T) {
	k := testKernel(t)
	ctx := dispatchCtx(k, task.App1, task.Main)
	ctx.R[0] = uint32(svc.Lock)
	ctx.R[1] = uint32(LockExit)

	k.RunInline(task.App1, task.Main)

	if svc.Return(ctx.Arg(0)) != svc.Inval {
		t.Fatalf("return = %v, want Inval", svc.Return(ctx.Arg(0)))
	}
}

func TestSysLockExitAfterEnterReturnsDone(t *testing.T) {
	k := testKernel(t)
	k.Table.SetState(task.App1, task.Main, task.Locked)

	ctx := dispatchCtx(k, task.App1, task.Main)
	ctx.R[0] = uint32(svc.Lock)
	ctx.R[1] = uint32(LockExit)

	k.RunInline(task.App1, task.Main)

	if svc.Return(ctx.Arg(0)) != svc.Done {
		t.Fatalf("return = %v, want Done", svc.Return(ctx.Arg(0)))
	}
	if k.Table.State(task.App1, task.Main) != task.Runnable {
		t.Fatalf("state = %v, want Runnable", k.Table.State(task.App1, task.Main))
	}
}

// Device registration round trip: INIT_DEVACCESS registers an AUTO
// uart1, INIT_DONE enables it, and CFG_DEV_UNMAP then un-maps it.
func TestInitDevAccessThenInitDoneEnablesDevice(t *testing.T) {
	k := testKernel(t)
	k.Catalogue = device.Catalogue{
		"uart1": {Name: "uart1", Base: 0x3000, Size: 0x100},
	}

	descBuf := make([]byte, device.DescriptorWireSize)
	copy(descBuf, "uart1")
	binary.LittleEndian.PutUint32(descBuf[16:], 0x3000) // Base
	binary.LittleEndian.PutUint32(descBuf[20:], 0x100)  // Size
	const udesc, outdesc = 0x1100, 0x1200
	k.Mem.Write(udesc, descBuf)

	ctx := dispatchCtx(k, task.App1, task.Main)
	ctx.R[0] = uint32(svc.Init)
	ctx.R[1] = uint32(svc.InitDevAccess)
	ctx.R[2] = udesc
	ctx.R[3] = outdesc

	k.RunInline(task.App1, task.Main)

	if svc.Return(ctx.Arg(0)) != svc.Done {
		t.Fatalf("INIT_DEVACCESS return = %v, want Done", svc.Return(ctx.Arg(0)))
	}

	slotBuf := make([]byte, 4)
	k.Mem.Read(outdesc, slotBuf)
	slot := binary.LittleEndian.Uint32(slotBuf)

	ctx.R[0] = uint32(svc.Init)
	ctx.R[1] = uint32(svc.InitDone)
	k.RunInline(task.App1, task.Main)

	if svc.Return(ctx.Arg(0)) != svc.Done {
		t.Fatalf("INIT_DONE return = %v, want Done", svc.Return(ctx.Arg(0)))
	}
	if !k.Table.Get(task.App1).InitDone {
		t.Fatal("expected InitDone to be latched")
	}
	if device.NumMapped(k.Devices, k.Table.Get(task.App1)) != 1 {
		t.Fatalf("NumMapped = %d, want 1 (AUTO device enabled by INIT_DONE)", device.NumMapped(k.Devices, k.Table.Get(task.App1)))
	}

	ctx.R[0] = uint32(svc.Cfg)
	ctx.R[1] = uint32(svc.CfgDevUnmap)
	ctx.R[2] = slot

	k.RunInline(task.App1, task.Main)

	if svc.Return(ctx.Arg(0)) != svc.Done {
		t.Fatalf("CFG_DEV_UNMAP return = %v, want Done", svc.Return(ctx.Arg(0)))
	}
	if device.NumMapped(k.Devices, k.Table.Get(task.App1)) != 0 {
		t.Fatal("expected device to be unmapped")
	}
}

// TestInitDMASHMDeniedAfterInitiatorOwnInitDone covers spec §8 invariant
// 4 (init_done monotonicity): once the caller's own init_done is
// latched, every INIT_* sub-op except DONE must be denied for that
// caller, regardless of the target task's own init_done state.
func TestInitDMASHMDeniedAfterInitiatorOwnInitDone(t *testing.T) {
	k := testKernel(t)

	var ptab perm.Table
	ptab.Resources[task.App1] = 0xffff
	ptab.DMASHM[task.App1][task.App2] = true
	k.Oracle = perm.New(&ptab)

	ctx := dispatchCtx(k, task.App1, task.Main)
	ctx.R[0] = uint32(svc.Init)
	ctx.R[1] = uint32(svc.InitDone)
	k.RunInline(task.App1, task.Main)

	if svc.Return(ctx.Arg(0)) != svc.Done {
		t.Fatalf("INIT_DONE return = %v, want Done", svc.Return(ctx.Arg(0)))
	}
	if !k.Table.Get(task.App1).InitDone {
		t.Fatal("expected InitDone to be latched")
	}

	shmBuf := make([]byte, device.DMASHMWireSize)
	binary.LittleEndian.PutUint32(shmBuf[0:], uint32(task.App2))
	binary.LittleEndian.PutUint32(shmBuf[16:], 0x4000)
	binary.LittleEndian.PutUint32(shmBuf[20:], 0x100)
	const ushm = 0x1100
	k.Mem.Write(ushm, shmBuf)

	ctx.R[0] = uint32(svc.Init)
	ctx.R[1] = uint32(svc.InitDMASHM)
	ctx.R[2] = ushm

	k.RunInline(task.App1, task.Main)

	if svc.Return(ctx.Arg(0)) != svc.Denied {
		t.Fatalf("INIT_DMA_SHM after own INIT_DONE return = %v, want Denied (caller's own init_done must gate every INIT_* sub-op but DONE)", svc.Return(ctx.Arg(0)))
	}
}

// TestInitDoneEnablesOnlyCallersDMAChannels covers the per-task scoping
// of DMA-channel enablement at INIT_DONE: one task reaching its own
// INIT_DONE must not arm a sibling task's still-Registered channel.
func TestInitDoneEnablesOnlyCallersDMAChannels(t *testing.T) {
	k := testKernel(t)

	var ptab perm.Table
	ptab.Resources[task.App1] = 0xffff
	ptab.Resources[task.App2] = 1 << 0 // DevDMA only
	k.Oracle = perm.New(&ptab)

	registerDMA := func(id task.ID, udma, outdesc uint32, ctrl int) uint32 {
		dmaBuf := make([]byte, device.DMAWireSize)
		binary.LittleEndian.PutUint32(dmaBuf[0:], uint32(ctrl))
		binary.LittleEndian.PutUint32(dmaBuf[4:], 0) // stream
		binary.LittleEndian.PutUint32(dmaBuf[8:], uint32(task.DMAToDevice))
		binary.LittleEndian.PutUint32(dmaBuf[16:], 0x100)
		binary.LittleEndian.PutUint32(dmaBuf[20:], 0x10)
		k.Mem.Write(udma, dmaBuf)

		ctx := dispatchCtx(k, id, task.Main)
		ctx.R[0] = uint32(svc.Init)
		ctx.R[1] = uint32(svc.InitDMA)
		ctx.R[2] = udma
		ctx.R[3] = outdesc

		k.RunInline(id, task.Main)

		if svc.Return(ctx.Arg(0)) != svc.Done {
			t.Fatalf("INIT_DMA for %v return = %v, want Done", id, svc.Return(ctx.Arg(0)))
		}

		slotBuf := make([]byte, 4)
		k.Mem.Read(outdesc, slotBuf)
		return uint32(k.Table.Get(id).DMAChannels[binary.LittleEndian.Uint32(slotBuf)])
	}

	app1Slot := registerDMA(task.App1, 0x1100, 0x1200, 0)
	app2Slot := registerDMA(task.App2, 0x4100, 0x4200, 1)

	ctx := dispatchCtx(k, task.App1, task.Main)
	ctx.R[0] = uint32(svc.Init)
	ctx.R[1] = uint32(svc.InitDone)
	k.RunInline(task.App1, task.Main)

	if svc.Return(ctx.Arg(0)) != svc.Done {
		t.Fatalf("INIT_DONE for app1 return = %v, want Done", svc.Return(ctx.Arg(0)))
	}

	if got := k.DMAs.Get(int(app1Slot)).State; got != device.Enabled {
		t.Fatalf("app1's own DMA channel state = %v, want Enabled", got)
	}
	if got := k.DMAs.Get(int(app2Slot)).State; got != device.Registered {
		t.Fatalf("app2's DMA channel state = %v, want Registered (app2 has not reached its own INIT_DONE)", got)
	}
}

// TestCfgDMAReconfRejectsDirectionChange covers the RECONF direction-
// immutability rule: size/address deltas are allowed, a delta that
// changes direction is rejected outright.
func TestCfgDMAReconfRejectsDirectionChange(t *testing.T) {
	k := testKernel(t)

	dmaBuf := make([]byte, device.DMAWireSize)
	binary.LittleEndian.PutUint32(dmaBuf[0:], 0) // controller
	binary.LittleEndian.PutUint32(dmaBuf[4:], 0) // stream
	binary.LittleEndian.PutUint32(dmaBuf[8:], uint32(task.DMAToDevice))
	binary.LittleEndian.PutUint32(dmaBuf[16:], 0x100)
	binary.LittleEndian.PutUint32(dmaBuf[20:], 0x10)
	const udma, outdesc = 0x1100, 0x1200
	k.Mem.Write(udma, dmaBuf)

	ctx := dispatchCtx(k, task.App1, task.Main)
	ctx.R[0] = uint32(svc.Init)
	ctx.R[1] = uint32(svc.InitDMA)
	ctx.R[2] = udma
	ctx.R[3] = outdesc
	k.RunInline(task.App1, task.Main)

	if svc.Return(ctx.Arg(0)) != svc.Done {
		t.Fatalf("INIT_DMA return = %v, want Done", svc.Return(ctx.Arg(0)))
	}

	slotBuf := make([]byte, 4)
	k.Mem.Read(outdesc, slotBuf)
	descriptor := binary.LittleEndian.Uint32(slotBuf)

	ctx.R[0] = uint32(svc.Init)
	ctx.R[1] = uint32(svc.InitDone)
	k.RunInline(task.App1, task.Main)

	if svc.Return(ctx.Arg(0)) != svc.Done {
		t.Fatalf("INIT_DONE return = %v, want Done", svc.Return(ctx.Arg(0)))
	}

	ctx.R[0] = uint32(svc.Cfg)
	ctx.R[1] = uint32(svc.CfgDMAReconf)
	ctx.R[2] = descriptor
	ctx.R[3] = 0 // controller
	ctx.R[4] = 0 // stream
	ctx.R[5] = uint32(task.DMAFromDevice)
	ctx.R[6] = 0x100
	ctx.R[7] = 0x20

	k.RunInline(task.App1, task.Main)

	if svc.Return(ctx.Arg(0)) != svc.Inval {
		t.Fatalf("CFG_DMA_RECONF with changed direction return = %v, want Inval", svc.Return(ctx.Arg(0)))
	}

	ctx.R[0] = uint32(svc.Cfg)
	ctx.R[1] = uint32(svc.CfgDMAReconf)
	ctx.R[2] = descriptor
	ctx.R[3] = 0 // controller
	ctx.R[4] = 0 // stream
	ctx.R[5] = uint32(task.DMAToDevice)
	ctx.R[6] = 0x100
	ctx.R[7] = 0x20

	k.RunInline(task.App1, task.Main)

	if svc.Return(ctx.Arg(0)) != svc.Done {
		t.Fatalf("CFG_DMA_RECONF with same direction return = %v, want Done", svc.Return(ctx.Arg(0)))
	}
}

func putU32(k *Kernel, addr uint32, v uint32) {
	buf := make([]byte, 4)
	buf[0] = byte(v)
	buf[1] = byte(v >> 8)
	buf[2] = byte(v >> 16)
	buf[3] = byte(v >> 24)
	k.Mem.Write(addr, buf)
}
