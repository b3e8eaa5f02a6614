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

	"github.com/usbarmory/ewok-kernel/ipc"
	"github.com/usbarmory/ewok-kernel/sanitize"
	"github.com/usbarmory/ewok-kernel/svc"
	"github.com/usbarmory/ewok-kernel/task"
)

// sysIPC implements the IPC dispatch and its sub-ops (spec §4.8, §4.9).
// LOG is carried here in addition to the top-level LOG dispatch number
// (spec §6); it routes to the same handler as sysLog.
func (k *Kernel) sysIPC(id task.ID, mode task.Mode) {
	rec := k.Table.Get(id)
	ctx := rec.Context(mode)

	switch svc.IPCSubOp(ctx.Arg(1)) {
	case svc.IPCLog:
		k.ipcLog(id, mode)
	case svc.IPCRecvSync:
		k.ipcRecv(id, mode, true)
	case svc.IPCRecvAsync:
		k.ipcRecv(id, mode, false)
	case svc.IPCSendSync:
		k.ipcSend(id, mode, true)
	case svc.IPCSendAsync:
		k.ipcSend(id, mode, false)
	default:
		k.finish(id, mode, svc.Inval)
	}
}

// ipcLog shifts the LOG sub-op's argument registers (r2=len, r3=msg,
// where the top-level LOG dispatch carries r1=len, r2=msg) onto the
// shared log implementation.
func (k *Kernel) ipcLog(id task.ID, mode task.Mode) {
	rec := k.Table.Get(id)
	ctx := rec.Context(mode)

	ctx.R[1] = ctx.Arg(2)
	ctx.R[2] = ctx.Arg(3)

	k.sysLog(id, mode)
}

// ipcSend implements Send (spec §4.9).
func (k *Kernel) ipcSend(id task.ID, mode task.Mode, blocking bool) {
	rec := k.Table.Get(id)
	ctx := rec.Context(mode)

	if mode == task.ISR {
		k.finish(id, mode, svc.Denied)
		return
	}

	if !rec.InitDone {
		k.finish(id, mode, svc.Denied)
		return
	}

	peer := task.ID(ctx.Arg(2))
	size := ctx.Arg(3)
	buf := ctx.Arg(4)

	if size != 0 && !sanitize.InAnySlot(buf, size, rec, mode) {
		k.finish(id, mode, svc.Inval)
		return
	}

	if !peer.IsApp() {
		k.finish(id, mode, svc.Inval)
		return
	}

	receiver := k.Table.Get(peer)
	if receiver == nil || receiver.State(task.Main) == task.Empty {
		k.finish(id, mode, svc.Inval)
		return
	}

	if id == peer {
		k.finish(id, mode, svc.Inval)
		return
	}

	if size > ipc.MaxPayload {
		k.finish(id, mode, svc.Inval)
		return
	}

	if !k.Oracle.SameDomain(id, peer) {
		k.finish(id, mode, svc.Denied)
		return
	}

	if !k.Oracle.IPCGranted(id, peer) {
		k.finish(id, mode, svc.Denied)
		return
	}

	ref := &rec.Endpoints[peer]
	reverse := &receiver.Endpoints[id]

	if !ref.Valid {
		if reverse.Valid {
			panic("syscall: IPC endpoint already bound by the receiver")
		}

		idx := k.Endpoints.Acquire()
		if idx < 0 {
			k.finish(id, mode, svc.Busy)
			return
		}

		ref.Index, ref.Valid = idx, true
		reverse.Index, reverse.Valid = idx, true
	}

	ep := k.Endpoints.Get(ref.Index)

	if k.Sleep.IsSleeping(peer) {
		k.Sleep.TryWakingUp(peer)
	} else if receiver.State(task.Main) == task.Idle {
		k.Table.SetState(peer, task.Main, task.Runnable)
	}

	if ep.State() == ipc.WaitForReceiver {
		if blocking {
			k.Table.SetState(id, task.Main, task.IPCSendBlocked)
			k.Table.SetForcedIfEligible(peer, k.ForceIPCEnabled)
			return
		}
		k.finish(id, mode, svc.Busy)
		return
	}

	data := make([]byte, size)
	k.Mem.Read(buf, data)
	ep.Fill(id, peer, data)

	if receiver.State(task.Main) == task.IPCRecvBlocked {
		k.Table.SetState(peer, task.Main, task.SvcBlocked)
		k.Queue.PushSyscall(peer)
		k.Table.SetState(task.SoftIRQ, task.Main, task.Runnable)
	}

	if blocking {
		k.Table.SetState(id, task.Main, task.IPCWaitAck)
		k.Table.SetForcedIfEligible(peer, k.ForceIPCEnabled)
		return
	}

	k.finish(id, mode, svc.Done)
}

// ipcRecv implements Recv (spec §4.9), including the ANY_APP wildcard
// scan over App1..AppMax (spec §9 open question).
func (k *Kernel) ipcRecv(id task.ID, mode task.Mode, blocking bool) {
	rec := k.Table.Get(id)
	ctx := rec.Context(mode)

	if mode == task.ISR {
		k.finish(id, mode, svc.Denied)
		return
	}

	if !rec.InitDone {
		k.finish(id, mode, svc.Denied)
		return
	}

	idSenderPtr := ctx.Arg(2)
	sizePtr := ctx.Arg(3)
	buf := ctx.Arg(4)

	if !sanitize.InRAMSlotScalar(idSenderPtr, 4, rec, mode) || !sanitize.InRAMSlotScalar(sizePtr, 4, rec, mode) {
		k.finish(id, mode, svc.Inval)
		return
	}

	var idBuf, sizeBuf [4]byte
	k.Mem.Read(idSenderPtr, idBuf[:])
	k.Mem.Read(sizePtr, sizeBuf[:])

	wantSender := task.ID(binary.LittleEndian.Uint32(idBuf[:]))
	wantSize := binary.LittleEndian.Uint32(sizeBuf[:])

	if wantSender != task.AnyApp && !wantSender.IsApp() {
		k.finish(id, mode, svc.Inval)
		return
	}

	if wantSender == id {
		k.finish(id, mode, svc.Inval)
		return
	}

	var sender *task.Record
	if wantSender != task.AnyApp {
		sender = k.Table.Get(wantSender)
		if sender == nil || sender.State(task.Main) == task.Empty {
			k.finish(id, mode, svc.Inval)
			return
		}

		if !k.Oracle.SameDomain(wantSender, id) {
			k.finish(id, mode, svc.Denied)
			return
		}
		if !k.Oracle.IPCGranted(wantSender, id) {
			k.finish(id, mode, svc.Denied)
			return
		}
	}

	if wantSize != 0 && !sanitize.InRAMSlot(buf, wantSize, rec, mode) {
		k.finish(id, mode, svc.Inval)
		return
	}

	ep, from := k.findPendingMessage(rec, wantSender)

	if ep == nil {
		if wantSender != task.AnyApp && sender.State(task.Main) == task.Idle {
			k.Table.SetState(wantSender, task.Main, task.Runnable)
		}
		if blocking {
			k.Table.SetState(id, task.Main, task.IPCRecvBlocked)
			return
		}
		k.finish(id, mode, svc.Busy)
		return
	}

	if wantSender == task.AnyApp && !k.Oracle.IPCGranted(from, id) {
		fromRec := k.Table.Get(from)
		fromRec.Context(task.Main).SetReturn(uint32(svc.Denied))
		k.Table.SetState(from, task.Main, task.Runnable)

		if blocking {
			k.Table.SetState(id, task.Main, task.IPCRecvBlocked)
			return
		}
		k.finish(id, mode, svc.Busy)
		return
	}

	required := uint32(ep.Size())
	if required > wantSize {
		binary.LittleEndian.PutUint32(sizeBuf[:], required)
		k.Mem.Write(sizePtr, sizeBuf[:])
		ep.Drain(nil)
		k.finish(id, mode, svc.Inval)
		return
	}

	data := make([]byte, required)
	n, senderID := ep.Drain(data)
	k.Mem.Write(buf, data[:n])

	binary.LittleEndian.PutUint32(sizeBuf[:], uint32(n))
	k.Mem.Write(sizePtr, sizeBuf[:])

	binary.LittleEndian.PutUint32(idBuf[:], uint32(senderID))
	k.Mem.Write(idSenderPtr, idBuf[:])

	switch k.Table.State(senderID, task.Main) {
	case task.IPCWaitAck:
		senderRec := k.Table.Get(senderID)
		senderRec.Context(task.Main).SetReturn(uint32(svc.Done))
		k.Table.SetState(senderID, task.Main, task.Runnable)
	case task.IPCSendBlocked:
		k.Table.SetState(senderID, task.Main, task.SvcBlocked)
		k.Queue.PushSyscall(senderID)
		k.Table.SetState(task.SoftIRQ, task.Main, task.Runnable)
	}

	k.finish(id, mode, svc.Done)
}

// findPendingMessage searches rec's per-peer reference table for an
// endpoint in WaitForReceiver addressed to rec: a single entry when a
// specific peer is named, otherwise the first across App1..AppMax in
// id order (spec §4.9, §8 scenario 3).
func (k *Kernel) findPendingMessage(rec *task.Record, wantSender task.ID) (*ipc.Endpoint, task.ID) {
	check := func(peer task.ID) *ipc.Endpoint {
		ref := rec.Endpoints[peer]
		if !ref.Valid {
			return nil
		}
		ep := k.Endpoints.Get(ref.Index)
		if ep.State() == ipc.WaitForReceiver && ep.To == rec.ID {
			return ep
		}
		return nil
	}

	if wantSender != task.AnyApp {
		return check(wantSender), wantSender
	}

	for peer := task.App1; peer <= task.ID(task.App1)+task.AppMax-1; peer++ {
		if ep := check(peer); ep != nil {
			return ep, peer
		}
	}

	return nil, task.Unused
}
