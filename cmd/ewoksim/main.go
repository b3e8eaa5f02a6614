// https://github.com/usbarmory/ewok-kernel
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// ewoksim is a host-side simulator of the coordination core, standing
// in for the real board's main loop: it drives the soft-IRQ loop over
// a wired-up Kernel backed entirely by internal/simboard fakes,
// exposing queue depth and per-task state as expvars so the loop can
// be watched live while it runs. It raises no traps, so the router it
// builds is never entered.
package main

import (
	"expvar"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	_ "github.com/mkevac/debugcharts"

	"github.com/usbarmory/ewok-kernel/config"
	"github.com/usbarmory/ewok-kernel/debug"
	"github.com/usbarmory/ewok-kernel/device"
	"github.com/usbarmory/ewok-kernel/entropy"
	"github.com/usbarmory/ewok-kernel/internal/simboard"
	"github.com/usbarmory/ewok-kernel/ipc"
	"github.com/usbarmory/ewok-kernel/softirq"
	"github.com/usbarmory/ewok-kernel/svc"
	"github.com/usbarmory/ewok-kernel/syscall"
	"github.com/usbarmory/ewok-kernel/task"
)

var (
	debugAddr   = flag.String("debug-addr", "localhost:6060", "debugcharts HTTP listen address")
	ticks       = flag.Int("ticks", 0, "stop after N scheduler ticks (0 = run forever)")
	interactive = flag.Bool("interactive", false, "put stdin in raw mode (no echo, no line buffering); the simulator does not read stdin")
)

// queueDepth and taskStates are polled by debugcharts' expvar-backed
// graphs; they are updated once per drive-loop iteration.
var (
	queueDepth = expvar.NewInt("ewoksim.queue_depth")
	taskStates = expvar.NewMap("ewoksim.task_states")
)

func main() {
	flag.Parse()

	tasks := config.Tasks()
	perms := config.Permissions()
	catalogue := config.Devices()

	sched := simboard.NewScheduler()
	sleep := simboard.NewSleep()
	gpio := simboard.NewGPIO()
	dma := simboard.NewDMA()
	mpu := simboard.MPU{Regions: 8}
	mem := simboard.NewMemory(1 << 24)
	clock := &simboard.Clock{}
	board := &simboard.Board{}

	uart := &stdoutUART{}
	dbg := debug.NewSink(uart)
	ent := entropy.New(entropy.LCGFallback)

	k := &syscall.Kernel{
		Table:     tasks,
		Endpoints: ipc.NewPool(),
		Oracle:    perms,
		Devices:   device.NewPool(),
		DMAs:      device.NewDMAPool(),
		DMAClaims: device.NewRangeSet(),
		Catalogue: catalogue,
		Queue:     softirq.NewQueue(),

		Sched:    sched,
		Sleep:    sleep,
		GPIO:     gpio,
		GPIOBind: gpio,
		DMADrv:   dma,
		MPU:      mpu,
		Entropy:  ent,
		Debug:    dbg,
		Mem:      mem,
		Clock:    clock,
		Board:    board,

		ForceIPCEnabled: true,
	}

	router := &svc.Router{
		Table:           k.Table,
		Queue:           k.Queue,
		Sched:           k.Sched,
		WiseRepartition: true,
	}

	go func() {
		log.Printf("ewoksim: debugcharts listening on http://%s/debug/charts", *debugAddr)
		log.Println(http.ListenAndServe(*debugAddr, nil))
	}()

	if *interactive {
		restore, err := rawStdin()
		if err != nil {
			log.Printf("ewoksim: %v, falling back to line-buffered input", err)
		} else {
			defer restore()
		}
	}

	drive(k, router, clock, *ticks)
}

// drive is the simulator's main loop: each iteration advances the fake
// clock, lets the soft-IRQ task drain any deferred work, and publishes
// the queue depth and every app task's MAIN state as expvars. It raises
// no traps, so router is not entered here; a real board's trap handler
// calls Router.Enter directly from the exception vector instead.
func drive(k *syscall.Kernel, router *svc.Router, clock *simboard.Clock, maxTicks int) {
	for tick := 0; maxTicks == 0 || tick < maxTicks; tick++ {
		clock.Milli++
		clock.Micro += 1000
		clock.Cycle += 132000

		k.Queue.Drain(k)

		queueDepth.Set(int64(k.Queue.Len()))
		for id := task.App1; id <= task.ID(task.App1)+task.AppMax-1; id++ {
			taskStates.Set(id.String(), stateVar(k.Table.State(id, task.Main)))
		}

		time.Sleep(10 * time.Millisecond)
	}
}

type stateVar task.State

func (s stateVar) String() string { return fmt.Sprintf("%q", task.State(s)) }

// stdoutUART adapts standard output (fmt.Print) to debug.UARTWriter,
// standing in for the board's real console UART.
type stdoutUART struct{}

func (stdoutUART) Write(buf []byte) { fmt.Print(string(buf)) }
