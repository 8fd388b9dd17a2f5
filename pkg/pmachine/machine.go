// Package pmachine implements the P-Machine interpreter of spec §4.5: a
// stack-based stack machine that executes the bytecode the compiler
// produces, mediating every host interaction (output, keyboard, the heap)
// through the native.ControlHandle it implements. Grounded in the
// teacher's pkg/cpu.CPU: a flat register/memory struct with a Step
// dispatch switch, generalized from a 16-bit register machine to a
// 64-bit-word stack machine per spec §4.5/§5.
package pmachine

import (
	"strings"
	"time"

	"tps3/pkg/bytecode"
	"tps3/pkg/native"
	"tps3/pkg/toolchain"
)

// State is the p-machine's run state (spec §3).
type State int

const (
	Stopped State = iota
	Running
)

// dstoreSize is the p-machine's fixed 65536-word data store (spec §3).
const dstoreSize = 65536

// Machine is the p-code interpreter: the data store and its five
// registers (pc, sp, mp, np, ep), plus the host callbacks a running
// program drives through native.ControlHandle.
type Machine struct {
	bc  *bytecode.Bytecode
	reg *native.Registry

	dstore [dstoreSize]native.Word

	pc, sp, mp, np, ep int
	state              State
	pendingDelayMs     int

	lineBuf strings.Builder
	keys    []rune

	outputCb func(line string)
	finishCb func(elapsed time.Duration, err error)
	debugCb  func(line string)

	startedAt time.Time
	err       error
}

// New loads bc into a fresh machine: the typed-constant blob is copied
// verbatim into dstore[0:len(bc.TypedConstants)] (spec §3's invariant
// that sp == len(bytecode.TypedConstants) immediately after load), the
// heap pointer starts at the top of the store, and pc starts at the
// bytecode's recorded start address.
func New(bc *bytecode.Bytecode, reg *native.Registry) *Machine {
	m := &Machine{bc: bc, reg: reg, np: dstoreSize, state: Running}
	for i, w := range bc.TypedConstants {
		m.dstore[i] = native.Word(w)
	}
	m.sp = len(bc.TypedConstants)
	m.ep = m.sp
	m.pc = bc.StartAddress
	return m
}

// SetOutputCallback registers the line-sink a completed WriteLn call
// flushes to (spec §6's Machine(bytecode, host) setOutputCallback).
func (m *Machine) SetOutputCallback(f func(line string)) { m.outputCb = f }

// SetFinishCallback registers the callback run() invokes exactly once,
// whether the program halted normally (STP), errored, or was stopped.
func (m *Machine) SetFinishCallback(f func(elapsed time.Duration, err error)) { m.finishCb = f }

// SetDebugCallback registers a callback that receives one disassembly
// line per instruction stepped, when set.
func (m *Machine) SetDebugCallback(f func(line string)) { m.debugCb = f }

// PushKey queues a key for KeyPressed/ReadKey to observe, the way the
// teacher's CPU.PushKey feeds its KeyBuffer from the host's input layer.
func (m *Machine) PushKey(r rune) { m.keys = append(m.keys, r) }

// State reports whether the machine is still running.
func (m *Machine) State() State { return m.state }

// Err is the error that stopped the machine, if any.
func (m *Machine) Err() error { return m.err }

// Step executes up to n instructions and returns. It stops early (without
// error) if the machine halts or is stopped mid-batch.
func (m *Machine) Step(n int) error {
	for i := 0; i < n && m.state == Running; i++ {
		if err := m.step1(); err != nil {
			m.state = Stopped
			m.err = err
			return err
		}
	}
	return nil
}

// Run drives the machine to completion by repeatedly stepping in batches
// of 100000 instructions, honoring any pendingDelayMs a native procedure
// requested between batches (spec §5's cooperative scheduling), then fires
// the finish callback exactly once with the elapsed wall time.
func (m *Machine) Run() {
	m.startedAt = time.Now()
	for m.state == Running {
		if err := m.Step(100000); err != nil {
			break
		}
		if m.pendingDelayMs > 0 {
			time.Sleep(time.Duration(m.pendingDelayMs) * time.Millisecond)
			m.pendingDelayMs = 0
		}
	}
	if m.finishCb != nil {
		m.finishCb(time.Since(m.startedAt), m.err)
	}
}

// Stop transitions the machine to stopped; idempotent on an
// already-stopped machine (spec §5).
func (m *Machine) Stop() { m.state = Stopped }

// Delay records a pendingDelayMs the run loop honors between batches.
func (m *Machine) Delay(ms int) { m.pendingDelayMs = ms }

// Write appends a fragment to the current output line without ending it,
// so a multi-argument WriteLn composes its per-type writes before the
// trailing newline call flushes the line.
func (m *Machine) Write(text string) { m.lineBuf.WriteString(text) }

// WriteLn appends a final fragment and flushes the accumulated line.
func (m *Machine) WriteLn(line string) {
	m.lineBuf.WriteString(line)
	if m.outputCb != nil {
		m.outputCb(m.lineBuf.String())
	}
	m.lineBuf.Reset()
}

// ReadDstore and WriteDstore give native procedures raw access to a
// by-reference parameter's addressed word.
func (m *Machine) ReadDstore(addr int) native.Word {
	if addr < 0 || addr >= dstoreSize {
		return 0
	}
	return m.dstore[addr]
}

func (m *Machine) WriteDstore(addr int, value native.Word) {
	if addr < 0 || addr >= dstoreSize {
		return
	}
	m.dstore[addr] = value
}

func (m *Machine) KeyPressed() bool { return len(m.keys) > 0 }

func (m *Machine) ReadKey() rune {
	if len(m.keys) == 0 {
		return 0
	}
	r := m.keys[0]
	m.keys = m.keys[1:]
	return r
}

// ResolveString looks up a string constant by its pool index directly
// from the bytecode the machine was loaded with.
func (m *Machine) ResolveString(constIdx int) string {
	if constIdx < 0 || constIdx >= len(m.bc.Constants) {
		return ""
	}
	return m.bc.Constants[constIdx].Str
}

func runtimeError(format string, args ...any) error {
	return toolchain.New(toolchain.StageRun, format, args...)
}

var _ native.ControlHandle = (*Machine)(nil)
