package pmachine

import (
	"tps3/pkg/ast"
	"tps3/pkg/bytecode"
	"tps3/pkg/native"
)

// step1 fetches and executes one instruction, advancing pc first so a
// CUP's recorded return address is the instruction after the call (spec
// §4.5).
func (m *Machine) step1() error {
	if m.pc < 0 || m.pc >= len(m.bc.IStore) {
		return runtimeError("program counter %d out of range", m.pc)
	}
	instr := bytecode.Decode(m.bc.IStore[m.pc])
	m.pc++

	if m.debugCb != nil {
		m.debugCb(bytecode.DisassembleOne(m.pc-1, instr))
	}

	switch instr.Op {
	case bytecode.OpNOP:
		return nil

	case bytecode.OpCUP:
		return m.execCUP(instr.Operand1, instr.Operand2)
	case bytecode.OpCSP:
		return m.execCSP(instr.Operand1, instr.Operand2)
	case bytecode.OpENT:
		return m.execENT(instr.Operand2)
	case bytecode.OpMST:
		return m.execMST(instr.Operand1)
	case bytecode.OpRTN:
		return m.execRTN(ast.SimpleTypeCode(instr.Operand1))

	case bytecode.OpLDC:
		return m.execLDC(ast.SimpleTypeCode(instr.Operand1), instr.Operand2)
	case bytecode.OpLDA:
		return m.push(native.Word(m.addressFor(instr.Operand1, instr.Operand2)))
	case bytecode.OpLDI:
		return m.execLDI()
	case bytecode.OpSTI:
		return m.execSTI()

	case bytecode.OpLVA:
		return m.execLV(instr.Operand1, instr.Operand2)
	case bytecode.OpLVB, bytecode.OpLVC, bytecode.OpLVI, bytecode.OpLVR:
		return m.execLV(instr.Operand1, instr.Operand2)

	case bytecode.OpIXA:
		return m.execIXA(instr.Operand2)

	case bytecode.OpUJP:
		m.pc = instr.Operand2
		return nil
	case bytecode.OpFJP:
		return m.execCondJP(instr.Operand2, false)
	case bytecode.OpTJP:
		return m.execCondJP(instr.Operand2, true)
	case bytecode.OpXJP:
		addr, err := m.pop()
		if err != nil {
			return err
		}
		m.pc = int(addr)
		return nil

	case bytecode.OpADI, bytecode.OpSBI, bytecode.OpMPI, bytecode.OpDVI, bytecode.OpMOD:
		return m.execIntBinary(instr.Op)
	case bytecode.OpNGI:
		return m.execUnary(func(a native.Word) (native.Word, error) { return -a, nil })

	case bytecode.OpADR, bytecode.OpSBR, bytecode.OpMPR, bytecode.OpDVR:
		return m.execRealBinary(instr.Op)
	case bytecode.OpNGR:
		return m.execUnary(func(a native.Word) (native.Word, error) {
			return native.RealToWord(-native.WordToReal(a)), nil
		})

	case bytecode.OpAND:
		return m.execBoolBinary(func(a, b bool) bool { return a && b })
	case bytecode.OpIOR:
		return m.execBoolBinary(func(a, b bool) bool { return a || b })
	case bytecode.OpNOTB:
		return m.execUnary(func(a native.Word) (native.Word, error) {
			return native.BoolToWord(!native.WordToBool(a)), nil
		})

	case bytecode.OpEQU, bytecode.OpNEQ, bytecode.OpGRT, bytecode.OpGEQ, bytecode.OpLES, bytecode.OpLEQ:
		return m.execCompare(instr.Op, ast.SimpleTypeCode(instr.Operand1))

	case bytecode.OpINC:
		return m.execStep(instr.Operand1, instr.Operand2, 1)
	case bytecode.OpDEC:
		return m.execStep(instr.Operand1, instr.Operand2, -1)

	case bytecode.OpFLT:
		return m.execUnary(func(a native.Word) (native.Word, error) {
			return native.RealToWord(float64(a)), nil
		})
	case bytecode.OpCHR, bytecode.OpORD:
		return nil // representational no-ops: char and integer share one word encoding
	case bytecode.OpRND:
		return m.execUnary(func(a native.Word) (native.Word, error) {
			v := native.WordToReal(a)
			return native.Word(int64(v + 0.5)), nil
		})
	case bytecode.OpTRC:
		return m.execUnary(func(a native.Word) (native.Word, error) {
			return native.Word(int64(native.WordToReal(a))), nil
		})

	case bytecode.OpSTP:
		m.state = Stopped
		return nil

	default:
		return runtimeError("unknown opcode %v", instr.Op)
	}
}

// addressFor follows the static link operand1 times from mp, then adds
// offset (spec §4.5's static-link traversal).
func (m *Machine) addressFor(level, offset int) int {
	addr := m.mp
	for i := 0; i < level; i++ {
		addr = int(m.dstore[addr+1])
	}
	return addr + offset
}

func (m *Machine) push(w native.Word) error {
	if m.sp < 0 || m.sp >= dstoreSize {
		return runtimeError("stack exhausted")
	}
	m.dstore[m.sp] = w
	m.sp++
	if m.sp > m.ep {
		m.ep = m.sp
	}
	return nil
}

func (m *Machine) pop() (native.Word, error) {
	if m.sp <= 0 {
		return 0, runtimeError("stack underflow")
	}
	m.sp--
	return m.dstore[m.sp], nil
}

// checkAddr enforces spec §4.5's load/store invariant: every addressed
// word must lie outside the unallocated gap [sp, np).
func (m *Machine) checkAddr(addr int) error {
	if addr < 0 || addr >= dstoreSize {
		return runtimeError("invalid data address %d", addr)
	}
	if addr >= m.sp && addr < m.np {
		return runtimeError("invalid data address %d", addr)
	}
	return nil
}

func (m *Machine) execLDC(code ast.SimpleTypeCode, k int) error {
	switch code {
	case ast.TBoolean, ast.TChar:
		return m.push(native.Word(k))
	case ast.TInteger:
		return m.push(native.Word(m.bc.Constants[k].Int))
	case ast.TReal:
		return m.push(native.RealToWord(m.bc.Constants[k].Real))
	case ast.TString:
		return m.push(native.Word(k))
	case ast.TAddress:
		return m.push(native.Word(m.bc.Constants[k].Int))
	default:
		return runtimeError("unsupported LDC type code %v", code)
	}
}

func (m *Machine) execLDI() error {
	addr, err := m.pop()
	if err != nil {
		return err
	}
	if err := m.checkAddr(int(addr)); err != nil {
		return err
	}
	return m.push(m.dstore[addr])
}

func (m *Machine) execSTI() error {
	value, err := m.pop()
	if err != nil {
		return err
	}
	addr, err := m.pop()
	if err != nil {
		return err
	}
	if err := m.checkAddr(int(addr)); err != nil {
		return err
	}
	m.dstore[addr] = value
	return nil
}

func (m *Machine) execLV(level, offset int) error {
	addr := m.addressFor(level, offset)
	if err := m.checkAddr(addr); err != nil {
		return err
	}
	return m.push(m.dstore[addr])
}

func (m *Machine) execIXA(stride int) error {
	i, err := m.pop()
	if err != nil {
		return err
	}
	a, err := m.pop()
	if err != nil {
		return err
	}
	return m.push(a + i*native.Word(stride))
}

func (m *Machine) execCondJP(addr int, wantTrue bool) error {
	v, err := m.pop()
	if err != nil {
		return err
	}
	if native.WordToBool(v) == wantTrue {
		m.pc = addr
	}
	return nil
}

func (m *Machine) execUnary(f func(native.Word) (native.Word, error)) error {
	a, err := m.pop()
	if err != nil {
		return err
	}
	v, err := f(a)
	if err != nil {
		return err
	}
	return m.push(v)
}

func (m *Machine) execIntBinary(op bytecode.Op) error {
	b, err := m.pop()
	if err != nil {
		return err
	}
	a, err := m.pop()
	if err != nil {
		return err
	}
	var v native.Word
	switch op {
	case bytecode.OpADI:
		v = a + b
	case bytecode.OpSBI:
		v = a - b
	case bytecode.OpMPI:
		v = a * b
	case bytecode.OpDVI:
		if b == 0 {
			return runtimeError("division by zero")
		}
		v = a / b
	case bytecode.OpMOD:
		if b == 0 {
			return runtimeError("modulo by zero")
		}
		v = a % b
	}
	return m.push(v)
}

func (m *Machine) execRealBinary(op bytecode.Op) error {
	b, err := m.pop()
	if err != nil {
		return err
	}
	a, err := m.pop()
	if err != nil {
		return err
	}
	fa, fb := native.WordToReal(a), native.WordToReal(b)
	var v float64
	switch op {
	case bytecode.OpADR:
		v = fa + fb
	case bytecode.OpSBR:
		v = fa - fb
	case bytecode.OpMPR:
		v = fa * fb
	case bytecode.OpDVR:
		if fb == 0 {
			return runtimeError("division by zero")
		}
		v = fa / fb
	}
	return m.push(native.RealToWord(v))
}

func (m *Machine) execBoolBinary(f func(a, b bool) bool) error {
	b, err := m.pop()
	if err != nil {
		return err
	}
	a, err := m.pop()
	if err != nil {
		return err
	}
	return m.push(native.BoolToWord(f(native.WordToBool(a), native.WordToBool(b))))
}

func (m *Machine) execCompare(op bytecode.Op, code ast.SimpleTypeCode) error {
	b, err := m.pop()
	if err != nil {
		return err
	}
	a, err := m.pop()
	if err != nil {
		return err
	}
	var cmp int
	switch code {
	case ast.TReal:
		fa, fb := native.WordToReal(a), native.WordToReal(b)
		cmp = compareFloat(fa, fb)
	case ast.TString:
		cmp = compareString(m.ResolveString(int(a)), m.ResolveString(int(b)))
	default:
		cmp = compareInt(int64(a), int64(b))
	}
	var result bool
	switch op {
	case bytecode.OpEQU:
		result = cmp == 0
	case bytecode.OpNEQ:
		result = cmp != 0
	case bytecode.OpGRT:
		result = cmp > 0
	case bytecode.OpGEQ:
		result = cmp >= 0
	case bytecode.OpLES:
		result = cmp < 0
	case bytecode.OpLEQ:
		result = cmp <= 0
	}
	return m.push(native.BoolToWord(result))
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func (m *Machine) execStep(level, offset, delta int) error {
	addr := m.addressFor(level, offset)
	if err := m.checkAddr(addr); err != nil {
		return err
	}
	m.dstore[addr] += native.Word(delta)
	return nil
}

// execMST pushes a 5-word activation mark (spec §4.5): rv=0, the static
// link found by following the parent chain level times from mp, the
// dynamic link (current mp), the saved extreme pointer, and a
// placeholder return address CUP fills in.
func (m *Machine) execMST(level int) error {
	staticLink := m.addressFor(level, 0)
	if err := m.push(0); err != nil {
		return err
	}
	if err := m.push(native.Word(staticLink)); err != nil {
		return err
	}
	if err := m.push(native.Word(m.mp)); err != nil {
		return err
	}
	if err := m.push(native.Word(m.ep)); err != nil {
		return err
	}
	return m.push(0)
}

// execCUP completes a user call: the new mp sits argSz+5 words below the
// current sp (the mark MST pushed, plus the arguments pushed since), the
// return address is recorded in the mark, and execution jumps to addr.
func (m *Machine) execCUP(argSz, addr int) error {
	mp := m.sp - argSz - ast.MarkSize
	if mp < 0 {
		return runtimeError("stack underflow on call")
	}
	m.dstore[mp+4] = native.Word(m.pc)
	m.mp = mp
	m.pc = addr
	return nil
}

// execRTN pops the current frame: a procedure (TVoid) discards the
// return-value slot along with the rest of the frame; a function leaves
// it as the caller's new top-of-stack word (spec §4.5).
func (m *Machine) execRTN(retType ast.SimpleTypeCode) error {
	mp := m.mp
	dynamicLink := int(m.dstore[mp+2])
	savedEp := int(m.dstore[mp+3])
	returnAddr := int(m.dstore[mp+4])
	if retType == ast.TVoid {
		m.sp = mp
	} else {
		m.sp = mp + 1
	}
	m.mp = dynamicLink
	m.ep = savedEp
	m.pc = returnAddr
	return nil
}

// execENT sets sp to mp+size, zero-filling the newly claimed local area.
func (m *Machine) execENT(size int) error {
	newSp := m.mp + size
	if newSp >= m.np {
		return runtimeError("stack exhausted")
	}
	for i := m.sp; i < newSp; i++ {
		m.dstore[i] = 0
	}
	m.sp = newSp
	if m.sp > m.ep {
		m.ep = m.sp
	}
	return nil
}

// execCSP calls a native procedure: its argSz words are popped (each
// native parameter occupies exactly one word; natives never take compound
// by-value arguments), passed to its Fn alongside this machine as the
// control handle, and the result is pushed only when the native's
// declared return type is non-void (spec §4.5/§6).
func (m *Machine) execCSP(argSz, idx int) error {
	if m.sp-argSz < 0 {
		return runtimeError("stack underflow on native call")
	}
	base := m.sp - argSz
	args := make([]native.Word, argSz)
	copy(args, m.dstore[base:m.sp])
	m.sp = base

	proc := m.reg.At(idx)
	if proc == nil {
		return runtimeError("unknown native procedure index %d", idx)
	}
	result := proc.Fn(m, args)
	if proc.ReturnType == nil || proc.ReturnType.SimpleCode == ast.TVoid {
		return nil
	}
	return m.push(result)
}
