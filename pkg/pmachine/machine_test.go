package pmachine

import (
	"testing"

	"tps3/pkg/ast"
	"tps3/pkg/bytecode"
	"tps3/pkg/native"
)

// asmProgram builds a Bytecode whose StartAddress is the first emitted
// instruction, for tests that drive the p-machine directly rather than
// through the compiler.
func asmProgram(t *testing.T, build func(bc *bytecode.Bytecode)) *bytecode.Bytecode {
	t.Helper()
	bc := bytecode.New()
	build(bc)
	return bc
}

func emit(t *testing.T, bc *bytecode.Bytecode, op bytecode.Op, o1, o2 int) {
	t.Helper()
	if _, err := bc.Emit(op, o1, o2); err != nil {
		t.Fatalf("emit %v: %v", op, err)
	}
}

func TestIntegerArithmeticAndHalt(t *testing.T) {
	bc := asmProgram(t, func(bc *bytecode.Bytecode) {
		k7 := bc.InternInt(7)
		k5 := bc.InternInt(5)
		emit(t, bc, bytecode.OpLDC, int(ast.TInteger), k7)
		emit(t, bc, bytecode.OpLDC, int(ast.TInteger), k5)
		emit(t, bc, bytecode.OpADI, 0, 0)
		emit(t, bc, bytecode.OpSTP, 0, 0)
	})
	m := New(bc, native.NewRegistry())
	m.Run()
	if m.state != Stopped {
		t.Fatalf("expected machine to be stopped")
	}
	if got := m.dstore[m.sp-1]; got != 12 {
		t.Fatalf("expected 7+5=12 on top of stack, got %d", got)
	}
}

func TestDivisionByZeroIsFatal(t *testing.T) {
	bc := asmProgram(t, func(bc *bytecode.Bytecode) {
		k1 := bc.InternInt(1)
		k0 := bc.InternInt(0)
		emit(t, bc, bytecode.OpLDC, int(ast.TInteger), k1)
		emit(t, bc, bytecode.OpLDC, int(ast.TInteger), k0)
		emit(t, bc, bytecode.OpDVI, 0, 0)
		emit(t, bc, bytecode.OpSTP, 0, 0)
	})
	m := New(bc, native.NewRegistry())
	m.Run()
	if m.Err() == nil {
		t.Fatalf("expected a division-by-zero runtime error")
	}
}

func TestUserCallAndReturnValue(t *testing.T) {
	// function double(n: Integer): Integer; begin double := n * 2 end;
	// The main part calls double(21) and leaves the result on the stack.
	//
	// Frame layout for double: rv(0) link(1) link(2) ep(3) ra(4) n(5).
	bc := bytecode.New()
	doubleAddr, err := bc.Emit(bytecode.OpENT, 0, ast.MarkSize+1)
	if err != nil {
		t.Fatal(err)
	}
	emit(t, bc, bytecode.OpLDA, 0, 0) // address of rv slot
	emit(t, bc, bytecode.OpLVI, 0, 5) // load n
	k2 := bc.InternInt(2)
	emit(t, bc, bytecode.OpLDC, int(ast.TInteger), k2)
	emit(t, bc, bytecode.OpMPI, 0, 0)
	emit(t, bc, bytecode.OpSTI, 0, 0)
	emit(t, bc, bytecode.OpRTN, int(ast.TInteger), 0)

	mainAddr := bc.Here()
	emit(t, bc, bytecode.OpMST, 0, 0)
	k21 := bc.InternInt(21)
	emit(t, bc, bytecode.OpLDC, int(ast.TInteger), k21)
	emit(t, bc, bytecode.OpCUP, 1, doubleAddr)
	emit(t, bc, bytecode.OpSTP, 0, 0)

	bc.StartAddress = mainAddr

	m := New(bc, native.NewRegistry())
	m.Run()
	if m.Err() != nil {
		t.Fatalf("unexpected error: %v", m.Err())
	}
	if got := m.dstore[m.sp-1]; got != 42 {
		t.Fatalf("expected double(21)=42, got %d", got)
	}
}

func TestWriteLnFlushesAccumulatedLine(t *testing.T) {
	reg := native.NewRegistry()
	idx := reg.Register(&native.Procedure{
		Name:       "__test_write",
		ReturnType: nil,
		Fn: func(ctl native.ControlHandle, args []native.Word) native.Word {
			ctl.Write("hi")
			ctl.WriteLn("!")
			return 0
		},
	})
	bc := asmProgram(t, func(bc *bytecode.Bytecode) {
		emit(t, bc, bytecode.OpCSP, 0, idx)
		emit(t, bc, bytecode.OpSTP, 0, 0)
	})
	m := New(bc, reg)
	var got string
	m.SetOutputCallback(func(line string) { got = line })
	m.Run()
	if got != "hi!" {
		t.Fatalf("expected accumulated line %q, got %q", "hi!", got)
	}
}

func TestMallocAndFreeReuseHeapTop(t *testing.T) {
	m := New(bytecode.New(), native.NewRegistry())
	a1, err := m.Malloc(4)
	if err != nil {
		t.Fatal(err)
	}
	a2, err := m.Malloc(2)
	if err != nil {
		t.Fatal(err)
	}
	if a2 >= a1 {
		t.Fatalf("expected the second block to sit below the first, got a1=%d a2=%d", a1, a2)
	}
	npBefore := m.np
	m.Free(a2) // sits at the current heap bottom: released
	if m.np == npBefore {
		t.Fatalf("expected freeing the top block to raise np")
	}
	npAfter := m.np
	m.Free(a1) // now at the heap bottom too
	if m.np == npAfter {
		t.Fatalf("expected freeing a1 to raise np again")
	}
}

func TestInvalidAddressInTheHeapGapIsFatal(t *testing.T) {
	m := New(bytecode.New(), native.NewRegistry())
	if err := m.checkAddr(m.sp); err == nil {
		t.Fatalf("expected an address inside [sp, np) to be rejected")
	}
}
