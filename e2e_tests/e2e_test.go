// End-to-end pipeline tests mirroring the teacher's e2e_tests/e2e_test.go:
// compile a complete source program through the full pipeline and run it
// to completion, asserting on captured output. These exercise the six
// worked scenarios and two negative scenarios from spec §8.
package main

import (
	"strings"
	"testing"
	"time"

	"tps3/pkg/pipeline"
	"tps3/pkg/pmachine"
)

func runProgram(t *testing.T, src string) (lines []string, runErr error) {
	t.Helper()
	modules, _, _, _ := pipeline.DefaultModules()
	bc, err := pipeline.Compile(src, modules)
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	reg, err := pipeline.RuntimeRegistry(bc, modules)
	if err != nil {
		t.Fatalf("registry rebuild failed: %v", err)
	}
	m := pmachine.New(bc, reg)
	m.SetOutputCallback(func(line string) { lines = append(lines, line) })
	done := make(chan struct{})
	m.SetFinishCallback(func(elapsed time.Duration, err error) {
		runErr = err
		close(done)
	})
	m.Run()
	<-done
	return lines, runErr
}

func TestHelloWorld(t *testing.T) {
	src := `program P; begin WriteLn('Hello') end.`
	lines, err := runProgram(t, src)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(lines) != 1 || lines[0] != "Hello" {
		t.Fatalf("expected [Hello], got %v", lines)
	}
}

func TestForLoopSum(t *testing.T) {
	src := `program P; var i:Integer; s:Integer;
	begin s:=0; for i:=1 to 10 do s:=s+i; WriteLn(s) end.`
	lines, err := runProgram(t, src)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(lines) != 1 || lines[0] != "55" {
		t.Fatalf("expected [55], got %v", lines)
	}
}

func TestRecursiveFibonacci(t *testing.T) {
	src := `program P;
	function F(n:Integer):Integer;
	begin if n<2 then F:=n else F:=F(n-1)+F(n-2) end;
	begin WriteLn(F(10)) end.`
	lines, err := runProgram(t, src)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(lines) != 1 || lines[0] != "55" {
		t.Fatalf("expected [55], got %v", lines)
	}
}

func TestPointerNewDispose(t *testing.T) {
	src := `program P; var p:^Integer;
	begin New(p); p^:=7; WriteLn(p^); Dispose(p) end.`
	lines, err := runProgram(t, src)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(lines) != 1 || lines[0] != "7" {
		t.Fatalf("expected [7], got %v", lines)
	}
}

func TestAbsIntegerStaysInteger(t *testing.T) {
	src := `program P; var i:Integer;
	begin i := Abs(-5); WriteLn(i); WriteLn(Abs(3)) end.`
	lines, err := runProgram(t, src)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	want := []string{"5", "3"}
	if len(lines) != len(want) {
		t.Fatalf("expected %v, got %v", want, lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("line %d: expected %q, got %q", i, want[i], lines[i])
		}
	}
}

func TestAbsRealStaysReal(t *testing.T) {
	src := `program P; var r:Real;
	begin r := Abs(-2.5); WriteLn(r) end.`
	lines, err := runProgram(t, src)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(lines) != 1 || lines[0] != "2.5" {
		t.Fatalf("expected [2.5], got %v", lines)
	}
}

func TestRecordFields(t *testing.T) {
	src := `program P; type R=record x,y:Integer end; var r:R;
	begin r.x:=3; r.y:=4; WriteLn(r.x+r.y) end.`
	lines, err := runProgram(t, src)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(lines) != 1 || lines[0] != "7" {
		t.Fatalf("expected [7], got %v", lines)
	}
}

func TestTypedConstArray(t *testing.T) {
	src := `program P; const A:array[1..3] of Integer = (10,20,30); var i:Integer;
	begin for i:=1 to 3 do WriteLn(A[i]) end.`
	lines, err := runProgram(t, src)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	want := []string{"10", "20", "30"}
	if len(lines) != len(want) {
		t.Fatalf("expected %v, got %v", want, lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("line %d: expected %q, got %q", i, want[i], lines[i])
		}
	}
}

func TestCastErrorReportsLine(t *testing.T) {
	src := "program P;\nvar i:Integer;\nbegin\n  i := 'oops';\nend."
	_, err := pipeline.Compile(src, nil)
	if err == nil {
		t.Fatalf("expected a cast error")
	}
	if !strings.Contains(err.Error(), "line 4") {
		t.Fatalf("expected error to reference line 4, got: %v", err)
	}
}

func TestDivideByZeroHalts(t *testing.T) {
	src := `program P; var x:Integer; begin x := 10 div 0; WriteLn(x) end.`
	lines, err := runProgram(t, src)
	if err == nil {
		t.Fatalf("expected a runtime divide-by-zero error")
	}
	if len(lines) != 0 {
		t.Fatalf("expected no output before the halt, got %v", lines)
	}
}

func TestUsesGraphModuleDrawsPixel(t *testing.T) {
	modules, _, g, _ := pipeline.DefaultModules()
	src := `program P; uses graph;
	begin InitGraph; SetColor(4); PutPixel(1, 1, 4) end.`
	bc, err := pipeline.Compile(src, modules)
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	if len(bc.UsedModules) != 1 || bc.UsedModules[0] != "graph" {
		t.Fatalf("expected UsedModules [graph], got %v", bc.UsedModules)
	}
	reg, err := pipeline.RuntimeRegistry(bc, modules)
	if err != nil {
		t.Fatalf("registry rebuild failed: %v", err)
	}
	m := pmachine.New(bc, reg)
	done := make(chan struct{})
	m.SetFinishCallback(func(elapsed time.Duration, err error) { close(done) })
	m.Run()
	<-done
	fb := g.FramebufferRGBA()
	off := (1*320 + 1) * 4
	if fb[off] == 0 && fb[off+1] == 0 && fb[off+2] == 0 {
		t.Fatalf("expected pixel (1,1) to be non-black after PutPixel")
	}
}
