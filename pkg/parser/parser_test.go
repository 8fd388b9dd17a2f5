package parser

import (
	"strings"
	"testing"

	"tps3/pkg/ast"
	"tps3/pkg/native"
)

func parseSource(t *testing.T, src string) (*ast.Node, error) {
	t.Helper()
	reg := native.NewRegistry()
	root := ast.NewRootSymbolTable(reg)
	native.NewBuiltin().Install(reg, root)
	modules := native.ModuleRegistry{}
	return New(src, reg, modules, root).Parse()
}

func mustParse(t *testing.T, src string) *ast.Node {
	t.Helper()
	n, err := parseSource(t, src)
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	return n
}

func TestParsesHelloWorld(t *testing.T) {
	n := mustParse(t, `program P; begin WriteLn('Hello') end.`)
	if n.Kind != ast.KindProgram || n.Name != "P" {
		t.Fatalf("unexpected program node: %+v", n)
	}
	if len(n.Body.Stmts) != 1 || n.Body.Stmts[0].Kind != ast.KindBlock {
		t.Fatalf("expected WriteLn to desugar into a block, got %+v", n.Body.Stmts)
	}
	calls := n.Body.Stmts[0].Stmts
	if len(calls) != 2 || calls[0].Kind != ast.KindProcedureCall || calls[1].Callee != native.InternalNewlineName {
		t.Fatalf("expected a string-write call followed by a newline call, got %+v", calls)
	}
}

func TestForLoopAccumulator(t *testing.T) {
	n := mustParse(t, `program P; var i, s: Integer; begin s := 0; for i := 1 to 10 do s := s + i; WriteLn(s) end.`)
	forStmt := n.Body.Stmts[1]
	if forStmt.Kind != ast.KindFor || forStmt.Downto {
		t.Fatalf("expected an ascending for statement, got %+v", forStmt)
	}
}

func TestRecursiveFunctionSharesNameForReturnAndCall(t *testing.T) {
	src := `program P;
	function F(n: Integer): Integer;
	begin
		if n < 2 then F := n else F := F(n - 1) + F(n - 2)
	end;
	begin
		WriteLn(F(10))
	end.`
	n := mustParse(t, src)
	fn := n.Locals[0]
	if fn.Kind != ast.KindFunction || fn.Name != "F" {
		t.Fatalf("expected function F, got %+v", fn)
	}
	ifStmt := fn.Body.Stmts[0]
	assign := ifStmt.Then
	if assign.Kind != ast.KindAssignment || assign.Target.SymbolLookup.Level != 0 {
		t.Fatalf("expected the return-value assignment at level 0, got %+v", assign.Target)
	}
	elseAssign := ifStmt.Else
	call := elseAssign.Value.Left
	if call.Kind != ast.KindFunctionCall || call.Callee != "F" {
		t.Fatalf("expected a recursive call to F, got %+v", call)
	}
}

func TestRecordFieldAccess(t *testing.T) {
	src := `program P;
	type R = record x, y: Integer end;
	var r: R;
	begin r.x := 3; r.y := 4; WriteLn(r.x + r.y) end.`
	n := mustParse(t, src)
	assign := n.Body.Stmts[0]
	if assign.Target.Kind != ast.KindFieldDesignator || assign.Target.Field != "x" {
		t.Fatalf("expected a field designator target, got %+v", assign.Target)
	}
}

func TestTypedConstantArrayInitializer(t *testing.T) {
	src := `program P;
	const A: array[1..3] of Integer = (10, 20, 30);
	var i: Integer;
	begin for i := 1 to 3 do WriteLn(A[i]) end.`
	n := mustParse(t, src)
	constDecl := n.Locals[0]
	if constDecl.Kind != ast.KindTypedConst || constDecl.RawData.Len() != 3 {
		t.Fatalf("expected a 3-element typed constant, got %+v", constDecl)
	}
}

func TestPointerNewDispose(t *testing.T) {
	src := `program P; var p: ^Integer; begin New(p); p^ := 7; WriteLn(p^); Dispose(p) end.`
	n := mustParse(t, src)
	newCall := n.Body.Stmts[0]
	if newCall.Kind != ast.KindProcedureCall || len(newCall.Args) != 2 {
		t.Fatalf("expected New to receive a hidden size argument, got %+v", newCall.Args)
	}
	if newCall.Args[1].Kind != ast.KindNumber || newCall.Args[1].Int != 1 {
		t.Fatalf("expected New's hidden argument to be the pointee's 1-word size, got %+v", newCall.Args[1])
	}
}

func TestAssigningStringToIntegerIsACastError(t *testing.T) {
	_, err := parseSource(t, `program P; var i: Integer; begin i := 'x' end.`)
	if err == nil {
		t.Fatal("expected a cast error")
	}
	if !strings.Contains(err.Error(), "cast") && !strings.Contains(err.Error(), "assignment") {
		t.Fatalf("expected a cast/assignment error, got %v", err)
	}
}

func TestUnknownIdentifierIsReportedWithItsLine(t *testing.T) {
	_, err := parseSource(t, "program P;\nbegin\n  unknownThing := 1\nend.")
	if err == nil {
		t.Fatal("expected an unresolved-identifier error")
	}
	if !strings.Contains(err.Error(), "3") {
		t.Fatalf("expected the error to mention line 3, got %v", err)
	}
}

func TestDivByIntegerOnlyWhileSlashProducesReal(t *testing.T) {
	n := mustParse(t, `program P; var x: Real; i, j: Integer; begin x := i / j end.`)
	assign := n.Body.Stmts[0]
	if assign.Value.ExpressionType.SimpleCode != ast.TReal {
		t.Fatalf("expected / to produce a real result, got %+v", assign.Value.ExpressionType)
	}
	if _, err := parseSource(t, `program P; var x: Real; i: Integer; begin i := x div 2 end.`); err == nil {
		t.Fatal("expected div with a real operand to be rejected")
	}
}
