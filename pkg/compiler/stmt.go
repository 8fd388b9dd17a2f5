package compiler

import (
	"fmt"

	"tps3/pkg/ast"
	"tps3/pkg/bytecode"
)

func (c *Compiler) compileStmtList(stmts []*ast.Node) error {
	for _, s := range stmts {
		if err := c.compileStmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) compileStmt(n *ast.Node) error {
	switch n.Kind {
	case ast.KindBlock:
		return c.compileStmtList(n.Stmts)
	case ast.KindAssignment:
		return c.compileAssignment(n)
	case ast.KindProcedureCall:
		_, err := c.compileCall(n)
		return err
	case ast.KindIf:
		return c.compileIf(n)
	case ast.KindWhile:
		return c.compileWhile(n)
	case ast.KindRepeat:
		return c.compileRepeat(n)
	case ast.KindFor:
		return c.compileFor(n)
	case ast.KindExit:
		return c.compileExit(n)
	default:
		return fmt.Errorf("line %d: cannot compile statement of kind %s", n.Line, n.Kind)
	}
}

func (c *Compiler) compileAssignment(n *ast.Node) error {
	if err := c.compileLvalue(n.Target); err != nil {
		return err
	}
	if err := c.compileExpr(n.Value); err != nil {
		return err
	}
	_, err := c.bc.Emit(bytecode.OpSTI, 0, 0)
	return err
}

func (c *Compiler) compileIf(n *ast.Node) error {
	if err := c.compileExpr(n.Cond); err != nil {
		return err
	}
	fjpAddr, err := c.bc.Emit(bytecode.OpFJP, 0, 0)
	if err != nil {
		return err
	}
	if err := c.compileStmt(n.Then); err != nil {
		return err
	}
	if n.Else == nil {
		return c.bc.Patch(fjpAddr, bytecode.OpFJP, 0, c.bc.Here())
	}
	ujpAddr, err := c.bc.Emit(bytecode.OpUJP, 0, 0)
	if err != nil {
		return err
	}
	if err := c.bc.Patch(fjpAddr, bytecode.OpFJP, 0, c.bc.Here()); err != nil {
		return err
	}
	if err := c.compileStmt(n.Else); err != nil {
		return err
	}
	return c.bc.Patch(ujpAddr, bytecode.OpUJP, 0, c.bc.Here())
}

func (c *Compiler) compileWhile(n *ast.Node) error {
	top := c.bc.Here()
	if err := c.compileExpr(n.Cond); err != nil {
		return err
	}
	fjpAddr, err := c.bc.Emit(bytecode.OpFJP, 0, 0)
	if err != nil {
		return err
	}
	if err := c.compileStmt(n.Then); err != nil {
		return err
	}
	if _, err := c.bc.Emit(bytecode.OpUJP, 0, top); err != nil {
		return err
	}
	return c.bc.Patch(fjpAddr, bytecode.OpFJP, 0, c.bc.Here())
}

func (c *Compiler) compileRepeat(n *ast.Node) error {
	top := c.bc.Here()
	if err := c.compileStmtList(n.Stmts); err != nil {
		return err
	}
	if err := c.compileExpr(n.Cond); err != nil {
		return err
	}
	_, err := c.bc.Emit(bytecode.OpFJP, 0, top)
	return err
}

// compileFor lowers `for v := start to/downto high do body` into an
// explicit counted loop: an initial assignment, a per-iteration bound
// check, the body, and an INC/DEC of the control variable (spec §4.4).
func (c *Compiler) compileFor(n *ast.Node) error {
	if err := c.compileLvalue(n.LoopVar); err != nil {
		return err
	}
	if err := c.compileExpr(n.Start); err != nil {
		return err
	}
	if _, err := c.bc.Emit(bytecode.OpSTI, 0, 0); err != nil {
		return err
	}

	top := c.bc.Here()
	if err := c.compileIdentifierLoad(n.LoopVar); err != nil {
		return err
	}
	if err := c.compileExpr(n.High); err != nil {
		return err
	}
	cmp := bytecode.OpGRT
	if n.Downto {
		cmp = bytecode.OpLES
	}
	if _, err := c.bc.Emit(cmp, int(ast.TInteger), 0); err != nil {
		return err
	}
	exitAddr, err := c.bc.Emit(bytecode.OpTJP, 0, 0)
	if err != nil {
		return err
	}

	if err := c.compileStmt(n.Then); err != nil {
		return err
	}

	sym := n.LoopVar.SymbolLookup.Symbol
	level := n.LoopVar.SymbolLookup.Level
	step := bytecode.OpINC
	if n.Downto {
		step = bytecode.OpDEC
	}
	if _, err := c.bc.Emit(step, level, sym.Address); err != nil {
		return err
	}
	if _, err := c.bc.Emit(bytecode.OpUJP, 0, top); err != nil {
		return err
	}
	return c.bc.Patch(exitAddr, bytecode.OpTJP, 0, c.bc.Here())
}

func (c *Compiler) compileExit(n *ast.Node) error {
	addr, err := c.bc.Emit(bytecode.OpUJP, 0, 0)
	if err != nil {
		return err
	}
	top := len(c.exitStack) - 1
	c.exitStack[top] = append(c.exitStack[top], addr)
	return nil
}
