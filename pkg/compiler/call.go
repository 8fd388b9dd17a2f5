package compiler

import (
	"tps3/pkg/ast"
	"tps3/pkg/bytecode"
)

// compileCall lowers a function/procedure call (spec §4.4): native calls
// push their arguments and emit CSP; user calls push a mark (with the
// lexical-level static link), push their arguments, and emit CUP. Both
// leave a pushed return value on the stack only when the call is in an
// expression context (KindFunctionCall); a statement-context
// KindProcedureCall leaves the stack exactly as it found it.
func (c *Compiler) compileCall(n *ast.Node) (int, error) {
	sym := n.SymbolLookup.Symbol
	subType := sym.Type

	if sym.IsNative {
		argSz, err := c.compileArgs(subType.Params, n.Args)
		if err != nil {
			return 0, err
		}
		_, err = c.bc.Emit(bytecode.OpCSP, argSz, sym.Address)
		return argSz, err
	}

	if _, err := c.bc.Emit(bytecode.OpMST, n.SymbolLookup.Level, 0); err != nil {
		return 0, err
	}
	argSz, err := c.compileArgs(subType.Params, n.Args)
	if err != nil {
		return 0, err
	}
	_, err = c.bc.Emit(bytecode.OpCUP, argSz, sym.Address)
	return argSz, err
}

// compileArgs returns the pushed argument size in words, which becomes
// the CSP/CUP operand naming how many words to pop. For a native call
// (CSP) this is only ever equal to the argument count because every
// native parameter is a 1-word simple type or a by-ref address
// (execCSP's assumption, pkg/pmachine/exec.go); a by-value compound
// native parameter would need this to stay a size and execCSP's pop
// count to change accordingly.
func (c *Compiler) compileArgs(params []*ast.Node, args []*ast.Node) (int, error) {
	size := 0
	for i, arg := range args {
		if i < len(params) && params[i].ByRef {
			if err := c.compileLvalue(arg); err != nil {
				return 0, err
			}
			size++
			continue
		}
		if err := c.compileExpr(arg); err != nil {
			return 0, err
		}
		if i < len(params) {
			size += ast.TypeSize(params[i].ElemType)
		} else {
			size++
		}
	}
	return size, nil
}
