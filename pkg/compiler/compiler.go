// Package compiler implements the tree-walking compiler of spec §4.4: it
// walks the AST the parser produced and emits p-code into a bytecode.Bytecode.
package compiler

import (
	"math"

	"tps3/pkg/ast"
	"tps3/pkg/bytecode"
	"tps3/pkg/toolchain"
)

// Compiler holds the bytecode under construction and the per-subprogram
// exit fix-up stack spec §4.4 calls for.
type Compiler struct {
	bc        *bytecode.Bytecode
	exitStack [][]int
}

// Compile lowers a fully parsed and type-checked program into bytecode.
func Compile(prog *ast.Node) (*bytecode.Bytecode, error) {
	c := &Compiler{bc: bytecode.New()}
	if err := c.compileProgram(prog); err != nil {
		return nil, err
	}
	return c.bc, nil
}

func (c *Compiler) compileProgram(prog *ast.Node) error {
	for _, d := range prog.Locals {
		if d.Kind == ast.KindProcedure || d.Kind == ast.KindFunction {
			if err := c.compileSubprogram(d); err != nil {
				return err
			}
		}
	}

	mainAddr, err := c.compileBody(prog.Scope, prog.Locals, prog.Body, nil)
	if err != nil {
		return err
	}

	// Top-level epilogue (spec §4.4): MST 0, CUP 0 mainAddr, STP.
	c.bc.StartAddress = c.bc.Here()
	if _, err := c.bc.Emit(bytecode.OpMST, 0, 0); err != nil {
		return err
	}
	if _, err := c.bc.Emit(bytecode.OpCUP, 0, mainAddr); err != nil {
		return err
	}
	if _, err := c.bc.Emit(bytecode.OpSTP, 0, 0); err != nil {
		return err
	}
	return nil
}

// compileSubprogram compiles d's nested subprograms, then d's own body.
// The enclosing scope's symbol for d is bound to d's entry address before
// the body is compiled, so a recursive call inside the body resolves to
// the right address.
func (c *Compiler) compileSubprogram(d *ast.Node) error {
	for _, nd := range d.Locals {
		if nd.Kind == ast.KindProcedure || nd.Kind == ast.KindFunction {
			if err := c.compileSubprogram(nd); err != nil {
				return err
			}
		}
	}
	addr := c.bc.Here()
	if parent := d.Scope.Parent(); parent != nil {
		if lookup, ok := parent.Lookup(d.Name); ok {
			lookup.Symbol.Address = addr
		}
	}
	_, err := c.compileBody(d.Scope, d.Locals, d.Body, d.RetType)
	return err
}

// compileBody emits one subprogram's (or the program's own) ENT..RTN
// region: frame entry, typed-constant copy-in, the statement body, and
// the return instruction exit statements jump to.
func (c *Compiler) compileBody(scope *ast.SymbolTable, locals []*ast.Node, body *ast.Node, retType *ast.Node) (int, error) {
	addr := c.bc.Here()
	frameSize := ast.MarkSize + scope.TotalParameterSize + scope.TotalVariableSize
	if _, err := c.bc.Emit(bytecode.OpENT, 0, frameSize); err != nil {
		return 0, err
	}
	if err := c.compileTypedConstInits(scope, locals); err != nil {
		return 0, err
	}
	c.exitStack = append(c.exitStack, nil)
	if err := c.compileStmtList(body.Stmts); err != nil {
		return 0, err
	}
	rtnAddr := c.bc.Here()
	if _, err := c.bc.Emit(bytecode.OpRTN, int(retTypeCode(retType)), 0); err != nil {
		return 0, err
	}
	if err := c.patchExits(rtnAddr); err != nil {
		return 0, err
	}
	return addr, nil
}

func retTypeCode(t *ast.Node) ast.SimpleTypeCode {
	if t == nil {
		return ast.TVoid
	}
	if t.Kind == ast.KindSimpleType {
		return t.SimpleCode
	}
	return ast.TAddress
}

func (c *Compiler) patchExits(rtnAddr int) error {
	n := len(c.exitStack)
	jumps := c.exitStack[n-1]
	c.exitStack = c.exitStack[:n-1]
	for _, addr := range jumps {
		if err := c.bc.Patch(addr, bytecode.OpUJP, 0, rtnAddr); err != nil {
			return err
		}
	}
	return nil
}

// compileTypedConstInits appends each typed constant's raw data to the
// bytecode's typed-constant blob, then emits LDA/LDC/LDI/STI to copy it
// from the blob into the declaration's own frame slot (spec §4.4): typed
// constants behave like reinitialized-on-entry variables, not statics.
func (c *Compiler) compileTypedConstInits(scope *ast.SymbolTable, locals []*ast.Node) error {
	for _, d := range locals {
		if d.Kind != ast.KindTypedConst {
			continue
		}
		lookup, ok := scope.Lookup(d.Name)
		if !ok {
			continue
		}
		destBase := lookup.Symbol.Address
		for i := 0; i < d.RawData.Len(); i++ {
			word, err := rawWord(d.RawData.Data[i], d.RawData.SimpleTypeCodes[i], c.bc)
			if err != nil {
				return err
			}
			blobAddr := c.bc.AppendTypedConstant(word)
			if _, err := c.bc.Emit(bytecode.OpLDA, 0, destBase+i); err != nil {
				return err
			}
			k := c.bc.InternInt(int64(blobAddr))
			if _, err := c.bc.Emit(bytecode.OpLDC, int(ast.TAddress), k); err != nil {
				return err
			}
			if _, err := c.bc.Emit(bytecode.OpLDI, 0, 0); err != nil {
				return err
			}
			if _, err := c.bc.Emit(bytecode.OpSTI, 0, 0); err != nil {
				return err
			}
		}
	}
	return nil
}

// errAt builds a compile-stage toolchain.Error anchored to a source line.
func errAt(line int, format string, args ...any) error {
	return toolchain.New(toolchain.StageCompile, "line %d: "+format, append([]any{line}, args...)...)
}

func rawWord(value any, code ast.SimpleTypeCode, bc *bytecode.Bytecode) (int64, error) {
	switch code {
	case ast.TInteger, ast.TAddress, ast.TChar:
		return value.(int64), nil
	case ast.TReal:
		return int64(math.Float64bits(value.(float64))), nil
	case ast.TBoolean:
		if value.(bool) {
			return 1, nil
		}
		return 0, nil
	case ast.TString:
		return int64(bc.InternString(value.(string))), nil
	default:
		return 0, toolchain.New(toolchain.StageCompile, "unsupported typed-constant element type %s", code)
	}
}
