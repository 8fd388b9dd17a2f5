// Package pipeline wires the lexer/parser/compiler stages together behind
// the single `compile(sourceText) → Bytecode` entry point spec §6
// describes, plus the module bookkeeping a host needs to run the result
// back (see modules.go). Kept separate from pkg/toolchain (which every
// pipeline stage imports for its shared Error type) so this orchestration
// layer can import parser and compiler without creating an import cycle.
package pipeline

import (
	"tps3/pkg/ast"
	"tps3/pkg/bytecode"
	"tps3/pkg/compiler"
	"tps3/pkg/native"
	"tps3/pkg/parser"
)

// Compile runs the full pipeline spec §6 describes as the core's
// `compile(sourceText) → Bytecode` entry point: a fresh native registry
// and root symbol table with __builtin__ installed, any additional
// modules a `uses` clause may reach for, parsing (which also resolves
// names and type-checks), then tree-walking compilation to bytecode.
func Compile(source string, modules native.ModuleRegistry) (*bytecode.Bytecode, error) {
	reg := native.NewRegistry()
	root := ast.NewRootSymbolTable(reg)
	native.NewBuiltin().Install(reg, root)
	if modules == nil {
		modules = native.ModuleRegistry{}
	}

	prog, err := parser.New(source, reg, modules, root).Parse()
	if err != nil {
		return nil, err
	}
	bc, err := compiler.Compile(prog)
	if err != nil {
		return nil, err
	}
	bc.UsedModules = usedModuleNames(prog)
	return bc, nil
}

// usedModuleNames collects the `uses` clauses of prog's declaration list
// and of every nested procedure/function declaration list, in the order
// the parser encountered them.
func usedModuleNames(prog *ast.Node) []string {
	var names []string
	var walk func(locals []*ast.Node)
	walk = func(locals []*ast.Node) {
		for _, decl := range locals {
			switch decl.Kind {
			case ast.KindUses:
				names = append(names, decl.Uses)
			case ast.KindProcedure, ast.KindFunction:
				walk(decl.Locals)
			}
		}
	}
	walk(prog.Locals)
	return names
}
