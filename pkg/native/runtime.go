package native

import (
	"fmt"

	"tps3/pkg/ast"
)

// BuildRuntimeRegistry reconstructs the native registry a host needs to run
// previously-compiled bytecode: __builtin__ first, then each named module
// from catalog, in the exact order bytecode.UsedModules recorded them.
// Because a native call site's operand is a positional index into the
// registry (spec §6), running compiled bytecode against a different
// module order would silently dispatch the wrong procedure -- this
// reconstructs the compile-time layout exactly rather than re-deriving it.
func BuildRuntimeRegistry(catalog ModuleRegistry, usedModules []string) (*Registry, error) {
	reg := NewRegistry()
	// Install needs a SymbolTable to write definitions into, but a
	// runtime host has no parser and never consults it; a throwaway root
	// table satisfies the Module interface without cost.
	table := ast.NewRootSymbolTable(reg)
	NewBuiltin().Install(reg, table)
	for _, name := range usedModules {
		mod, ok := catalog.Get(name)
		if !ok {
			return nil, fmt.Errorf("native: unknown module %q referenced by bytecode", name)
		}
		mod.Install(reg, table)
	}
	return reg, nil
}
