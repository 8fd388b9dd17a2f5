package native

import "tps3/pkg/ast"

// Module is a pluggable, named collection of native procedures, types and
// constants (the built-in "__builtin__" module, plus optional "crt",
// "graph", "mouse" modules). Install registers this module's procedures
// into the shared registry (each call appends a fresh set of entries) and
// defines the corresponding symbols into table, so only programs that
// `uses` a module can see its names.
type Module interface {
	Name() string
	Install(reg *Registry, table *ast.SymbolTable)
}

// ModuleRegistry maps a module name (as it appears after `uses`) to its
// implementation.
type ModuleRegistry map[string]Module

// Get resolves a module by name, case-insensitively.
func (m ModuleRegistry) Get(name string) (Module, bool) {
	mod, ok := m[key(name)]
	return mod, ok
}

// Add registers a module under its own Name().
func (m ModuleRegistry) Add(mod Module) {
	m[key(mod.Name())] = mod
}
