package pipeline

import (
	"tps3/pkg/bytecode"
	"tps3/pkg/modules/crt"
	"tps3/pkg/modules/graph"
	"tps3/pkg/modules/mouse"
	"tps3/pkg/native"
)

// DefaultModules returns the pluggable modules a host is expected to offer
// alongside the always-present __builtin__ module (spec §6: "Additional
// modules (crt, graph, mouse) are pluggable and added via the same
// registration interface; they are outside the core"). Each call returns
// fresh module instances so independent Compile/Run pairs don't share
// mutable device state.
func DefaultModules() (native.ModuleRegistry, *crt.Module, *graph.Module, *mouse.Module) {
	c := crt.New()
	g := graph.New()
	ms := mouse.New()
	mods := native.ModuleRegistry{}
	mods.Add(c)
	mods.Add(g)
	mods.Add(ms)
	return mods, c, g, ms
}

// RuntimeRegistry reconstructs the native registry a saved bytecode file
// needs to run, from bc.UsedModules against the given module catalog. Pass
// the same catalog Compile was given (or DefaultModules() if it was nil)
// so CSP call-site indices line up with the ones the compiler emitted.
func RuntimeRegistry(bc *bytecode.Bytecode, modules native.ModuleRegistry) (*native.Registry, error) {
	return native.BuildRuntimeRegistry(modules, bc.UsedModules)
}
