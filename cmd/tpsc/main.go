// Command tpsc compiles a Turbo-Pascal-3-flavored source file down to a
// bytecode file the way the teacher's cmd/ccompiler/main.go compiles C
// source to machine code: flag-driven, single input, one artifact out.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"tps3/pkg/pipeline"
	"tps3/pkg/pmachine"
)

func main() {
	inPath := flag.String("in", "", "source file to compile (required)")
	outPath := flag.String("out", "", "bytecode output path (defaults to <in> with .tpc extension)")
	run := flag.Bool("run", false, "run the compiled program immediately after a successful compile")
	disasm := flag.Bool("disasm", false, "print a disassembly listing to stderr after compiling")
	trace := flag.Bool("trace", false, "print one disassembly line per instruction stepped while running (implies -run)")
	flag.Parse()

	if *inPath == "" {
		log.Fatalf("tpsc: -in is required")
	}
	if *trace {
		*run = true
	}
	if *outPath == "" {
		*outPath = withExtension(*inPath, ".tpc")
	}

	src, err := os.ReadFile(*inPath)
	if err != nil {
		log.Fatalf("tpsc: reading %s: %v", *inPath, err)
	}

	modules, _, _, _ := pipeline.DefaultModules()
	bc, err := pipeline.Compile(string(src), modules)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if *disasm {
		fmt.Fprintln(os.Stderr, bc.Disassemble())
	}

	if err := bc.Save(*outPath); err != nil {
		log.Fatalf("tpsc: writing %s: %v", *outPath, err)
	}
	fmt.Printf("tpsc: wrote %s\n", *outPath)

	if !*run {
		return
	}

	reg, err := pipeline.RuntimeRegistry(bc, modules)
	if err != nil {
		log.Fatalf("tpsc: %v", err)
	}
	m := pmachine.New(bc, reg)
	m.SetOutputCallback(func(line string) { fmt.Println(line) })
	if *trace {
		m.SetDebugCallback(func(line string) { fmt.Fprintln(os.Stderr, line) })
	}
	var runErr error
	done := make(chan struct{})
	m.SetFinishCallback(func(elapsed time.Duration, err error) {
		runErr = err
		fmt.Printf("tpsc: finished in %s\n", elapsed)
		close(done)
	})
	m.Run()
	<-done
	if runErr != nil {
		fmt.Fprintln(os.Stderr, runErr)
		os.Exit(1)
	}
}

func withExtension(path, ext string) string {
	for i := len(path) - 1; i >= 0 && path[i] != '/'; i-- {
		if path[i] == '.' {
			return path[:i] + ext
		}
	}
	return path + ext
}
