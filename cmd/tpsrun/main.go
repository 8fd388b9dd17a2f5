// Command tpsrun is the console host: it loads a bytecode file tpsc
// produced, wires WriteLn output to stdout, runs the program to
// completion, and prints elapsed time -- the p-machine analogue of the
// teacher's cmd/console/main.go.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"tps3/pkg/bytecode"
	"tps3/pkg/pipeline"
	"tps3/pkg/pmachine"
)

func main() {
	inPath := flag.String("in", "", "bytecode file to run (required)")
	trace := flag.Bool("trace", false, "print one disassembly line per instruction stepped")
	flag.Parse()

	if *inPath == "" {
		log.Fatalf("tpsrun: -in is required")
	}

	bc, err := bytecode.Load(*inPath)
	if err != nil {
		log.Fatalf("tpsrun: loading %s: %v", *inPath, err)
	}

	modules, _, _, _ := pipeline.DefaultModules()
	reg, err := pipeline.RuntimeRegistry(bc, modules)
	if err != nil {
		log.Fatalf("tpsrun: %v", err)
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
		fmt.Fprintf(os.Stderr, "tpsrun: finished in %s\n", elapsed)
		close(done)
	})
	m.Run()
	<-done

	if runErr != nil {
		fmt.Fprintln(os.Stderr, runErr)
		os.Exit(1)
	}
}
