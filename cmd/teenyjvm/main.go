// Command teenyjvm loads a single class file and runs its main method.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/chazu/teenyjvm/internal/classfile"
	"github.com/chazu/teenyjvm/internal/config"
	"github.com/chazu/teenyjvm/internal/snapshot"
	"github.com/chazu/teenyjvm/internal/trace"
	"github.com/chazu/teenyjvm/internal/vm"
)

const (
	mainMethodName       = "main"
	mainMethodDescriptor = "([Ljava/lang/String;)V"
)

func main() {
	dumpHeap := flag.String("dump-heap", "", "write a CBOR snapshot of the heap to this path after running")
	tracePath := flag.String("trace-db", "", "record an execution trace to this sqlite database (overrides [trace] db_path)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: teenyjvm <classfile>\n\n")
		fmt.Fprintf(os.Stderr, "Loads <classfile> and runs its main%s method.\n\n", mainMethodDescriptor)
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}
	classPath := flag.Arg(0)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "teenyjvm: %v\n", err)
		os.Exit(1)
	}

	f, err := os.Open(classPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "teenyjvm: %v\n", err)
		os.Exit(1)
	}
	class, err := classfile.Parse(f)
	f.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "teenyjvm: parsing %s: %v\n", classPath, err)
		os.Exit(1)
	}

	method, ok := class.FindMethod(mainMethodName, mainMethodDescriptor)
	if !ok {
		fmt.Fprintf(os.Stderr, "teenyjvm: %s: no main%s method\n", classPath, mainMethodDescriptor)
		os.Exit(1)
	}

	heap := vm.NewHeapWithCapacity(cfg.Heap.InitialCapacity)

	opts := []vm.Option{
		vm.WithMaxCallDepth(cfg.Run.MaxCallDepth),
		vm.WithOutput(os.Stdout),
		vm.WithInstructionTrace(cfg.Run.Trace),
	}

	dbPath := cfg.Trace.DBPath
	if *tracePath != "" {
		dbPath = *tracePath
	}
	if dbPath != "" {
		recorder, err := trace.Open(dbPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "teenyjvm: %v\n", err)
			os.Exit(1)
		}
		defer recorder.Close()
		opts = append(opts, vm.WithTracer(recorder))
	}

	interp := vm.New(class, heap, opts...)

	// main's sole argument is a reference to a String[]; this subset never
	// inspects it, so main() always receives the reference value 0 and no
	// array is allocated for it.
	_, hasValue, err := interp.Run(method, []int32{0})
	if err != nil {
		fmt.Fprintf(os.Stderr, "teenyjvm: %v\n", err)
		os.Exit(1)
	}
	if hasValue {
		fmt.Fprintf(os.Stderr, "teenyjvm: main%s returned a value, expected void\n", mainMethodDescriptor)
		os.Exit(1)
	}

	if *dumpHeap != "" {
		if err := snapshot.Dump(heap, *dumpHeap); err != nil {
			fmt.Fprintf(os.Stderr, "teenyjvm: %v\n", err)
			os.Exit(1)
		}
	}
}
