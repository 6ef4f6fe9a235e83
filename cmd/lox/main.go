// Command lox is the CLI driver: no arguments opens a REPL on stdin/stdout;
// one argument runs that file; more than one is a usage error. A --trace
// argument, in any position, turns on trace output and is not counted. It parses
// os.Args directly rather than reaching for a flags/cobra library.
package main

import (
	"fmt"
	"os"

	"loxvm/internal/errors"
	"loxvm/internal/repl"
	"loxvm/internal/vm"
)

const (
	exitOK           = 0
	exitUsage        = 64
	exitCompileError = 65
	exitRuntimeError = 70
	exitFilesystem   = 74
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	trace := false
	positional := make([]string, 0, len(args))
	for _, a := range args {
		if a == "--trace" {
			trace = true
			continue
		}
		positional = append(positional, a)
	}

	switch len(positional) {
	case 0:
		r := repl.New(os.Stdout, os.Stderr)
		if trace {
			r.SetTrace(os.Stderr)
		}
		r.Run(os.Stdin)
		return exitOK
	case 1:
		return runFile(positional[0], trace)
	default:
		fmt.Fprintln(os.Stderr, "Usage: lox [--trace] [script]")
		return exitUsage
	}
}

func runFile(path string, trace bool) int {
	source, err := os.ReadFile(path)
	if err != nil {
		fsErr := errors.NewFilesystemError(path, err)
		fmt.Fprintln(os.Stderr, fsErr)
		return exitFilesystem
	}

	machine := vm.New(os.Stdout)
	if trace {
		machine.SetTrace(os.Stderr)
	}

	switch interpretErr := machine.Interpret(string(source)); interpretErr.(type) {
	case nil:
		return exitOK
	case *errors.CompileError:
		fmt.Fprintln(os.Stderr, interpretErr)
		return exitCompileError
	case *errors.RuntimeError:
		fmt.Fprintln(os.Stderr, interpretErr)
		return exitRuntimeError
	default:
		fmt.Fprintln(os.Stderr, interpretErr)
		return exitRuntimeError
	}
}
