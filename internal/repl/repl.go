// Package repl implements the interactive line-at-a-time driver: read a
// line, hand it to one long-lived VM's Interpret, report any error to
// stderr, and read the next line regardless of what happened.
package repl

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"loxvm/internal/vm"
)

// maxLine is the per-line size cap imposed on REPL input.
const maxLine = 1024

// REPL wraps one VM shared across every line it reads, so that global
// variables and interned strings persist across a session — interning
// survives repeated interpret calls.
type REPL struct {
	vm          *vm.VM
	out         io.Writer
	errOut      io.Writer
	interactive bool
}

// New builds a REPL that prints OpPrint output and the prompt to out and
// error text to errOut. The prompt is only printed when out is an actual
// terminal, detected with mattn/go-isatty, so output redirected to a file or
// pipe carries no prompt noise.
func New(out, errOut io.Writer) *REPL {
	r := &REPL{vm: vm.New(out), out: out, errOut: errOut}
	if f, ok := out.(*os.File); ok {
		r.interactive = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return r
}

// SetTrace forwards to the underlying VM (see cmd/lox's --trace flag).
func (r *REPL) SetTrace(w io.Writer) { r.vm.SetTrace(w) }

// Run reads lines from in until EOF. A line longer than maxLine bytes is
// reported to errOut rather than silently truncated, and ends the session:
// no further lines are read after it.
func (r *REPL) Run(in io.Reader) {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, maxLine), maxLine)

	for {
		if r.interactive {
			fmt.Fprint(r.out, "> ")
		}
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				fmt.Fprintln(r.errOut, "input error:", err)
			}
			return
		}
		if err := r.vm.Interpret(scanner.Text()); err != nil {
			fmt.Fprintln(r.errOut, err)
		}
	}
}
