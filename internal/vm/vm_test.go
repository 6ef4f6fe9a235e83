package vm

import (
	"bytes"
	"strings"
	"testing"

	loxerrors "loxvm/internal/errors"
)

func TestInterpretEndToEndScenarios(t *testing.T) {
	tests := []struct {
		name       string
		source     string
		wantStdout string
	}{
		{"arithmetic", `print 1 + 2;`, "3\n"},
		{"string concatenation", `print "he" + "llo";`, "hello\n"},
		{"uninitialized global prints nil", `var a; print a;`, "nil\n"},
		{"local shadowing and scope cleanup", `var a = 1; { var a = 2; print a; } print a;`, "2\n1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			machine := New(&out)
			if err := machine.Interpret(tt.source); err != nil {
				t.Fatalf("Interpret(%q) returned unexpected error: %v", tt.source, err)
			}
			if out.String() != tt.wantStdout {
				t.Fatalf("stdout = %q, want %q", out.String(), tt.wantStdout)
			}
		})
	}
}

func TestInterpretNegateNonNumberIsRuntimeError(t *testing.T) {
	var out bytes.Buffer
	machine := New(&out)
	err := machine.Interpret(`-true;`)
	re := requireRuntimeError(t, err)
	if !strings.Contains(re.Error(), "Operand must be a number.") {
		t.Fatalf("error = %q, want it to contain %q", re.Error(), "Operand must be a number.")
	}
}

func TestInterpretAddMismatchedTypesIsRuntimeError(t *testing.T) {
	var out bytes.Buffer
	machine := New(&out)
	err := machine.Interpret(`print 1 + "x";`)
	re := requireRuntimeError(t, err)
	if !strings.Contains(re.Error(), "Operands must be two numbers or two strings.") {
		t.Fatalf("error = %q, want it to contain the two-numbers-or-two-strings message", re.Error())
	}
}

func TestInterpretExpressionStatementLeavesStackEmpty(t *testing.T) {
	var out bytes.Buffer
	machine := New(&out)
	if err := machine.Interpret(`!nil == true;`); err != nil {
		t.Fatalf("Interpret returned unexpected error: %v", err)
	}
	if len(machine.stack) != 0 {
		t.Fatalf("stack = %v, want empty after a top-level expression statement", machine.stack)
	}
	if out.Len() != 0 {
		t.Fatalf("stdout = %q, want empty output", out.String())
	}
}

func TestInterpretEmptySourceLeavesStackEmpty(t *testing.T) {
	var out bytes.Buffer
	machine := New(&out)
	if err := machine.Interpret(""); err != nil {
		t.Fatalf("Interpret(\"\") returned unexpected error: %v", err)
	}
	if len(machine.stack) != 0 {
		t.Fatalf("stack = %v, want empty", machine.stack)
	}
}

func TestInterpretStringInterningSurvivesAcrossCalls(t *testing.T) {
	var out bytes.Buffer
	machine := New(&out)
	if err := machine.Interpret(`var greeting = "hello";`); err != nil {
		t.Fatalf("first Interpret failed: %v", err)
	}
	before := machine.strings.Len()
	if err := machine.Interpret(`var greeting = "hello";`); err != nil {
		t.Fatalf("second Interpret failed: %v", err)
	}
	if machine.strings.Len() != before {
		t.Fatalf("interning table grew from %d to %d re-interning the same literal", before, machine.strings.Len())
	}
}

func TestInterpretUndefinedGlobalIsRuntimeError(t *testing.T) {
	var out bytes.Buffer
	machine := New(&out)
	err := machine.Interpret(`print missing;`)
	re := requireRuntimeError(t, err)
	if !strings.Contains(re.Error(), "Undefined variable 'missing'.") {
		t.Fatalf("error = %q, want it to name the undefined variable as plain text, not a struct dump", re.Error())
	}
}

func TestInterpretCompileErrorDoesNotRun(t *testing.T) {
	var out bytes.Buffer
	machine := New(&out)
	err := machine.Interpret(`var;`)
	if _, ok := err.(*loxerrors.CompileError); !ok {
		t.Fatalf("expected *errors.CompileError, got %T (%v)", err, err)
	}
	if out.Len() != 0 {
		t.Fatalf("stdout = %q, a compile error should never execute", out.String())
	}
}

func requireRuntimeError(t *testing.T, err error) *loxerrors.RuntimeError {
	t.Helper()
	re, ok := err.(*loxerrors.RuntimeError)
	if !ok {
		t.Fatalf("expected *errors.RuntimeError, got %T (%v)", err, err)
	}
	return re
}
