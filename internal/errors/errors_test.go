package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestCompileErrorFormatsSingleMessage(t *testing.T) {
	err := NewCompileError(3, "Expect expression.")
	want := "[line 3] Error: Expect expression."
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestCompileErrorSummarizesMultipleMessages(t *testing.T) {
	err := NewCompileError(1, "first problem")
	err.Add(2, "second problem")
	if !strings.HasPrefix(err.Error(), "2 compile errors, first:") {
		t.Fatalf("Error() = %q, want a summary of the accumulated messages", err.Error())
	}
}

func TestRuntimeErrorFormat(t *testing.T) {
	err := NewRuntimeError(7, "Operand must be a number.")
	want := "Operand must be a number.\n[line 7] in script"
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestWrapRuntimeErrorUnwraps(t *testing.T) {
	cause := errors.New("boom")
	err := WrapRuntimeError(4, cause, "native call failed")
	if !errors.Is(err, cause) {
		t.Fatalf("errors.Is(err, cause) = false, want true")
	}
	if !strings.Contains(fmt.Sprintf("%+v", err), "boom") {
		t.Fatalf("%%+v rendering should include the wrapped cause")
	}
}

func TestFilesystemErrorUnwraps(t *testing.T) {
	cause := errors.New("permission denied")
	err := NewFilesystemError("/tmp/script.lox", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("errors.Is(err, cause) = false, want true")
	}
	if !strings.Contains(err.Error(), "/tmp/script.lox") {
		t.Fatalf("Error() = %q, want it to name the path", err.Error())
	}
}
