// Package vm implements the stack-based bytecode interpreter: a flat
// operand stack, a globals table keyed by interned names, and a single
// fetch-decode-execute loop with no call stack (there are no functions to
// call).
package vm

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"loxvm/internal/bytecode"
	"loxvm/internal/compiler"
	loxerrors "loxvm/internal/errors"
	"loxvm/internal/value"
)

// VM owns everything one interpret call touches: the operand stack, the
// globals table, and the interning table it shares with the compiler across
// however many Interpret calls the caller makes (the REPL makes many over
// one VM, so that string interning and global state persist between lines).
type VM struct {
	chunk   *bytecode.Chunk
	ip      int
	stack   []value.Value
	globals map[*value.Interned]value.Value
	strings *value.Table

	out    io.Writer
	traceW io.Writer

	instructions uint64
}

// New builds a VM that writes OpPrint output to out. Trace diagnostics, when
// enabled with SetTrace, are written to traceW.
func New(out io.Writer) *VM {
	return &VM{
		globals: make(map[*value.Interned]value.Value),
		strings: value.NewTable(),
		out:     out,
	}
}

// SetTrace turns on the optional trace mode: the stack and the current
// instruction are printed before every step.
func (vm *VM) SetTrace(w io.Writer) { vm.traceW = w }

// Interpret compiles source against the VM's shared string table and, on
// success, runs the resulting chunk. Each call is stamped with a fresh
// google/uuid run id in trace output, so a REPL transcript that interleaves
// many interpret calls can be read back unambiguously.
func (vm *VM) Interpret(source string) error {
	chunk := bytecode.NewChunk()
	if err := compiler.Compile(source, chunk, vm.strings); err != nil {
		return err
	}

	vm.chunk = chunk
	vm.ip = 0
	vm.stack = vm.stack[:0]

	runID := uuid.New()
	start := time.Now()
	if vm.traceW != nil {
		fmt.Fprintf(vm.traceW, "== run %s (chunk %s) ==\n", runID, fingerprint(chunk))
		bytecode.Disassemble(vm.traceW, chunk, "code")
	}

	err := vm.runProtected()

	if vm.traceW != nil {
		fmt.Fprintf(vm.traceW, "== %s instructions in %s ==\n",
			humanize.Comma(int64(vm.instructions)), time.Since(start))
	}
	return err
}

// runProtected runs the fetch-decode-execute loop and turns any panic it
// raises — an out-of-range stack slot or jump target from a miscompiled or
// hand-forged chunk — into a RuntimeError instead of crashing the host
// process. The compiler's own output never triggers this; it exists for
// malformed bytecode reaching the VM by some other path.
func (vm *VM) runProtected() (err error) {
	defer func() {
		if r := recover(); r != nil {
			line := vm.chunk.LineAt(vm.ip - 1)
			vm.stack = vm.stack[:0]
			err = loxerrors.WrapRuntimeError(line, fmt.Errorf("%v", r), "internal interpreter error")
		}
	}()
	return vm.run()
}

// fingerprint returns a short, stable identity for a compiled chunk's code
// and constant pool, used only to correlate trace/disassembly output across
// runs — never persisted, never sent anywhere.
func fingerprint(c *bytecode.Chunk) string {
	h, _ := blake2b.New(4, nil)
	h.Write(c.Code)
	for _, v := range c.Constants {
		h.Write([]byte(value.ToString(v)))
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

func (vm *VM) push(v value.Value) { vm.stack = append(vm.stack, v) }

func (vm *VM) pop() value.Value {
	last := len(vm.stack) - 1
	v := vm.stack[last]
	vm.stack = vm.stack[:last]
	return v
}

func (vm *VM) peek(distance int) value.Value {
	return vm.stack[len(vm.stack)-1-distance]
}

func (vm *VM) readByte() byte {
	b := vm.chunk.ReadByte(vm.ip)
	vm.ip++
	return b
}

func (vm *VM) readShort() int {
	hi := int(vm.readByte())
	lo := int(vm.readByte())
	return hi<<8 | lo
}

func (vm *VM) readConstant() value.Value {
	return vm.chunk.Constants[vm.readByte()]
}

// runtimeError builds the RuntimeError for the instruction just executed.
// ip has already advanced past the opcode (and any operand bytes), so the
// offending instruction's line is chunk.lines[ip-1].
func (vm *VM) runtimeError(format string, args ...interface{}) *loxerrors.RuntimeError {
	line := vm.chunk.LineAt(vm.ip - 1)
	vm.stack = vm.stack[:0]
	return loxerrors.NewRuntimeError(line, format, args...)
}

// run executes vm.chunk from vm.ip until OpReturn or a runtime error.
func (vm *VM) run() error {
	for {
		if vm.traceW != nil {
			vm.printStack()
			bytecode.DisassembleInstruction(vm.traceW, vm.chunk, vm.ip)
		}

		vm.instructions++
		op := bytecode.OpCode(vm.readByte())

		switch op {
		case bytecode.OpConstant:
			vm.push(vm.readConstant())

		case bytecode.OpNil:
			vm.push(value.Nil())
		case bytecode.OpTrue:
			vm.push(value.Bool(true))
		case bytecode.OpFalse:
			vm.push(value.Bool(false))

		case bytecode.OpPop:
			vm.pop()

		case bytecode.OpGetLocal:
			slot := vm.readByte()
			vm.push(vm.stack[slot])

		case bytecode.OpSetLocal:
			slot := vm.readByte()
			vm.stack[slot] = vm.peek(0)

		case bytecode.OpGetGlobal:
			name := vm.readConstant().Str
			v, ok := vm.globals[name]
			if !ok {
				return vm.runtimeError("Undefined variable '%s'.", name)
			}
			vm.push(v)

		case bytecode.OpDefineGlobal:
			name := vm.readConstant().Str
			vm.globals[name] = vm.pop()

		case bytecode.OpSetGlobal:
			name := vm.readConstant().Str
			if _, ok := vm.globals[name]; !ok {
				return vm.runtimeError("Undefined variable '%s'.", name)
			}
			vm.globals[name] = vm.peek(0)

		case bytecode.OpEqual:
			b := vm.pop()
			a := vm.pop()
			vm.push(value.Bool(value.Equal(a, b)))

		case bytecode.OpGreater:
			if err := vm.binaryOp(func(a, b float64) value.Value { return value.Bool(a > b) }); err != nil {
				return err
			}
		case bytecode.OpLess:
			if err := vm.binaryOp(func(a, b float64) value.Value { return value.Bool(a < b) }); err != nil {
				return err
			}

		case bytecode.OpAdd:
			if err := vm.add(); err != nil {
				return err
			}
		case bytecode.OpSubtract:
			if err := vm.binaryOp(func(a, b float64) value.Value { return value.Number(a - b) }); err != nil {
				return err
			}
		case bytecode.OpMultiply:
			if err := vm.binaryOp(func(a, b float64) value.Value { return value.Number(a * b) }); err != nil {
				return err
			}
		case bytecode.OpDivide:
			if err := vm.binaryOp(func(a, b float64) value.Value { return value.Number(a / b) }); err != nil {
				return err
			}

		case bytecode.OpNot:
			vm.push(value.Bool(vm.pop().IsFalsey()))

		case bytecode.OpNegate:
			if !vm.peek(0).IsNumber() {
				return vm.runtimeError("Operand must be a number. Got %s.", value.TypeName(vm.peek(0)))
			}
			vm.push(value.Number(-vm.pop().Number))

		case bytecode.OpPrint:
			fmt.Fprintln(vm.out, value.ToString(vm.pop()))

		case bytecode.OpJump:
			offset := vm.readShort()
			vm.ip += offset

		case bytecode.OpJumpIfFalse:
			offset := vm.readShort()
			if vm.peek(0).IsFalsey() {
				vm.ip += offset
			}

		case bytecode.OpLoop:
			offset := vm.readShort()
			vm.ip -= offset

		case bytecode.OpReturn:
			return nil
		}
	}
}

// add dispatches OpAdd: Number+Number sums, String+String concatenates into
// a fresh interned string, anything else is a type error. The right operand
// is popped first, matching the pop order every other binary op uses.
func (vm *VM) add() error {
	b := vm.peek(0)
	a := vm.peek(1)
	switch {
	case a.IsNumber() && b.IsNumber():
		vm.pop()
		vm.pop()
		vm.push(value.Number(a.Number + b.Number))
	case a.IsString() && b.IsString():
		vm.pop()
		vm.pop()
		vm.push(value.String(vm.strings.Intern(a.RawString() + b.RawString())))
	default:
		return vm.runtimeError("Operands must be two numbers or two strings. Got %s and %s.",
			value.TypeName(a), value.TypeName(b))
	}
	return nil
}

// binaryOp implements the shared numeric-only opcodes (Subtract, Multiply,
// Divide, Greater, Less): pop b then a, both must be Number.
func (vm *VM) binaryOp(op func(a, b float64) value.Value) error {
	if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
		return vm.runtimeError("Operands must be numbers. Got %s and %s.",
			value.TypeName(vm.peek(1)), value.TypeName(vm.peek(0)))
	}
	b := vm.pop()
	a := vm.pop()
	vm.push(op(a.Number, b.Number))
	return nil
}

func (vm *VM) printStack() {
	fmt.Fprint(vm.traceW, "          ")
	for _, v := range vm.stack {
		fmt.Fprintf(vm.traceW, "[ %s ]", value.ToString(v))
	}
	fmt.Fprintln(vm.traceW)
}
