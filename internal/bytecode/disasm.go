package bytecode

import (
	"fmt"
	"io"

	"loxvm/internal/value"
)

// Disassemble writes a human-readable dump of every instruction in c to w,
// labeled with name. It is a thin external collaborator to the
// compiler/VM, useful for --trace mode and for disassembly output.
//
// Disassembly visits every byte exactly once: repeatedly calling
// DisassembleInstruction and following its returned offset walks the whole
// of c.Code without gaps or repeats.
func Disassemble(w io.Writer, c *Chunk, name string) {
	fmt.Fprintf(w, "== %s ==\n", name)
	for offset := 0; offset < len(c.Code); {
		offset = DisassembleInstruction(w, c, offset)
	}
}

// DisassembleInstruction prints the single instruction at offset and returns
// the offset of the next instruction.
func DisassembleInstruction(w io.Writer, c *Chunk, offset int) int {
	fmt.Fprintf(w, "%04d ", offset)
	if offset > 0 && c.LineAt(offset) == c.LineAt(offset-1) {
		fmt.Fprint(w, "   | ")
	} else {
		fmt.Fprintf(w, "%4d ", c.LineAt(offset))
	}

	op := OpCode(c.Code[offset])
	switch op {
	case OpConstant, OpDefineGlobal, OpGetGlobal, OpSetGlobal:
		return constantInstruction(w, op, c, offset)
	case OpGetLocal, OpSetLocal:
		return byteInstruction(w, op, c, offset)
	case OpJump, OpJumpIfFalse, OpLoop:
		sign := 1
		if op == OpLoop {
			sign = -1
		}
		return jumpInstruction(w, op, sign, c, offset)
	case OpNil, OpTrue, OpFalse, OpPop, OpEqual, OpGreater, OpLess,
		OpAdd, OpSubtract, OpMultiply, OpDivide, OpNot, OpNegate,
		OpPrint, OpReturn:
		return simpleInstruction(w, op, offset)
	default:
		fmt.Fprintf(w, "Unknown opcode %d\n", byte(op))
		return offset + 1
	}
}

func simpleInstruction(w io.Writer, op OpCode, offset int) int {
	fmt.Fprintf(w, "%s\n", op)
	return offset + 1
}

func byteInstruction(w io.Writer, op OpCode, c *Chunk, offset int) int {
	slot := c.ReadByte(offset + 1)
	fmt.Fprintf(w, "%-16s %4d\n", op, slot)
	return offset + 2
}

func constantInstruction(w io.Writer, op OpCode, c *Chunk, offset int) int {
	idx := c.ReadByte(offset + 1)
	v := c.Constants[idx]
	fmt.Fprintf(w, "%-16s %4d '%s'\n", op, idx, value.ToString(v))
	return offset + 2
}

func jumpInstruction(w io.Writer, op OpCode, sign int, c *Chunk, offset int) int {
	jump := int(c.ReadByte(offset+1))<<8 | int(c.ReadByte(offset+2))
	fmt.Fprintf(w, "%-16s %4d -> %d\n", op, offset, offset+3+sign*jump)
	return offset + 3
}
