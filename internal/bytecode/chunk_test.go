package bytecode

import (
	"bytes"
	"testing"

	"loxvm/internal/value"
)

func TestWriteKeepsLinesParallelToCode(t *testing.T) {
	c := NewChunk()
	c.WriteOp(OpNil, 1)
	c.WriteOp(OpTrue, 2)
	c.WriteOp(OpReturn, 2)

	if len(c.Code) != len(c.Lines) {
		t.Fatalf("len(Code)=%d, len(Lines)=%d, want equal", len(c.Code), len(c.Lines))
	}
	if c.LineAt(0) != 1 || c.LineAt(1) != 2 || c.LineAt(2) != 2 {
		t.Fatalf("unexpected line table: %v", c.Lines)
	}
}

func TestAddConstantEnforcesMaxConstants(t *testing.T) {
	c := NewChunk()
	for i := 0; i < MaxConstants; i++ {
		if _, err := c.AddConstant(value.Number(float64(i))); err != nil {
			t.Fatalf("AddConstant #%d: unexpected error: %v", i, err)
		}
	}

	if _, err := c.AddConstant(value.Number(999)); err == nil {
		t.Fatalf("AddConstant beyond MaxConstants (%d) should fail", MaxConstants)
	}
}

func TestDisassembleVisitsEveryByteExactlyOnce(t *testing.T) {
	c := NewChunk()
	idx, _ := c.AddConstant(value.Number(1))
	c.WriteOp(OpConstant, 1)
	c.Write(byte(idx), 1)
	c.WriteOp(OpJumpIfFalse, 1)
	c.Write(0, 1)
	c.Write(5, 1)
	c.WriteOp(OpPop, 1)
	c.WriteOp(OpReturn, 2)

	var buf bytes.Buffer
	total := 0
	for offset := 0; offset < len(c.Code); {
		next := DisassembleInstruction(&buf, c, offset)
		if next <= offset {
			t.Fatalf("DisassembleInstruction did not advance past offset %d", offset)
		}
		total += next - offset
		offset = next
	}
	if total != len(c.Code) {
		t.Fatalf("disassembly covered %d bytes, want %d", total, len(c.Code))
	}
}

func TestDisassembleWritesHeaderAndEveryMnemonic(t *testing.T) {
	c := NewChunk()
	c.WriteOp(OpTrue, 1)
	c.WriteOp(OpNot, 1)
	c.WriteOp(OpReturn, 1)

	var buf bytes.Buffer
	Disassemble(&buf, c, "code")

	out := buf.String()
	for _, want := range []string{"== code ==", "OP_TRUE", "OP_NOT", "OP_RETURN"} {
		if !bytes.Contains(buf.Bytes(), []byte(want)) {
			t.Fatalf("Disassemble output %q missing %q", out, want)
		}
	}
}
