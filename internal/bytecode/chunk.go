package bytecode

import (
	"github.com/pkg/errors"

	"loxvm/internal/value"
)

// MaxConstants is the hard per-chunk limit imposed by the 1-byte constant
// index operand: a chunk may hold at most 256 distinct constants.
const MaxConstants = 256

// Chunk is a unit of compiled code: an ordered byte stream, a side constant
// pool referenced by 1-byte indices, and a line table with exactly one entry
// per byte of Code (|Lines| == |Code| at all times).
type Chunk struct {
	Code      []byte
	Constants []value.Value
	Lines     []int
}

// NewChunk returns an empty chunk. Bytecode only ever grows; there is no
// defragmentation.
func NewChunk() *Chunk {
	return &Chunk{}
}

// Write appends one raw byte (an opcode or an operand byte) tagged with the
// source line that produced it.
func (c *Chunk) Write(b byte, line int) {
	c.Code = append(c.Code, b)
	c.Lines = append(c.Lines, line)
}

// WriteOp appends an opcode byte.
func (c *Chunk) WriteOp(op OpCode, line int) {
	c.Write(byte(op), line)
}

// AddConstant appends val to the constant pool and returns its index. It
// fails once the pool would exceed MaxConstants entries, since no opcode can
// address a constant beyond a 1-byte index.
func (c *Chunk) AddConstant(val value.Value) (int, error) {
	if len(c.Constants) >= MaxConstants {
		return 0, errors.New("Too many constants in one chunk.")
	}
	c.Constants = append(c.Constants, val)
	return len(c.Constants) - 1, nil
}

// ReadByte returns the byte at ip. Callers are trusted to keep ip in range;
// the compiler's invariants guarantee every operand byte a well-formed
// program reads was itself written by the compiler.
func (c *Chunk) ReadByte(ip int) byte {
	return c.Code[ip]
}

// ReadConstant returns the constant referenced by the 1-byte index at ip.
func (c *Chunk) ReadConstant(ip int) value.Value {
	return c.Constants[c.ReadByte(ip)]
}

// LineAt returns the source line that produced the byte at ip, used for
// error reporting and disassembly.
func (c *Chunk) LineAt(ip int) int {
	if ip < 0 || ip >= len(c.Lines) {
		return -1
	}
	return c.Lines[ip]
}
