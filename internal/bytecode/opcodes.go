package bytecode

// OpCode is a single-byte instruction tag. Operand widths and stack effects
// are reproduced next to each case below so the emitter and the VM loop can
// be read side by side.
type OpCode byte

const (
	// OpConstant pushes constants[operand] where operand is a 1-byte index.
	OpConstant OpCode = iota
	// OpNil, OpTrue, OpFalse push their literal.
	OpNil
	OpTrue
	OpFalse
	// OpPop discards the top of the stack.
	OpPop
	// OpGetLocal/OpSetLocal take a 1-byte stack-slot operand.
	OpGetLocal
	OpSetLocal
	// OpGetGlobal/OpDefineGlobal/OpSetGlobal take a 1-byte constant-pool
	// index naming the global.
	OpGetGlobal
	OpDefineGlobal
	OpSetGlobal
	// OpEqual, OpGreater, OpLess pop b then a and push a Bool.
	OpEqual
	OpGreater
	OpLess
	// OpAdd/OpSubtract/OpMultiply/OpDivide pop b then a and push a Value.
	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
	// OpNot pushes Bool(v.IsFalsey()).
	OpNot
	// OpNegate requires a numeric operand.
	OpNegate
	// OpPrint pops and writes the value plus a newline.
	OpPrint
	// OpJump/OpJumpIfFalse/OpLoop take a 2-byte big-endian offset operand.
	OpJump
	OpJumpIfFalse
	OpLoop
	// OpReturn halts execution successfully.
	OpReturn
)

var names = map[OpCode]string{
	OpConstant:     "OP_CONSTANT",
	OpNil:          "OP_NIL",
	OpTrue:         "OP_TRUE",
	OpFalse:        "OP_FALSE",
	OpPop:          "OP_POP",
	OpGetLocal:     "OP_GET_LOCAL",
	OpSetLocal:     "OP_SET_LOCAL",
	OpGetGlobal:    "OP_GET_GLOBAL",
	OpDefineGlobal: "OP_DEFINE_GLOBAL",
	OpSetGlobal:    "OP_SET_GLOBAL",
	OpEqual:        "OP_EQUAL",
	OpGreater:      "OP_GREATER",
	OpLess:         "OP_LESS",
	OpAdd:          "OP_ADD",
	OpSubtract:     "OP_SUBTRACT",
	OpMultiply:     "OP_MULTIPLY",
	OpDivide:       "OP_DIVIDE",
	OpNot:          "OP_NOT",
	OpNegate:       "OP_NEGATE",
	OpPrint:        "OP_PRINT",
	OpJump:         "OP_JUMP",
	OpJumpIfFalse:  "OP_JUMP_IF_FALSE",
	OpLoop:         "OP_LOOP",
	OpReturn:       "OP_RETURN",
}

func (op OpCode) String() string {
	if name, ok := names[op]; ok {
		return name
	}
	return "OP_UNKNOWN"
}
