// Package compiler implements a single-pass Pratt compiler: it drives the
// Scanner directly and emits bytecode as it parses, without ever building an
// intermediate AST. Every opcode it emits is documented in internal/bytecode
// and executed by internal/vm — the two packages are deliberately read
// together, since the meaning of an opcode is split across them.
package compiler

import (
	"strconv"

	"loxvm/internal/bytecode"
	loxerrors "loxvm/internal/errors"
	"loxvm/internal/lexer"
	"loxvm/internal/value"
)

const maxLocals = 256

// precedence orders how tightly an infix operator binds, lowest first.
type precedence int

const (
	precNone       precedence = iota
	precAssignment            // =
	precOr                    // or
	precAnd                   // and
	precEquality              // == !=
	precComparison            // < > <= >=
	precTerm                  // + -
	precFactor                // * /
	precUnary                 // ! -
	precCall                  // . ()
	precPrimary
)

type parseFn func(c *Compiler, canAssign bool)

type parseRule struct {
	prefix     parseFn
	infix      parseFn
	precedence precedence
}

var rules map[lexer.TokenType]parseRule

func init() {
	rules = map[lexer.TokenType]parseRule{
		lexer.TokenLeftParen:    {grouping, nil, precNone},
		lexer.TokenMinus:        {unary, binary, precTerm},
		lexer.TokenPlus:         {nil, binary, precTerm},
		lexer.TokenSlash:        {nil, binary, precFactor},
		lexer.TokenStar:         {nil, binary, precFactor},
		lexer.TokenBang:         {unary, nil, precNone},
		lexer.TokenBangEqual:    {nil, binary, precEquality},
		lexer.TokenEqualEqual:   {nil, binary, precEquality},
		lexer.TokenGreater:      {nil, binary, precComparison},
		lexer.TokenGreaterEqual: {nil, binary, precComparison},
		lexer.TokenLess:         {nil, binary, precComparison},
		lexer.TokenLessEqual:    {nil, binary, precComparison},
		lexer.TokenIdentifier:   {variable, nil, precNone},
		lexer.TokenString:       {stringLiteral, nil, precNone},
		lexer.TokenNumber:       {number, nil, precNone},
		lexer.TokenAnd:          {nil, and_, precAnd},
		lexer.TokenOr:           {nil, or_, precOr},
		lexer.TokenFalse:        {literal, nil, precNone},
		lexer.TokenTrue:         {literal, nil, precNone},
		lexer.TokenNil:          {literal, nil, precNone},
	}
}

func ruleFor(t lexer.TokenType) parseRule { return rules[t] }

// local tracks one lexically-scoped variable. depth is -1 while the local is
// being initialized, i.e. its own initializer expression is still compiling.
type local struct {
	name  string
	depth int
}

// Compiler holds all single-pass compilation state. There is no
// separate parser type: the Pratt table drives both statement parsing and
// expression emission directly against the token stream.
type Compiler struct {
	scanner *lexer.Scanner
	chunk   *bytecode.Chunk
	strings *value.Table

	current  lexer.Token
	previous lexer.Token

	hadError  bool
	panicMode bool
	errs      *loxerrors.CompileError

	locals     [maxLocals]local
	localCount int
	scopeDepth int
}

// Compile compiles source into chunk, interning strings into strings, and
// returns a *loxerrors.CompileError if any error was reported. strings must
// outlive the returned chunk's execution, since String constants borrow
// their canonical bytes from it.
func Compile(source string, chunk *bytecode.Chunk, strings *value.Table) error {
	c := &Compiler{
		scanner: lexer.NewScanner(source),
		chunk:   chunk,
		strings: strings,
	}
	c.advance()
	for !c.check(lexer.TokenEOF) {
		c.declaration()
	}
	c.emitReturn()
	if c.hadError {
		return c.errs
	}
	return nil
}

// ---- token stream plumbing -------------------------------------------------

func (c *Compiler) advance() {
	c.previous = c.current
	for {
		c.current = c.scanner.Scan()
		if c.current.Type != lexer.TokenError {
			break
		}
		c.errorAtCurrent(c.current.Lexeme)
	}
}

func (c *Compiler) check(t lexer.TokenType) bool { return c.current.Type == t }

func (c *Compiler) match(t lexer.TokenType) bool {
	if !c.check(t) {
		return false
	}
	c.advance()
	return true
}

func (c *Compiler) consume(t lexer.TokenType, message string) {
	if c.current.Type == t {
		c.advance()
		return
	}
	c.errorAtCurrent(message)
}

// ---- error reporting --------------------------------------------------------

func (c *Compiler) errorAt(tok lexer.Token, message string) {
	if c.panicMode {
		return
	}
	c.panicMode = true
	c.hadError = true
	if c.errs == nil {
		c.errs = loxerrors.NewCompileError(tok.Line, message)
	} else {
		c.errs.Add(tok.Line, message)
	}
}

func (c *Compiler) error(message string)          { c.errorAt(c.previous, message) }
func (c *Compiler) errorAtCurrent(message string) { c.errorAt(c.current, message) }

// synchronize skips tokens until a likely statement boundary, so that one
// error does not cascade into a wall of follow-on errors.
func (c *Compiler) synchronize() {
	c.panicMode = false
	for c.current.Type != lexer.TokenEOF {
		if c.previous.Type == lexer.TokenSemicolon {
			return
		}
		switch c.current.Type {
		case lexer.TokenClass, lexer.TokenFun, lexer.TokenVar, lexer.TokenFor,
			lexer.TokenIf, lexer.TokenWhile, lexer.TokenPrint, lexer.TokenReturn:
			return
		}
		c.advance()
	}
}

// ---- bytecode emission ------------------------------------------------------

func (c *Compiler) emitByte(b byte)           { c.chunk.Write(b, c.previous.Line) }
func (c *Compiler) emitOp(op bytecode.OpCode) { c.chunk.WriteOp(op, c.previous.Line) }

func (c *Compiler) emitBytes(op bytecode.OpCode, operand byte) {
	c.emitOp(op)
	c.emitByte(operand)
}

func (c *Compiler) emitReturn() { c.emitOp(bytecode.OpReturn) }

func (c *Compiler) makeConstant(v value.Value) byte {
	idx, err := c.chunk.AddConstant(v)
	if err != nil {
		c.error(err.Error())
		return 0
	}
	return byte(idx)
}

func (c *Compiler) emitConstant(v value.Value) {
	c.emitBytes(bytecode.OpConstant, c.makeConstant(v))
}

// emitJump writes op followed by a two-byte placeholder offset and returns
// the offset of the placeholder's first byte, to be patched by patchJump
// once the jump target is known.
func (c *Compiler) emitJump(op bytecode.OpCode) int {
	c.emitOp(op)
	c.emitByte(0xff)
	c.emitByte(0xff)
	return len(c.chunk.Code) - 2
}

func (c *Compiler) patchJump(offset int) {
	jump := len(c.chunk.Code) - offset - 2
	if jump > 0xffff {
		c.error("Too much code to jump over.")
	}
	c.chunk.Code[offset] = byte((jump >> 8) & 0xff)
	c.chunk.Code[offset+1] = byte(jump & 0xff)
}

func (c *Compiler) emitLoop(loopStart int) {
	c.emitOp(bytecode.OpLoop)
	offset := len(c.chunk.Code) - loopStart + 2
	if offset > 0xffff {
		c.error("Loop body too large.")
	}
	c.emitByte(byte((offset >> 8) & 0xff))
	c.emitByte(byte(offset & 0xff))
}

// ---- expressions -------------------------------------------------------------

func (c *Compiler) expression() { c.parsePrecedence(precAssignment) }

func (c *Compiler) parsePrecedence(prec precedence) {
	c.advance()
	prefix := ruleFor(c.previous.Type).prefix
	if prefix == nil {
		c.error("Expect expression.")
		return
	}
	canAssign := prec <= precAssignment
	prefix(c, canAssign)

	for prec <= ruleFor(c.current.Type).precedence {
		c.advance()
		infix := ruleFor(c.previous.Type).infix
		infix(c, canAssign)
	}

	if canAssign && c.match(lexer.TokenEqual) {
		c.error("Invalid assignment target.")
	}
}

func number(c *Compiler, _ bool) {
	f, err := strconv.ParseFloat(c.previous.Lexeme, 64)
	if err != nil {
		c.error("Invalid number literal.")
		return
	}
	c.emitConstant(value.Number(f))
}

func stringLiteral(c *Compiler, _ bool) {
	raw := c.previous.Lexeme
	text := raw[1 : len(raw)-1] // strip surrounding quotes
	c.emitConstant(value.String(c.strings.Intern(text)))
}

func literal(c *Compiler, _ bool) {
	switch c.previous.Type {
	case lexer.TokenFalse:
		c.emitOp(bytecode.OpFalse)
	case lexer.TokenTrue:
		c.emitOp(bytecode.OpTrue)
	case lexer.TokenNil:
		c.emitOp(bytecode.OpNil)
	}
}

func grouping(c *Compiler, _ bool) {
	c.expression()
	c.consume(lexer.TokenRightParen, "Expect ')' after expression.")
}

func unary(c *Compiler, _ bool) {
	opType := c.previous.Type
	c.parsePrecedence(precUnary)
	switch opType {
	case lexer.TokenBang:
		c.emitOp(bytecode.OpNot)
	case lexer.TokenMinus:
		c.emitOp(bytecode.OpNegate)
	}
}

func binary(c *Compiler, _ bool) {
	opType := c.previous.Type
	rule := ruleFor(opType)
	c.parsePrecedence(rule.precedence + 1)
	switch opType {
	case lexer.TokenBangEqual:
		c.emitOp(bytecode.OpEqual)
		c.emitOp(bytecode.OpNot)
	case lexer.TokenEqualEqual:
		c.emitOp(bytecode.OpEqual)
	case lexer.TokenGreater:
		c.emitOp(bytecode.OpGreater)
	case lexer.TokenGreaterEqual:
		c.emitOp(bytecode.OpLess)
		c.emitOp(bytecode.OpNot)
	case lexer.TokenLess:
		c.emitOp(bytecode.OpLess)
	case lexer.TokenLessEqual:
		c.emitOp(bytecode.OpGreater)
		c.emitOp(bytecode.OpNot)
	case lexer.TokenPlus:
		c.emitOp(bytecode.OpAdd)
	case lexer.TokenMinus:
		c.emitOp(bytecode.OpSubtract)
	case lexer.TokenStar:
		c.emitOp(bytecode.OpMultiply)
	case lexer.TokenSlash:
		c.emitOp(bytecode.OpDivide)
	}
}

// and_ short-circuits: if the left operand is falsey, skip the right operand
// entirely and leave the falsey value as the result.
func and_(c *Compiler, _ bool) {
	endJump := c.emitJump(bytecode.OpJumpIfFalse)
	c.emitOp(bytecode.OpPop)
	c.parsePrecedence(precAnd)
	c.patchJump(endJump)
}

// or_ short-circuits the other way: if the left operand is truthy, skip the
// right operand.
func or_(c *Compiler, _ bool) {
	elseJump := c.emitJump(bytecode.OpJumpIfFalse)
	endJump := c.emitJump(bytecode.OpJump)
	c.patchJump(elseJump)
	c.emitOp(bytecode.OpPop)
	c.parsePrecedence(precOr)
	c.patchJump(endJump)
}

func variable(c *Compiler, canAssign bool) {
	c.namedVariable(c.previous, canAssign)
}

func (c *Compiler) namedVariable(name lexer.Token, canAssign bool) {
	var getOp, setOp bytecode.OpCode
	arg, ok := c.resolveLocal(name.Lexeme)
	if ok {
		getOp, setOp = bytecode.OpGetLocal, bytecode.OpSetLocal
	} else {
		arg = int(c.identifierConstant(name.Lexeme))
		getOp, setOp = bytecode.OpGetGlobal, bytecode.OpSetGlobal
	}

	if canAssign && c.match(lexer.TokenEqual) {
		c.expression()
		c.emitBytes(setOp, byte(arg))
	} else {
		c.emitBytes(getOp, byte(arg))
	}
}

// ---- variable resolution -----------------------------------------------------

func (c *Compiler) identifierConstant(name string) byte {
	return c.makeConstant(value.String(c.strings.Intern(name)))
}

// resolveLocal scans from the top of locals downward; a hit with depth == -1
// means the local is still being initialized, which is itself a compile
// error ("Can't read local variable in its own initializer.").
func (c *Compiler) resolveLocal(name string) (int, bool) {
	for i := c.localCount - 1; i >= 0; i-- {
		if c.locals[i].name == name {
			if c.locals[i].depth == -1 {
				c.error("Can't read local variable in its own initializer.")
			}
			return i, true
		}
	}
	return 0, false
}

func (c *Compiler) addLocal(name string) {
	if c.localCount == maxLocals {
		c.error("Too many local variables in function.")
		return
	}
	c.locals[c.localCount] = local{name: name, depth: -1}
	c.localCount++
}

// declareVariable registers a local; globals are resolved lazily by name at
// definition time and need no declaration step. The duplicate-name scan
// walks a signed index down to zero rather than an unsigned counter, which
// would underflow past zero instead of stopping.
func (c *Compiler) declareVariable(name lexer.Token) {
	if c.scopeDepth == 0 {
		return
	}
	for i := c.localCount - 1; i >= 0; i-- {
		local := c.locals[i]
		if local.depth != -1 && local.depth < c.scopeDepth {
			break
		}
		if local.name == name.Lexeme {
			c.error("Already a variable with this name in this scope.")
		}
	}
	c.addLocal(name.Lexeme)
}

func (c *Compiler) parseVariable(message string) byte {
	c.consume(lexer.TokenIdentifier, message)
	c.declareVariable(c.previous)
	if c.scopeDepth > 0 {
		return 0
	}
	return c.identifierConstant(c.previous.Lexeme)
}

func (c *Compiler) markInitialized() {
	if c.scopeDepth == 0 {
		return
	}
	c.locals[c.localCount-1].depth = c.scopeDepth
}

// defineVariable finishes a variable declaration. For a local, no bytecode
// is emitted: the initializer already left its value at the right stack
// slot, so "defining" it is just marking the local usable.
func (c *Compiler) defineVariable(global byte) {
	if c.scopeDepth > 0 {
		c.markInitialized()
		return
	}
	c.emitBytes(bytecode.OpDefineGlobal, global)
}

// ---- scopes -------------------------------------------------------------------

func (c *Compiler) beginScope() { c.scopeDepth++ }

func (c *Compiler) endScope() {
	c.scopeDepth--
	for c.localCount > 0 && c.locals[c.localCount-1].depth > c.scopeDepth {
		c.emitOp(bytecode.OpPop)
		c.localCount--
	}
}

// ---- declarations and statements ----------------------------------------------

func (c *Compiler) declaration() {
	if c.match(lexer.TokenVar) {
		c.varDeclaration()
	} else {
		c.statement()
	}
	if c.panicMode {
		c.synchronize()
	}
}

func (c *Compiler) varDeclaration() {
	global := c.parseVariable("Expect variable name.")
	if c.match(lexer.TokenEqual) {
		c.expression()
	} else {
		c.emitOp(bytecode.OpNil)
	}
	c.consume(lexer.TokenSemicolon, "Expect ';' after variable declaration.")
	c.defineVariable(global)
}

func (c *Compiler) statement() {
	switch {
	case c.match(lexer.TokenPrint):
		c.printStatement()
	case c.match(lexer.TokenIf):
		c.ifStatement()
	case c.match(lexer.TokenWhile):
		c.whileStatement()
	case c.match(lexer.TokenFor):
		c.forStatement()
	case c.match(lexer.TokenLeftBrace):
		c.beginScope()
		c.block()
		c.endScope()
	default:
		c.expressionStatement()
	}
}

func (c *Compiler) block() {
	for !c.check(lexer.TokenRightBrace) && !c.check(lexer.TokenEOF) {
		c.declaration()
	}
	c.consume(lexer.TokenRightBrace, "Expect '}' after block.")
}

func (c *Compiler) printStatement() {
	c.expression()
	c.consume(lexer.TokenSemicolon, "Expect ';' after value.")
	c.emitOp(bytecode.OpPrint)
}

func (c *Compiler) expressionStatement() {
	c.expression()
	c.consume(lexer.TokenSemicolon, "Expect ';' after expression.")
	c.emitOp(bytecode.OpPop)
}

func (c *Compiler) ifStatement() {
	c.consume(lexer.TokenLeftParen, "Expect '(' after 'if'.")
	c.expression()
	c.consume(lexer.TokenRightParen, "Expect ')' after condition.")

	thenJump := c.emitJump(bytecode.OpJumpIfFalse)
	c.emitOp(bytecode.OpPop)
	c.statement()

	elseJump := c.emitJump(bytecode.OpJump)
	c.patchJump(thenJump)
	c.emitOp(bytecode.OpPop)

	if c.match(lexer.TokenElse) {
		c.statement()
	}
	c.patchJump(elseJump)
}

func (c *Compiler) whileStatement() {
	loopStart := len(c.chunk.Code)
	c.consume(lexer.TokenLeftParen, "Expect '(' after 'while'.")
	c.expression()
	c.consume(lexer.TokenRightParen, "Expect ')' after condition.")

	exitJump := c.emitJump(bytecode.OpJumpIfFalse)
	c.emitOp(bytecode.OpPop)
	c.statement()
	c.emitLoop(loopStart)

	c.patchJump(exitJump)
	c.emitOp(bytecode.OpPop)
}

// forStatement desugars entirely to a while loop over OpLoop/OpJumpIfFalse;
// "for" is not itself an opcode.
func (c *Compiler) forStatement() {
	c.beginScope()
	c.consume(lexer.TokenLeftParen, "Expect '(' after 'for'.")

	switch {
	case c.match(lexer.TokenSemicolon):
		// no initializer
	case c.match(lexer.TokenVar):
		c.varDeclaration()
	default:
		c.expressionStatement()
	}

	loopStart := len(c.chunk.Code)
	exitJump := -1
	if !c.match(lexer.TokenSemicolon) {
		c.expression()
		c.consume(lexer.TokenSemicolon, "Expect ';' after loop condition.")
		exitJump = c.emitJump(bytecode.OpJumpIfFalse)
		c.emitOp(bytecode.OpPop)
	}

	if !c.match(lexer.TokenRightParen) {
		bodyJump := c.emitJump(bytecode.OpJump)
		incrementStart := len(c.chunk.Code)
		c.expression()
		c.emitOp(bytecode.OpPop)
		c.consume(lexer.TokenRightParen, "Expect ')' after for clauses.")

		c.emitLoop(loopStart)
		loopStart = incrementStart
		c.patchJump(bodyJump)
	}

	c.statement()
	c.emitLoop(loopStart)

	if exitJump != -1 {
		c.patchJump(exitJump)
		c.emitOp(bytecode.OpPop)
	}

	c.endScope()
}
