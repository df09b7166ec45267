// Package compiler implements ember's single-pass, Pratt-style compiler:
// it consumes tokens from pkg/lexer and emits bytes directly into a
// pkg/bytecode.Chunk. There is no AST — every parse function either
// recurses with a bounded precedence or emits bytecode, never both by
// way of an intermediate tree.
package compiler

import (
	"fmt"
	"io"
	"strconv"

	"github.com/kristofer/ember/pkg/bytecode"
	"github.com/kristofer/ember/pkg/lexer"
	"github.com/kristofer/ember/pkg/value"
)

// Interner is how the compiler turns source text into heap strings. The
// VM implements this; the compiler package itself owns no objects, only
// the bytes it emits — interned strings belong to the VM and outlive the
// Chunk being compiled (see SPEC_FULL.md, resource ownership).
type Interner interface {
	Intern(chars string) *value.StringObject
}

// Precedence is the compiler's precedence ladder, low to high.
type Precedence int

const (
	PrecNone Precedence = iota
	PrecAssignment
	PrecOr
	PrecAnd
	PrecEquality
	PrecComparison
	PrecTerm
	PrecFactor
	PrecUnary
	PrecCall
	PrecPrimary
)

type parseFn func(c *compiler, canAssign bool)

type rule struct {
	prefix     parseFn
	infix      parseFn
	precedence Precedence
}

var rules map[lexer.TokenType]rule

func init() {
	rules = map[lexer.TokenType]rule{
		lexer.TokenLeftParen:    {prefix: grouping},
		lexer.TokenMinus:        {prefix: unary, infix: binary, precedence: PrecTerm},
		lexer.TokenPlus:         {infix: binary, precedence: PrecTerm},
		lexer.TokenSlash:        {infix: binary, precedence: PrecFactor},
		lexer.TokenStar:         {infix: binary, precedence: PrecFactor},
		lexer.TokenBang:         {prefix: unary},
		lexer.TokenBangEqual:    {infix: binary, precedence: PrecEquality},
		lexer.TokenEqualEqual:   {infix: binary, precedence: PrecEquality},
		lexer.TokenGreater:      {infix: binary, precedence: PrecComparison},
		lexer.TokenGreaterEqual: {infix: binary, precedence: PrecComparison},
		lexer.TokenLess:         {infix: binary, precedence: PrecComparison},
		lexer.TokenLessEqual:    {infix: binary, precedence: PrecComparison},
		lexer.TokenIdentifier:   {prefix: variable},
		lexer.TokenString:       {prefix: stringLiteral},
		lexer.TokenNumber:       {prefix: number},
		lexer.TokenFalse:        {prefix: literal},
		lexer.TokenNil:          {prefix: literal},
		lexer.TokenTrue:         {prefix: literal},
	}
}

func getRule(t lexer.TokenType) rule { return rules[t] }

// Error is one accumulated compile diagnostic, formatted per the
// embedder contract: "[line L] Error at 'LEXEME': MESSAGE" or, at EOF,
// "[line L] Error at end: MESSAGE", or, for a scanner-produced error
// token, just "[line L] Error: MESSAGE".
type Error struct {
	Line    int
	Where   string // "" for scanner errors, "end" at EOF, else the lexeme
	Message string
}

func (e Error) Error() string {
	if e.Where == "" {
		return fmt.Sprintf("[line %d] Error: %s", e.Line, e.Message)
	}
	return fmt.Sprintf("[line %d] Error at %s: %s", e.Line, e.Where, e.Message)
}

// CompileError wraps a list of diagnostics as a single error. Compile does
// not return one: it reports failure through its ok result and writes each
// diagnostic to stderr as it is found, in source order.
type CompileError struct {
	Errors []Error
}

func (e *CompileError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d compile errors, first: %s", len(e.Errors), e.Errors[0].Error())
}

// compiler holds single-pass parsing state: the token lookahead window,
// error accumulation, and the chunk being built. It is the fusion of the
// teacher's separate Parser and Compiler — spec.md requires exactly one
// pass with no AST in between.
type compiler struct {
	lex       *lexer.Lexer
	current   lexer.Token
	previous  lexer.Token
	hadError  bool
	panicMode bool

	chunk    *bytecode.Chunk
	interner Interner
	stderr   io.Writer
	errors   []Error
}

// Compile compiles source into a Chunk. ok is false iff any diagnostic
// was reported; the returned chunk is still populated (possibly
// incomplete) to let synchronize-based recovery surface more than one
// error per run, but the VM must never execute it when ok is false.
func Compile(source string, interner Interner, stderr io.Writer) (chunk *bytecode.Chunk, ok bool) {
	c := &compiler{
		lex:      lexer.New(source),
		chunk:    bytecode.New(),
		interner: interner,
		stderr:   stderr,
	}

	c.advance()
	for !c.match(lexer.TokenEOF) {
		c.declaration()
	}
	c.consume(lexer.TokenEOF, "Expect end of expression.")
	c.endCompiler()

	return c.chunk, !c.hadError
}

func (c *compiler) currentChunk() *bytecode.Chunk { return c.chunk }

func (c *compiler) advance() {
	c.previous = c.current
	for {
		c.current = c.lex.ScanToken()
		if c.current.Type != lexer.TokenError {
			break
		}
		c.errorAtCurrent(c.current.Lexeme)
	}
}

func (c *compiler) consume(t lexer.TokenType, message string) {
	if c.current.Type == t {
		c.advance()
		return
	}
	c.errorAtCurrent(message)
}

func (c *compiler) check(t lexer.TokenType) bool { return c.current.Type == t }

func (c *compiler) match(t lexer.TokenType) bool {
	if !c.check(t) {
		return false
	}
	c.advance()
	return true
}

func (c *compiler) emitByte(b byte) {
	c.currentChunk().Write(b, c.previous.Line)
}

func (c *compiler) emitBytes(b1, b2 byte) {
	c.emitByte(b1)
	c.emitByte(b2)
}

func (c *compiler) emitOp(op bytecode.Opcode) { c.emitByte(byte(op)) }

func (c *compiler) emitOps(op1, op2 bytecode.Opcode) {
	c.emitByte(byte(op1))
	c.emitByte(byte(op2))
}

func (c *compiler) emitReturn() { c.emitOp(bytecode.OpReturn) }

func (c *compiler) makeConstant(v value.Value) byte {
	idx := c.currentChunk().AddConstant(v)
	if idx > bytecode.MaxConstants-1 {
		c.error("Too many constants in one chunk.")
		return 0
	}
	return byte(idx)
}

func (c *compiler) emitConstant(v value.Value) {
	c.emitBytes(byte(bytecode.OpConstant), c.makeConstant(v))
}

func (c *compiler) endCompiler() {
	c.emitReturn()
}

// parsePrecedence is the core Pratt loop: parse a prefix expression at
// the cursor, then keep consuming infix operators whose precedence is at
// least `precedence`.
func (c *compiler) parsePrecedence(precedence Precedence) {
	c.advance()
	prefixRule := getRule(c.previous.Type).prefix
	if prefixRule == nil {
		c.error("Expect expression.")
		return
	}

	canAssign := precedence <= PrecAssignment
	prefixRule(c, canAssign)

	for precedence <= getRule(c.current.Type).precedence {
		c.advance()
		infixRule := getRule(c.previous.Type).infix
		infixRule(c, canAssign)
	}

	if canAssign && c.match(lexer.TokenEqual) {
		c.error("Invalid assignment target.")
	}
}

func (c *compiler) expression() {
	c.parsePrecedence(PrecAssignment)
}

func (c *compiler) identifierConstant(name lexer.Token) byte {
	return c.makeConstant(value.FromObject(c.interner.Intern(name.Lexeme)))
}

func (c *compiler) parseVariable(errorMessage string) byte {
	c.consume(lexer.TokenIdentifier, errorMessage)
	return c.identifierConstant(c.previous)
}

func (c *compiler) defineVariable(global byte) {
	c.emitBytes(byte(bytecode.OpDefineGlobal), global)
}

func (c *compiler) varDeclaration() {
	global := c.parseVariable("Expect variable name.")

	if c.match(lexer.TokenEqual) {
		c.expression()
	} else {
		c.emitOp(bytecode.OpNil)
	}
	c.consume(lexer.TokenSemicolon, "Expect ';' after variable declaration.")

	c.defineVariable(global)
}

func (c *compiler) printStatement() {
	c.expression()
	c.consume(lexer.TokenSemicolon, "Expect ';' after value.")
	c.emitOp(bytecode.OpPrint)
}

func (c *compiler) expressionStatement() {
	c.expression()
	c.consume(lexer.TokenSemicolon, "Expect ';' after expression.")
	c.emitOp(bytecode.OpPop)
}

func (c *compiler) statement() {
	if c.match(lexer.TokenPrint) {
		c.printStatement()
	} else {
		c.expressionStatement()
	}
}

func (c *compiler) declaration() {
	if c.match(lexer.TokenVar) {
		c.varDeclaration()
	} else {
		c.statement()
	}

	if c.panicMode {
		c.synchronize()
	}
}

// synchronize exits panic mode by skipping tokens until a likely
// statement boundary: after a semicolon, or at a token that starts a new
// declaration/statement.
func (c *compiler) synchronize() {
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

func (c *compiler) errorAtCurrent(message string) { c.errorAt(c.current, message) }
func (c *compiler) error(message string)          { c.errorAt(c.previous, message) }

func (c *compiler) errorAt(tok lexer.Token, message string) {
	if c.panicMode {
		return
	}
	c.panicMode = true

	var e Error
	e.Line = tok.Line
	e.Message = message
	switch {
	case tok.Type == lexer.TokenEOF:
		e.Where = "end"
	case tok.Type == lexer.TokenError:
		// scanner errors print with no "at ..." clause
	default:
		e.Where = "'" + tok.Lexeme + "'"
	}

	c.errors = append(c.errors, e)
	if c.stderr != nil {
		fmt.Fprintln(c.stderr, e.Error())
	}
	c.hadError = true
}

// --- prefix/infix parse functions ---

func number(c *compiler, _ bool) {
	n, _ := strconv.ParseFloat(c.previous.Lexeme, 64)
	c.emitConstant(value.Number(n))
}

func stringLiteral(c *compiler, _ bool) {
	// trim the surrounding quotes
	lexeme := c.previous.Lexeme
	chars := lexeme[1 : len(lexeme)-1]
	c.emitConstant(value.FromObject(c.interner.Intern(chars)))
}

func literal(c *compiler, _ bool) {
	switch c.previous.Type {
	case lexer.TokenFalse:
		c.emitOp(bytecode.OpFalse)
	case lexer.TokenTrue:
		c.emitOp(bytecode.OpTrue)
	case lexer.TokenNil:
		c.emitOp(bytecode.OpNil)
	}
}

func grouping(c *compiler, _ bool) {
	c.expression()
	c.consume(lexer.TokenRightParen, "Expect ')' after expression.")
}

func unary(c *compiler, _ bool) {
	operatorType := c.previous.Type
	c.parsePrecedence(PrecUnary)

	switch operatorType {
	case lexer.TokenBang:
		c.emitOp(bytecode.OpNot)
	case lexer.TokenMinus:
		c.emitOp(bytecode.OpNegate)
	}
}

func binary(c *compiler, _ bool) {
	operatorType := c.previous.Type
	r := getRule(operatorType)
	c.parsePrecedence(r.precedence + 1)

	switch operatorType {
	case lexer.TokenBangEqual:
		c.emitOps(bytecode.OpEqual, bytecode.OpNot)
	case lexer.TokenEqualEqual:
		c.emitOp(bytecode.OpEqual)
	case lexer.TokenGreater:
		c.emitOp(bytecode.OpGreater)
	case lexer.TokenGreaterEqual:
		c.emitOps(bytecode.OpLess, bytecode.OpNot)
	case lexer.TokenLess:
		c.emitOp(bytecode.OpLess)
	case lexer.TokenLessEqual:
		c.emitOps(bytecode.OpGreater, bytecode.OpNot)
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

func variable(c *compiler, canAssign bool) {
	namedVariable(c, c.previous, canAssign)
}

func namedVariable(c *compiler, name lexer.Token, canAssign bool) {
	arg := c.identifierConstant(name)

	if canAssign && c.match(lexer.TokenEqual) {
		c.expression()
		c.emitBytes(byte(bytecode.OpSetGlobal), arg)
	} else {
		c.emitBytes(byte(bytecode.OpGetGlobal), arg)
	}
}
