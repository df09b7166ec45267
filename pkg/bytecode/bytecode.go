// Package bytecode defines ember's Chunk: the flat byte-code format that
// pkg/compiler emits into and pkg/vm executes directly, with no other
// intermediate representation in between.
//
// A Chunk is three arrays, same as the teacher's bytecode package
// keeps a parallel Instructions/Constants pair, but flattened to the byte
// level the source language actually runs on:
//
//	Code:      the opcode + operand stream, one byte per slot
//	Lines:     Lines[i] is the source line that produced Code[i]
//	Constants: the constant pool; OP_CONSTANT and the *_GLOBAL family
//	           address it with a single operand byte (max 256 entries)
package bytecode

import "github.com/kristofer/ember/pkg/value"

// Opcode is a single instruction byte. Every opcode here takes either no
// operand or exactly one operand byte — the compiler and VM agree on this
// statically, per entry, so there is no variable-length encoding to
// account for.
type Opcode byte

const (
	OpConstant Opcode = iota
	OpNil
	OpTrue
	OpFalse
	OpPop
	OpDefineGlobal
	OpGetGlobal
	OpSetGlobal
	OpEqual
	OpGreater
	OpLess
	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
	OpNot
	OpNegate
	OpPrint
	OpReturn
)

func (op Opcode) String() string {
	switch op {
	case OpConstant:
		return "OP_CONSTANT"
	case OpNil:
		return "OP_NIL"
	case OpTrue:
		return "OP_TRUE"
	case OpFalse:
		return "OP_FALSE"
	case OpPop:
		return "OP_POP"
	case OpDefineGlobal:
		return "OP_DEFINE_GLOBAL"
	case OpGetGlobal:
		return "OP_GET_GLOBAL"
	case OpSetGlobal:
		return "OP_SET_GLOBAL"
	case OpEqual:
		return "OP_EQUAL"
	case OpGreater:
		return "OP_GREATER"
	case OpLess:
		return "OP_LESS"
	case OpAdd:
		return "OP_ADD"
	case OpSubtract:
		return "OP_SUBTRACT"
	case OpMultiply:
		return "OP_MULTIPLY"
	case OpDivide:
		return "OP_DIVIDE"
	case OpNot:
		return "OP_NOT"
	case OpNegate:
		return "OP_NEGATE"
	case OpPrint:
		return "OP_PRINT"
	case OpReturn:
		return "OP_RETURN"
	default:
		return "OP_UNKNOWN"
	}
}

// MaxConstants is the number of constant-pool entries a single operand
// byte can address (indices 0 through MaxConstants-1).
const MaxConstants = 256

// Chunk is a self-contained bytecode unit: code bytes, their source
// lines, and a constant pool. vm.VM.Interpret obtains one from Compile and
// holds it while its dispatch loop executes it.
type Chunk struct {
	Code      []byte
	Lines     []int
	Constants []value.Value
}

// New returns an empty chunk.
func New() *Chunk {
	return &Chunk{}
}

// Write appends one byte of code, recording the source line it came from.
func (c *Chunk) Write(b byte, line int) {
	c.Code = append(c.Code, b)
	c.Lines = append(c.Lines, line)
}

// AddConstant appends v to the constant pool and returns its index. It
// does not enforce the 256-entry limit — the compiler checks the
// returned index and reports "Too many constants in one chunk." itself,
// matching the source's make_constant/add_constant split.
func (c *Chunk) AddConstant(v value.Value) int {
	c.Constants = append(c.Constants, v)
	return len(c.Constants) - 1
}
