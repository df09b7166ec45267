// Package vm implements ember's stack-based virtual machine: the
// dispatch loop that executes a pkg/bytecode.Chunk, plus the runtime
// state a running program needs — the value stack, the global-variable
// table, and the string-intern table.
//
// Execution Model:
//
// The VM reads one opcode byte at a time from the current Chunk, advances
// ip past it and any operand bytes, and dispatches. Most opcodes follow a
// pop-operands / push-result shape; see spec.md §4.4 for the full
// instruction table.
package vm

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/kristofer/ember/pkg/bytecode"
	"github.com/kristofer/ember/pkg/compiler"
	"github.com/kristofer/ember/pkg/table"
	"github.com/kristofer/ember/pkg/value"
)

// defaultStackCapacity matches spec.md's recommended value stack size.
const defaultStackCapacity = 256

// Result is the embedder-visible outcome of an Interpret call, matching
// spec.md §6's exactly {Ok, CompileError, RuntimeError}.
type Result int

const (
	ResultOK Result = iota
	ResultCompileError
	ResultRuntimeError
)

func (r Result) String() string {
	switch r {
	case ResultOK:
		return "Ok"
	case ResultCompileError:
		return "CompileError"
	case ResultRuntimeError:
		return "RuntimeError"
	default:
		return "Unknown"
	}
}

// VM owns the stack, both hash tables, the all-objects arena, and the
// Chunk it is currently running. Two VMs must never share any of these —
// there is no thread-safety here, by design (spec.md §5).
type VM struct {
	stack []value.Value

	chunk *bytecode.Chunk
	ip    int

	globals *table.Table
	strings *table.Table
	objects []*value.StringObject

	stdout io.Writer
	stderr io.Writer
	logger zerolog.Logger

	stackCapacity int
}

// New constructs a VM ready for Interpret. init_VM()/free_VM() from the
// embedder contract correspond to New and Free here — Go has no
// equivalent of a process-wide global VM, so construction and teardown
// are ordinary value lifetime instead of paired calls on a singleton.
func New(opts ...Option) *VM {
	vm := &VM{
		stdout:        os.Stdout,
		stderr:        os.Stderr,
		logger:        zerolog.Nop(),
		stackCapacity: defaultStackCapacity,
	}
	for _, opt := range opts {
		opt.apply(vm)
	}
	vm.resetStack()
	vm.globals = table.New()
	vm.strings = table.New()
	vm.logger.Debug().Int("stack_capacity", vm.stackCapacity).Msg("vm initialized")
	return vm
}

// Free releases everything the VM owns: interned strings, the all-
// objects arena, and both tables. Go's GC reclaims the memory; this call
// exists so the embedder contract's free_VM has a direct counterpart and
// so a VM value cannot be reused with stale globals after the caller is
// done with it.
func (vm *VM) Free() {
	vm.objects = nil
	vm.globals = table.New()
	vm.strings = table.New()
	vm.resetStack()
	vm.logger.Debug().Msg("vm freed")
}

func (vm *VM) resetStack() {
	vm.stack = make([]value.Value, 0, vm.stackCapacity)
}

func (vm *VM) push(v value.Value) { vm.stack = append(vm.stack, v) }

func (vm *VM) pop() value.Value {
	v := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return v
}

func (vm *VM) peek(distance int) value.Value {
	return vm.stack[len(vm.stack)-1-distance]
}

// Intern implements compiler.Interner: it is the VM's take_string/
// copy_string combined — the compiler (for literals and global names)
// and the VM's own OP_ADD string concatenation both funnel through this
// one path, so "every live String appears in the intern set exactly
// once" holds no matter who asked for it.
func (vm *VM) Intern(chars string) *value.StringObject {
	hash := value.HashString(chars)
	if existing := vm.strings.FindString(chars, hash); existing != nil {
		return existing
	}
	obj := &value.StringObject{Chars: chars, Hash: hash}
	vm.strings.Set(obj, value.Nil)
	vm.objects = append(vm.objects, obj)
	return obj
}

var _ compiler.Interner = (*VM)(nil)

// Interpret compiles source and, if compilation succeeds, runs it to
// completion. It is the one entry point this core presents to its
// embedder.
func (vm *VM) Interpret(source string) Result {
	chunk, ok := compiler.Compile(source, vm, vm.stderr)
	if !ok {
		return ResultCompileError
	}

	vm.chunk = chunk
	vm.ip = 0
	return vm.run()
}

func (vm *VM) readByte() byte {
	b := vm.chunk.Code[vm.ip]
	vm.ip++
	return b
}

func (vm *VM) readConstant() value.Value {
	return vm.chunk.Constants[vm.readByte()]
}

func (vm *VM) readString() *value.StringObject {
	return vm.readConstant().AsString()
}

func (vm *VM) run() Result {
	for {
		instruction := bytecode.Opcode(vm.readByte())

		switch instruction {
		case bytecode.OpConstant:
			vm.push(vm.readConstant())

		case bytecode.OpNil:
			vm.push(value.Nil)
		case bytecode.OpTrue:
			vm.push(value.Bool(true))
		case bytecode.OpFalse:
			vm.push(value.Bool(false))

		case bytecode.OpPop:
			vm.pop()

		case bytecode.OpDefineGlobal:
			name := vm.readString()
			vm.globals.Set(name, vm.peek(0))
			vm.pop()

		case bytecode.OpGetGlobal:
			name := vm.readString()
			v, ok := vm.globals.Get(name)
			if !ok {
				return vm.runtimeError("Undefined variable '%s'.", name.Chars)
			}
			vm.push(v)

		case bytecode.OpSetGlobal:
			name := vm.readString()
			// Assigning must not create a new global: if Set reports the
			// key was previously absent, undo it and raise the error.
			if vm.globals.Set(name, vm.peek(0)) {
				vm.globals.Delete(name)
				return vm.runtimeError("Undefined variable '%s'.", name.Chars)
			}

		case bytecode.OpEqual:
			b, a := vm.pop(), vm.pop()
			vm.push(value.Bool(value.Equal(a, b)))

		case bytecode.OpGreater:
			if res := vm.numericBinaryOp(func(a, b float64) value.Value { return value.Bool(a > b) }); res != ResultOK {
				return res
			}
		case bytecode.OpLess:
			if res := vm.numericBinaryOp(func(a, b float64) value.Value { return value.Bool(a < b) }); res != ResultOK {
				return res
			}

		case bytecode.OpAdd:
			if res := vm.add(); res != ResultOK {
				return res
			}
		case bytecode.OpSubtract:
			if res := vm.numericBinaryOp(func(a, b float64) value.Value { return value.Number(a - b) }); res != ResultOK {
				return res
			}
		case bytecode.OpMultiply:
			if res := vm.numericBinaryOp(func(a, b float64) value.Value { return value.Number(a * b) }); res != ResultOK {
				return res
			}
		case bytecode.OpDivide:
			if res := vm.numericBinaryOp(func(a, b float64) value.Value { return value.Number(a / b) }); res != ResultOK {
				return res
			}

		case bytecode.OpNot:
			vm.push(value.Bool(value.IsFalsey(vm.pop())))

		case bytecode.OpNegate:
			if !vm.peek(0).IsNumber() {
				return vm.runtimeError("Operand must be a number.")
			}
			vm.push(value.Number(-vm.pop().AsNumber()))

		case bytecode.OpPrint:
			value.Fprint(vm.stdout, vm.pop())
			io.WriteString(vm.stdout, "\n")

		case bytecode.OpReturn:
			return ResultOK

		default:
			return vm.runtimeError("Unknown opcode %d.", instruction)
		}
	}
}

func (vm *VM) numericBinaryOp(op func(a, b float64) value.Value) Result {
	if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
		return vm.runtimeError("Operands must be numbers.")
	}
	b := vm.pop().AsNumber()
	a := vm.pop().AsNumber()
	vm.push(op(a, b))
	return ResultOK
}

func (vm *VM) add() Result {
	switch {
	case vm.peek(0).IsString() && vm.peek(1).IsString():
		b := vm.pop().AsString()
		a := vm.pop().AsString()
		vm.push(value.FromObject(vm.Intern(a.Chars + b.Chars)))
		return ResultOK
	case vm.peek(0).IsNumber() && vm.peek(1).IsNumber():
		b := vm.pop().AsNumber()
		a := vm.pop().AsNumber()
		vm.push(value.Number(a + b))
		return ResultOK
	default:
		return vm.runtimeError("Operands must be two numbers or two strings.")
	}
}

func (vm *VM) runtimeError(format string, args ...interface{}) Result {
	err := &RuntimeError{Message: fmt.Sprintf(format, args...), Line: vm.chunk.Lines[vm.ip-1]}
	fmt.Fprintln(vm.stderr, err.Message)
	fmt.Fprintf(vm.stderr, "[line %d] in script\n", err.Line)
	vm.logger.Debug().Err(err).Msg("runtime error")
	vm.resetStack()
	return ResultRuntimeError
}
