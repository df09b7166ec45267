package vm

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, source string) (stdout, stderr string, result Result) {
	t.Helper()
	var out, errOut bytes.Buffer
	machine := New(WithStdout(&out), WithStderr(&errOut))
	result = machine.Interpret(source)
	return out.String(), errOut.String(), result
}

func TestInterpretSimpleArithmeticPrints(t *testing.T) {
	out, _, result := run(t, "print 1 + 2;")
	assert.Equal(t, ResultOK, result)
	assert.Equal(t, "3\n", out)
}

func TestInterpretPrecedenceAndLogicChain(t *testing.T) {
	out, _, result := run(t, "print !(5 - 4 > 3 * 2 == !nil);")
	assert.Equal(t, ResultOK, result)
	assert.Equal(t, "true\n", out)
}

func TestInterpretStringConcatenation(t *testing.T) {
	out, _, result := run(t, `print "foo" + "bar";`)
	assert.Equal(t, ResultOK, result)
	assert.Equal(t, "foobar\n", out)
}

func TestInterpretGlobalDefineAndRead(t *testing.T) {
	out, _, result := run(t, "var a = 1; var b = 2; print a + b;")
	assert.Equal(t, ResultOK, result)
	assert.Equal(t, "3\n", out)
}

func TestInterpretGlobalReassignment(t *testing.T) {
	out, _, result := run(t, "var a = 1; a = a + 1; print a;")
	assert.Equal(t, ResultOK, result)
	assert.Equal(t, "2\n", out)
}

func TestInterpretVarWithoutInitializerIsNil(t *testing.T) {
	out, _, result := run(t, "var a; print a;")
	assert.Equal(t, ResultOK, result)
	assert.Equal(t, "nil\n", out)
}

func TestInterpretUndefinedGlobalGetIsRuntimeError(t *testing.T) {
	_, errOut, result := run(t, "print missing;")
	assert.Equal(t, ResultRuntimeError, result)
	assert.Contains(t, errOut, "Undefined variable 'missing'.")
	assert.Contains(t, errOut, "[line 1] in script")
}

func TestInterpretUndefinedGlobalSetDoesNotCreateIt(t *testing.T) {
	var errOut bytes.Buffer
	machine := New(WithStdout(&bytes.Buffer{}), WithStderr(&errOut))
	result := machine.Interpret("x = 1;")
	assert.Equal(t, ResultRuntimeError, result)
	assert.Contains(t, errOut.String(), "Undefined variable 'x'.")

	// A second interpret on the same VM must still see x as undefined —
	// the failed assignment must not have left it defined.
	errOut.Reset()
	result2 := machine.Interpret("print x;")
	assert.Equal(t, ResultRuntimeError, result2)
	assert.Contains(t, errOut.String(), "Undefined variable 'x'.")
}

func TestInterpretCompileErrorStopsBeforeRunning(t *testing.T) {
	out, errOut, result := run(t, "print 1 +;")
	assert.Equal(t, ResultCompileError, result)
	assert.Empty(t, out)
	assert.Contains(t, errOut, "Expect expression.")
}

func TestInterpretDivisionByZero(t *testing.T) {
	out, _, result := run(t, "print 1 / 0;")
	assert.Equal(t, ResultOK, result)
	assert.Equal(t, "+Inf\n", out)
}

func TestInterpretNegativeDivisionByZero(t *testing.T) {
	out, _, result := run(t, "print -1 / 0;")
	assert.Equal(t, ResultOK, result)
	assert.Equal(t, "-Inf\n", out)
}

func TestInterpretAddTypeMismatchIsRuntimeError(t *testing.T) {
	_, errOut, result := run(t, `print 1 + "a";`)
	assert.Equal(t, ResultRuntimeError, result)
	assert.Contains(t, errOut, "Operands must be two numbers or two strings.")
}

func TestInterpretNegateNonNumberIsRuntimeError(t *testing.T) {
	_, errOut, result := run(t, `print -"a";`)
	assert.Equal(t, ResultRuntimeError, result)
	assert.Contains(t, errOut, "Operand must be a number.")
}

func TestInterpretStackIsEmptyAfterSuccessfulRun(t *testing.T) {
	machine := New(WithStdout(&bytes.Buffer{}), WithStderr(&bytes.Buffer{}))
	result := machine.Interpret("print 1; print 2; var a = 3;")
	require.Equal(t, ResultOK, result)
	assert.Empty(t, machine.stack)
}

func TestInterpretRuntimeErrorResetsStack(t *testing.T) {
	machine := New(WithStdout(&bytes.Buffer{}), WithStderr(&bytes.Buffer{}))
	result := machine.Interpret("print 1 + nil;")
	require.Equal(t, ResultRuntimeError, result)
	assert.Empty(t, machine.stack)
}

func TestInterning_ConcatenationProducesSameHandleAsLiteral(t *testing.T) {
	machine := New(WithStdout(&bytes.Buffer{}), WithStderr(&bytes.Buffer{}))

	first := machine.Intern("abab")
	require.Equal(t, ResultOK, machine.Interpret(`var s = "ab" + "ab";`))
	v, ok := machine.globals.Get(machine.Intern("s"))
	require.True(t, ok)
	second := v.AsString()

	assert.Same(t, first, second, "equal-content strings must share one StringObject")
}

func TestInterning_DistinctContentYieldsDistinctObjects(t *testing.T) {
	machine := New(WithStdout(&bytes.Buffer{}), WithStderr(&bytes.Buffer{}))

	a := machine.Intern("foo")
	b := machine.Intern("bar")

	assert.NotSame(t, a, b)
}

func TestInterpretEqualityAcrossVariants(t *testing.T) {
	out, _, result := run(t, `print 1 == 1; print "a" == "a"; print nil == false; print true == 1;`)
	assert.Equal(t, ResultOK, result)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, []string{"true", "true", "false", "false"}, lines)
}

func TestInterpretComparisonOperators(t *testing.T) {
	out, _, result := run(t, "print 1 < 2; print 2 <= 2; print 3 > 2; print 2 >= 3;")
	assert.Equal(t, ResultOK, result)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, []string{"true", "true", "true", "false"}, lines)
}

func TestInterpretMultipleStatementsShareGlobalScope(t *testing.T) {
	out, _, result := run(t, `
		var greeting = "hello";
		var name = "world";
		print greeting + " " + name;
	`)
	assert.Equal(t, ResultOK, result)
	assert.Equal(t, "hello world\n", out)
}

func TestFreeResetsVMState(t *testing.T) {
	machine := New(WithStdout(&bytes.Buffer{}), WithStderr(&bytes.Buffer{}))
	require.Equal(t, ResultOK, machine.Interpret("var a = 1; print a;"))

	machine.Free()

	_, ok := machine.globals.Get(machine.Intern("a"))
	assert.False(t, ok, "Free must drop previously defined globals")
}
