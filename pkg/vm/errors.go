package vm

import "fmt"

// RuntimeError is the diagnostic behind a ResultRuntimeError return. This
// core has no call stack — no functions, no recursion — so unlike the
// teacher's vm/errors.go there are no frames to unwind, just the message
// and the source line of the instruction that faulted.
type RuntimeError struct {
	Message string
	Line    int
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s\n[line %d] in script", e.Message, e.Line)
}
