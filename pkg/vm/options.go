package vm

import (
	"io"

	"github.com/rs/zerolog"
)

// Option configures a VM at construction time, following the same
// functional-options shape as jcorbin-gothird's VMOption.
type Option interface {
	apply(*VM)
}

type optionFunc func(*VM)

func (f optionFunc) apply(vm *VM) { f(vm) }

// WithStdout redirects OP_PRINT output. Defaults to os.Stdout.
func WithStdout(w io.Writer) Option {
	return optionFunc(func(vm *VM) { vm.stdout = w })
}

// WithStderr redirects compile- and runtime-error diagnostics. Defaults
// to os.Stderr.
func WithStderr(w io.Writer) Option {
	return optionFunc(func(vm *VM) { vm.stderr = w })
}

// WithLogger attaches a zerolog.Logger for internal diagnostics (VM
// construction, Free, runtime errors). Defaults to a
// no-op logger, so a VM built with zero options stays silent.
func WithLogger(logger zerolog.Logger) Option {
	return optionFunc(func(vm *VM) { vm.logger = logger })
}

// WithStackCapacity overrides the value stack's preallocated capacity.
// The stack still grows past this if a program needs it to — this is a
// sizing hint, not a hard ceiling.
func WithStackCapacity(capacity int) Option {
	return optionFunc(func(vm *VM) { vm.stackCapacity = capacity })
}
