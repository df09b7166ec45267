// Command ember is a minimal driver over pkg/vm: read a script, run it,
// translate its Result into a process exit code. The driver's REPL
// ergonomics, flags, and disassembly output are not part of this core —
// see SPEC_FULL.md — so this stays deliberately thin.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/kristofer/ember/pkg/vm"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: ember <script>")
		os.Exit(64)
	}

	source, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "ember: %v\n", err)
		os.Exit(74)
	}

	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	machine := vm.New(vm.WithLogger(logger))
	defer machine.Free()

	switch machine.Interpret(string(source)) {
	case vm.ResultOK:
		os.Exit(0)
	case vm.ResultCompileError:
		os.Exit(65)
	case vm.ResultRuntimeError:
		os.Exit(70)
	}
}
