package domain

import (
	"errors"
	"fmt"
)

// ErrBuilderFinalized is returned when Finalize is called on a builder that
// already produced an invocation.
var ErrBuilderFinalized = errors.New("invocation builder already finalized")

// Invocation is one complete compiler command line: the executable path at
// argument zero followed by flags and positional source files, in exactly the
// order they were accumulated. Immutable once built; accessors return copies.
type Invocation struct {
	executable string
	args       []string
}

// Executable returns the resolved compiler executable path (argument zero).
func (i Invocation) Executable() string {
	return i.executable
}

// Args returns a copy of the full argument sequence, executable included.
func (i Invocation) Args() []string {
	args := make([]string, len(i.args))
	copy(args, i.args)
	return args
}

// IsZero reports whether the invocation was never built, which callers use
// as the "nothing to compile" marker.
func (i Invocation) IsZero() bool {
	return i.executable == "" && i.args == nil
}

// InvocationBuilder accumulates compiler arguments in call order. Argument
// order is semantically meaningful to the compiler (later flags of the same
// kind typically override earlier ones), so nothing is reordered or
// deduplicated here.
//
// Builders are single-use: Finalize is terminal, a second Finalize returns
// ErrBuilderFinalized, and any mutator called after Finalize panics.
//
// See the following source for all flags protoc supports:
// https://github.com/protocolbuffers/protobuf/blob/main/src/google/protobuf/compiler/command_line_interface.cc
type InvocationBuilder struct {
	executable string
	args       []string
	finalized  bool
}

// NewInvocationBuilder seeds the argument sequence with the executable path.
func NewInvocationBuilder(executable string) *InvocationBuilder {
	return &InvocationBuilder{
		executable: executable,
		args:       []string{executable},
	}
}

// IncludeDirs appends one --proto_path flag per directory, in the given
// order. Directories are not deduplicated; pass a deduplicated set if that
// matters to the compiler. May be called multiple times; flags accumulate.
func (b *InvocationBuilder) IncludeDirs(dirs ...string) *InvocationBuilder {
	b.mustBeBuilding()
	for _, dir := range dirs {
		b.args = append(b.args, "--proto_path="+dir)
	}
	return b
}

// Output appends a --<kind>_out flag. The kind names a code-generation
// backend (e.g. "java", "go") and is not validated here: an unknown kind
// surfaces only when the compiler runs.
func (b *InvocationBuilder) Output(kind, dir string) *InvocationBuilder {
	b.mustBeBuilding()
	b.args = append(b.args, fmt.Sprintf("--%s_out=%s", kind, dir))
	return b
}

// Flag appends --<name> when enabled and nothing otherwise. Setting the same
// flag more than once may emit duplicates; they are not collapsed.
func (b *InvocationBuilder) Flag(name string, enabled bool) *InvocationBuilder {
	b.mustBeBuilding()
	if enabled {
		b.args = append(b.args, "--"+name)
	}
	return b
}

// DeterministicOutput toggles the --deterministic_output flag.
func (b *InvocationBuilder) DeterministicOutput(enabled bool) *InvocationBuilder {
	return b.Flag("deterministic_output", enabled)
}

// FatalWarnings toggles the --fatal_warnings flag.
func (b *InvocationBuilder) FatalWarnings(enabled bool) *InvocationBuilder {
	return b.Flag("fatal_warnings", enabled)
}

// Finalize appends every source file path, in the given order, as a trailing
// positional argument and returns the finished invocation. The builder must
// not be used afterwards.
func (b *InvocationBuilder) Finalize(sources []string) (Invocation, error) {
	if b.finalized {
		return Invocation{}, ErrBuilderFinalized
	}
	b.finalized = true

	args := make([]string, 0, len(b.args)+len(sources))
	args = append(args, b.args...)
	args = append(args, sources...)

	return Invocation{executable: b.executable, args: args}, nil
}

func (b *InvocationBuilder) mustBeBuilding() {
	if b.finalized {
		panic("domain: invocation builder used after Finalize")
	}
}
