package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/protostage/protostage/internal/domain"
)

func TestInvocationBuilder_ArgumentOrder(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	inv, err := domain.NewInvocationBuilder("/usr/bin/protoc").
		IncludeDirs("/src/main").
		Output("java", "/out").
		FatalWarnings(true).
		Finalize([]string{"/src/main/a.proto"})
	require.NoError(err)

	assert.Equal([]string{
		"/usr/bin/protoc",
		"--proto_path=/src/main",
		"--java_out=/out",
		"--fatal_warnings",
		"/src/main/a.proto",
	}, inv.Args())
	assert.Equal("/usr/bin/protoc", inv.Executable())
}

func TestInvocationBuilder_DisabledFlagsOmitted(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	inv, err := domain.NewInvocationBuilder("protoc").
		DeterministicOutput(false).
		FatalWarnings(false).
		Finalize(nil)
	require.NoError(err)

	assert.Equal([]string{"protoc"}, inv.Args())
}

func TestInvocationBuilder_IncludeDirsAccumulate(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	// Repeated calls accumulate and duplicates are preserved; the compiler
	// is the one that cares, not the builder.
	inv, err := domain.NewInvocationBuilder("protoc").
		IncludeDirs("/a", "/b").
		IncludeDirs("/a").
		Finalize(nil)
	require.NoError(err)

	assert.Equal([]string{
		"protoc",
		"--proto_path=/a",
		"--proto_path=/b",
		"--proto_path=/a",
	}, inv.Args())
}

func TestInvocationBuilder_SecondFinalizeFails(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	builder := domain.NewInvocationBuilder("protoc")

	_, err := builder.Finalize([]string{"a.proto"})
	require.NoError(err)

	_, err = builder.Finalize([]string{"b.proto"})
	assert.ErrorIs(err, domain.ErrBuilderFinalized)
}

func TestInvocationBuilder_MutationAfterFinalizePanics(t *testing.T) {
	builder := domain.NewInvocationBuilder("protoc")
	_, err := builder.Finalize(nil)
	require.NoError(t, err)

	assert.Panics(t, func() { builder.IncludeDirs("/src") })
	assert.Panics(t, func() { builder.Output("java", "/out") })
	assert.Panics(t, func() { builder.Flag("fatal_warnings", true) })
}

func TestInvocation_ArgsReturnsCopy(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	inv, err := domain.NewInvocationBuilder("protoc").Finalize([]string{"a.proto"})
	require.NoError(err)

	args := inv.Args()
	args[0] = "mutated"
	assert.Equal([]string{"protoc", "a.proto"}, inv.Args())
}

func TestInvocation_IsZero(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	var zero domain.Invocation
	assert.True(zero.IsZero())

	inv, err := domain.NewInvocationBuilder("protoc").Finalize(nil)
	require.NoError(err)
	assert.False(inv.IsZero())
}
