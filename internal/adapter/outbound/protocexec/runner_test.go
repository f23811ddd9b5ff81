package protocexec_test

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/protostage/protostage/internal/adapter/outbound/protocexec"
	"github.com/protostage/protostage/internal/domain"
)

func newTestRunner(t *testing.T) *protocexec.Runner {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return protocexec.New(logger)
}

// shInvocation builds an invocation running `sh -c <script>`; the builder's
// trailing positionals carry the shell arguments.
func shInvocation(t *testing.T, script string) domain.Invocation {
	t.Helper()
	inv, err := domain.NewInvocationBuilder("/bin/sh").Finalize([]string{"-c", script})
	require.NoError(t, err)
	return inv
}

func TestRunner_Run_Success(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	res, err := newTestRunner(t).Run(context.Background(), shInvocation(t, "printf hello"))
	require.NoError(err)
	require.NotNil(res)

	assert.Equal(0, res.ExitCode)
	assert.Equal("hello", res.Stdout)
	assert.Empty(res.Stderr)
}

func TestRunner_Run_NonZeroExit(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	res, err := newTestRunner(t).Run(context.Background(),
		shInvocation(t, "printf 'boom' 1>&2; exit 3"))

	require.Error(err)
	require.NotNil(res)
	assert.Equal(3, res.ExitCode)
	assert.Equal("boom", res.Stderr)
	assert.Contains(err.Error(), "exited with code 3")
	assert.Contains(err.Error(), "boom")
}

func TestRunner_Run_ExecutableNotFound(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	inv, err := domain.NewInvocationBuilder("protostage-no-such-binary").Finalize(nil)
	require.NoError(err)

	_, err = newTestRunner(t).Run(context.Background(), inv)
	require.Error(err)
	assert.Contains(err.Error(), "failed to run compiler")
}

func TestRunner_Run_EmptyInvocation(t *testing.T) {
	var zero domain.Invocation

	_, err := newTestRunner(t).Run(context.Background(), zero)
	require.Error(t, err)
}
