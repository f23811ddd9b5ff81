package usecase

import (
	"context"
	"errors"

	"github.com/protostage/protostage/internal/domain"
)

// Standard errors returned by use cases and adapters.
var (
	// ErrNoRunner indicates Compile was requested without a compiler runner wired in.
	ErrNoRunner = errors.New("no compiler runner configured")
)

// SourceResolver discovers interface-definition sources under plain
// directory roots on the real filesystem.
type SourceResolver interface {
	// Resolve walks each root depth-first, in the given order, and returns
	// every matching file in walk order. Roots that do not exist are skipped
	// (logged, not an error). Matches collected before a walk failure are
	// returned alongside the error.
	Resolve(ctx context.Context, roots []string) ([]string, error)
}

// ArchiveExtractor stages the matching entries of one archive container onto
// the real filesystem.
type ArchiveExtractor interface {
	// Extract returns a nil listing and a nil error when the archive holds
	// no matching entries; such archives contribute nothing downstream.
	Extract(ctx context.Context, archivePath string) (*domain.ArchiveListing, error)
}

// ExecResult captures the outcome of one compiler process run.
type ExecResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// CompilerRunner executes a finalized invocation as an external process.
// Implementations report a non-zero exit as an error; the ExecResult is
// populated either way so callers can surface compiler diagnostics.
type CompilerRunner interface {
	Run(ctx context.Context, inv domain.Invocation) (*ExecResult, error)
}
