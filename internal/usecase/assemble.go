package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/protostage/protostage/internal/domain"
)

// OutputSpec pairs a code-generation backend with the directory its output
// lands in, rendered as --<kind>_out=<dir>.
type OutputSpec struct {
	Kind string
	Dir  string
}

// AssembleRequest carries everything the staging pipeline needs for one build.
type AssembleRequest struct {
	// Executable is the path of the external compiler binary.
	Executable string
	// SourceDirs are the plain directory roots to scan for sources.
	SourceDirs []string
	// Archives are zip-compatible containers whose embedded sources are
	// staged before compilation.
	Archives []string
	// IncludeDirs are caller-supplied import roots, passed through first.
	IncludeDirs []string
	// Outputs are emitted in order after the include paths.
	Outputs []OutputSpec

	DeterministicOutput bool
	FatalWarnings       bool
}

// AssembleResult is the outcome of one assembly: the merged source paths,
// the per-archive staging listings, and the finalized invocation. The
// invocation is the zero value when there was nothing to compile.
type AssembleResult struct {
	Sources    []string
	Listings   []domain.ArchiveListing
	Invocation domain.Invocation
}

// AssembleUseCase orchestrates source discovery, archive staging and
// invocation assembly for one build.
type AssembleUseCase struct {
	resolver    SourceResolver
	extractor   ArchiveExtractor
	runner      CompilerRunner
	logger      *slog.Logger
	tracer      trace.Tracer
	stagedFiles metric.Int64Counter
}

// NewAssembleUseCase creates a new AssembleUseCase. The runner may be nil
// when the caller only assembles invocations without executing them.
func NewAssembleUseCase(
	resolver SourceResolver,
	extractor ArchiveExtractor,
	runner CompilerRunner,
	logger *slog.Logger,
) *AssembleUseCase {
	stagedFiles, err := otel.Meter("protostage/usecase").Int64Counter(
		"protostage.staged_files",
		metric.WithDescription("Number of source files copied out of archives."),
	)
	if err != nil {
		// A meter failure only disables the counter; assembly still works.
		logger.Warn("Failed to create staged-files counter.", slog.Any("error", err))
	}

	return &AssembleUseCase{
		resolver:    resolver,
		extractor:   extractor,
		runner:      runner,
		logger:      logger.With("usecase", "Assemble"),
		tracer:      otel.Tracer("protostage/usecase"),
		stagedFiles: stagedFiles,
	}
}

// Assemble resolves sources from the plain directory roots, stages the
// matching entries of every archive, merges the two sets (scanner results
// first, then staged sources in archive order) and builds the compiler
// invocation.
//
// Include paths are passed in a significant order: caller-supplied include
// directories first, then the scan roots, then the staging roots, so every
// discovered source is importable by the compiler.
//
// The first failing root or archive aborts the assembly; there are no
// retries. Zero discovered sources is not an error: the result carries a
// zero invocation and the caller skips compilation.
func (uc *AssembleUseCase) Assemble(ctx context.Context, req AssembleRequest) (*AssembleResult, error) {
	ctx, span := uc.tracer.Start(ctx, "Assemble")
	defer span.End()

	log := uc.logger.With(slog.String("executable", req.Executable))
	log.Info("Assembling compiler invocation.",
		slog.Int("source_dirs", len(req.SourceDirs)),
		slog.Int("archives", len(req.Archives)))

	sources, err := uc.resolver.Resolve(ctx, req.SourceDirs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve sources: %w", err)
	}

	var listings []domain.ArchiveListing
	staged := 0
	for _, archive := range req.Archives {
		listing, err := uc.extractor.Extract(ctx, archive)
		if err != nil {
			return nil, fmt.Errorf("failed to extract archive %s: %w", archive, err)
		}
		if listing == nil {
			log.Debug("Archive holds no matching sources, skipping.", slog.String("archive", archive))
			continue
		}
		listings = append(listings, *listing)
		sources = append(sources, listing.Sources...)
		staged += len(listing.Sources)
	}

	if uc.stagedFiles != nil {
		uc.stagedFiles.Add(ctx, int64(staged))
	}
	span.SetAttributes(
		attribute.Int("protostage.source_count", len(sources)),
		attribute.Int("protostage.staged_count", staged),
	)

	if len(sources) == 0 {
		log.Warn("No sources discovered, nothing to compile.")
		return &AssembleResult{}, nil
	}

	includes := make([]string, 0, len(req.IncludeDirs)+len(req.SourceDirs)+len(listings))
	includes = append(includes, req.IncludeDirs...)
	includes = append(includes, req.SourceDirs...)
	for _, listing := range listings {
		includes = append(includes, listing.StagingRoot)
	}

	builder := domain.NewInvocationBuilder(req.Executable).IncludeDirs(includes...)
	for _, out := range req.Outputs {
		builder.Output(out.Kind, out.Dir)
	}
	builder.DeterministicOutput(req.DeterministicOutput)
	builder.FatalWarnings(req.FatalWarnings)

	inv, err := builder.Finalize(sources)
	if err != nil {
		return nil, fmt.Errorf("failed to finalize invocation: %w", err)
	}

	log.Info("Invocation assembled.",
		slog.Int("source_count", len(sources)),
		slog.Int("staged_count", staged),
		slog.Int("arg_count", len(inv.Args())))

	return &AssembleResult{Sources: sources, Listings: listings, Invocation: inv}, nil
}

// Compile assembles the invocation and hands it to the compiler runner.
// Assemblies with nothing to compile succeed without spawning a process and
// return a nil ExecResult.
func (uc *AssembleUseCase) Compile(ctx context.Context, req AssembleRequest) (*AssembleResult, *ExecResult, error) {
	ctx, span := uc.tracer.Start(ctx, "Compile")
	defer span.End()

	res, err := uc.Assemble(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	if res.Invocation.IsZero() {
		return res, nil, nil
	}
	if uc.runner == nil {
		return res, nil, ErrNoRunner
	}

	execRes, err := uc.runner.Run(ctx, res.Invocation)
	if err != nil {
		return res, execRes, fmt.Errorf("compiler run failed: %w", err)
	}
	return res, execRes, nil
}
