// Package ziparchive stages sources embedded in zip-compatible containers
// (jars included) onto the real filesystem, where the external compiler can
// read them.
package ziparchive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/protostage/protostage/internal/domain"
	"github.com/protostage/protostage/pkg/shared/digest"
)

// Extractor implements the usecase.ArchiveExtractor interface. Each Extract
// call mounts the archive as an fs.FS, walks it with the configured filter
// and copies the matching entries out; the mount is released on every exit
// path.
//
// Staging directories are named after the SHA-1 digest of the archive's file
// name only, not its full path and not its contents. Repeated extractions of
// a same-named archive therefore resolve to one location, at the cost of two
// different archives sharing a file name colliding. That trade-off is part
// of the staging layout contract; callers that process colliding archives
// concurrently must serialize per staging directory themselves.
type Extractor struct {
	stagingBase string
	filter      domain.PathFilter
	logger      *slog.Logger
}

// New creates an Extractor staging matched entries under stagingBase.
func New(stagingBase string, filter domain.PathFilter, logger *slog.Logger) *Extractor {
	return &Extractor{
		stagingBase: stagingBase,
		filter:      filter,
		logger:      logger.With("component", "zip_extractor"),
	}
}

// Extract copies every matching entry of the archive into the staging
// directory, preserving each entry's path relative to the archive root.
//
// A nil listing with a nil error means the archive holds no matching
// entries; no staging directory is created in that case. A copy failure is
// fatal for this archive and already-copied files are not rolled back:
// staging is best-effort, and re-runs are idempotent because the layout is
// deterministic.
func (e *Extractor) Extract(ctx context.Context, archivePath string) (*domain.ArchiveListing, error) {
	log := e.logger.With(slog.String("archive", archivePath))

	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive %s: %w", archivePath, err)
	}
	defer reader.Close()

	entries, err := e.findMatchingEntries(&reader.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to walk archive %s: %w", archivePath, err)
	}
	if len(entries) == 0 {
		log.Debug("Archive holds no matching entries.")
		return nil, nil
	}

	stagingRoot := filepath.Join(e.stagingBase, digest.SHA1Hex(filepath.Base(archivePath)))
	if err := os.MkdirAll(stagingRoot, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create staging directory %s: %w", stagingRoot, err)
	}

	staged := make([]string, 0, len(entries))
	for _, entry := range entries {
		target := filepath.Join(stagingRoot, filepath.FromSlash(entry))
		log.Debug("Copying archive entry.", slog.String("entry", entry), slog.String("target", target))

		// The hierarchy has to be ensured per entry; "already exists" is
		// success so concurrent extractions of distinct archives are safe.
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory for %s: %w", target, err)
		}
		if err := copyEntry(&reader.Reader, entry, target); err != nil {
			return nil, fmt.Errorf("failed to copy %s from %s: %w", entry, archivePath, err)
		}
		staged = append(staged, target)
	}

	log.Info("Extracted archive sources.",
		slog.Int("count", len(staged)),
		slog.String("staging_root", stagingRoot))

	return &domain.ArchiveListing{
		Archive:     archivePath,
		StagingRoot: stagingRoot,
		Sources:     staged,
	}, nil
}

// findMatchingEntries walks the mounted archive and returns the
// slash-separated paths of the entries the filter accepts, in discovery
// order.
func (e *Extractor) findMatchingEntries(fsys fs.FS) ([]string, error) {
	var entries []string
	err := fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !e.filter.Matches(d.Name()) {
			return nil
		}
		entries = append(entries, path)
		return nil
	})
	return entries, err
}

// copyEntry writes one archive entry to target, truncating any previous
// copy so re-extraction of a same-named archive stays idempotent.
func copyEntry(fsys fs.FS, entry, target string) error {
	src, err := fsys.Open(entry)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(target)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}
