// Package scanner implements source discovery over plain directory trees.
package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/protostage/protostage/internal/domain"
)

// TreeScanner implements the usecase.SourceResolver interface with a
// depth-first walk of the local filesystem.
type TreeScanner struct {
	filter domain.PathFilter
	logger *slog.Logger
}

// New creates a TreeScanner matching files against the given filter.
func New(filter domain.PathFilter, logger *slog.Logger) *TreeScanner {
	return &TreeScanner{
		filter: filter,
		logger: logger.With("component", "tree_scanner"),
	}
}

// Resolve walks each root recursively, in the given order, collecting every
// regular file the filter accepts. A symlink counts when it resolves to a
// regular file; symlinked directories are not descended into, so an ordinary
// tree walk cannot revisit a directory and adversarial symlink cycles are
// out of scope.
//
// Roots that do not exist are skipped with an informational log entry.
// When a walk fails the matches collected so far are returned together with
// the error, so earlier roots are never lost.
func (s *TreeScanner) Resolve(ctx context.Context, roots []string) ([]string, error) {
	var sources []string

	for _, root := range roots {
		if _, err := os.Stat(root); os.IsNotExist(err) {
			s.logger.Info("Source directory does not exist, skipping.", slog.String("dir", root))
			continue
		}

		s.logger.Info("Discovering sources.", slog.String("dir", root))

		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !s.isRegularFile(path, d) {
				return nil
			}
			if !s.filter.Matches(d.Name()) {
				return nil
			}
			s.logger.Debug("Discovered source file.", slog.String("path", path))
			sources = append(sources, path)
			return nil
		})
		if err != nil {
			return sources, fmt.Errorf("failed to walk %s: %w", root, err)
		}
	}

	s.logger.Info("Source discovery complete.", slog.Int("count", len(sources)))
	return sources, nil
}

// isRegularFile reports whether the entry is a regular file, following
// symlinks. Dangling links resolve to nothing and are skipped.
func (s *TreeScanner) isRegularFile(path string, d fs.DirEntry) bool {
	if d.Type().IsRegular() {
		return true
	}
	if d.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	if err != nil {
		s.logger.Debug("Skipping unresolvable symlink.", slog.String("path", path))
		return false
	}
	return info.Mode().IsRegular()
}
