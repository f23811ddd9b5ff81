package ziparchive_test

import (
	"archive/zip"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/protostage/protostage/internal/adapter/outbound/ziparchive"
	"github.com/protostage/protostage/internal/domain"
	"github.com/protostage/protostage/pkg/shared/digest"
)

func newTestExtractor(t *testing.T, stagingBase string) *ziparchive.Extractor {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return ziparchive.New(stagingBase, domain.NewPathFilter(""), logger)
}

// writeZip creates a zip file at path holding the given entries.
func writeZip(t *testing.T, path string, entries map[string]string) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)

	w := zip.NewWriter(f)
	for name, content := range entries {
		entry, err := w.Create(name)
		require.NoError(t, err)
		_, err = entry.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())
}

func TestExtractor_Extract(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	archive := filepath.Join(t.TempDir(), "protos.zip")
	writeZip(t, archive, map[string]string{
		"a/b.proto":  "syntax = \"proto3\";\n",
		"c.proto":    "syntax = \"proto2\";\n",
		"notes.txt":  "not a source\n",
		"Case.PROTO": "wrong case\n",
	})

	stagingBase := t.TempDir()
	listing, err := newTestExtractor(t, stagingBase).Extract(ctx, archive)
	require.NoError(err)
	require.NotNil(listing)

	wantRoot := filepath.Join(stagingBase, digest.SHA1Hex("protos.zip"))
	assert.Equal(archive, listing.Archive)
	assert.Equal(wantRoot, listing.StagingRoot)

	// Relative structure is preserved exactly; discovery order is the
	// archive walk order.
	assert.Equal([]string{
		filepath.Join(wantRoot, "a", "b.proto"),
		filepath.Join(wantRoot, "c.proto"),
	}, listing.Sources)

	content, err := os.ReadFile(filepath.Join(wantRoot, "a", "b.proto"))
	require.NoError(err)
	assert.Equal("syntax = \"proto3\";\n", string(content))

	// Non-matching entries are not staged.
	assert.NoFileExists(filepath.Join(wantRoot, "notes.txt"))
	assert.NoFileExists(filepath.Join(wantRoot, "Case.PROTO"))
}

func TestExtractor_Extract_Idempotent(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	archive := filepath.Join(t.TempDir(), "protos.zip")
	writeZip(t, archive, map[string]string{"a.proto": "syntax = \"proto3\";\n"})

	stagingBase := t.TempDir()
	extractor := newTestExtractor(t, stagingBase)

	first, err := extractor.Extract(ctx, archive)
	require.NoError(err)
	require.NotNil(first)

	// The copy targets already exist on the second run; extraction must
	// still succeed and resolve to the same staging directory.
	second, err := extractor.Extract(ctx, archive)
	require.NoError(err)
	require.NotNil(second)

	assert.Equal(first.StagingRoot, second.StagingRoot)
	assert.Equal(first.Sources, second.Sources)
}

func TestExtractor_Extract_DigestCoversFileNameOnly(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	// Same file name in two different directories lands in one staging
	// location; the digest deliberately ignores the parent path.
	archiveA := filepath.Join(t.TempDir(), "common.jar")
	archiveB := filepath.Join(t.TempDir(), "common.jar")
	writeZip(t, archiveA, map[string]string{"a.proto": "A"})
	writeZip(t, archiveB, map[string]string{"b.proto": "B"})

	stagingBase := t.TempDir()
	extractor := newTestExtractor(t, stagingBase)

	listingA, err := extractor.Extract(ctx, archiveA)
	require.NoError(err)
	listingB, err := extractor.Extract(ctx, archiveB)
	require.NoError(err)

	assert.Equal(listingA.StagingRoot, listingB.StagingRoot)
}

func TestExtractor_Extract_CopyFailureIsFatalWithoutRollback(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	archive := filepath.Join(t.TempDir(), "protos.zip")
	writeZip(t, archive, map[string]string{
		"a.proto": "A",
		"b.proto": "B",
	})

	stagingBase := t.TempDir()
	wantRoot := filepath.Join(stagingBase, digest.SHA1Hex("protos.zip"))

	// A directory squatting on the second copy target makes that copy fail
	// after the first entry has already been staged.
	require.NoError(os.MkdirAll(filepath.Join(wantRoot, "b.proto"), 0o755))

	listing, err := newTestExtractor(t, stagingBase).Extract(ctx, archive)
	require.Error(err)
	assert.Nil(listing)

	// The failure is fatal for the archive, but earlier copies stay in place.
	assert.FileExists(filepath.Join(wantRoot, "a.proto"))
}

func TestExtractor_Extract_NoMatchesYieldsNoListing(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	archive := filepath.Join(t.TempDir(), "empty.zip")
	writeZip(t, archive, map[string]string{"readme.txt": "nothing here"})

	stagingBase := t.TempDir()
	listing, err := newTestExtractor(t, stagingBase).Extract(ctx, archive)
	require.NoError(err)
	assert.Nil(listing)

	// No staging directory is created for an empty match set.
	remains, err := os.ReadDir(stagingBase)
	require.NoError(err)
	assert.Empty(remains)
}

func TestExtractor_Extract_UnopenableArchive(t *testing.T) {
	ctx := context.Background()

	listing, err := newTestExtractor(t, t.TempDir()).
		Extract(ctx, filepath.Join(t.TempDir(), "missing.zip"))

	require.Error(t, err)
	assert.Nil(t, listing)
}

func TestExtractor_Extract_NotAZip(t *testing.T) {
	ctx := context.Background()

	archive := filepath.Join(t.TempDir(), "bogus.zip")
	require.NoError(t, os.WriteFile(archive, []byte("plain text, no zip magic"), 0o644))

	_, err := newTestExtractor(t, t.TempDir()).Extract(ctx, archive)
	require.Error(t, err)
}
