package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bespokepunks/traitsampler/internal/captions"
	"github.com/bespokepunks/traitsampler/internal/extractor"
	"github.com/bespokepunks/traitsampler/internal/regions"
	"github.com/bespokepunks/traitsampler/internal/sampler"
	"github.com/bespokepunks/traitsampler/internal/storage"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(io.Discard)
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSampleCommand(t *testing.T) {
	sprites := t.TempDir()
	out := t.TempDir()
	mirror := t.TempDir()
	t.Setenv("TRAITS_MIRROR_DIRS", mirror)

	s := sampler.NewSprite("lad_001", 24, 24, sampler.RGB{R: 255, G: 255, B: 255})
	s.Fill(9, 13, 7, 11, sampler.RGB{R: 10, G: 10, B: 200})
	s.Fill(9, 13, 13, 17, sampler.RGB{R: 10, G: 10, B: 200})
	require.NoError(t, extractor.SaveSprite(filepath.Join(sprites, "lad_001.png"), s))
	require.NoError(t, captions.Write(sprites, "lad_001", "lad, pixel art style"))

	stdout, err := run(t, "sample", sprites, "-o", out, "--sync-captions", "-w", "1")
	require.NoError(t, err)
	assert.Contains(t, stdout, "classified 1/1 sprites")
	assert.Contains(t, stdout, "1 captions changed")

	results, err := storage.ReadResults(filepath.Join(out, storage.ResultsFile))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "blue eyes", results[0].Traits.Eyes.Text)

	mirrored, err := captions.Read(mirror, "lad_001")
	require.NoError(t, err)
	assert.Equal(t, "lad, blue eyes, pixel art style", mirrored)
}

func TestSampleCommandRequiresDir(t *testing.T) {
	_, err := run(t, "sample")
	require.ErrorContains(t, err, "sprite directory")
}

func TestBadLogLevel(t *testing.T) {
	_, err := run(t, "--log-level", "loud", "mirror", "a", "b")
	require.ErrorContains(t, err, "loud")
}

func TestMirrorCommandCaptionOnlyDir(t *testing.T) {
	src := t.TempDir()
	destA := t.TempDir()
	destB := t.TempDir()
	require.NoError(t, captions.Write(src, "lady_000", "lady, green eyes"))
	require.NoError(t, captions.Write(src, "lad_004", "lad, blue eyes"))

	stdout, err := run(t, "mirror", src, destA, destB)
	require.NoError(t, err)
	assert.Contains(t, stdout, "copied 4 caption files")

	got, err := captions.Read(destB, "lad_004")
	require.NoError(t, err)
	assert.Equal(t, "lad, blue eyes", got)
}

func TestMirrorCommandEmptyDir(t *testing.T) {
	_, err := run(t, "mirror", t.TempDir(), t.TempDir())
	require.ErrorIs(t, err, captions.ErrNoCaptions)
}

func TestLoadRegions(t *testing.T) {
	m, err := loadRegions("")
	require.NoError(t, err)
	assert.Contains(t, m, "mouth_span")

	path := filepath.Join(t.TempDir(), "regions.yaml")
	require.NoError(t, os.WriteFile(path, []byte("regions:\n  eyes_left: {row_start: 9, row_end: 13, col_start: 20, col_end: 30}\n"), 0644))
	_, err = loadRegions(path)
	var invalid *regions.InvalidRegionError
	require.ErrorAs(t, err, &invalid)
}
