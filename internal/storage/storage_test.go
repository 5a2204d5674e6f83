package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bespokepunks/traitsampler/internal/classifier"
	"github.com/bespokepunks/traitsampler/internal/models"
)

func result(name, eyes string) models.SpriteResult {
	return models.SpriteResult{
		Filename: name,
		Traits: classifier.Traits{
			Eyes: classifier.Label{Text: eyes, Source: classifier.SourceRule},
		},
	}
}

func filenames(results []models.SpriteResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Filename
	}
	return out
}

func TestJSONStorageSortedAndMerged(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s := NewStorage(dir)
	require.NoError(t, s.AddResult(ctx, result("lady_001.png", "blue eyes")))
	require.NoError(t, s.AddResult(ctx, result("lad_002.png", "brown eyes")))
	_, err := os.Stat(s.Path())
	require.True(t, os.IsNotExist(err), "nothing written before flush")
	require.NoError(t, s.Flush())

	// second run overwrites one record and adds another
	s = NewStorage(dir)
	require.NoError(t, s.AddResult(ctx, result("lady_001.png", "green eyes")))
	require.NoError(t, s.AddResult(ctx, result("lad_001.png", "gray eyes")))
	require.NoError(t, s.Flush())

	got, err := ReadResults(s.Path())
	require.NoError(t, err)
	assert.Equal(t, []string{"lad_001.png", "lad_002.png", "lady_001.png"}, filenames(got))
	assert.Equal(t, "green eyes", got[2].Traits.Eyes.Text)
}

func TestJSONStorageFlushesFullBatch(t *testing.T) {
	s := NewStorage(t.TempDir())
	ctx := context.Background()
	for i := 0; i < batchSize; i++ {
		require.NoError(t, s.AddResult(ctx, result(fmt.Sprintf("lad_%03d.png", i), "brown eyes")))
	}

	got, err := ReadResults(s.Path())
	require.NoError(t, err)
	assert.Len(t, got, batchSize)
}

func TestJSONStorageEmptyFlush(t *testing.T) {
	s := NewStorage(t.TempDir())
	require.NoError(t, s.Flush())
	_, err := os.Stat(s.Path())
	assert.True(t, os.IsNotExist(err))
}

type recorder struct {
	added   []string
	flushed int
	err     error
}

func (r *recorder) AddResult(_ context.Context, res models.SpriteResult) error {
	r.added = append(r.added, res.Filename)
	return r.err
}

func (r *recorder) Flush() error {
	r.flushed++
	return r.err
}

func TestMulti(t *testing.T) {
	ok := &recorder{}
	failing := &recorder{err: errors.New("db down")}
	m := Multi{ok, failing}

	err := m.AddResult(context.Background(), result("lad_001.png", "blue eyes"))
	require.ErrorContains(t, err, "db down")
	assert.Equal(t, []string{"lad_001.png"}, ok.added)
	assert.Equal(t, []string{"lad_001.png"}, failing.added)

	require.Error(t, m.Flush())
	assert.Equal(t, 1, ok.flushed)
}
