package ingest

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sweepStore struct {
	paths   map[string]string
	deleted []string
}

func (s *sweepStore) WalkPaths(ctx context.Context, fn func(id, path string) error) error {
	for id, p := range s.paths {
		if err := fn(id, p); err != nil {
			return err
		}
	}
	return nil
}

func (s *sweepStore) Delete(ctx context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	delete(s.paths, id)
	return nil
}

func TestCleanup_RemovesOrphans(t *testing.T) {
	dir := t.TempDir()
	alive := filepath.Join(dir, "alive.pdf")
	require.NoError(t, os.WriteFile(alive, []byte("x"), 0o644))

	st := &sweepStore{paths: map[string]string{
		"id-alive":   alive,
		"id-gone":    filepath.Join(dir, "gone.pdf"),
		"id-no-path": "",
	}}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	total, removed, err := Cleanup(context.Background(), st, logger)
	require.NoError(t, err)

	assert.Equal(t, 3, total)
	assert.Equal(t, 2, removed)
	assert.ElementsMatch(t, []string{"id-gone", "id-no-path"}, st.deleted)
	assert.Contains(t, st.paths, "id-alive")
}
