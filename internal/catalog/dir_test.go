package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel string, modified time.Time) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(rel), 0o644))
	require.NoError(t, os.Chtimes(p, modified, modified))
}

func TestDirStore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "dataset/TV/T-1/TEM NL/a.jpg", t0)
	writeFile(t, root, "dataset/TV/T-1/HÌNH WEB/b.png", t0.Add(time.Hour))
	writeFile(t, root, "dataset/TV/T-2/TEM NL/c.jpg", t0)

	s, err := NewDirStore(root)
	require.NoError(t, err)
	ctx := context.Background()

	data, err := s.Get(ctx, "dataset/TV/T-1/TEM NL/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, "dataset/TV/T-1/TEM NL/a.jpg", string(data))

	_, err = s.Get(ctx, "dataset/TV/none.jpg")
	assert.ErrorIs(t, err, ErrObjectNotFound)

	_, err = s.Get(ctx, "../outside.jpg")
	assert.ErrorContains(t, err, "escapes")

	objs, err := s.List(ctx, "dataset/TV/T-1/")
	require.NoError(t, err)
	require.Len(t, objs, 2)
	keys := []string{objs[0].Key, objs[1].Key}
	assert.ElementsMatch(t, []string{"dataset/TV/T-1/TEM NL/a.jpg", "dataset/TV/T-1/HÌNH WEB/b.png"}, keys)
	for _, o := range objs {
		if o.Key == "dataset/TV/T-1/HÌNH WEB/b.png" {
			assert.True(t, o.LastModified.Equal(t0.Add(time.Hour)))
		}
	}

	prefixes, err := s.ListPrefixes(ctx, "dataset/TV/")
	require.NoError(t, err)
	assert.Equal(t, []string{"dataset/TV/T-1/", "dataset/TV/T-2/"}, prefixes)

	prefixes, err = s.ListPrefixes(ctx, "dataset/WM/")
	require.NoError(t, err)
	assert.Empty(t, prefixes)
}

func TestDirStore_WithCatalog(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "dataset/TV/T-1/TEM NL/old.jpg", t0)
	writeFile(t, root, "dataset/TV/T-1/TEM NL/new.jpg", t0.Add(time.Hour))
	writeFile(t, root, "dataset/TV/T-1/HÌNH WEB/o.webp", t0)

	s, err := NewDirStore(root)
	require.NoError(t, err)
	c := New(s, testLayout(), Limits{Label: 1, Overview: 3}, 0, nil)

	refs, err := c.References(context.Background(), "tv", "T-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"dataset/TV/T-1/TEM NL/new.jpg"}, refs.Label)
	assert.Equal(t, []string{"dataset/TV/T-1/HÌNH WEB/o.webp"}, refs.Overview)
}

func TestNewDirStore_Errors(t *testing.T) {
	_, err := NewDirStore(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)

	f := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(f, nil, 0o644))
	_, err = NewDirStore(f)
	assert.ErrorContains(t, err, "not a directory")
}
