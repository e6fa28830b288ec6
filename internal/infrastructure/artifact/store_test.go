package artifact_test

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dee-studio/internal/config"
	"dee-studio/internal/infrastructure/artifact"
	"dee-studio/pkg/errors"
)

func newStore(t *testing.T) *artifact.Store {
	t.Helper()
	store, err := artifact.NewStore(&config.ArtifactsConfig{
		Dir:           t.TempDir(),
		PublicBaseURL: "http://localhost:9100/",
	})
	require.NoError(t, err)
	return store
}

func TestPersistWritesFileAndBuildsArtifact(t *testing.T) {
	dir := t.TempDir()
	store, err := artifact.NewStore(&config.ArtifactsConfig{
		Dir:           dir,
		PublicBaseURL: "http://localhost:9100",
	})
	require.NoError(t, err)

	image := []byte{0x89, 0x50, 0x4e, 0x47}
	art, err := store.Persist(t.Context(), image, "sdxl")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(art.Filename, "sdxl_"))
	assert.True(t, strings.HasSuffix(art.Filename, ".png"))
	assert.Equal(t, "http://localhost:9100/images/"+art.Filename, art.URL)
	assert.True(t, strings.HasPrefix(art.InlineData, "data:image/png;base64,"))

	written, err := os.ReadFile(filepath.Join(dir, art.Filename))
	require.NoError(t, err)
	assert.Equal(t, image, written)

	// 临时文件必须已清理
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestPersistTrimsBaseURLSlash(t *testing.T) {
	store := newStore(t)

	art, err := store.Persist(t.Context(), []byte{1}, "flux")
	require.NoError(t, err)
	assert.NotContains(t, art.URL, "//images")
}

func TestPersistConcurrentFilenamesAreDistinct(t *testing.T) {
	store := newStore(t)

	const n = 20
	names := make([]string, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			art, err := store.Persist(t.Context(), []byte{byte(i)}, "sdxl")
			assert.NoError(t, err)
			names[i] = art.Filename
		}()
	}
	wg.Wait()

	seen := make(map[string]bool, n)
	for _, name := range names {
		assert.False(t, seen[name], "duplicate filename %s", name)
		seen[name] = true

		path, err := store.Path(name)
		require.NoError(t, err)
		assert.FileExists(t, path)
	}
}

func TestPathRejectsTraversal(t *testing.T) {
	store := newStore(t)

	for _, name := range []string{"", "../secret.png", "a/b.png", ".hidden.png"} {
		_, err := store.Path(name)
		require.Error(t, err, "filename %q", name)
		assert.True(t, errors.HasCode(err, errors.CodeArtifactNotFound))
	}
}

func TestPathMissingFileIsNotFound(t *testing.T) {
	store := newStore(t)

	_, err := store.Path("sdxl_missing.png")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeArtifactNotFound))
}
