package routes

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdantlabs/sprout/navigator/internal/domain/screen"
)

func TestDefaultTable(t *testing.T) {
	table := Default()

	r, ok := table.Get("post")
	require.True(t, ok)
	assert.Equal(t, "feed/post", r.Path)
	assert.Equal(t, screen.ModePush, table.Mode("post"))
	assert.Equal(t, screen.ModeModal, table.Mode("profile"))
}

func TestPathFallback(t *testing.T) {
	table := Default()
	assert.Equal(t, "unknown_flow", table.Path("unknown_flow"))
	assert.Equal(t, screen.ModePush, table.Mode("unknown_flow"))
}

func TestLoadDirMissingIsDefault(t *testing.T) {
	table, err := LoadDir(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Equal(t, "feed", table.Path("feed"))
}

func TestLoadDirMergesManifest(t *testing.T) {
	dir := t.TempDir()
	manifest := `routes:
  - name: post
    path: timeline/post
    mode: push
  - name: onboarding
    path: onboarding/welcome
    mode: modal
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "screens.yaml"), []byte(manifest), 0o644))

	table, err := LoadDir(dir)
	require.NoError(t, err)

	assert.Equal(t, "timeline/post", table.Path("post"), "manifest should override the default")
	assert.Equal(t, screen.ModeModal, table.Mode("onboarding"))
	assert.Equal(t, "feed", table.Path("feed"), "untouched defaults should survive the merge")
}

func TestLoadDirRejectsIncompleteRoute(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("routes:\n  - mode: push\n"), 0o644))

	_, err := LoadDir(dir)
	assert.Error(t, err)
}
