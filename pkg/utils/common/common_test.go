package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyTree(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "disk_0")
	require.NoError(t, os.MkdirAll(filepath.Join(src, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "meta"), []byte("meta"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "nested", "0000_00"), []byte{0, 1, 2}, 0o600))

	dst := filepath.Join(root, "backup", "disk_0")
	require.NoError(t, os.Mkdir(filepath.Dir(dst), 0o755))
	require.NoError(t, CopyTree(src, dst))

	content, err := os.ReadFile(filepath.Join(dst, "meta"))
	require.NoError(t, err)
	assert.Equal(t, "meta", string(content))

	content, err = os.ReadFile(filepath.Join(dst, "nested", "0000_00"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 1, 2}, content)

	assert.Error(t, CopyTree(src, dst), "an existing destination must not be overwritten")
}

func TestCopyFileRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a")
	dst := filepath.Join(dir, "b")
	require.NoError(t, os.WriteFile(src, []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(dst, []byte("b"), 0o644))

	assert.Error(t, CopyFile(src, dst))
	content, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "b", string(content))
}
