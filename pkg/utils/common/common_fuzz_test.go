package common

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	fuzz "github.com/AdaLogics/go-fuzz-headers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func FuzzCopyTree(f *testing.F) {
	f.Add([]byte("disk_0"))

	f.Fuzz(func(t *testing.T, data []byte) {
		fuzzConsumer := fuzz.NewConsumer(data)
		files := map[string][]byte{}
		if err := fuzzConsumer.FuzzMap(&files); err != nil {
			return
		}
		depth, err := fuzzConsumer.GetInt()
		if err != nil {
			depth = 0
		}

		src := filepath.Join(t.TempDir(), "src")
		dir := src
		for i := 0; i < depth%4; i++ {
			dir = filepath.Join(dir, "d"+strconv.Itoa(i))
		}
		require.NoError(t, os.MkdirAll(dir, 0o755))

		written := map[string][]byte{}
		i := 0
		for _, content := range files {
			rel, err := filepath.Rel(src, filepath.Join(dir, "file_"+strconv.Itoa(i)+".dat"))
			require.NoError(t, err)
			require.NoError(t, os.WriteFile(filepath.Join(src, rel), content, 0o644))
			written[rel] = content
			i++
		}

		dst := filepath.Join(t.TempDir(), "dst")
		require.NoError(t, CopyTree(src, dst))
		for rel, content := range written {
			got, err := os.ReadFile(filepath.Join(dst, rel))
			require.NoError(t, err)
			assert.Equal(t, len(content), len(got))
			assert.Equal(t, string(content), string(got))
		}
		assert.Error(t, CopyTree(src, dst), "copying onto an existing tree is refused")
	})
}
