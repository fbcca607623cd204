// Package corpus generates the ground truth files every later read is checked against.
package corpus

import (
	"bufio"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"github.com/litmuschaos/evenodd-chaos/pkg/cerrors"
	experimentTypes "github.com/litmuschaos/evenodd-chaos/pkg/evenodd/types"
	"github.com/litmuschaos/evenodd-chaos/pkg/log"
	"github.com/litmuschaos/evenodd-chaos/pkg/types"
)

const (
	chunkSize = 64 * 1024
	// readable content repeated by pattern files
	patternAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ\n"
)

// FileName returns the corpus name of the i-th file
func FileName(i int) string {
	return fmt.Sprintf("file_%d.dat", i)
}

// Generate creates count files under dir with sizes drawn uniformly from [1, maxSize].
// Files are created exclusively, an existing file of the same name fails the generation.
func Generate(dir string, count int, maxSize int64, pattern experimentTypes.ContentPattern, rng *rand.Rand) ([]types.TestFile, error) {
	if count < 1 || maxSize < 1 {
		return nil, cerrors.Error{ErrorCode: cerrors.ErrorTypeSetup, Phase: "GeneratingCorpus", Reason: fmt.Sprintf("invalid corpus shape, count: %d, max size: %d", count, maxSize)}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, cerrors.Error{ErrorCode: cerrors.ErrorTypeSetup, Phase: "GeneratingCorpus", Target: dir, Reason: err.Error()}
	}

	files := make([]types.TestFile, 0, count)
	for i := 0; i < count; i++ {
		size := rng.Int63n(maxSize) + 1
		file, err := generateFile(filepath.Join(dir, FileName(i)), size, pattern, rng)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}

	log.InfoWithValues("[Corpus]: Generated the test corpus", log.Fields{
		"Directory": dir,
		"Files":     count,
		"MaxSize":   maxSize,
		"Pattern":   pattern,
	})
	return files, nil
}

func generateFile(path string, size int64, pattern experimentTypes.ContentPattern, rng *rand.Rand) (types.TestFile, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o444)
	if err != nil {
		return types.TestFile{}, cerrors.Error{ErrorCode: cerrors.ErrorTypeSetup, Phase: "GeneratingCorpus", Target: path, Reason: err.Error()}
	}
	defer f.Close()

	digest := xxhash.New()
	w := bufio.NewWriterSize(io.MultiWriter(f, digest), chunkSize)
	if _, err := io.CopyN(w, newContentReader(pattern, rng), size); err != nil {
		return types.TestFile{}, cerrors.Error{ErrorCode: cerrors.ErrorTypeSetup, Phase: "GeneratingCorpus", Target: path, Reason: err.Error()}
	}
	if err := w.Flush(); err != nil {
		return types.TestFile{}, cerrors.Error{ErrorCode: cerrors.ErrorTypeSetup, Phase: "GeneratingCorpus", Target: path, Reason: err.Error()}
	}
	if err := f.Sync(); err != nil {
		return types.TestFile{}, cerrors.Error{ErrorCode: cerrors.ErrorTypeSetup, Phase: "GeneratingCorpus", Target: path, Reason: err.Error()}
	}

	return types.TestFile{
		Name:   filepath.Base(path),
		Path:   path,
		Size:   size,
		Digest: digest.Sum64(),
	}, nil
}

func newContentReader(pattern experimentTypes.ContentPattern, rng *rand.Rand) io.Reader {
	if pattern == experimentTypes.PatternContent {
		return &patternReader{offset: rng.Intn(len(patternAlphabet))}
	}
	return rng
}

// patternReader endlessly repeats the readable alphabet starting at offset
type patternReader struct {
	offset int
}

func (r *patternReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = patternAlphabet[r.offset]
		r.offset = (r.offset + 1) % len(patternAlphabet)
	}
	return len(p), nil
}
