package probe

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"
)

const compareChunkSize = 32 * 1024

// MismatchKind tells what differs between the expected and the observed content
type MismatchKind string

const (
	SizeMismatch    MismatchKind = "size"
	ContentMismatch MismatchKind = "content"
	MissingPath     MismatchKind = "missing"
	PathSetMismatch MismatchKind = "path-set"
	TypeMismatch    MismatchKind = "type"
)

// Mismatch describes a single difference found by the oracle
type Mismatch struct {
	Path           string
	Kind           MismatchKind
	ExpectedSize   int64
	ActualSize     int64
	Offset         int64
	ExpectedDigest uint64
	ActualDigest   uint64
	Missing        []string
	Extra          []string
	Diff           string
}

func (m Mismatch) String() string {
	switch m.Kind {
	case SizeMismatch:
		return fmt.Sprintf("%s: size %d, expected %d (first difference at offset %d, xxhash %016x, expected %016x)",
			m.Path, m.ActualSize, m.ExpectedSize, m.Offset, m.ActualDigest, m.ExpectedDigest)
	case ContentMismatch:
		return fmt.Sprintf("%s: content differs at offset %d (xxhash %016x, expected %016x)",
			m.Path, m.Offset, m.ActualDigest, m.ExpectedDigest)
	case MissingPath:
		return fmt.Sprintf("%s: missing", m.Path)
	case TypeMismatch:
		return fmt.Sprintf("%s: file type differs", m.Path)
	case PathSetMismatch:
		var parts []string
		if len(m.Missing) != 0 {
			parts = append(parts, "missing ["+strings.Join(m.Missing, ", ")+"]")
		}
		if len(m.Extra) != 0 {
			parts = append(parts, "extra ["+strings.Join(m.Extra, ", ")+"]")
		}
		return fmt.Sprintf("%s: %s", m.Path, strings.Join(parts, ", "))
	}
	return m.Path + ": " + string(m.Kind)
}

// FilesEqual streams both files and reports the first difference between them.
// A nil mismatch means the files are byte-identical. An absent actual file is a
// mismatch, an unreadable expected file is an error.
func FilesEqual(expected, actual string) (*Mismatch, error) {
	ef, err := os.Open(expected)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open the reference file %s", expected)
	}
	defer ef.Close()

	af, err := os.Open(actual)
	if err != nil {
		if os.IsNotExist(err) {
			return &Mismatch{Path: filepath.Base(actual), Kind: MissingPath, Offset: -1}, nil
		}
		return nil, errors.Wrapf(err, "unable to open %s", actual)
	}
	defer af.Close()

	expectedHash, actualHash := xxhash.New(), xxhash.New()
	er := io.TeeReader(bufio.NewReader(ef), expectedHash)
	ar := io.TeeReader(bufio.NewReader(af), actualHash)
	ebuf := make([]byte, compareChunkSize)
	abuf := make([]byte, compareChunkSize)

	var offset, expectedSize, actualSize int64
	firstDiff := int64(-1)
	for {
		en, eerr := io.ReadFull(er, ebuf)
		if eerr != nil && !isEOF(eerr) {
			return nil, errors.Wrapf(eerr, "unable to read %s", expected)
		}
		an, aerr := io.ReadFull(ar, abuf)
		if aerr != nil && !isEOF(aerr) {
			return nil, errors.Wrapf(aerr, "unable to read %s", actual)
		}
		expectedSize += int64(en)
		actualSize += int64(an)
		if firstDiff < 0 {
			if i := firstDifference(ebuf[:en], abuf[:an]); i >= 0 {
				firstDiff = offset + int64(i)
			}
		}
		offset += compareChunkSize
		if eerr != nil && aerr != nil {
			break
		}
	}
	if firstDiff < 0 {
		return nil, nil
	}

	kind := ContentMismatch
	if expectedSize != actualSize {
		kind = SizeMismatch
	}
	return &Mismatch{
		Path:           filepath.Base(actual),
		Kind:           kind,
		ExpectedSize:   expectedSize,
		ActualSize:     actualSize,
		Offset:         firstDiff,
		ExpectedDigest: expectedHash.Sum64(),
		ActualDigest:   actualHash.Sum64(),
	}, nil
}

// firstDifference returns the index of the first differing byte, -1 when a and b are equal
func firstDifference(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	if len(a) != len(b) {
		return n
	}
	return -1
}

func isEOF(err error) bool {
	return err == io.EOF || err == io.ErrUnexpectedEOF
}
