package probe

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
)

// TreesEqual compares two directory trees recursively. The trees are equal when they
// hold the same set of relative paths and every regular file is byte-identical.
// The returned mismatches are ordered by path, none means the trees are equal.
func TreesEqual(expectedDir, actualDir string) ([]Mismatch, error) {
	expected, err := listTree(expectedDir)
	if err != nil {
		return nil, err
	}
	if expected == nil {
		return []Mismatch{{Path: expectedDir, Kind: MissingPath, Offset: -1}}, nil
	}
	actual, err := listTree(actualDir)
	if err != nil {
		return nil, err
	}
	if actual == nil {
		return []Mismatch{{Path: actualDir, Kind: MissingPath, Offset: -1}}, nil
	}

	var mismatches []Mismatch
	expectedPaths, actualPaths := sortedKeys(expected), sortedKeys(actual)
	if diff := cmp.Diff(expectedPaths, actualPaths); diff != "" {
		m := Mismatch{Path: actualDir, Kind: PathSetMismatch, Offset: -1, Diff: diff}
		for _, p := range expectedPaths {
			if _, ok := actual[p]; !ok {
				m.Missing = append(m.Missing, p)
			}
		}
		for _, p := range actualPaths {
			if _, ok := expected[p]; !ok {
				m.Extra = append(m.Extra, p)
			}
		}
		mismatches = append(mismatches, m)
	}

	for _, rel := range expectedPaths {
		actualType, ok := actual[rel]
		if !ok {
			continue
		}
		expectedType := expected[rel]
		if expectedType != actualType {
			mismatches = append(mismatches, Mismatch{Path: rel, Kind: TypeMismatch, Offset: -1})
			continue
		}
		if !expectedType.IsRegular() {
			continue
		}
		m, err := FilesEqual(filepath.Join(expectedDir, rel), filepath.Join(actualDir, rel))
		if err != nil {
			return nil, err
		}
		if m != nil {
			m.Path = rel
			mismatches = append(mismatches, *m)
		}
	}
	return mismatches, nil
}

// listTree maps every relative path below root to its type, a nil map means root is absent
func listTree(root string) (map[string]fs.FileMode, error) {
	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "unable to stat %s", root)
	}
	if !info.IsDir() {
		return nil, errors.Errorf("%s is not a directory", root)
	}

	entries := map[string]fs.FileMode{}
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == "." {
			return err
		}
		entries[filepath.ToSlash(rel)] = d.Type().Type()
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "unable to walk %s", root)
	}
	return entries, nil
}

func sortedKeys(m map[string]fs.FileMode) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
