// Package compose assembles named, reusable SQL resource files into one
// WITH-qualified query, resolving dependencies recursively with cycle
// detection.
package compose

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Resource is one named SQL fragment on disk.
type Resource struct {
	DisplayName string
	Path        string
}

// Index maps normalized (lower-cased) resource names to files. Built
// once per build invocation.
type Index struct {
	byName map[string]Resource
}

// DuplicateResourceError reports two files claiming the same normalized
// resource name.
type DuplicateResourceError struct {
	Name       string
	FirstPath  string
	SecondPath string
}

func (e *DuplicateResourceError) Error() string {
	return fmt.Sprintf("duplicate resource name %q: %s and %s", e.Name, e.FirstPath, e.SecondPath)
}

// BuildIndex walks the given directories and indexes every .sql file by
// its base name. A duplicate normalized name is a hard error raised
// here, before any resolution begins.
func BuildIndex(dirs ...string) (*Index, error) {
	idx := &Index{byName: map[string]Resource{}}
	for _, dir := range dirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".sql") {
				return nil
			}
			display := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			normalized := strings.ToLower(display)
			if prev, ok := idx.byName[normalized]; ok {
				return &DuplicateResourceError{Name: normalized, FirstPath: prev.Path, SecondPath: path}
			}
			idx.byName[normalized] = Resource{DisplayName: display, Path: path}
			return nil
		})
		if err != nil {
			if _, ok := err.(*DuplicateResourceError); ok {
				return nil, err
			}
			return nil, errors.Wrapf(err, "index resource dir %s", dir)
		}
	}
	return idx, nil
}

// Lookup resolves a normalized name.
func (i *Index) Lookup(name string) (Resource, bool) {
	r, ok := i.byName[strings.ToLower(name)]
	return r, ok
}

// Len returns the number of indexed resources.
func (i *Index) Len() int { return len(i.byName) }
