// Package staging manages the local disk buffer files pass through on their
// way between two remote stores.
//
// The area is transient: it is wiped and rebuilt at the start of every
// pipelined run, and each staged file is evicted once its upload succeeds.
package staging

import (
	"errors"
	"os"
	"path"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
)

// DirPerm is the mode staging directories are created with.
const DirPerm os.FileMode = 0o755

// CacheDir is the subdirectory of the configured staging directory that the
// area owns. Only this subdirectory is ever wiped.
const CacheDir = "cache"

// Area is a staging tree rooted at a fixed local directory.
type Area struct {
	fs   billy.Filesystem
	root string
}

// New returns an area rooted at dir/cache on fs. Relative dirs are taken
// from the filesystem root.
func New(fs billy.Filesystem, dir string) *Area {
	return &Area{fs: fs, root: path.Join("/"+strings.TrimLeft(dir, "/"), CacheDir)}
}

// NewOS returns an area on the local disk.
func NewOS(dir string) *Area {
	return New(osfs.New("/"), dir)
}

// Root returns the absolute staging root, dir/cache.
func (a *Area) Root() string { return a.root }

// Filesystem exposes the backing filesystem, mainly for tests.
func (a *Area) Filesystem() billy.Filesystem { return a.fs }

// Path maps a source path into the area: the source path with its leading
// slashes stripped, re-rooted under the staging root.
func (a *Area) Path(sourcePath string) string {
	rel := strings.TrimLeft(sourcePath, "/")
	if rel == "" {
		return a.root
	}
	return path.Join(a.root, rel)
}

// Reset removes dir and everything under it. A missing dir is not an error.
func (a *Area) Reset(dir string) error {
	err := util.RemoveAll(a.fs, dir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Mkdir creates dir and its parents. An existing directory is not an error.
func (a *Area) Mkdir(dir string) error {
	err := a.fs.MkdirAll(dir, DirPerm)
	if err != nil && !errors.Is(err, os.ErrExist) {
		return err
	}
	return nil
}

// Exists reports whether name is present in the area.
func (a *Area) Exists(name string) (bool, error) {
	_, err := a.fs.Stat(name)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	}
	return false, err
}

// Evict deletes a staged file.
func (a *Area) Evict(name string) error {
	return a.fs.Remove(name)
}
