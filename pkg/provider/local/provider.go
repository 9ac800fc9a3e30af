// Package local implements the provider capability interfaces for the local
// disk, the near side of the single-stage put/get transfers.
package local

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/3leaps/goferry/pkg/provider"
)

// Provider exposes a billy filesystem through the provider capabilities.
// Paths are absolute.
type Provider struct {
	fs billy.Filesystem
}

var (
	_ provider.Lister      = (*Provider)(nil)
	_ provider.PathChecker = (*Provider)(nil)
	_ provider.DirMaker    = (*Provider)(nil)
	_ provider.Remover     = (*Provider)(nil)
)

// New returns a provider over fs.
func New(fs billy.Filesystem) *Provider {
	return &Provider{fs: fs}
}

// NewOS returns a provider over the host filesystem.
func NewOS() *Provider {
	return New(osfs.New("/"))
}

// ListRecursive returns root itself when it is a file, otherwise every file
// and directory below it. A missing root yields an empty listing.
func (p *Provider) ListRecursive(ctx context.Context, root string) ([]provider.Entry, error) {
	root = path.Clean(root)

	info, err := p.fs.Stat(root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, wrapError("ListRecursive", root, err)
	}
	if !info.IsDir() {
		return []provider.Entry{{Path: root, Kind: provider.KindFile, Size: info.Size()}}, nil
	}

	var entries []provider.Entry
	err = util.Walk(p.fs, root, func(name string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		switch {
		case name == root:
		case fi.IsDir():
			entries = append(entries, provider.Entry{Path: name, Kind: provider.KindDir})
		case fi.Mode().IsRegular():
			entries = append(entries, provider.Entry{Path: name, Kind: provider.KindFile, Size: fi.Size()})
		}
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, wrapError("ListRecursive", root, err)
	}
	return entries, nil
}

// Exists reports whether name is present.
func (p *Provider) Exists(ctx context.Context, name string) (bool, error) {
	_, err := p.fs.Stat(name)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	}
	return false, wrapError("Exists", name, err)
}

// MkdirAll creates dir and any missing parents.
func (p *Provider) MkdirAll(ctx context.Context, dir string) error {
	if err := p.fs.MkdirAll(dir, 0o755); err != nil && !errors.Is(err, os.ErrExist) {
		return wrapError("MkdirAll", dir, err)
	}
	return nil
}

// Remove deletes name and everything under it.
func (p *Provider) Remove(ctx context.Context, name string) error {
	if err := util.RemoveAll(p.fs, name); err != nil {
		return wrapError("Remove", name, err)
	}
	return nil
}

func wrapError(op, name string, err error) error {
	if errors.Is(err, os.ErrPermission) {
		err = fmt.Errorf("%w: %w", provider.ErrAccessDenied, err)
	}
	return &provider.ProviderError{Op: op, Provider: provider.ProviderLocal, Key: name, Err: err}
}
