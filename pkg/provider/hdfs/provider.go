package hdfs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/colinmarc/hdfs/v2"
	"github.com/colinmarc/hdfs/v2/hadoopconf"

	"github.com/3leaps/goferry/pkg/provider"
)

// client is the subset of *hdfs.Client the provider uses.
type client interface {
	Walk(root string, walkFn filepath.WalkFunc) error
	Stat(name string) (os.FileInfo, error)
	CopyToLocal(src, dst string) error
	CopyToRemote(src, dst string) error
	MkdirAll(dirname string, perm os.FileMode) error
	RemoveAll(name string) error
	Close() error
}

// Provider is an HDFS backend. Paths are absolute HDFS paths.
//
// The underlying RPC client has no context support; cancellation is checked
// before each call, not during one.
type Provider struct {
	client client
}

var (
	_ provider.Lister      = (*Provider)(nil)
	_ provider.FileGetter  = (*Provider)(nil)
	_ provider.FilePutter  = (*Provider)(nil)
	_ provider.PathChecker = (*Provider)(nil)
	_ provider.DirMaker    = (*Provider)(nil)
	_ provider.Remover     = (*Provider)(nil)
)

// New connects to the namenodes named in cfg.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts := hdfs.ClientOptions{
		Addresses: cfg.Namenodes,
		User:      cfg.User,
	}
	if len(opts.Addresses) == 0 {
		conf, err := hadoopconf.LoadFromEnvironment()
		if err != nil {
			return nil, wrapError("New", "", fmt.Errorf("load hadoop conf: %w", err))
		}
		opts = hdfs.ClientOptionsFromConf(conf)
		if cfg.User != "" {
			opts.User = cfg.User
		}
		if len(opts.Addresses) == 0 {
			return nil, &ConfigError{Field: "Namenodes", Message: "no namenode configured and none found in hadoop conf"}
		}
	}

	c, err := hdfs.NewClient(opts)
	if err != nil {
		return nil, wrapError("New", "", err)
	}
	return &Provider{client: c}, nil
}

// ListRecursive walks root and returns every file and directory below it.
//
// A directory root is not itself included. A file root is returned as the
// only entry.
func (p *Provider) ListRecursive(ctx context.Context, root string) ([]provider.Entry, error) {
	root = cleanPath(root)

	var entries []provider.Entry
	err := p.client.Walk(root, func(name string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if info.IsDir() {
			if name == root {
				return nil
			}
			entries = append(entries, provider.Entry{Path: name, Kind: provider.KindDir})
			return nil
		}
		entries = append(entries, provider.Entry{Path: name, Kind: provider.KindFile, Size: info.Size()})
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, wrapError("ListRecursive", root, err)
	}
	return entries, nil
}

// GetFile copies remotePath to localPath. The local parent must exist.
func (p *Provider) GetFile(ctx context.Context, remotePath, localPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	remotePath = cleanPath(remotePath)
	if err := p.client.CopyToLocal(remotePath, localPath); err != nil {
		return wrapError("GetFile", remotePath, err)
	}
	return nil
}

// PutFile copies localPath to remotePath, replacing any existing file and
// creating missing parent directories.
func (p *Provider) PutFile(ctx context.Context, localPath, remotePath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	remotePath = cleanPath(remotePath)

	if _, err := p.client.Stat(remotePath); err == nil {
		if err := p.client.RemoveAll(remotePath); err != nil {
			return wrapError("PutFile", remotePath, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return wrapError("PutFile", remotePath, err)
	}

	if err := p.client.MkdirAll(path.Dir(remotePath), 0o755); err != nil {
		return wrapError("PutFile", remotePath, err)
	}
	if err := p.client.CopyToRemote(localPath, remotePath); err != nil {
		return wrapError("PutFile", remotePath, err)
	}
	return nil
}

// Exists reports whether name is a file or directory.
func (p *Provider) Exists(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	name = cleanPath(name)
	_, err := p.client.Stat(name)
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
	if err := ctx.Err(); err != nil {
		return err
	}
	dir = cleanPath(dir)
	if err := p.client.MkdirAll(dir, 0o755); err != nil {
		return wrapError("MkdirAll", dir, err)
	}
	return nil
}

// Remove deletes name and, for a directory, everything under it.
func (p *Provider) Remove(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name = cleanPath(name)
	if err := p.client.RemoveAll(name); err != nil {
		return wrapError("Remove", name, err)
	}
	return nil
}

// Close releases the namenode connection.
func (p *Provider) Close() error {
	if err := p.client.Close(); err != nil {
		return wrapError("Close", "", err)
	}
	return nil
}

func wrapError(op, name string, err error) error {
	return &provider.ProviderError{
		Op:       op,
		Provider: provider.ProviderHDFS,
		Key:      name,
		Err:      classify(err),
	}
}

// classify tags filesystem errors with the matching provider sentinel while
// keeping the original error in the chain.
func classify(err error) error {
	switch {
	case errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("%w: %w", provider.ErrNotFound, err)
	case errors.Is(err, os.ErrPermission):
		return fmt.Errorf("%w: %w", provider.ErrAccessDenied, err)
	case errors.Is(err, os.ErrExist):
		return fmt.Errorf("%w: %w", provider.ErrAlreadyExists, err)
	}
	return err
}

// cleanPath makes name absolute and drops trailing slashes.
func cleanPath(name string) string {
	if !strings.HasPrefix(name, "/") {
		name = "/" + name
	}
	return path.Clean(name)
}
