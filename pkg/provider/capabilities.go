package provider

import (
	"context"
)

// Optional provider capability interfaces.
//
// These are used for feature detection (type assertions). The core Provider
// interface remains intentionally small.

// Lister enumerates everything under a root, files and directories alike.
//
// Object stores have no directories, so they only ever return KindFile
// entries. Order is the backend's natural order.
type Lister interface {
	ListRecursive(ctx context.Context, root string) ([]Entry, error)
}

// FileGetter copies one remote file to a path on the local disk.
type FileGetter interface {
	GetFile(ctx context.Context, remotePath, localPath string) error
}

// FilePutter copies one local file to a remote path.
type FilePutter interface {
	PutFile(ctx context.Context, localPath, remotePath string) error
}

// PathChecker tests whether a path exists.
type PathChecker interface {
	Exists(ctx context.Context, path string) (bool, error)
}

// DirMaker creates a directory and any missing parents.
// An already existing directory is not an error.
type DirMaker interface {
	MkdirAll(ctx context.Context, path string) error
}

// Remover deletes a file or a directory tree.
type Remover interface {
	Remove(ctx context.Context, path string) error
}
