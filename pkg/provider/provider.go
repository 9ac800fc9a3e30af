// Package provider defines the storage capabilities the transfer engine needs
// from each backend: the object store, the distributed filesystem and the
// local disk.
//
// Backends implement a small core (Provider) plus whichever optional
// capability interfaces they support. Callers detect capabilities with type
// assertions, the same way for every backend.
package provider

import (
	"context"
	"time"
)

// Provider abstracts paginated, prefix-based listing.
//
// Implementations should:
//   - Support pagination via continuation tokens or start-after markers
//   - Be safe for concurrent use
type Provider interface {
	// List returns a page of objects with the given prefix.
	// Use ContinuationToken from ListResult for subsequent pages.
	List(ctx context.Context, opts ListOptions) (*ListResult, error)

	// Close releases any resources held by the provider.
	Close() error
}

// ListOptions configures a List operation.
type ListOptions struct {
	// Prefix filters results to keys starting with this value.
	// Empty string lists all objects.
	Prefix string

	// ContinuationToken resumes listing from a previous ListResult.
	ContinuationToken string

	// StartAfter resumes listing strictly after this key. Used as the
	// marker when a backend truncates a page without handing out a token.
	StartAfter string

	// MaxKeys limits the number of objects returned per page.
	// Zero uses provider default (typically 1000).
	MaxKeys int
}

// ListResult contains a page of objects from a List operation.
type ListResult struct {
	Objects []ObjectSummary

	// ContinuationToken is used to retrieve the next page.
	// Empty string indicates no more pages or a marker-only backend.
	ContinuationToken string

	// IsTruncated indicates whether more results are available.
	IsTruncated bool
}

// ObjectSummary contains basic metadata returned from List operations.
type ObjectSummary struct {
	Key          string
	Size         int64
	ETag         string
	LastModified time.Time
}

// EntryKind distinguishes files from directories in a recursive listing.
type EntryKind string

const (
	KindFile EntryKind = "file"
	KindDir  EntryKind = "dir"
)

// Entry is one result of a recursive listing.
//
// Path is the canonical location of the entry in the backend's namespace:
// an absolute path for filesystems, a key for object stores.
type Entry struct {
	Path string
	Kind EntryKind
	Size int64
}

// IsDir reports whether the entry is a directory.
func (e Entry) IsDir() bool { return e.Kind == KindDir }

// ProviderType identifies a storage backend.
type ProviderType string

const (
	// ProviderS3 represents AWS S3 or S3-compatible storage.
	ProviderS3 ProviderType = "s3"

	// ProviderHDFS represents a Hadoop distributed filesystem.
	ProviderHDFS ProviderType = "hdfs"

	// ProviderLocal represents the local disk.
	ProviderLocal ProviderType = "local"
)

// String returns the string representation of the provider type.
func (p ProviderType) String() string {
	return string(p)
}
