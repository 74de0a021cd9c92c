// Package backend defines the storage-backend abstraction the WebDAV
// handler is written against: a path-addressed resource tree that can be
// statted, listed, read and (where the backend supports it) mutated.
package backend

import (
	"context"
	"time"
)

// ResourceDescriptor is the canonical in-memory record for a resource,
// whether it lives on the local filesystem or on a remote drive.
type ResourceDescriptor struct {
	// Path is the canonical path, rooted at "/". Directories carry a
	// trailing "/"; files do not.
	Path string

	IsDir bool

	// Len is the byte length of file content; 0 for directories.
	Len int64

	Modified time.Time
	Created  time.Time // zero value means "absent"

	// Fid is the backend's opaque identifier for this resource. For the
	// local filesystem backend this is unused (left empty).
	Fid string

	// ETag is the resource's cache validator. For the Quark backend this
	// equals Fid; for the local filesystem backend it is derived from
	// (ModTime, Size).
	ETag string
}

// HasCreated reports whether Created carries a meaningful value.
func (d *ResourceDescriptor) HasCreated() bool {
	return !d.Created.IsZero()
}

// ResourceInfo is the result of a stat/listing operation.
type ResourceInfo struct {
	Metadata ResourceDescriptor

	// Children is non-nil only when Metadata.IsDir is true; a directory
	// stat that isn't also a listing (e.g. the entry came from a parent's
	// listing) may still have Children == nil.
	Children []ResourceDescriptor
}

// Backend is the storage-backend operation set consumed by the WebDAV
// handler (package webdav). Every operation takes a canonical, "/"-rooted
// path.
type Backend interface {
	// Kind identifies the backend implementation, for logging only —
	// never for branching inside callers.
	Kind() string

	GetResource(ctx context.Context, path string) (*ResourceInfo, error)
	ReadFile(ctx context.Context, path string) ([]byte, error)

	WriteFile(ctx context.Context, path string, content []byte) error
	CreateDir(ctx context.Context, path string) error
	Delete(ctx context.Context, path string) error
	Copy(ctx context.Context, from, to string) error
	MoveResource(ctx context.Context, from, to string) error
}
