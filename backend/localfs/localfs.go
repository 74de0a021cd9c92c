// Package localfs implements backend.Backend over the local filesystem,
// rooted at a single configured directory. It is the in-scope writable
// counterpart to backend/quark: every operation in backend.Backend is a
// full implementation here, not a stub.
package localfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/kinokosu3/quarkdav/backend"
)

// Backend implements backend.Backend rooted at Root.
type Backend struct {
	Root string
}

var _ backend.Backend = (*Backend)(nil)

// New returns a Backend rooted at root. root must already exist.
func New(root string) *Backend {
	return &Backend{Root: root}
}

func (b *Backend) Kind() string { return "localfs" }

// localPath resolves a canonical "/"-rooted path to an absolute filesystem
// path under Root, rejecting traversal outside it.
func (b *Backend) localPath(name string) (string, error) {
	if (filepath.Separator != '/' && strings.IndexRune(name, filepath.Separator) >= 0) || strings.Contains(name, "\x00") {
		return "", backend.InvalidInput("invalid character in path")
	}
	clean := path.Clean("/" + name)
	return filepath.Join(b.Root, filepath.FromSlash(clean)), nil
}

// externalPath converts an absolute filesystem path back to a canonical
// "/"-rooted path relative to Root.
func (b *Backend) externalPath(p string) (string, error) {
	rel, err := filepath.Rel(b.Root, p)
	if err != nil {
		return "", err
	}
	return "/" + filepath.ToSlash(rel), nil
}

// etag derives a deterministic validator from modification time and size.
// The Rust original minted a fresh random UUID per observation, which
// means the same unmodified file reports a different ETag on every stat —
// defeating conditional GETs entirely. (modtime, size) is stable across
// repeated stats of an unchanged file and changes whenever either does.
func etag(fi os.FileInfo) string {
	return fmt.Sprintf("%x-%x", fi.ModTime().UnixNano(), fi.Size())
}

func descriptorFromOS(p string, fi os.FileInfo) backend.ResourceDescriptor {
	d := backend.ResourceDescriptor{
		Path:     p,
		IsDir:    fi.IsDir(),
		Modified: fi.ModTime(),
		ETag:     etag(fi),
	}
	if d.IsDir && !strings.HasSuffix(d.Path, "/") {
		d.Path += "/"
	}
	if !d.IsDir {
		d.Len = fi.Size()
	}
	return d
}

func errFromOS(err error) error {
	var perr *fs.PathError
	if errors.As(err, &perr) {
		err = fmt.Errorf("%s: %w", perr.Op, perr.Err)
	}
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return backend.NotFound(err.Error())
	case errors.Is(err, fs.ErrPermission):
		return backend.PermissionDenied(err.Error())
	default:
		return backend.Internalf("%v", err)
	}
}

// GetResource stats path and, if it names a directory, lists its immediate
// children (non-recursive — the WebDAV dispatcher issues one GetResource
// per PROPFIND depth level).
func (b *Backend) GetResource(ctx context.Context, p string) (*backend.ResourceInfo, error) {
	local, err := b.localPath(p)
	if err != nil {
		return nil, err
	}
	fi, err := os.Stat(local)
	if err != nil {
		return nil, errFromOS(err)
	}
	md := descriptorFromOS(p, fi)

	if !fi.IsDir() {
		return &backend.ResourceInfo{Metadata: md}, nil
	}

	entries, err := os.ReadDir(local)
	if err != nil {
		return nil, errFromOS(err)
	}
	children := make([]backend.ResourceDescriptor, 0, len(entries))
	for _, e := range entries {
		childInfo, err := e.Info()
		if err != nil {
			return nil, errFromOS(err)
		}
		childPath, err := b.externalPath(filepath.Join(local, e.Name()))
		if err != nil {
			return nil, backend.Internalf("%v", err)
		}
		children = append(children, descriptorFromOS(childPath, childInfo))
	}
	return &backend.ResourceInfo{Metadata: md, Children: children}, nil
}

func (b *Backend) ReadFile(ctx context.Context, p string) ([]byte, error) {
	local, err := b.localPath(p)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(local)
	if err != nil {
		return nil, errFromOS(err)
	}
	return data, nil
}

// WriteFile creates or overwrites the resource at p. The parent directory
// must already exist; a missing parent is reported as InvalidInput (400).
func (b *Backend) WriteFile(ctx context.Context, p string, content []byte) error {
	local, err := b.localPath(p)
	if err != nil {
		return err
	}
	if _, err := os.Stat(filepath.Dir(local)); os.IsNotExist(err) {
		return backend.InvalidInputf("parent collection of %q does not exist", p)
	}

	wc, err := os.Create(local)
	if err != nil {
		return errFromOS(err)
	}
	defer wc.Close()

	if _, err := wc.Write(content); err != nil {
		os.Remove(local)
		return backend.Internalf("write %q: %v", p, err)
	}
	return wc.Close()
}

// CreateDir creates a new, empty collection. An existing path of either
// kind is reported as AlreadyExists (409).
func (b *Backend) CreateDir(ctx context.Context, p string) error {
	local, err := b.localPath(p)
	if err != nil {
		return err
	}
	if _, err := os.Stat(local); err == nil {
		return backend.AlreadyExists(p)
	} else if !os.IsNotExist(err) {
		return errFromOS(err)
	}
	if err := os.Mkdir(local, 0o755); err != nil {
		return errFromOS(err)
	}
	return nil
}

func (b *Backend) Delete(ctx context.Context, p string) error {
	local, err := b.localPath(p)
	if err != nil {
		return err
	}
	if _, err := os.Stat(local); err != nil {
		return errFromOS(err)
	}
	if err := os.RemoveAll(local); err != nil {
		return errFromOS(err)
	}
	return nil
}

func copyRegularFile(src, dst string, perm os.FileMode) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return errFromOS(err)
	}
	defer srcFile.Close()

	dstFile, err := os.OpenFile(dst, os.O_RDWR|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return errFromOS(err)
	}
	defer dstFile.Close()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		return backend.Internalf("copy %q to %q: %v", src, dst, err)
	}
	return dstFile.Close()
}

// Copy duplicates from to to, recursively for directories. An existing
// destination is replaced.
func (b *Backend) Copy(ctx context.Context, from, to string) error {
	srcPath, err := b.localPath(from)
	if err != nil {
		return err
	}
	dstPath, err := b.localPath(to)
	if err != nil {
		return err
	}

	srcInfo, err := os.Stat(srcPath)
	if err != nil {
		return errFromOS(err)
	}
	if _, err := os.Stat(filepath.Dir(dstPath)); os.IsNotExist(err) {
		return backend.InvalidInputf("destination parent collection of %q does not exist", to)
	}
	if _, err := os.Stat(dstPath); err == nil {
		if err := os.RemoveAll(dstPath); err != nil {
			return errFromOS(err)
		}
	}

	if !srcInfo.IsDir() {
		return copyRegularFile(srcPath, dstPath, srcInfo.Mode().Perm())
	}

	if err := os.MkdirAll(dstPath, srcInfo.Mode().Perm()); err != nil {
		return errFromOS(err)
	}
	return filepath.Walk(srcPath, func(p string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if p == srcPath {
			return nil
		}
		rel, err := filepath.Rel(srcPath, p)
		if err != nil {
			return err
		}
		dstItem := filepath.Join(dstPath, rel)
		if fi.IsDir() {
			return os.MkdirAll(dstItem, fi.Mode().Perm())
		}
		return copyRegularFile(p, dstItem, fi.Mode().Perm())
	})
}

// MoveResource renames from to to, falling back to copy-then-delete when
// os.Rename fails (e.g. a cross-device move).
func (b *Backend) MoveResource(ctx context.Context, from, to string) error {
	srcPath, err := b.localPath(from)
	if err != nil {
		return err
	}
	dstPath, err := b.localPath(to)
	if err != nil {
		return err
	}

	if _, err := os.Stat(srcPath); err != nil {
		return errFromOS(err)
	}
	if _, err := os.Stat(filepath.Dir(dstPath)); os.IsNotExist(err) {
		return backend.InvalidInputf("destination parent collection of %q does not exist", to)
	}
	if _, err := os.Stat(dstPath); err == nil {
		if err := os.RemoveAll(dstPath); err != nil {
			return errFromOS(err)
		}
	}

	if err := os.Rename(srcPath, dstPath); err == nil {
		return nil
	}

	if err := b.Copy(ctx, from, to); err != nil {
		return err
	}
	if err := os.RemoveAll(srcPath); err != nil {
		os.RemoveAll(dstPath)
		return errFromOS(err)
	}
	return nil
}
