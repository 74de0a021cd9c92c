// Package quark implements the remote cloud-drive ("Quark") WebDAV storage
// backend: a path-to-fid resolver and in-memory cache over an
// identifier-addressed JSON control plane, a paginated directory lister,
// and a bounded-concurrency ranged downloader with an on-disk passthrough
// cache. See SPEC_FULL.md §4 for the component breakdown (C1-C6).
package quark

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/kinokosu3/quarkdav/backend"
)

// Config carries the backend's construction-time parameters, replacing
// the Rust original's global configuration singleton (spec.md §9's first
// design note): the cookie, the authoritative root fid (if any), and the
// download disk-cache directory are all injected explicitly.
type Config struct {
	Cookie  string
	RootFid string // authoritative root fid; falls back to "0" when empty
	TempDir string
}

// Backend implements backend.Backend against the Quark remote drive. It
// owns one path/fid cache shared across every request the process
// handles.
type Backend struct {
	client *Client
	cache  *pathCache
	lister *lister
	dl     *downloader
}

var _ backend.Backend = (*Backend)(nil)

// New constructs a Quark backend. log is used for both control-plane
// envelope errors and disk-cache persistence warnings.
func New(cfg Config, log zerolog.Logger) *Backend {
	client := NewClient(cfg.Cookie, log)
	cache := newPathCache()
	return &Backend{
		client: client,
		cache:  cache,
		lister: newLister(client, cache, cfg.RootFid),
		dl:     newDownloader(client, cache, cfg.TempDir),
	}
}

func (b *Backend) Kind() string { return "quark" }

// GetResource resolves path to a ResourceInfo, walking and listing
// uncached ancestors on demand (spec.md §9) before delegating to the
// lister.
func (b *Backend) GetResource(ctx context.Context, path string) (*backend.ResourceInfo, error) {
	if err := b.lister.ensureListed(ctx, path); err != nil {
		return nil, err
	}
	return b.lister.list(ctx, path)
}

// ReadFile resolves path to a fid (listing ancestors on demand) and
// delegates to the ranged downloader.
func (b *Backend) ReadFile(ctx context.Context, path string) ([]byte, error) {
	if err := b.lister.ensureListed(ctx, path); err != nil {
		return nil, err
	}
	return b.dl.readFile(ctx, path)
}

// The write-side operations are explicitly out of scope for the Quark
// backend (spec.md §1 Non-goals) and remain unimplemented stubs.

func (b *Backend) WriteFile(ctx context.Context, path string, content []byte) error {
	return backend.Internal("not implemented")
}

func (b *Backend) CreateDir(ctx context.Context, path string) error {
	return backend.Internal("not implemented")
}

func (b *Backend) Delete(ctx context.Context, path string) error {
	return backend.Internal("not implemented")
}

func (b *Backend) Copy(ctx context.Context, from, to string) error {
	return backend.Internal("not implemented")
}

func (b *Backend) MoveResource(ctx context.Context, from, to string) error {
	return backend.Internal("not implemented")
}
