package quark

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kinokosu3/quarkdav/backend"
)

const pageSize = 100

// childPath assembles the canonical cache key for a listed entry, per
// spec.md §4.3: parent + "/" + name, with a trailing "/" iff the entry is
// a directory.
func childPath(parent, name string, isDir bool) string {
	p := strings.TrimRight(parent, "/") + "/" + name
	if isDir {
		p += "/"
	}
	return p
}

// timeFromMillis converts Quark's millisecond-epoch timestamps to UTC,
// defaulting out-of-range values to "now" per spec.md §4.2.
func timeFromMillis(ms int64) time.Time {
	if ms <= 0 {
		return time.Now().UTC()
	}
	sec := ms / 1000
	t := time.Unix(sec, 0).UTC()
	if t.Year() < 1970 || t.Year() > 9999 {
		return time.Now().UTC()
	}
	return t
}

// lister implements the paginated directory traversal of spec.md §4.4.
type lister struct {
	client  *Client
	cache   *pathCache
	rootFid string
}

func newLister(client *Client, cache *pathCache, rootFid string) *lister {
	if rootFid == "" {
		rootFid = "0"
	}
	return &lister{client: client, cache: cache, rootFid: rootFid}
}

func (l *lister) rootDescriptor() backend.ResourceDescriptor {
	return backend.ResourceDescriptor{
		Path:     "/",
		IsDir:    true,
		Len:      0,
		Modified: time.Now().UTC(),
		Fid:      l.rootFid,
		ETag:     l.rootFid,
	}
}

// list resolves path to a descriptor (synthesising the root lazily) and,
// if it names a directory, paginates GET /file/sort to materialise its
// children and populate the cache.
func (l *lister) list(ctx context.Context, path string) (*backend.ResourceInfo, error) {
	var md backend.ResourceDescriptor
	if path == "" || path == "/" {
		md = l.rootDescriptor()
	} else {
		cached, ok := l.cache.get(path)
		if !ok && !strings.HasSuffix(path, "/") {
			// Cache keys for directories always carry a trailing "/"
			// (childPath, above). Callers — notably the HTTP dispatcher,
			// which normalises request paths with path.Clean — pass the
			// bare form, so retry with the directory form before giving up.
			cached, ok = l.cache.get(path + "/")
		}
		if !ok {
			return nil, backend.NotFound(path)
		}
		md = cached
	}

	if !md.IsDir {
		return &backend.ResourceInfo{Metadata: md, Children: nil}, nil
	}

	children := make([]backend.ResourceDescriptor, 0)
	page := 1
	for {
		q := url.Values{
			"_fetch_total": {"1"},
			"pdir_fid":     {md.Fid},
			"_sort":        {"file_type:asc,updated_at:desc"},
			"_page":        {strconv.Itoa(page)},
			"_size":        {strconv.Itoa(pageSize)},
		}
		resp, err := request[ListResponse](ctx, l.client, "/file/sort", "GET", withQuery(q))
		if err != nil {
			return nil, err
		}

		for _, item := range resp.Data.List {
			isDir := !item.File
			key := childPath(md.Path, item.FileName, isDir)
			rd := backend.ResourceDescriptor{
				Path:     key,
				IsDir:    isDir,
				Len:      item.Size,
				Modified: timeFromMillis(item.UpdatedAt),
				Created:  timeFromMillis(item.CreatedAt),
				Fid:      item.Fid,
				ETag:     item.Fid,
			}
			if isDir {
				rd.Len = 0
			}
			children = append(children, rd)
			l.cache.insert(key, rd)
		}

		if page*pageSize >= resp.Metadata.Total {
			break
		}
		page++
	}

	return &backend.ResourceInfo{Metadata: md, Children: children}, nil
}

// ensureListed walks from the root down to the parent of path, listing
// every ancestor directory that hasn't been cached yet. This is the
// walk-from-root resolution spec.md §9 calls the primary open issue fix:
// read_file (and get_resource) on an unknown path no longer requires a
// prior PROPFIND of every ancestor by the caller.
func (l *lister) ensureListed(ctx context.Context, path string) error {
	if path == "" || path == "/" {
		return nil
	}
	if _, ok := l.cache.get(path); ok {
		return nil
	}

	clean := strings.TrimSuffix(path, "/")
	segments := strings.Split(strings.TrimPrefix(clean, "/"), "/")

	cur := "/"
	for i, seg := range segments {
		if seg == "" {
			continue
		}
		last := i == len(segments)-1
		candidateDir := cur + seg + "/"
		candidateFile := cur + seg

		if _, ok := l.cache.get(candidateDir); ok {
			cur = candidateDir
			continue
		}
		if last {
			if _, ok := l.cache.get(candidateFile); ok {
				return nil
			}
		}

		if _, err := l.list(ctx, cur); err != nil {
			return err
		}

		if _, ok := l.cache.get(candidateDir); ok {
			cur = candidateDir
			continue
		}
		if _, ok := l.cache.get(candidateFile); ok {
			if last {
				return nil
			}
			return backend.NotFound(path)
		}
		return backend.NotFound(path)
	}
	return nil
}
