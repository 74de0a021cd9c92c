package quark

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/kinokosu3/quarkdav/backend"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient("session=abc", zerolog.Nop())
	c.BaseURL = srv.URL
	return c
}

// S1 — empty root listing.
func TestListEmptyRoot(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/file/sort", r.URL.Path)
		require.Equal(t, "0", r.URL.Query().Get("pdir_fid"))
		_ = json.NewEncoder(w).Encode(ListResponse{
			Data:     ListData{List: nil},
			Metadata: ListMetadata{Total: 0, Page: 1, Size: 100},
		})
	})
	cache := newPathCache()
	l := newLister(client, cache, "")

	info, err := l.list(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, "0", info.Metadata.Fid)
	require.True(t, info.Metadata.IsDir)
	require.NotNil(t, info.Children)
	require.Len(t, info.Children, 0)
	require.Equal(t, 0, cache.len())
}

// S2 — two-page listing.
func TestListTwoPages(t *testing.T) {
	var calls int
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		page := r.URL.Query().Get("_page")
		require.Equal(t, "FID_FOO", r.URL.Query().Get("pdir_fid"))

		var list []ListEntry
		switch page {
		case "1":
			for i := 0; i < 100; i++ {
				list = append(list, ListEntry{
					Fid: fmt.Sprintf("f%d", i), FileName: fmt.Sprintf("file%d", i),
					Size: 10, File: true, UpdatedAt: 1_700_000_000_000, CreatedAt: 1_700_000_000_000,
				})
			}
		case "2":
			for i := 100; i < 150; i++ {
				list = append(list, ListEntry{
					Fid: fmt.Sprintf("f%d", i), FileName: fmt.Sprintf("file%d", i),
					Size: 10, File: true, UpdatedAt: 1_700_000_000_000, CreatedAt: 1_700_000_000_000,
				})
			}
		default:
			t.Fatalf("unexpected page %q", page)
		}
		_ = json.NewEncoder(w).Encode(ListResponse{
			Data:     ListData{List: list},
			Metadata: ListMetadata{Total: 150, Page: atoiT(t, page), Size: 100},
		})
	})

	cache := newPathCache()
	cache.insert("/foo/", backend.ResourceDescriptor{Path: "/foo/", IsDir: true, Fid: "FID_FOO", ETag: "FID_FOO"})

	l := newLister(client, cache, "")
	info, err := l.list(context.Background(), "/foo/")
	require.NoError(t, err)
	require.Equal(t, 2, calls)
	require.Len(t, info.Children, 150)
	require.Equal(t, "file0", trimSlash(info.Children[0].Path, "/foo/"))
	// root not inserted; 150 children + the pre-seeded /foo/ entry itself.
	require.Equal(t, 151, cache.len())
}

// S5 — remote business error.
func TestListBusinessError(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"code": 41001, "msg": "need login"})
	})
	cache := newPathCache()
	cache.insert("/foo/", backend.ResourceDescriptor{Path: "/foo/", IsDir: true, Fid: "FID_FOO"})

	l := newLister(client, cache, "")
	_, err := l.list(context.Background(), "/foo/")
	require.Error(t, err)
	require.Contains(t, err.Error(), "need login")
	require.Equal(t, http.StatusInternalServerError, backend.StatusCode(err))
}

func TestListUnknownPathNotFound(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("should not be called for a cache miss")
	})
	cache := newPathCache()
	l := newLister(client, cache, "")

	_, err := l.list(context.Background(), "/nope/")
	require.Error(t, err)
	require.Equal(t, http.StatusNotFound, backend.StatusCode(err))
}

func TestListFileHasNoChildren(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("stat of a cached file should not hit the network")
	})
	cache := newPathCache()
	cache.insert("/foo.txt", backend.ResourceDescriptor{Path: "/foo.txt", IsDir: false, Fid: "F1"})
	l := newLister(client, cache, "")

	info, err := l.list(context.Background(), "/foo.txt")
	require.NoError(t, err)
	require.Nil(t, info.Children)
}

func TestEnsureListedWalksFromRoot(t *testing.T) {
	var paths []string
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		pdir := r.URL.Query().Get("pdir_fid")
		paths = append(paths, pdir)
		switch pdir {
		case "0":
			_ = json.NewEncoder(w).Encode(ListResponse{
				Data:     ListData{List: []ListEntry{{Fid: "FID_A", FileName: "a", File: false}}},
				Metadata: ListMetadata{Total: 1, Page: 1, Size: 100},
			})
		case "FID_A":
			_ = json.NewEncoder(w).Encode(ListResponse{
				Data:     ListData{List: []ListEntry{{Fid: "FID_B", FileName: "b.txt", File: true, Size: 5}}},
				Metadata: ListMetadata{Total: 1, Page: 1, Size: 100},
			})
		default:
			t.Fatalf("unexpected pdir_fid %q", pdir)
		}
	})

	cache := newPathCache()
	l := newLister(client, cache, "")

	err := l.ensureListed(context.Background(), "/a/b.txt")
	require.NoError(t, err)
	require.Equal(t, []string{"0", "FID_A"}, paths)

	d, ok := cache.get("/a/b.txt")
	require.True(t, ok)
	require.Equal(t, "FID_B", d.Fid)
}

func atoiT(t *testing.T, s string) int {
	t.Helper()
	v, err := url.QueryUnescape(s)
	require.NoError(t, err)
	var n int
	_, err = fmt.Sscanf(v, "%d", &n)
	require.NoError(t, err)
	return n
}

func trimSlash(path, prefix string) string {
	if len(path) > len(prefix) {
		return path[len(prefix):]
	}
	return path
}
