package quark

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kinokosu3/quarkdav/backend"
)

func TestPathCacheGetInsert(t *testing.T) {
	c := newPathCache()

	_, ok := c.get("/foo/")
	require.False(t, ok)

	d := backend.ResourceDescriptor{Path: "/foo/", IsDir: true, Fid: "F1", ETag: "F1"}
	c.insert("/foo/", d)

	got, ok := c.get("/foo/")
	require.True(t, ok)
	require.Equal(t, d, got)
	require.Equal(t, 1, c.len())
}
