package quark

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/kinokosu3/quarkdav/backend"
)

// partSize is the fixed chunk size for ranged downloads (spec.md §4.5).
const partSize = 262_144

// concurrency is the maximum number of in-flight range GETs per download.
const concurrency = 2

// downloadError covers the range-fetch-specific failure modes of
// spec.md §4.5 step 7; every one of them is folded into backend.Internal
// before it reaches a caller outside this package (spec.md §7).
type downloadError struct {
	reason string
}

func (e *downloadError) Error() string { return e.reason }

func errRangeNotSupported(status int) error {
	return &downloadError{reason: fmt.Sprintf("range not supported, status: %d", status)}
}

func errMissingContentRange() error {
	return &downloadError{reason: "missing Content-Range header"}
}

func errDataSizeExceeded() error {
	return &downloadError{reason: "received data exceeds expected size"}
}

// downloader implements the concurrent ranged fetch of spec.md §4.5.
type downloader struct {
	client  *Client
	cache   *pathCache
	tempDir string
}

func newDownloader(client *Client, cache *pathCache, tempDir string) *downloader {
	return &downloader{client: client, cache: cache, tempDir: tempDir}
}

func (d *downloader) cachePath(fid string) string {
	return filepath.Join(d.tempDir, fid)
}

// readFile resolves path to a descriptor, serves from the on-disk cache
// when present, and otherwise fetches the object as bounded-concurrency
// range GETs and persists it before returning.
func (d *downloader) readFile(ctx context.Context, path string) ([]byte, error) {
	md, ok := d.cache.get(path)
	if !ok {
		return nil, backend.NotFound(path)
	}

	cachePath := d.cachePath(md.Fid)
	if data, err := os.ReadFile(cachePath); err == nil {
		return data, nil
	}

	resp, err := request[DownloadResponse](ctx, d.client, "/file/download", http.MethodPost,
		withJSONBody(map[string][]string{"fids": {md.Fid}}))
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, backend.Internal("download response had no entries")
	}
	downloadURL := resp.Data[0].DownloadURL
	totalSize := resp.Data[0].Size

	data, err := d.fetchRanged(ctx, downloadURL, totalSize)
	if err != nil {
		return nil, backend.Internalf("%v", err)
	}

	if err := d.persist(md.Fid, data); err != nil {
		d.client.Log.Error().Err(err).Str("fid", md.Fid).Msg("failed to persist download cache")
	}

	return data, nil
}

// fetchRanged partitions [0, totalSize) into partSize chunks and fetches
// them with a concurrency cap of `concurrency`, writing each chunk's body
// into its disjoint slice of a shared buffer. errgroup propagates the
// first worker error and cancels the remaining in-flight requests via its
// derived context.
func (d *downloader) fetchRanged(ctx context.Context, url string, totalSize int64) ([]byte, error) {
	buf := make([]byte, totalSize)
	if totalSize == 0 {
		return buf, nil
	}

	numChunks := int((totalSize + partSize - 1) / partSize)
	sem := semaphore.NewWeighted(int64(concurrency))
	g, gctx := errgroup.WithContext(ctx)

	for i := 0; i < numChunks; i++ {
		start := int64(i) * partSize
		end := start + partSize
		if end > totalSize {
			end = totalSize
		}

		if err := sem.Acquire(gctx, 1); err != nil {
			// gctx is cancelled once a worker fails; report that worker's
			// error rather than the cancellation.
			if werr := g.Wait(); werr != nil {
				return nil, werr
			}
			return nil, err
		}
		g.Go(func() error {
			defer sem.Release(1)
			return d.fetchChunk(gctx, url, start, end, totalSize, buf)
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return buf, nil
}

func (d *downloader) fetchChunk(ctx context.Context, url string, start, end, totalSize int64, buf []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Cookie", d.client.Cookie)
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Referer", "https://pan.quark.cn/")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", start, end-1))

	resp, err := d.client.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusPartialContent {
		return errRangeNotSupported(resp.StatusCode)
	}
	if resp.Header.Get("Content-Range") == "" {
		return errMissingContentRange()
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if start+int64(len(body)) > totalSize {
		return errDataSizeExceeded()
	}

	copy(buf[start:start+int64(len(body))], body)
	return nil
}

// persist writes data to <tempDir>/<fid>. Writing to a temp file first and
// renaming into place means two concurrent downloads of the same fid race
// harmlessly (last writer wins, content is identical, spec.md §5).
func (d *downloader) persist(fid string, data []byte) error {
	if err := os.MkdirAll(d.tempDir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(d.tempDir, fid+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, d.cachePath(fid))
}
