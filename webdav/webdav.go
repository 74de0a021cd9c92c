// Package webdav implements the HTTP method dispatcher that exposes a
// backend.Backend as a WebDAV server: class 1 methods plus COPY/MOVE, with
// a minimal multistatus XML encoder for PROPFIND. This layer is mechanical
// protocol plumbing — every operation it performs is delegated straight to
// the backend.Backend it wraps.
package webdav

import (
	"context"
	"encoding/xml"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/kinokosu3/quarkdav/backend"
)

const (
	MethodMkcol    = "MKCOL"
	MethodCopy     = "COPY"
	MethodMove     = "MOVE"
	MethodPropfind = "PROPFIND"
)

// ExtendedMethods lists the non-standard HTTP methods this handler accepts,
// for registration with an HTTP multiplexer that otherwise only knows the
// RFC 7231 verbs.
var ExtendedMethods = []string{MethodMkcol, MethodCopy, MethodMove, MethodPropfind}

// Handler dispatches WebDAV requests against a single backend.Backend.
type Handler struct {
	Backend backend.Backend
	Log     zerolog.Logger
}

var _ http.Handler = (*Handler)(nil)

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p := path.Clean("/" + strings.TrimPrefix(r.URL.Path, "/"))

	var err error
	switch r.Method {
	case http.MethodOptions:
		err = h.handleOptions(w)
	case http.MethodGet, http.MethodHead:
		err = h.handleGet(ctx, w, p, r.Method == http.MethodHead)
	case MethodPropfind:
		err = h.handlePropfind(ctx, w, r, p)
	case http.MethodPut:
		err = h.handlePut(ctx, w, r, p)
	case MethodMkcol:
		err = h.handleMkcol(ctx, w, r, p)
	case http.MethodDelete:
		err = h.Backend.Delete(ctx, p)
	case MethodCopy:
		err = h.handleCopyMove(ctx, r, p, h.Backend.Copy)
	case MethodMove:
		err = h.handleCopyMove(ctx, r, p, h.Backend.MoveResource)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err != nil {
		h.writeError(w, err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := backend.StatusCode(err)
	h.Log.Error().Err(err).Int("status", status).Msg("request failed")
	http.Error(w, err.Error(), status)
}

func (h *Handler) handleOptions(w http.ResponseWriter) error {
	allow := append([]string{
		http.MethodOptions, http.MethodGet, http.MethodHead,
		http.MethodPut, http.MethodDelete,
	}, ExtendedMethods...)
	w.Header().Set("Allow", strings.Join(allow, ", "))
	w.Header().Set("DAV", "1")
	w.WriteHeader(http.StatusOK)
	return nil
}

func (h *Handler) handleGet(ctx context.Context, w http.ResponseWriter, p string, headOnly bool) error {
	info, err := h.Backend.GetResource(ctx, p)
	if err != nil {
		return err
	}
	if info.Metadata.IsDir {
		return backend.InvalidInput("cannot GET a collection")
	}

	w.Header().Set("ETag", quoteETag(info.Metadata.ETag))
	w.Header().Set("Last-Modified", info.Metadata.Modified.UTC().Format(http.TimeFormat))
	if ct := mime.TypeByExtension(path.Ext(p)); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.Header().Set("Content-Length", strconv.FormatInt(info.Metadata.Len, 10))

	if headOnly {
		w.WriteHeader(http.StatusOK)
		return nil
	}

	data, err := h.Backend.ReadFile(ctx, p)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func (h *Handler) handlePut(ctx context.Context, w http.ResponseWriter, r *http.Request, p string) error {
	content, err := io.ReadAll(r.Body)
	if err != nil {
		return backend.Internalf("read request body: %v", err)
	}
	if err := h.Backend.WriteFile(ctx, p, content); err != nil {
		return err
	}
	w.WriteHeader(http.StatusCreated)
	return nil
}

func (h *Handler) handleMkcol(ctx context.Context, w http.ResponseWriter, r *http.Request, p string) error {
	if r.ContentLength > 0 {
		return backend.InvalidInput("MKCOL does not accept a request body")
	}
	if err := h.Backend.CreateDir(ctx, p); err != nil {
		return err
	}
	w.WriteHeader(http.StatusCreated)
	return nil
}

// destinationPath extracts the target path from the Destination header,
// accepting either an absolute URI or a bare path (RFC 4918 §9.8.3 permits
// both).
func destinationPath(r *http.Request) (string, error) {
	dest := r.Header.Get("Destination")
	if dest == "" {
		return "", backend.InvalidInput("missing Destination header")
	}
	if u, err := url.Parse(dest); err == nil && u.Path != "" {
		dest = u.Path
	}
	return path.Clean("/" + strings.TrimPrefix(dest, "/")), nil
}

func (h *Handler) handleCopyMove(ctx context.Context, r *http.Request, src string, op func(context.Context, string, string) error) error {
	dst, err := destinationPath(r)
	if err != nil {
		return err
	}
	return op(ctx, src, dst)
}

func quoteETag(etag string) string {
	if etag == "" {
		return ""
	}
	if strings.HasPrefix(etag, `"`) {
		return etag
	}
	return strconv.Quote(etag)
}

// --- PROPFIND / multistatus ---

// parseDepth parses the Depth header, defaulting to "infinity" semantics folded
// into depth 1 — this handler never recurses a listing past one level, so
// "infinity" is treated the same as "1" (documented limitation, spec.md's
// WebDAV surface is explicitly non-recursive PROPFIND only).
func parseDepth(r *http.Request) int {
	switch r.Header.Get("Depth") {
	case "0":
		return 0
	case "1", "infinity", "":
		return 1
	default:
		return 1
	}
}

func (h *Handler) handlePropfind(ctx context.Context, w http.ResponseWriter, r *http.Request, p string) error {
	info, err := h.Backend.GetResource(ctx, p)
	if err != nil {
		return err
	}

	ms := multistatus{XMLNSD: "DAV:"}
	ms.Responses = append(ms.Responses, responseFor(p, info.Metadata))

	if parseDepth(r) == 1 && info.Metadata.IsDir {
		for _, child := range info.Children {
			ms.Responses = append(ms.Responses, responseFor(child.Path, child))
		}
	}

	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(207)
	_, err = w.Write([]byte(xml.Header))
	if err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	return enc.Encode(ms)
}

type multistatus struct {
	XMLName   xml.Name   `xml:"D:multistatus"`
	XMLNSD    string     `xml:"xmlns:D,attr"`
	Responses []response `xml:"D:response"`
}

type response struct {
	Href     string   `xml:"D:href"`
	Propstat propstat `xml:"D:propstat"`
}

type propstat struct {
	Prop   prop   `xml:"D:prop"`
	Status string `xml:"D:status"`
}

type prop struct {
	DisplayName      string        `xml:"D:displayname"`
	ResourceType     *resourceType `xml:"D:resourcetype"`
	GetContentLength int64         `xml:"D:getcontentlength,omitempty"`
	GetLastModified  string        `xml:"D:getlastmodified,omitempty"`
	GetETag          string        `xml:"D:getetag,omitempty"`
}

type resourceType struct {
	Collection *struct{} `xml:"D:collection"`
}

func responseFor(p string, md backend.ResourceDescriptor) response {
	pr := prop{
		DisplayName:     path.Base(strings.TrimSuffix(p, "/")),
		GetLastModified: md.Modified.UTC().Format(http.TimeFormat),
	}
	if md.IsDir {
		pr.ResourceType = &resourceType{Collection: &struct{}{}}
	} else {
		pr.GetContentLength = md.Len
		pr.GetETag = quoteETag(md.ETag)
	}
	return response{
		Href: p,
		Propstat: propstat{
			Prop:   pr,
			Status: "HTTP/1.1 200 OK",
		},
	}
}
