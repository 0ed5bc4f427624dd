// Package archivetest provides an in-memory fake of the remote archive
// for use in tests.
package archivetest

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/klauspost/compress/gzip"
)

type (
	// Server is a fake archive serving item metadata and file downloads
	// for the items registered on it.
	Server struct {
		*httptest.Server
		sync.Mutex

		items     map[string]map[string]*file
		downloads map[string]int
		requests  []*http.Request
	}

	file struct {
		content     []byte
		md5         string
		failures    int
		truncateTo  int
		omitListing bool
	}
)

// NewServer starts a fake archive which is closed when the test completes.
func NewServer(t *testing.T) *Server {
	srv := &Server{
		items:     make(map[string]map[string]*file),
		downloads: make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/metadata/", srv.handleMetadata)
	mux.HandleFunc("/download/", srv.handleDownload)
	srv.Server = httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv
}

// AddItem registers an (empty) item so that its metadata can be listed.
func (srv *Server) AddItem(identifier string) {
	srv.Lock()
	defer srv.Unlock()

	if _, ok := srv.items[identifier]; !ok {
		srv.items[identifier] = make(map[string]*file)
	}
}

// AddFile registers a file on an item, creating the item if needed.
func (srv *Server) AddFile(identifier, name string, content []byte) {
	srv.AddItem(identifier)

	srv.Lock()
	defer srv.Unlock()

	sum := md5.Sum(content)
	srv.items[identifier][name] = &file{content: content, md5: hex.EncodeToString(sum[:])}
}

// FailDownloads causes the next n downloads of the file to respond
// with a 500 status code.
func (srv *Server) FailDownloads(identifier, name string, n int) {
	srv.mutate(identifier, name, func(f *file) { f.failures = n })
}

// TruncateDownloads causes downloads of the file to only send the first
// n bytes of the content, whilst still advertising the full size.
func (srv *Server) TruncateDownloads(identifier, name string, n int) {
	srv.mutate(identifier, name, func(f *file) { f.truncateTo = n })
}

// SetMD5 overrides the md5 advertised for the file.
func (srv *Server) SetMD5(identifier, name, sum string) {
	srv.mutate(identifier, name, func(f *file) { f.md5 = sum })
}

// HideFromListing keeps the file downloadable, but omits it from the
// item metadata.
func (srv *Server) HideFromListing(identifier, name string) {
	srv.mutate(identifier, name, func(f *file) { f.omitListing = true })
}

// Downloads returns the number of download requests received for the file.
func (srv *Server) Downloads(identifier, name string) int {
	srv.Lock()
	defer srv.Unlock()

	return srv.downloads[identifier+"/"+name]
}

// Requests returns all requests received by this server.
func (srv *Server) Requests() []*http.Request {
	srv.Lock()
	defer srv.Unlock()

	return append([]*http.Request(nil), srv.requests...)
}

func (srv *Server) mutate(identifier, name string, fn func(*file)) {
	srv.Lock()
	defer srv.Unlock()

	if f, ok := srv.items[identifier][name]; ok {
		fn(f)
		return
	}

	panic(fmt.Sprintf("archivetest: no file %s/%s", identifier, name))
}

func (srv *Server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	srv.Lock()
	defer srv.Unlock()
	srv.requests = append(srv.requests, r)

	identifier := strings.TrimPrefix(r.URL.Path, "/metadata/")
	files, ok := srv.items[identifier]
	if !ok {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte("{}"))
		return
	}

	listing := make([]map[string]any, 0, len(files))
	for name, f := range files {
		if f.omitListing {
			continue
		}

		listing = append(listing, map[string]any{
			"name":   name,
			"source": "original",
			"size":   fmt.Sprint(len(f.content)),
			"md5":    f.md5,
			"mtime":  "1704067200",
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"created":  1704067200,
		"files":    listing,
		"metadata": map[string]any{"identifier": identifier},
	})
}

func (srv *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	srv.Lock()
	srv.requests = append(srv.requests, r)

	path := strings.TrimPrefix(r.URL.Path, "/download/")
	identifier, name, _ := strings.Cut(path, "/")
	srv.downloads[path]++

	f, ok := srv.items[identifier][name]
	if !ok {
		srv.Unlock()
		http.NotFound(w, r)
		return
	}

	if f.failures > 0 {
		f.failures--
		srv.Unlock()
		http.Error(w, "induced failure", http.StatusInternalServerError)
		return
	}

	content := f.content
	if f.truncateTo > 0 && f.truncateTo < len(content) {
		content = content[:f.truncateTo]
	}
	srv.Unlock()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(content)
}

// Gzip compresses the content provided, panicking on failure.
func Gzip(content []byte) []byte {
	buf := &bytes.Buffer{}
	gw := gzip.NewWriter(buf)
	if _, err := gw.Write(content); err != nil {
		panic(err)
	}
	if err := gw.Close(); err != nil {
		panic(err)
	}

	return buf.Bytes()
}
