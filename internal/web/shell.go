package web

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	appLog "evcount/internal/log"
)

// shellURLs are the app shell assets held in memory and served cache-first.
var shellURLs = []string{"/", "/index.html", "/app.js", "/icon.svg"}

type shellAsset struct {
	body        []byte
	contentType string
	etag        string
}

// shellCache preloads the shell assets once at startup. Anything outside the
// list goes to the file server.
type shellCache struct {
	assets  map[string]shellAsset
	files   http.Handler
	modTime time.Time
}

func newShellCache(fsys fs.FS, dir string, urls []string) *shellCache {
	c := &shellCache{assets: make(map[string]shellAsset, len(urls)), modTime: time.Now()}

	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		appLog.Error("failed to initialize embedded static filesystem", err)
		c.files = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "static UI not available", http.StatusServiceUnavailable)
		})
		return c
	}
	c.files = http.FileServer(http.FS(sub))

	for _, u := range urls {
		name := strings.TrimPrefix(u, "/")
		if name == "" {
			name = "index.html"
		}
		body, err := fs.ReadFile(sub, name)
		if err != nil {
			appLog.Warn("shell asset missing", "url", u)
			continue
		}
		ctype := mime.TypeByExtension(path.Ext(name))
		if ctype == "" {
			ctype = http.DetectContentType(body)
		}
		sum := sha256.Sum256(body)
		c.assets[u] = shellAsset{
			body:        body,
			contentType: ctype,
			etag:        `"` + hex.EncodeToString(sum[:8]) + `"`,
		}
	}
	return c
}

func (c *shellCache) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a, ok := c.assets[r.URL.Path]
	if !ok {
		c.files.ServeHTTP(w, r)
		return
	}
	w.Header().Set("Content-Type", a.contentType)
	w.Header().Set("ETag", a.etag)
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeContent(w, r, "", c.modTime, bytes.NewReader(a.body))
}

func (s *Server) staticHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := r.URL.Path
		// API paths never fall through to the UI.
		if p == "/api" || strings.HasPrefix(p, "/api/") {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		s.shell.ServeHTTP(w, r)
	})
}
