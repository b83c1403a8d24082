package handlers

import (
	"net/http"
	"os"
	"path"
	"strings"
)

// StaticFiles serves regular files from a directory on disk. Requests that do
// not name such a file are left for other routes; use Exists to decide.
type StaticFiles struct {
	root http.Dir
}

// NewStaticFiles returns a StaticFiles rooted at dir.
func NewStaticFiles(dir string) *StaticFiles {
	return &StaticFiles{root: http.Dir(dir)}
}

// Exists reports whether r is a GET or HEAD request for a regular file under
// the root.
func (s *StaticFiles) Exists(r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return false
	}
	f, info, err := s.open(r.URL.Path)
	if err != nil {
		return false
	}
	f.Close()
	return info.Mode().IsRegular()
}

func (s *StaticFiles) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f, info, err := s.open(r.URL.Path)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()
	if !info.Mode().IsRegular() {
		http.NotFound(w, r)
		return
	}
	// ServeContent rather than http.FileServer: the latter redirects
	// ".../index.html" requests to the directory.
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

func (s *StaticFiles) open(urlPath string) (http.File, os.FileInfo, error) {
	name, ok := cleanPath(urlPath)
	if !ok {
		return nil, nil, os.ErrNotExist
	}
	f, err := s.root.Open(name)
	if err != nil {
		return nil, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return f, info, nil
}

// cleanPath normalises a request path. Paths with a segment starting with a
// dot are refused, which covers both dot-files and "..".
func cleanPath(p string) (string, bool) {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	for _, segment := range strings.Split(p, "/") {
		if strings.HasPrefix(segment, ".") {
			return "", false
		}
	}
	p = path.Clean(p)
	if p == "/" {
		return "", false
	}
	return p, true
}
