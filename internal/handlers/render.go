package handlers

import (
	"bytes"
	"html/template"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/containerd/log"
	"github.com/pkg/errors"
)

const (
	// layoutFile wraps every page when present in the views directory.
	// Pages provide the body with {{define "content"}}.
	layoutFile = "layout.html"
	// partialPattern matches files that are parsed into every page.
	partialPattern = "_*.html"
)

// Template helper functions
var funcMap = template.FuncMap{
	"FormatDateTime": FormatDateTime,
}

// FormatDateTime formats a time.Time object into a more readable string.
func FormatDateTime(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	return t.Format("January 2, 2006 at 3:04 PM")
}

// Renderer parses and executes page templates from a views directory.
//
// Without caching every call re-reads the files, so edits show up on the next
// request. With caching the first successful parse of a page is kept.
type Renderer struct {
	dir   string
	cache bool

	mu        sync.Mutex
	templates map[string]*template.Template
}

// NewRenderer returns a Renderer for the templates in dir.
func NewRenderer(dir string, cache bool) *Renderer {
	return &Renderer{
		dir:       dir,
		cache:     cache,
		templates: make(map[string]*template.Template),
	}
}

// Execute renders the named page and returns the output. Nothing is
// returned unless the whole page rendered.
func (rd *Renderer) Execute(name string, data interface{}) ([]byte, error) {
	tmpl, err := rd.lookup(name)
	if err != nil {
		return nil, err
	}

	entry := filepath.Base(name)
	if tmpl.Lookup(layoutFile) != nil && name != layoutFile {
		entry = layoutFile
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, entry, data); err != nil {
		return nil, errors.Wrapf(err, "executing template %s", name)
	}
	return buf.Bytes(), nil
}

// RenderTemplate writes the named page as an HTML response. Failures produce
// a 500 for this request only.
func (rd *Renderer) RenderTemplate(w http.ResponseWriter, r *http.Request, name string, data interface{}) {
	body, err := rd.Execute(name, data)
	if err != nil {
		log.G(r.Context()).WithError(err).WithField("template", name).Debug("failed to render template")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	writeHTML(w, r, body)
}

func (rd *Renderer) lookup(name string) (*template.Template, error) {
	if !rd.cache {
		return rd.parse(name)
	}

	rd.mu.Lock()
	defer rd.mu.Unlock()
	if tmpl, ok := rd.templates[name]; ok {
		return tmpl, nil
	}
	tmpl, err := rd.parse(name)
	if err != nil {
		return nil, err
	}
	rd.templates[name] = tmpl
	return tmpl, nil
}

// parse builds the template set for one page: the page itself, the layout
// if there is one, and all partials.
func (rd *Renderer) parse(name string) (*template.Template, error) {
	if !filepath.IsLocal(name) {
		return nil, errors.Errorf("template name %q is outside the views directory", name)
	}
	page := filepath.Join(rd.dir, name)
	if _, err := os.Stat(page); err != nil {
		return nil, errors.Wrapf(err, "template %s", name)
	}

	files := []string{page}

	layout := filepath.Join(rd.dir, layoutFile)
	if layout != page {
		if _, err := os.Stat(layout); err == nil {
			files = append(files, layout)
		}
	}

	partials, err := filepath.Glob(filepath.Join(rd.dir, partialPattern))
	if err != nil {
		return nil, errors.Wrap(err, "error globbing partial templates")
	}
	for _, partial := range partials {
		if partial != page {
			files = append(files, partial)
		}
	}

	tmpl, err := template.New(filepath.Base(page)).Funcs(funcMap).ParseFiles(files...)
	if err != nil {
		return nil, errors.Wrapf(err, "error parsing template %s", name)
	}
	return tmpl, nil
}

func writeHTML(w http.ResponseWriter, r *http.Request, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		w.Write(body)
	}
}
