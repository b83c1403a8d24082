package handlers

import (
	"net/http"
	"os"
	"time"

	"github.com/containerd/log"
)

// PageData is passed to the landing page template.
type PageData struct {
	Path        string
	CurrentYear int
	StartedAt   time.Time
}

// LandingTemplate renders the named template from the renderer's views
// directory for every request.
func LandingTemplate(rd *Renderer, name string, startedAt time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := PageData{
			Path:        r.URL.Path,
			CurrentYear: time.Now().Year(),
			StartedAt:   startedAt,
		}
		rd.RenderTemplate(w, r, name, data)
	}
}

// LandingFile returns the contents of the HTML file at path. The file is
// read on each request.
func LandingFile(path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := os.ReadFile(path)
		if err != nil {
			log.G(r.Context()).WithError(err).WithField("file", path).Debug("failed to read landing file")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		writeHTML(w, r, body)
	}
}
