package handlers

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
	"gotest.tools/v3/fs"
)

const testLayout = `<html><head><title>Test</title></head><body>{{template "_nav.html" .}}{{template "content" .}}</body></html>`

func TestExecuteWithoutLayout(t *testing.T) {
	dir := fs.NewDir(t, "views", fs.WithFile("index.html", `<h1>Hello {{.}}</h1>`))
	defer dir.Remove()

	out, err := NewRenderer(dir.Path(), false).Execute("index.html", "world")
	assert.NilError(t, err)
	assert.Check(t, is.Equal(string(out), "<h1>Hello world</h1>"))
}

func TestExecuteWithLayoutAndPartials(t *testing.T) {
	dir := fs.NewDir(t, "views",
		fs.WithFile("layout.html", testLayout),
		fs.WithFile("_nav.html", `<nav>{{.Path}}</nav>`),
		fs.WithFile("index.html", `{{define "content"}}<main>{{FormatDateTime .StartedAt}}</main>{{end}}`),
	)
	defer dir.Remove()

	data := PageData{
		Path:      "/",
		StartedAt: time.Date(2024, time.March, 5, 14, 30, 0, 0, time.UTC),
	}
	out, err := NewRenderer(dir.Path(), false).Execute("index.html", data)
	assert.NilError(t, err)
	assert.Check(t, is.Equal(string(out),
		`<html><head><title>Test</title></head><body><nav>/</nav><main>March 5, 2024 at 2:30 PM</main></body></html>`))
}

func TestExecuteMissingTemplate(t *testing.T) {
	dir := fs.NewDir(t, "views")
	defer dir.Remove()

	_, err := NewRenderer(dir.Path(), false).Execute("index.html", nil)
	assert.Check(t, is.ErrorContains(err, "template index.html"))
}

func TestExecuteRejectsNamesOutsideViews(t *testing.T) {
	dir := fs.NewDir(t, "views", fs.WithFile("index.html", "ok"))
	defer dir.Remove()

	rd := NewRenderer(dir.Path(), false)
	for _, name := range []string{"../index.html", "/etc/passwd", ""} {
		_, err := rd.Execute(name, nil)
		assert.Check(t, is.ErrorContains(err, "outside the views directory"), name)
	}
}

func TestExecuteParseError(t *testing.T) {
	dir := fs.NewDir(t, "views", fs.WithFile("index.html", `{{if}}`))
	defer dir.Remove()

	_, err := NewRenderer(dir.Path(), false).Execute("index.html", nil)
	assert.Check(t, is.ErrorContains(err, "error parsing template index.html"))
}

func TestExecuteError(t *testing.T) {
	dir := fs.NewDir(t, "views", fs.WithFile("index.html", `{{template "missing" .}}`))
	defer dir.Remove()

	_, err := NewRenderer(dir.Path(), false).Execute("index.html", nil)
	assert.Check(t, is.ErrorContains(err, "executing template index.html"))
}

func TestRendererReparsesWithoutCache(t *testing.T) {
	dir := fs.NewDir(t, "views", fs.WithFile("index.html", "first"))
	defer dir.Remove()
	rd := NewRenderer(dir.Path(), false)

	out, err := rd.Execute("index.html", nil)
	assert.NilError(t, err)
	assert.Check(t, is.Equal(string(out), "first"))

	assert.NilError(t, os.WriteFile(dir.Join("index.html"), []byte("second"), 0o644))
	out, err = rd.Execute("index.html", nil)
	assert.NilError(t, err)
	assert.Check(t, is.Equal(string(out), "second"))
}

func TestRendererCache(t *testing.T) {
	dir := fs.NewDir(t, "views", fs.WithFile("index.html", "first"))
	defer dir.Remove()
	rd := NewRenderer(dir.Path(), true)

	out, err := rd.Execute("index.html", nil)
	assert.NilError(t, err)
	assert.Check(t, is.Equal(string(out), "first"))

	assert.NilError(t, os.WriteFile(dir.Join("index.html"), []byte("second"), 0o644))
	out, err = rd.Execute("index.html", nil)
	assert.NilError(t, err)
	assert.Check(t, is.Equal(string(out), "first"))
}

func TestRenderTemplateFailureIsPerRequest(t *testing.T) {
	dir := fs.NewDir(t, "views", fs.WithFile("index.html", `{{if}}`))
	defer dir.Remove()
	rd := NewRenderer(dir.Path(), false)

	rr := httptest.NewRecorder()
	rd.RenderTemplate(rr, httptest.NewRequest(http.MethodGet, "/", nil), "index.html", nil)
	assert.Check(t, is.Equal(rr.Code, http.StatusInternalServerError))
	assert.Check(t, is.Equal(rr.Body.String(), "Internal Server Error\n"))

	assert.NilError(t, os.WriteFile(dir.Join("index.html"), []byte("<p>fixed</p>"), 0o644))
	rr = httptest.NewRecorder()
	rd.RenderTemplate(rr, httptest.NewRequest(http.MethodGet, "/", nil), "index.html", nil)
	assert.Check(t, is.Equal(rr.Code, http.StatusOK))
	assert.Check(t, is.Equal(rr.Body.String(), "<p>fixed</p>"))
	assert.Check(t, is.Equal(rr.Header().Get("Content-Type"), "text/html; charset=utf-8"))
}

func TestFormatDateTime(t *testing.T) {
	assert.Check(t, is.Equal(FormatDateTime(time.Time{}), "N/A"))
	assert.Check(t, is.Equal(FormatDateTime(time.Date(2023, time.December, 31, 9, 5, 0, 0, time.UTC)),
		"December 31, 2023 at 9:05 AM"))
}
