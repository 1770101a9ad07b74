package web

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gorilla/csrf"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"taskroom/internal/adapters/http/middleware"
	"taskroom/internal/domain/profile"
)

// mdRenderer is a goldmark instance configured for safe HTML output.
// Raw HTML in markdown input is dropped (WithUnsafe is NOT set) and
// dangerous link schemes are not rendered.
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// funcMap holds the helpers every page may call.
var funcMap = template.FuncMap{
	"renderMarkdown": renderMarkdown,
	"formatDate":     formatDate,
	"formatTime": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Local().Format("Jan 2, 2006")
	},
}

// renderMarkdown turns a task description into HTML.
func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

// formatDate renders a backend date or timestamp string as a calendar date.
// Unparseable input is shown as is.
func formatDate(s string) string {
	if s == "" {
		return ""
	}
	if len(s) >= len(time.DateOnly) {
		if d, err := time.Parse(time.DateOnly, s[:len(time.DateOnly)]); err == nil {
			return d.Format("Jan 2, 2006")
		}
	}
	return s
}

// parsePages parses each page template together with the layout.
func parsePages() (map[string]*template.Template, error) {
	names, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	pages := make(map[string]*template.Template, len(names))
	for _, name := range names {
		base := path.Base(name)
		if base == "layout.html" {
			continue
		}
		tpl, err := template.New("layout.html").Funcs(funcMap).ParseFS(templateFS, "templates/layout.html", name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", base, err)
		}
		pages[base] = tpl
	}
	return pages, nil
}

// page is what every template receives.
type page struct {
	Title     string
	Flash     *Flash
	CSRFField template.HTML
	Profile   *profile.Profile
	Data      any
}

// render writes a page inside the layout, consuming any pending toast.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name, title string, data any) {
	s.renderFlash(w, r, name, title, s.flash.pop(w, r), data)
}

// renderFlash writes a page with an explicit toast, for forms that answer
// in place instead of redirecting.
func (s *Server) renderFlash(w http.ResponseWriter, r *http.Request, name, title string, fl *Flash, data any) {
	tpl, ok := s.pages[name]
	if !ok {
		internalError(w, fmt.Errorf("unknown template %s", name))
		return
	}
	p := page{
		Title:     title,
		Flash:     fl,
		CSRFField: csrf.TemplateField(r),
		Data:      data,
	}
	if prof, ok := middleware.ProfileFromContext(r.Context()); ok {
		p.Profile = &prof
	}

	var buf bytes.Buffer
	if err := tpl.Execute(&buf, p); err != nil {
		internalError(w, fmt.Errorf("render %s: %w", name, err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// redirect queues a toast and sends the visitor to target (Post/Redirect/Get).
func (s *Server) redirect(w http.ResponseWriter, r *http.Request, target, kind, msg string) {
	if msg != "" {
		s.flash.set(w, kind, msg)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// internalError logs the real error and returns a generic message to the client.
// This prevents leaking internal details per OWASP A05.
func internalError(w http.ResponseWriter, err error) {
	internalLog("request", err)
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

func internalLog(op string, err error) {
	slog.Error("internal_error", "op", op, "error", err.Error())
}

// formValue returns a trimmed form field.
func formValue(r *http.Request, key string) string {
	return strings.TrimSpace(r.PostFormValue(key))
}
