package render

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"io/fs"
)

// Template names. index.html is the full page; the rest are partials
// swapped in by HTMX.
const (
	TemplateIndex     = "index.html"
	TemplateApp       = "app"
	TemplateDashboard = "dashboard"
	TemplateBalance   = "balance"
	TemplateList      = "transaction-list"
	TemplateChart     = "chart"
	TemplateForm      = "transaction-form"
)

// Renderer executes the tracker's HTML templates.
type Renderer struct {
	templates *template.Template
}

// New parses templates/*.html from fsys.
func New(fsys fs.FS) (*Renderer, error) {
	t, err := template.ParseFS(fsys, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	for _, name := range []string{TemplateIndex, TemplateApp, TemplateDashboard, TemplateForm} {
		if t.Lookup(name) == nil {
			return nil, fmt.Errorf("template %q not defined", name)
		}
	}
	return &Renderer{templates: t}, nil
}

// Render executes template name into w. Output is buffered so a failed
// execution writes nothing.
func (r *Renderer) Render(w io.Writer, name string, data any) error {
	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("execute template %q: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}
