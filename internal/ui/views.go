package ui

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"

	"github.com/zombor/billed/internal/bill"
	"github.com/zombor/billed/internal/session"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static/*
var staticFS embed.FS

// staticFiles returns the embedded assets rooted at static/
func staticFiles() fs.FS {
	fsys, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return fsys
}

var pageNames = []string{"login", "bills", "newbill", "error", "notfound"}

// Page is what the layout needs to render any page
type Page struct {
	Title  string
	Active string
	User   *session.User
	Data   any
}

// pageFor builds the Page of a routed path
func pageFor(path string, user *session.User, data any) Page {
	route, _ := Lookup(path)
	return Page{Title: route.Title, Active: route.Active, User: user, Data: data}
}

// Views holds the parsed templates. Each page gets its own clone of the
// layout so that every page can define "content".
type Views struct {
	pages    map[string]*template.Template
	partials *template.Template
}

var funcs = template.FuncMap{
	"decimal": decimal,
	"categories": func() []string {
		return bill.Categories
	},
}

// NewViews parses the embedded templates
func NewViews() (*Views, error) {
	base, err := template.New("base").Funcs(funcs).ParseFS(templatesFS, "templates/layout.html", "templates/partials.html")
	if err != nil {
		return nil, fmt.Errorf("parsing layout: %w", err)
	}

	v := &Views{pages: make(map[string]*template.Template, len(pageNames)), partials: base}
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning layout for %s: %w", name, err)
		}
		page, err := clone.ParseFS(templatesFS, "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", name, err)
		}
		v.pages[name] = page
	}
	return v, nil
}

// Render writes a full page
func (v *Views) Render(w io.Writer, name string, page Page) error {
	t, ok := v.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}
	return t.ExecuteTemplate(w, "layout", page)
}

// RenderPartial writes a fragment such as the receipt modal
func (v *Views) RenderPartial(w io.Writer, name string, data any) error {
	return v.partials.ExecuteTemplate(w, name, data)
}
