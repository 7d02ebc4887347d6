// Package views renders the site's pages from templates embedded in the binary.
package views

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"
	"sync"
)

//go:embed templates/*.html
var templateFS embed.FS

const layoutFile = "templates/layout.html"

// Engine implements fiber.Views. Every page is parsed together with the shared layout.
type Engine struct {
	mu    sync.RWMutex
	fs    fs.FS
	pages map[string]*template.Template
}

// New returns an engine over the embedded templates.
func New() *Engine {
	return &Engine{fs: templateFS}
}

// Load parses every page template.
func (e *Engine) Load() error {
	files, err := fs.Glob(e.fs, "templates/*.html")
	if err != nil {
		return err
	}

	pages := make(map[string]*template.Template, len(files))
	for _, file := range files {
		if file == layoutFile {
			continue
		}
		name := strings.TrimSuffix(path.Base(file), ".html")
		t, err := template.New(name).ParseFS(e.fs, layoutFile, file)
		if err != nil {
			return fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		pages[name] = t
	}

	e.mu.Lock()
	e.pages = pages
	e.mu.Unlock()
	return nil
}

// Render writes page name wrapped in the layout. The layout argument is ignored.
func (e *Engine) Render(w io.Writer, name string, binding interface{}, _ ...string) error {
	e.mu.RLock()
	t, ok := e.pages[name]
	e.mu.RUnlock()
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}
	return t.ExecuteTemplate(w, "layout", binding)
}
