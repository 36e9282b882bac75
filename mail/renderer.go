package mail

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"os"
	"path/filepath"
	texttemplate "text/template"

	"github.com/k3a/html2text"
)

//go:embed templates/*.html templates/*.txt
var builtinTemplates embed.FS

// Renderer produces the HTML and plain text bodies of templated emails. It
// ships with built-in templates and can load overrides from a directory; a
// template without a .txt counterpart gets its text body derived from the
// rendered HTML.
type Renderer struct {
	html *htmltemplate.Template
	text *texttemplate.Template
}

// NewRenderer loads the built-in templates, then overlays any *.html and
// *.txt files found in dir. An empty dir keeps only the built-ins.
func NewRenderer(dir string) (*Renderer, error) {
	html, err := htmltemplate.ParseFS(builtinTemplates, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse built-in html templates: %w", err)
	}
	text, err := texttemplate.ParseFS(builtinTemplates, "templates/*.txt")
	if err != nil {
		return nil, fmt.Errorf("failed to parse built-in text templates: %w", err)
	}

	if dir != "" {
		if _, err := os.Stat(dir); err != nil {
			return nil, fmt.Errorf("template directory %s not accessible: %w", dir, err)
		}
		if matches, _ := filepath.Glob(filepath.Join(dir, "*.html")); len(matches) > 0 {
			if html, err = html.ParseGlob(filepath.Join(dir, "*.html")); err != nil {
				return nil, fmt.Errorf("failed to parse html templates in %s: %w", dir, err)
			}
		}
		if matches, _ := filepath.Glob(filepath.Join(dir, "*.txt")); len(matches) > 0 {
			if text, err = text.ParseGlob(filepath.Join(dir, "*.txt")); err != nil {
				return nil, fmt.Errorf("failed to parse text templates in %s: %w", dir, err)
			}
		}
	}

	return &Renderer{html: html, text: text}, nil
}

// Render executes the named template pair and returns the HTML and text
// bodies. The name is given without extension, e.g. "welcome".
func (r *Renderer) Render(name string, data any) (htmlBody, textBody string, err error) {
	var htmlBuf bytes.Buffer
	if err := r.html.ExecuteTemplate(&htmlBuf, name+".html", data); err != nil {
		return "", "", fmt.Errorf("failed to render template %s: %w", name, err)
	}
	htmlBody = htmlBuf.String()

	if r.text.Lookup(name+".txt") != nil {
		var textBuf bytes.Buffer
		if err := r.text.ExecuteTemplate(&textBuf, name+".txt", data); err != nil {
			return "", "", fmt.Errorf("failed to render text template %s: %w", name, err)
		}
		textBody = textBuf.String()
	} else {
		textBody = html2text.HTML2Text(htmlBody)
	}

	return htmlBody, textBody, nil
}
