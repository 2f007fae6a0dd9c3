package render

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/koios/lockscreenr/pkg/models"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var pageTemplate = template.Must(
	template.New("preview").Funcs(template.FuncMap{
		"frameStyle":      frameStyle,
		"backgroundStyle": backgroundStyle,
		"fontStyle":       fontStyle,
		"markerStyle":     markerStyle,
		"imageURL":        imageURL,
	}).ParseFS(templateFS, "templates/*.tmpl"),
)

// Page wraps a View with what the HTML needs to talk back to the server
type Page struct {
	Title string
	// Base is the session URL prefix used by buttons and the live stream.
	// An empty Base renders a static, non-interactive page.
	Base string
	View View
}

// Interactive reports whether controls should be wired
func (p Page) Interactive() bool { return p.Base != "" }

// HTML writes a complete document
func HTML(w io.Writer, page Page) error {
	if page.Title == "" {
		page.Title = "Lock Screen Preview"
	}
	if err := pageTemplate.ExecuteTemplate(w, "page", page); err != nil {
		return fmt.Errorf("failed to render preview: %w", err)
	}
	return nil
}

// Fragment writes only the device element, for live replacement
func Fragment(w io.Writer, page Page) error {
	if err := pageTemplate.ExecuteTemplate(w, "device", page); err != nil {
		return fmt.Errorf("failed to render preview fragment: %w", err)
	}
	return nil
}

func frameStyle(f Frame) template.CSS {
	return template.CSS(fmt.Sprintf("width:%.1fpx;height:%.1fpx;border-radius:%dpx;border-width:%dpx",
		f.ScaledWidth(), f.ScaledHeight(), f.Radius, f.Border))
}

func backgroundStyle(bg Background) template.CSS {
	switch {
	case bg.Kind == models.BackgroundImage && safeDataURI(bg.Image):
		return template.CSS("background-image:url(" + bg.Image + ")")
	case bg.Kind == models.BackgroundColor && models.IsColor(bg.Color):
		return template.CSS("background-color:" + bg.Color)
	}
	return template.CSS("background-color:#000000")
}

func fontStyle(font string) template.CSS {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == ' ', r == ',', r == '-', r == '_':
			return r
		}
		return -1
	}, font)
	if strings.TrimSpace(clean) == "" {
		clean = "sans-serif"
	}
	return template.CSS("font-family:" + clean)
}

func markerStyle(m Marker) template.CSS {
	return template.CSS(fmt.Sprintf("left:%.2f%%;top:%.2f%%", m.Left, m.Top))
}

func imageURL(uri string) template.URL {
	if !safeDataURI(uri) {
		return ""
	}
	return template.URL(uri)
}

func safeDataURI(uri string) bool {
	return models.IsImageDataURI(uri) && !strings.ContainsAny(uri, "\"'()<> \n\\")
}
