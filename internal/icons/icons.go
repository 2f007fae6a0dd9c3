// Package icons resolves notification icon fields into something renderable.
//
// An icon field is either the name of a glyph from a fixed catalog or an
// embedded image data URI. Unknown names resolve to the AppWindow glyph.
package icons

import (
	"sort"
	"strings"
)

// Kind discriminates the two icon variants
type Kind string

const (
	KindGlyph Kind = "glyph"
	KindImage Kind = "image"
)

// FallbackGlyph is used for names missing from the catalog
const FallbackGlyph = "AppWindow"

// DefaultColor is the tile color used when a notification has none
const DefaultColor = "bg-gray-500"

const imagePrefix = "data:image"

// Icon is either a named glyph or an embedded image
type Icon struct {
	Kind Kind
	// Name is set for glyphs, URI for images.
	Name string
	URI  string
}

// Parse classifies an icon field
func Parse(field string) Icon {
	if strings.HasPrefix(field, imagePrefix) {
		return Icon{Kind: KindImage, URI: field}
	}
	return Icon{Kind: KindGlyph, Name: field}
}

// Visual is the resolved, renderable form of an icon
type Visual struct {
	Kind Kind `json:"kind"`
	// Glyph is the catalog name actually used (after fallback)
	Glyph string `json:"glyph,omitempty"`
	// Path is SVG path data for a 24x24 viewBox
	Path  string `json:"path,omitempty"`
	Src   string `json:"src,omitempty"`
	Color string `json:"color,omitempty"`
	Alt   string `json:"alt"`
}

// Resolve turns an icon field and tile color into a Visual
func Resolve(field, color string) Visual {
	icon := Parse(field)
	if icon.Kind == KindImage {
		return Visual{Kind: KindImage, Src: icon.URI, Alt: "Generated App Icon"}
	}

	if color == "" {
		color = DefaultColor
	}
	name, path := Lookup(icon.Name)
	return Visual{Kind: KindGlyph, Glyph: name, Path: path, Color: color, Alt: name}
}

// Lookup returns the glyph for name, or the fallback glyph
func Lookup(name string) (string, string) {
	if path, ok := catalog[name]; ok {
		return name, path
	}
	return FallbackGlyph, catalog[FallbackGlyph]
}

// Known reports whether name is in the catalog
func Known(name string) bool {
	_, ok := catalog[name]
	return ok
}

// Names lists the catalog in alphabetical order
func Names() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
