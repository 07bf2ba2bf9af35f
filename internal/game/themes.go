package game

import "snak8s/internal/net/proto"

// Theme is the immutable visual identity assigned to a player at join time.
type Theme struct {
	Name  string
	Color string
	Logo  string
}

var themeCatalog = []Theme{
	{Name: "Kubernetes", Color: "#326CE5", Logo: "☸️"},
	{Name: "Prometheus", Color: "#E6522C", Logo: "🔥"},
	{Name: "Envoy", Color: "#AC6199", Logo: "🎭"},
	{Name: "Jaeger", Color: "#60D0E4", Logo: "🔍"},
	{Name: "Fluentd", Color: "#0E83C8", Logo: "💧"},
	{Name: "Linkerd", Color: "#2DCEAA", Logo: "🔗"},
	{Name: "Helm", Color: "#0F1689", Logo: "⎈"},
	{Name: "Cilium", Color: "#F8C517", Logo: "🐝"},
}

// Themes returns a copy of the catalog in display order.
func Themes() []Theme {
	out := make([]Theme, len(themeCatalog))
	copy(out, themeCatalog)
	return out
}

// LookupTheme finds a catalog theme by exact name.
func LookupTheme(name string) (Theme, bool) {
	for _, theme := range themeCatalog {
		if theme.Name == name {
			return theme, true
		}
	}
	return Theme{}, false
}

// ResolveTheme returns the named theme, or rotates through the catalog by
// seat when the name is empty or unknown.
func ResolveTheme(name string, seat int) Theme {
	if theme, ok := LookupTheme(name); ok {
		return theme
	}
	if seat < 0 {
		seat = -seat
	}
	return themeCatalog[seat%len(themeCatalog)]
}

// Wire converts the theme to its protocol form.
func (t Theme) Wire() proto.Theme {
	return proto.Theme{Name: t.Name, Color: t.Color, Logo: t.Logo}
}

// WireThemes returns the catalog in protocol form for the joined message.
func WireThemes() []proto.Theme {
	out := make([]proto.Theme, 0, len(themeCatalog))
	for _, theme := range themeCatalog {
		out = append(out, theme.Wire())
	}
	return out
}
