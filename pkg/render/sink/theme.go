package sink

import "strings"

// Theme is the color set used by RenderSVG.
type Theme struct {
	Name           string
	Background     string
	NodeFill       string
	NodeStroke     string
	SelectedStroke string
	Text           string
	Port           string
	Wire           string
	WireSelected   string
	Waypoint       string
	FontFamily     string
}

// Built-in themes.
var (
	Light = Theme{
		Name:           "light",
		Background:     "#ffffff",
		NodeFill:       "#ffffff",
		NodeStroke:     "#4ea9ff",
		SelectedStroke: "#ff8c00",
		Text:           "#222222",
		Port:           "#d0d0d0",
		Wire:           "#4682b4",
		WireSelected:   "#43b993",
		Waypoint:       "#4682b4",
		FontFamily:     "Helvetica, Arial, sans-serif",
	}
	Dark = Theme{
		Name:           "dark",
		Background:     "#1e1e1e",
		NodeFill:       "#2b2b2b",
		NodeStroke:     "#5a5a5a",
		SelectedStroke: "#ffb454",
		Text:           "#e6e6e6",
		Port:           "#8a8a8a",
		Wire:           "#7fb4e0",
		WireSelected:   "#7fe0b9",
		Waypoint:       "#7fb4e0",
		FontFamily:     "Helvetica, Arial, sans-serif",
	}
)

// Themes lists the built-in themes by name.
var Themes = map[string]Theme{
	Light.Name: Light,
	Dark.Name:  Dark,
}

// ThemeByName returns the built-in theme called name. Lookup ignores case.
func ThemeByName(name string) (Theme, bool) {
	t, ok := Themes[strings.ToLower(name)]
	return t, ok
}
