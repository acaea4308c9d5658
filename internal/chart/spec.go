// Package chart describes charts declaratively and renders them into the
// widget configuration the browser's charting library consumes.
package chart

import (
	"fmt"
	"strings"

	sgerrors "sheetgenie/internal/errors"
)

// Kind is the closed set of chart types.
type Kind string

const (
	KindBar     Kind = "bar"
	KindLine    Kind = "line"
	KindPie     Kind = "pie"
	KindArea    Kind = "area"
	KindScatter Kind = "scatter"
)

// Kinds lists every supported kind in display order.
func Kinds() []Kind {
	return []Kind{KindBar, KindLine, KindPie, KindArea, KindScatter}
}

// ParseKind maps a free-form name onto a Kind. Unknown names become bar.
func ParseKind(name string) Kind {
	switch k := Kind(strings.ToLower(strings.TrimSpace(name))); k {
	case KindBar, KindLine, KindPie, KindArea, KindScatter:
		return k
	default:
		return KindBar
	}
}

// Palettes holds the five-color schemes series colors are drawn from.
var Palettes = map[string][]string{
	"default":      {"#8884d8", "#82ca9d", "#ffc658", "#ff7c7c", "#8dd1e1"},
	"business":     {"#2563eb", "#16a34a", "#dc2626", "#ca8a04", "#9333ea"},
	"modern":       {"#06b6d4", "#10b981", "#f59e0b", "#ef4444", "#8b5cf6"},
	"professional": {"#1f2937", "#374151", "#6b7280", "#9ca3af", "#d1d5db"},
}

// PaletteNames lists the palettes in a stable order.
func PaletteNames() []string {
	return []string{"default", "business", "modern", "professional"}
}

// Colors returns the named palette, falling back to "default".
func Colors(palette string) []string {
	if colors, ok := Palettes[strings.ToLower(strings.TrimSpace(palette))]; ok {
		return colors
	}
	return Palettes["default"]
}

// Series is one plotted y key.
type Series struct {
	Key   string `json:"key"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// NewSeries assigns palette colors by series order, wrapping past five.
func NewSeries(yKeys []string, palette string) []Series {
	colors := Colors(palette)
	series := make([]Series, len(yKeys))
	for i, key := range yKeys {
		series[i] = Series{Key: key, Name: key, Color: colors[i%len(colors)]}
	}
	return series
}

// Options are the display toggles of a chart.
type Options struct {
	Palette    string `json:"palette"`
	ShowLegend bool   `json:"show_legend"`
	ShowGrid   bool   `json:"show_grid"`
}

// DefaultOptions shows the grid, and a legend only for multi-series charts.
func DefaultOptions(series int) Options {
	return Options{Palette: "default", ShowGrid: true, ShowLegend: series > 1}
}

// Spec is a declarative chart: what to plot and how it looks.
type Spec struct {
	Kind    Kind             `json:"type"`
	Title   string           `json:"title"`
	XKey    string           `json:"x_key"`
	YKeys   []string         `json:"y_keys"`
	Series  []Series         `json:"series"`
	Data    []map[string]any `json:"data"`
	Options Options          `json:"options"`
}

// DefaultTitle is "<y> by <x>", with multiple y keys joined by " vs ".
func DefaultTitle(xKey string, yKeys []string) string {
	return fmt.Sprintf("%s by %s", strings.Join(yKeys, " vs "), xKey)
}

// Validate checks that the axis keys name fields present in the data rows.
// Charts without rows are validated against nothing and pass.
func (s *Spec) Validate() error {
	if s.XKey == "" || len(s.YKeys) == 0 {
		return sgerrors.New(sgerrors.CodeAxisKeyNotFound, "chart needs an x key and at least one y key")
	}
	if len(s.Data) == 0 {
		return nil
	}
	row := s.Data[0]
	for _, key := range append([]string{s.XKey}, s.YKeys...) {
		if _, ok := row[key]; !ok {
			return sgerrors.New(sgerrors.CodeAxisKeyNotFound, "axis key %q is not present in the chart data", key)
		}
	}
	return nil
}

// normalized fills defaults a renderer relies on without touching the input.
func (s Spec) normalized() Spec {
	s.Kind = ParseKind(string(s.Kind))
	if s.Options.Palette == "" {
		s.Options.Palette = "default"
	}
	if len(s.Series) != len(s.YKeys) {
		s.Series = NewSeries(s.YKeys, s.Options.Palette)
	}
	if s.Title == "" && s.XKey != "" && len(s.YKeys) > 0 {
		s.Title = DefaultTitle(s.XKey, s.YKeys)
	}
	return s
}
