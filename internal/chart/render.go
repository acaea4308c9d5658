package chart

// Margin is the plot margin in pixels.
type Margin struct {
	Top    int `json:"top"`
	Right  int `json:"right"`
	Left   int `json:"left"`
	Bottom int `json:"bottom"`
}

// Layout sizes the chart container.
type Layout struct {
	Width  string `json:"width"`
	Height int    `json:"height"`
	Margin Margin `json:"margin"`
}

// Widget is the configuration handed to the charting widget.
type Widget struct {
	Type   Kind             `json:"type"`
	Title  string           `json:"title"`
	Data   []map[string]any `json:"data"`
	Config any              `json:"config"`
	Series []Series         `json:"series"`
	Layout Layout           `json:"layout"`
}

// AxisConfig is shared by the cartesian renderers.
type AxisConfig struct {
	XAxisKey    string `json:"xAxisKey"`
	YAxisKey    string `json:"yAxisKey"`
	ShowGrid    bool   `json:"showGrid"`
	ShowTooltip bool   `json:"showTooltip"`
	ShowLegend  bool   `json:"showLegend"`
	Responsive  bool   `json:"responsive"`
}

type BarConfig struct {
	AxisConfig
	BarColor string `json:"barColor"`
}

type LineConfig struct {
	AxisConfig
	LineColor   string `json:"lineColor"`
	StrokeWidth int    `json:"strokeWidth"`
	ShowDots    bool   `json:"showDots"`
}

type AreaConfig struct {
	AxisConfig
	AreaColor   string `json:"areaColor"`
	StrokeColor string `json:"strokeColor"`
}

type ScatterConfig struct {
	AxisConfig
	DotColor string `json:"dotColor"`
	DotSize  int    `json:"dotSize"`
}

type PieConfig struct {
	NameKey     string   `json:"nameKey"`
	ValueKey    string   `json:"valueKey"`
	Colors      []string `json:"colors"`
	ShowTooltip bool     `json:"showTooltip"`
	ShowLegend  bool     `json:"showLegend"`
	Responsive  bool     `json:"responsive"`
	InnerRadius int      `json:"innerRadius"`
	OuterRadius int      `json:"outerRadius"`
}

var defaultLayout = Layout{
	Width:  "100%",
	Height: 300,
	Margin: Margin{Top: 20, Right: 30, Left: 20, Bottom: 5},
}

// Render turns a spec into widget configuration. Kinds outside the closed set
// render as a bar chart.
func Render(spec Spec) Widget {
	s := spec.normalized()
	w := Widget{
		Type:   s.Kind,
		Title:  s.Title,
		Data:   s.Data,
		Series: s.Series,
		Layout: defaultLayout,
	}
	if w.Data == nil {
		w.Data = []map[string]any{}
	}

	switch s.Kind {
	case KindLine:
		w.Config = renderLine(s)
	case KindPie:
		w.Config = renderPie(s)
	case KindArea:
		w.Config = renderArea(s)
	case KindScatter:
		w.Config = renderScatter(s)
	case KindBar:
		w.Config = renderBar(s)
	default:
		w.Type = KindBar
		w.Config = renderBar(s)
	}
	return w
}

func axis(s Spec) AxisConfig {
	cfg := AxisConfig{
		XAxisKey:    s.XKey,
		ShowGrid:    s.Options.ShowGrid,
		ShowTooltip: true,
		ShowLegend:  s.Options.ShowLegend,
		Responsive:  true,
	}
	if len(s.YKeys) > 0 {
		cfg.YAxisKey = s.YKeys[0]
	}
	return cfg
}

// seriesColor returns the color of series i or the palette color at i.
func seriesColor(s Spec, i int) string {
	if i < len(s.Series) {
		return s.Series[i].Color
	}
	colors := Colors(s.Options.Palette)
	return colors[i%len(colors)]
}

func renderBar(s Spec) BarConfig {
	return BarConfig{AxisConfig: axis(s), BarColor: seriesColor(s, 0)}
}

func renderLine(s Spec) LineConfig {
	return LineConfig{AxisConfig: axis(s), LineColor: seriesColor(s, 0), StrokeWidth: 2, ShowDots: true}
}

func renderArea(s Spec) AreaConfig {
	colors := Colors(s.Options.Palette)
	return AreaConfig{AxisConfig: axis(s), AreaColor: seriesColor(s, 0), StrokeColor: colors[1]}
}

func renderScatter(s Spec) ScatterConfig {
	return ScatterConfig{AxisConfig: axis(s), DotColor: seriesColor(s, 0), DotSize: 6}
}

func renderPie(s Spec) PieConfig {
	cfg := PieConfig{
		NameKey:     s.XKey,
		Colors:      Colors(s.Options.Palette),
		ShowTooltip: true,
		ShowLegend:  true,
		Responsive:  true,
		InnerRadius: 0,
		OuterRadius: 120,
	}
	if len(s.YKeys) > 0 {
		cfg.ValueKey = s.YKeys[0]
	}
	return cfg
}
