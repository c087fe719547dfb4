package charts

import (
	"fmt"
	"strings"

	"sheetinsight-backend/internal/tabular"
)

// Chart types.
const (
	TypeBar     = "bar"
	TypeLine    = "line"
	TypeScatter = "scatter"
	TypePie     = "pie"
)

const DefaultMaxRows = 50

var piePalette = []string{
	"rgba(147, 51, 234, 0.8)",
	"rgba(236, 72, 153, 0.8)",
	"rgba(59, 130, 246, 0.8)",
	"rgba(16, 185, 129, 0.8)",
	"rgba(245, 158, 11, 0.8)",
	"rgba(239, 68, 68, 0.8)",
	"rgba(139, 92, 246, 0.8)",
	"rgba(14, 165, 233, 0.8)",
}

// Request selects what to plot. Empty fields take defaults.
type Request struct {
	ChartType string `json:"chartType"`
	XColumn   string `json:"xColumn"`
	YColumn   string `json:"yColumn"`
	MaxRows   int    `json:"maxRows"`
}

// Dataset is one plotted series in chart.js shape.
type Dataset struct {
	Label                string   `json:"label,omitempty"`
	Data                 []any    `json:"data"`
	BackgroundColor      any      `json:"backgroundColor"`
	BorderColor          string   `json:"borderColor"`
	BorderWidth          int      `json:"borderWidth"`
	Fill                 *bool    `json:"fill,omitempty"`
	Tension              *float64 `json:"tension,omitempty"`
	PointBackgroundColor string   `json:"pointBackgroundColor,omitempty"`
	PointBorderColor     string   `json:"pointBorderColor,omitempty"`
	PointRadius          int      `json:"pointRadius,omitempty"`
}

// Config is the chart configuration returned to clients.
type Config struct {
	Type     string    `json:"type"`
	Labels   []string  `json:"labels"`
	Datasets []Dataset `json:"datasets"`
}

// Meta records where a chart came from.
type Meta struct {
	TotalRows     int    `json:"totalRows"`
	DisplayedRows int    `json:"displayedRows"`
	XColumn       string `json:"xColumn"`
	YColumn       string `json:"yColumn"`
	ChartType     string `json:"chartType"`
	MaxRows       int    `json:"maxRows"`
}

// Result is a synthesized chart plus provenance.
type Result struct {
	Config Config `json:"chartConfig"`
	Meta   Meta   `json:"data"`
}

// Synthesizer builds chart configurations from datasets.
type Synthesizer struct {
	DefaultMaxRows int
}

// NewSynthesizer returns a synthesizer with the 50 row cap.
func NewSynthesizer() Synthesizer {
	return Synthesizer{DefaultMaxRows: DefaultMaxRows}
}

// Synthesize caps the rows, drops non-numeric Y values and builds the config.
// The cap is applied before filtering, so fewer than MaxRows points may remain.
func (s Synthesizer) Synthesize(ds tabular.Dataset, req Request) (Result, error) {
	chartType := strings.ToLower(strings.TrimSpace(req.ChartType))
	if chartType == "" {
		chartType = TypeBar
	}
	switch chartType {
	case TypeBar, TypeLine, TypeScatter, TypePie:
	default:
		return Result{}, fmt.Errorf("%w: %s", ErrUnsupportedChartType, req.ChartType)
	}

	xCol, yCol := req.XColumn, req.YColumn
	if xCol == "" && len(ds.Columns) > 0 {
		xCol = ds.Columns[0]
	}
	if yCol == "" && len(ds.Columns) > 1 {
		yCol = ds.Columns[1]
	}
	for _, col := range []string{xCol, yCol} {
		if col == "" || !ds.HasColumn(col) {
			return Result{}, &UnknownColumnError{Column: col, Available: append([]string(nil), ds.Columns...)}
		}
	}

	maxRows := req.MaxRows
	if maxRows <= 0 {
		maxRows = s.DefaultMaxRows
	}
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}

	type point struct {
		x any
		y float64
	}
	var points []point
	for _, rec := range ds.Head(maxRows) {
		y, ok := tabular.AsNumber(rec[yCol])
		if !ok {
			continue
		}
		points = append(points, point{x: rec[xCol], y: y})
	}
	if len(points) == 0 {
		return Result{}, &NoNumericDataError{Column: yCol}
	}

	cfg := Config{Type: chartType}
	if chartType == TypePie {
		order := []string{}
		sums := map[string]float64{}
		for _, p := range points {
			label := xLabel(p.x)
			if _, seen := sums[label]; !seen {
				order = append(order, label)
			}
			sums[label] += p.y
		}
		data := make([]any, len(order))
		colors := make([]string, len(order))
		for i, label := range order {
			data[i] = sums[label]
			colors[i] = piePalette[i%len(piePalette)]
		}
		cfg.Labels = order
		cfg.Datasets = []Dataset{{
			Data:            data,
			BackgroundColor: colors,
			BorderColor:     "rgba(255, 255, 255, 0.2)",
			BorderWidth:     2,
		}}
	} else {
		labels := make([]string, len(points))
		data := make([]any, len(points))
		for i, p := range points {
			labels[i] = xLabel(p.x)
			data[i] = p.y
		}
		series := Dataset{
			Label:           yCol,
			Data:            data,
			BackgroundColor: "rgba(147, 51, 234, 0.2)",
			BorderColor:     "rgba(147, 51, 234, 1)",
			BorderWidth:     2,
		}
		fill := chartType == TypeLine
		series.Fill = &fill
		switch chartType {
		case TypeLine:
			tension := 0.4
			series.Tension = &tension
		case TypeScatter:
			series.BackgroundColor = "rgba(147, 51, 234, 0.6)"
			series.PointBackgroundColor = "rgba(147, 51, 234, 1)"
			series.PointBorderColor = "#ffffff"
			series.PointRadius = 6
		}
		cfg.Labels = labels
		cfg.Datasets = []Dataset{series}
	}

	return Result{
		Config: cfg,
		Meta: Meta{
			TotalRows:     ds.Len(),
			DisplayedRows: len(points),
			XColumn:       xCol,
			YColumn:       yCol,
			ChartType:     chartType,
			MaxRows:       maxRows,
		},
	}, nil
}

func xLabel(v any) string {
	if label := tabular.Label(v); label != "" {
		return label
	}
	return "Unknown"
}
