package insights

// Importance levels assigned to parsed insight items.
const (
	ImportanceHigh   = "high"
	ImportanceMedium = "medium"
	ImportanceLow    = "low"
)

// Item is one section of generated narrative.
type Item struct {
	Text       string `json:"text"`
	Importance string `json:"importance"`
}

// Insights groups generated narrative by section.
type Insights struct {
	Trends          []Item `json:"trends"`
	Insights        []Item `json:"insights"`
	Recommendations []Item `json:"recommendations"`
	DataQuality     []Item `json:"dataQuality"`
}

// Axis describes one recommended chart axis.
type Axis struct {
	Label string `json:"label,omitempty"`
	Scale string `json:"scale,omitempty"`
	Range string `json:"range,omitempty"`
}

// AxisConfig holds the recommended x and y axes.
type AxisConfig struct {
	X Axis `json:"x"`
	Y Axis `json:"y"`
}

// ChartRecommendations is the structured form of a chart-advice reply.
type ChartRecommendations struct {
	ChartType      string     `json:"chartType"`
	DataSeries     []string   `json:"dataSeries"`
	AxisConfig     AxisConfig `json:"axisConfig"`
	VisualElements []string   `json:"visualElements"`
}

// InsightOptions parameterizes the narrative prompt.
type InsightOptions struct {
	Focus   string `json:"focus,omitempty"`
	Context string `json:"context,omitempty"`
}

// ChartOptions parameterizes the chart-advice prompt.
type ChartOptions struct {
	Type    string `json:"type,omitempty"`
	Metrics string `json:"metrics,omitempty"`
}

func newInsights() Insights {
	return Insights{
		Trends:          []Item{},
		Insights:        []Item{},
		Recommendations: []Item{},
		DataQuality:     []Item{},
	}
}
