package insights

import "strings"

// TextParser turns free-text replies into structured results.
type TextParser interface {
	ParseInsights(text string) Insights
	ParseChartRecommendations(text string) ChartRecommendations
}

// MarkerParser buckets blank-line separated sections by marker phrases.
// It never fails; unexpected input yields empty or partial buckets.
type MarkerParser struct{}

var insightMarkers = []struct {
	phrase string
	bucket int
}{
	{"Key trends and patterns", bucketTrends},
	{"Notable insights", bucketInsights},
	{"Potential recommendations", bucketRecommendations},
	{"Data quality observations", bucketDataQuality},
}

const (
	bucketNone = iota
	bucketTrends
	bucketInsights
	bucketRecommendations
	bucketDataQuality
)

var importanceKeywords = []struct {
	level    string
	keywords []string
}{
	{ImportanceHigh, []string{"critical", "significant", "major", "important", "crucial"}},
	{ImportanceMedium, []string{"notable", "considerable", "moderate"}},
	{ImportanceLow, []string{"minor", "slight", "small"}},
}

// Importance returns the first level whose keywords appear in text.
func Importance(text string) string {
	lower := strings.ToLower(text)
	for _, lvl := range importanceKeywords {
		for _, kw := range lvl.keywords {
			if strings.Contains(lower, kw) {
				return lvl.level
			}
		}
	}
	return ImportanceMedium
}

func (MarkerParser) ParseInsights(text string) Insights {
	out := newInsights()
	current := bucketNone
	for _, section := range splitSections(text) {
		body := section
		if marker, rest, ok := findMarker(section); ok {
			current = marker
			body = rest
		}
		body = strings.TrimSpace(body)
		if current == bucketNone || body == "" {
			continue
		}
		item := Item{Text: body, Importance: Importance(body)}
		switch current {
		case bucketTrends:
			out.Trends = append(out.Trends, item)
		case bucketInsights:
			out.Insights = append(out.Insights, item)
		case bucketRecommendations:
			out.Recommendations = append(out.Recommendations, item)
		case bucketDataQuality:
			out.DataQuality = append(out.DataQuality, item)
		}
	}
	return out
}

// findMarker reports the bucket named in section and the lines that follow
// the marker line.
func findMarker(section string) (int, string, bool) {
	lines := strings.Split(section, "\n")
	for i, line := range lines {
		for _, m := range insightMarkers {
			if strings.Contains(line, m.phrase) {
				return m.bucket, strings.Join(lines[i+1:], "\n"), true
			}
		}
	}
	return bucketNone, "", false
}

func (MarkerParser) ParseChartRecommendations(text string) ChartRecommendations {
	out := ChartRecommendations{DataSeries: []string{}, VisualElements: []string{}}
	for _, section := range splitSections(text) {
		switch {
		case strings.Contains(section, "Recommended chart type"):
			out.ChartType = firstLine(afterColon(section))
		case strings.Contains(section, "Data series"):
			out.DataSeries = listItems(afterColon(section))
		case strings.Contains(section, "Axis configurations"):
			out.AxisConfig = parseAxisConfig(section)
		case strings.Contains(section, "Additional visual elements"):
			out.VisualElements = listItems(afterColon(section))
		}
	}
	return out
}

func parseAxisConfig(section string) AxisConfig {
	var cfg AxisConfig
	for _, line := range strings.Split(section, "\n") {
		switch {
		case strings.Contains(line, "X-axis"):
			cfg.X = parseAxisLine(line)
		case strings.Contains(line, "Y-axis"):
			cfg.Y = parseAxisLine(line)
		}
	}
	return cfg
}

func parseAxisLine(line string) Axis {
	parts := strings.Split(afterColon(line), ",")
	axis := Axis{Label: strings.TrimSpace(parts[0]), Scale: "linear", Range: "auto"}
	if len(parts) > 1 {
		if s := strings.TrimSpace(parts[1]); s != "" {
			axis.Scale = s
		}
	}
	if len(parts) > 2 {
		if r := strings.TrimSpace(strings.Join(parts[2:], ",")); r != "" {
			axis.Range = r
		}
	}
	return axis
}

func splitSections(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.Split(text, "\n\n")
}

func afterColon(s string) string {
	if i := strings.Index(s, ":"); i >= 0 {
		return s[i+1:]
	}
	return ""
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "\n"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(strings.Trim(s, "*"))
}

func listItems(s string) []string {
	items := []string{}
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimSpace(strings.TrimLeft(line, "-*•"))
		if line != "" {
			items = append(items, line)
		}
	}
	return items
}

var _ TextParser = MarkerParser{}
