package llm

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"strings"
	"text/template"
)

var (
	//go:embed prompts/insights.tmpl
	insightsTemplateText string
	//go:embed prompts/chart.tmpl
	chartTemplateText string

	insightsTemplate = template.Must(template.New("insights").Parse(insightsTemplateText))
	chartTemplate    = template.Must(template.New("chart").Parse(chartTemplateText))
)

// Prompt defaults.
const (
	DefaultFocus   = "general trends and patterns"
	DefaultContext = "business data analysis"
	DefaultType    = "general visualization"
	DefaultMetrics = "all available metrics"
)

// InsightsPrompt renders the narrative-insight prompt for the given records.
func InsightsPrompt(records any, focus, context string) (string, error) {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	err = insightsTemplate.Execute(&buf, map[string]string{
		"Data":    string(data),
		"Focus":   orDefault(focus, DefaultFocus),
		"Context": orDefault(context, DefaultContext),
	})
	return buf.String(), err
}

// ChartPrompt renders the chart-recommendation prompt for the given records.
func ChartPrompt(records any, chartType, metrics string) (string, error) {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	err = chartTemplate.Execute(&buf, map[string]string{
		"Data":    string(data),
		"Type":    orDefault(chartType, DefaultType),
		"Metrics": orDefault(metrics, DefaultMetrics),
	})
	return buf.String(), err
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
