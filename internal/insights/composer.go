package insights

import (
	"context"

	"sheetinsight-backend/internal/llm"
	"sheetinsight-backend/internal/shared/telemetry"
	"sheetinsight-backend/internal/stats"
	"sheetinsight-backend/internal/tabular"
)

// DefaultPromptRows caps how many records are embedded in a prompt.
const DefaultPromptRows = 200

// Composer produces local statistics reports and LLM-backed narratives.
type Composer struct {
	Engine     stats.Engine
	LLM        llm.Client
	Parser     TextParser
	PromptRows int
}

// NewComposer returns a Composer using the marker parser.
func NewComposer(engine stats.Engine, client llm.Client) *Composer {
	if client == nil {
		client = llm.Disabled{}
	}
	return &Composer{Engine: engine, LLM: client, Parser: MarkerParser{}, PromptRows: DefaultPromptRows}
}

// Local returns the locally computed statistics report.
func (c *Composer) Local(name string, ds tabular.Dataset) stats.Report {
	return c.Engine.Analyze(name, ds)
}

// Narrative asks the text-generation service for structured insights.
func (c *Composer) Narrative(ctx context.Context, ds tabular.Dataset, opts InsightOptions) (Insights, error) {
	prompt, err := llm.InsightsPrompt(c.sample(ds), opts.Focus, opts.Context)
	if err != nil {
		return Insights{}, err
	}
	text, err := c.complete(ctx, prompt, "insights")
	if err != nil {
		return Insights{}, err
	}
	return c.parser().ParseInsights(text), nil
}

// ChartAdvice asks the text-generation service for a chart recommendation.
func (c *Composer) ChartAdvice(ctx context.Context, ds tabular.Dataset, opts ChartOptions) (ChartRecommendations, error) {
	prompt, err := llm.ChartPrompt(c.sample(ds), opts.Type, opts.Metrics)
	if err != nil {
		return ChartRecommendations{}, err
	}
	text, err := c.complete(ctx, prompt, "chart")
	if err != nil {
		return ChartRecommendations{}, err
	}
	return c.parser().ParseChartRecommendations(text), nil
}

// Available reports whether a text-generation provider is configured.
func (c *Composer) Available() bool {
	return llm.Enabled(c.LLM)
}

func (c *Composer) complete(ctx context.Context, prompt, kind string) (string, error) {
	client := c.LLM
	if client == nil {
		client = llm.Disabled{}
	}
	text, err := client.Complete(ctx, prompt)
	if err != nil {
		telemetry.FromContext(ctx).Error("insights.generation_failed", map[string]any{
			"kind":  kind,
			"error": err.Error(),
		})
		return "", &GenerationError{Err: err}
	}
	return text, nil
}

func (c *Composer) parser() TextParser {
	if c.Parser == nil {
		return MarkerParser{}
	}
	return c.Parser
}

func (c *Composer) sample(ds tabular.Dataset) []tabular.Record {
	n := c.PromptRows
	if n <= 0 {
		n = DefaultPromptRows
	}
	return ds.Head(n)
}
