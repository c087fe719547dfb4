package insights

import (
	"context"
	"errors"
	"strings"
	"testing"

	"sheetinsight-backend/internal/llm"
	"sheetinsight-backend/internal/stats"
	"sheetinsight-backend/internal/tabular"
)

type stubLLM struct {
	reply   string
	err     error
	prompts []string
}

func (s *stubLLM) Complete(ctx context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	return s.reply, s.err
}

func testDataset(t *testing.T, rows int) tabular.Dataset {
	t.Helper()
	raw := [][]string{{"Month", "Sales"}}
	for i := 0; i < rows; i++ {
		raw = append(raw, []string{"M", "10"})
	}
	ds, err := tabular.Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	return ds
}

func TestNarrativeParsesReply(t *testing.T) {
	stub := &stubLLM{reply: "Key trends and patterns\nSales are flat."}
	c := NewComposer(stats.DefaultEngine(), stub)

	got, err := c.Narrative(context.Background(), testDataset(t, 3), InsightOptions{Focus: "seasonality"})
	if err != nil {
		t.Fatalf("Narrative: %v", err)
	}
	if len(got.Trends) != 1 || got.Trends[0].Text != "Sales are flat." {
		t.Fatalf("unexpected insights %+v", got)
	}
	if len(stub.prompts) != 1 || !strings.Contains(stub.prompts[0], "Focus areas: seasonality") {
		t.Fatalf("unexpected prompt %v", stub.prompts)
	}
	if !strings.Contains(stub.prompts[0], llm.DefaultContext) {
		t.Fatalf("expected default context in prompt")
	}
}

func TestNarrativeWrapsUpstreamError(t *testing.T) {
	stub := &stubLLM{err: errors.New("quota exceeded")}
	c := NewComposer(stats.DefaultEngine(), stub)

	_, err := c.Narrative(context.Background(), testDataset(t, 2), InsightOptions{})
	if !errors.Is(err, ErrInsightGenerationFailed) {
		t.Fatalf("expected ErrInsightGenerationFailed, got %v", err)
	}
	var genErr *GenerationError
	if !errors.As(err, &genErr) || genErr.Error() != "quota exceeded" {
		t.Fatalf("expected upstream message, got %v", err)
	}
	if len(stub.prompts) != 1 {
		t.Fatalf("expected exactly one attempt, got %d", len(stub.prompts))
	}
}

func TestChartAdviceDisabledProvider(t *testing.T) {
	c := NewComposer(stats.DefaultEngine(), nil)
	if c.Available() {
		t.Fatalf("expected composer without provider to be unavailable")
	}
	_, err := c.ChartAdvice(context.Background(), testDataset(t, 2), ChartOptions{})
	if !errors.Is(err, ErrInsightGenerationFailed) || !errors.Is(err, llm.ErrNotConfigured) {
		t.Fatalf("expected wrapped ErrNotConfigured, got %v", err)
	}
}

func TestPromptSampleIsCapped(t *testing.T) {
	stub := &stubLLM{reply: "Recommended chart type: bar"}
	c := NewComposer(stats.DefaultEngine(), stub)
	c.PromptRows = 2

	got, err := c.ChartAdvice(context.Background(), testDataset(t, 5), ChartOptions{Type: "comparison"})
	if err != nil {
		t.Fatalf("ChartAdvice: %v", err)
	}
	if got.ChartType != "bar" {
		t.Fatalf("unexpected chart type %q", got.ChartType)
	}
	if n := strings.Count(stub.prompts[0], `"Month"`); n != 2 {
		t.Fatalf("expected 2 records in prompt, got %d", n)
	}
}

func TestLocalUsesEngine(t *testing.T) {
	c := NewComposer(stats.DefaultEngine(), nil)
	report := c.Local("sales.csv", testDataset(t, 3))
	if _, ok := report.Statistics["Sales"]; !ok {
		t.Fatalf("expected Sales statistics, got %+v", report.Statistics)
	}
}
