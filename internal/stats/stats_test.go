package stats

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"testing"

	"sheetinsight-backend/internal/tabular"
)

func column(name string, values ...any) tabular.Dataset {
	ds := tabular.Dataset{Columns: []string{name}}
	for _, v := range values {
		ds.Records = append(ds.Records, tabular.Record{name: v})
	}
	return ds
}

func TestAnalyzeNonNumericDataset(t *testing.T) {
	ds := tabular.Dataset{
		Columns: []string{"city", "note"},
		Records: []tabular.Record{
			{"city": "Oslo", "note": ""},
			{"city": "Lima", "note": "12"},
		},
	}
	rep := DefaultEngine().Analyze("cities.csv", ds)
	if len(rep.Statistics) != 0 {
		t.Fatalf("expected empty statistics, got %v", rep.Statistics)
	}
	if len(rep.Trends) != 0 || len(rep.Anomalies) != 0 {
		t.Fatalf("expected no trends or anomalies, got %v %v", rep.Trends, rep.Anomalies)
	}
	if !strings.Contains(rep.Summary, "0% numeric columns") {
		t.Fatalf("unexpected summary %q", rep.Summary)
	}
}

func TestAnalyzeTrend(t *testing.T) {
	rep := DefaultEngine().Analyze("sales.xlsx", column("revenue", 10.0, 20.0, 30.0))
	cs := rep.Statistics["revenue"]
	if cs.Count != 3 || cs.Min != 10 || cs.Max != 30 || cs.Mean != 20 || cs.Total != 60 {
		t.Fatalf("unexpected stats %+v", cs)
	}
	if len(rep.Trends) != 1 || rep.Trends[0] != "revenue shows a positive trend of 20.00" {
		t.Fatalf("unexpected trends %v", rep.Trends)
	}
	if rep.Recommendations[0] != "Consider investigating the identified trends for business insights" {
		t.Fatalf("unexpected recommendations %v", rep.Recommendations)
	}
}

func TestAnalyzeNegativeTrend(t *testing.T) {
	rep := DefaultEngine().Analyze("x", column("stock", 50.0, 40.0, 10.0))
	if len(rep.Trends) != 1 || rep.Trends[0] != "stock shows a negative trend of 40.00" {
		t.Fatalf("unexpected trends %v", rep.Trends)
	}
}

func TestAnalyzeNoTrendWithinRatio(t *testing.T) {
	rep := DefaultEngine().Analyze("x", column("flat", 100.0, 50.0, 105.0))
	if len(rep.Trends) != 0 {
		t.Fatalf("expected no trend, got %v", rep.Trends)
	}
}

func TestAnalyzeOutliersAgainstComputedSigma(t *testing.T) {
	values := []float64{1, 1, 1, 1, 100}
	raw := make([]any, len(values))
	for i, v := range values {
		raw[i] = v
	}
	engine := DefaultEngine()
	rep := engine.Analyze("x", column("v", raw...))
	cs := rep.Statistics["v"]

	if math.Abs(cs.Mean-20.8) > 1e-9 {
		t.Fatalf("expected mean 20.8, got %v", cs.Mean)
	}
	if math.Abs(cs.StdDev-39.6) > 1e-9 {
		t.Fatalf("expected sigma 39.6, got %v", cs.StdDev)
	}

	want := 0
	for _, v := range values {
		if math.Abs(v-cs.Mean) > engine.OutlierSigma*cs.StdDev {
			want++
		}
	}
	if want == 0 {
		if len(rep.Anomalies) != 0 {
			t.Fatalf("expected no anomalies, got %v", rep.Anomalies)
		}
	} else {
		if len(rep.Anomalies) != 1 || rep.Anomalies[0] != fmt.Sprintf("Found %d outliers in v column", want) {
			t.Fatalf("unexpected anomalies %v (want %d outliers)", rep.Anomalies, want)
		}
	}
}

func TestAnalyzeClearOutlier(t *testing.T) {
	raw := []any{}
	for i := 0; i < 20; i++ {
		raw = append(raw, 10.0)
	}
	raw = append(raw, 500.0)
	rep := DefaultEngine().Analyze("x", column("latency", raw...))
	if len(rep.Anomalies) != 1 || rep.Anomalies[0] != "Found 1 outliers in latency column" {
		t.Fatalf("unexpected anomalies %v", rep.Anomalies)
	}
	if !contains(rep.Recommendations, "Review outliers to ensure data quality and identify potential issues") {
		t.Fatalf("expected outlier recommendation, got %v", rep.Recommendations)
	}
}

func TestAnalyzeDataQualityAndSampling(t *testing.T) {
	ds := tabular.Dataset{Columns: []string{"n", "label"}}
	for i := 0; i < 101; i++ {
		ds.Records = append(ds.Records, tabular.Record{"n": 5.0, "label": "a"})
	}
	rep := DefaultEngine().Analyze("big.csv", ds)
	if !contains(rep.Recommendations, "Large dataset detected - consider using sampling for faster analysis") {
		t.Fatalf("expected sampling recommendation, got %v", rep.Recommendations)
	}
	wantQuality := []string{
		"Dataset contains 101 rows and 2 columns",
		"1 columns contain numeric data suitable for analysis",
	}
	if len(rep.DataQuality) != 2 || rep.DataQuality[0] != wantQuality[0] || rep.DataQuality[1] != wantQuality[1] {
		t.Fatalf("unexpected data quality %v", rep.DataQuality)
	}
	want := "Analysis of big.csv reveals 0 significant trends, 0 data anomalies, and 1 numeric columns. The dataset contains 101 records with 50% numeric columns."
	if rep.Summary != want {
		t.Fatalf("summary = %q", rep.Summary)
	}
}

func TestAnalyzeSmallDatasetNote(t *testing.T) {
	rep := DefaultEngine().Analyze("x", column("a", 1.0, 2.0))
	if rep.DataQuality[len(rep.DataQuality)-1] != "Small dataset - consider collecting more data for better insights" {
		t.Fatalf("expected small dataset note, got %v", rep.DataQuality)
	}
}

func TestNumericTextIsNotCounted(t *testing.T) {
	rep := DefaultEngine().Analyze("x", column("mixed", 4.0, "8", "", nil, 6.0))
	if rep.Statistics["mixed"].Count != 2 {
		t.Fatalf("expected 2 numeric values, got %+v", rep.Statistics["mixed"])
	}
}

func TestColumnStatsJSON(t *testing.T) {
	data, err := json.Marshal(ColumnStats{Count: 3, Min: 1, Max: 2, Mean: 1.333333, Total: 4})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"count":3,"min":1,"max":2,"mean":"1.33","total":"4.00"}` {
		t.Fatalf("unexpected json %s", data)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
