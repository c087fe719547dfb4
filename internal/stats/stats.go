package stats

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"sheetinsight-backend/internal/tabular"
)

// Engine computes descriptive statistics with configurable thresholds.
type Engine struct {
	OutlierSigma          float64
	TrendRatio            float64
	SamplingThreshold     int
	SmallDatasetThreshold int
}

// DefaultEngine returns the 2σ / 10% / 100 rows / 10 rows configuration.
func DefaultEngine() Engine {
	return Engine{OutlierSigma: 2, TrendRatio: 0.1, SamplingThreshold: 100, SmallDatasetThreshold: 10}
}

// ColumnStats summarises the numeric values of one column.
type ColumnStats struct {
	Count  int
	Min    float64
	Max    float64
	Mean   float64
	Total  float64
	StdDev float64
}

// MarshalJSON renders mean and total as 2-decimal strings.
func (c ColumnStats) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Count int     `json:"count"`
		Min   float64 `json:"min"`
		Max   float64 `json:"max"`
		Mean  string  `json:"mean"`
		Total string  `json:"total"`
	}{
		Count: c.Count,
		Min:   c.Min,
		Max:   c.Max,
		Mean:  fixed2(c.Mean),
		Total: fixed2(c.Total),
	})
}

// UnmarshalJSON accepts the MarshalJSON shape.
func (c *ColumnStats) UnmarshalJSON(data []byte) error {
	var raw struct {
		Count int     `json:"count"`
		Min   float64 `json:"min"`
		Max   float64 `json:"max"`
		Mean  string  `json:"mean"`
		Total string  `json:"total"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.Count, c.Min, c.Max = raw.Count, raw.Min, raw.Max
	c.Mean, _ = strconv.ParseFloat(raw.Mean, 64)
	c.Total, _ = strconv.ParseFloat(raw.Total, 64)
	return nil
}

// Report is the locally computed insight set.
type Report struct {
	Summary         string                 `json:"summary"`
	Trends          []string               `json:"trends"`
	Anomalies       []string               `json:"anomalies"`
	Recommendations []string               `json:"recommendations"`
	DataQuality     []string               `json:"dataQuality"`
	Statistics      map[string]ColumnStats `json:"statistics"`
	NumericColumns  []string               `json:"-"`
}

// Analyze computes statistics, trends, anomalies, recommendations and data
// quality notes for ds, column by column in column order.
func (e Engine) Analyze(name string, ds tabular.Dataset) Report {
	rep := Report{
		Trends:          []string{},
		Anomalies:       []string{},
		Recommendations: []string{},
		DataQuality:     []string{},
		Statistics:      map[string]ColumnStats{},
	}

	for _, col := range ds.Columns {
		values := numericValues(ds, col)
		if len(values) == 0 {
			continue
		}
		cs := e.Column(values)
		rep.Statistics[col] = cs
		rep.NumericColumns = append(rep.NumericColumns, col)

		if len(values) > 1 {
			first, last := values[0], values[len(values)-1]
			delta := last - first
			if math.Abs(delta) > e.TrendRatio*cs.Mean {
				direction := "negative"
				if last > first {
					direction = "positive"
				}
				rep.Trends = append(rep.Trends, fmt.Sprintf("%s shows a %s trend of %s", col, direction, fixed2(math.Abs(delta))))
			}
		}

		if n := e.countOutliers(values, cs); n > 0 {
			rep.Anomalies = append(rep.Anomalies, fmt.Sprintf("Found %d outliers in %s column", n, col))
		}
	}

	rows := ds.Len()
	if len(rep.Trends) > 0 {
		rep.Recommendations = append(rep.Recommendations, "Consider investigating the identified trends for business insights")
	}
	if len(rep.Anomalies) > 0 {
		rep.Recommendations = append(rep.Recommendations, "Review outliers to ensure data quality and identify potential issues")
	}
	if rows > e.SamplingThreshold {
		rep.Recommendations = append(rep.Recommendations, "Large dataset detected - consider using sampling for faster analysis")
	}

	rep.DataQuality = append(rep.DataQuality,
		fmt.Sprintf("Dataset contains %d rows and %d columns", rows, len(ds.Columns)),
		fmt.Sprintf("%d columns contain numeric data suitable for analysis", len(rep.NumericColumns)),
	)
	if rows < e.SmallDatasetThreshold {
		rep.DataQuality = append(rep.DataQuality, "Small dataset - consider collecting more data for better insights")
	}

	pct := 0
	if len(ds.Columns) > 0 {
		pct = int(math.Round(float64(len(rep.NumericColumns)) / float64(len(ds.Columns)) * 100))
	}
	rep.Summary = fmt.Sprintf(
		"Analysis of %s reveals %d significant trends, %d data anomalies, and %d numeric columns. The dataset contains %d records with %d%% numeric columns.",
		name, len(rep.Trends), len(rep.Anomalies), len(rep.NumericColumns), rows, pct,
	)
	return rep
}

// Column computes count, min, max, mean, sum and population σ of values.
func (e Engine) Column(values []float64) ColumnStats {
	if len(values) == 0 {
		return ColumnStats{}
	}
	mean, variance := stat.PopMeanVariance(values, nil)
	return ColumnStats{
		Count:  len(values),
		Min:    floats.Min(values),
		Max:    floats.Max(values),
		Mean:   mean,
		Total:  floats.Sum(values),
		StdDev: math.Sqrt(variance),
	}
}

// IsOutlier reports whether v lies more than OutlierSigma σ from the mean.
func (e Engine) IsOutlier(v float64, cs ColumnStats) bool {
	return math.Abs(v-cs.Mean) > e.OutlierSigma*cs.StdDev
}

func (e Engine) countOutliers(values []float64, cs ColumnStats) int {
	n := 0
	for _, v := range values {
		if e.IsOutlier(v, cs) {
			n++
		}
	}
	return n
}

// numericValues keeps values held as numbers; numeric-looking text is not counted.
func numericValues(ds tabular.Dataset, col string) []float64 {
	var out []float64
	for _, rec := range ds.Records {
		v := rec[col]
		if !tabular.IsNumberKind(v) {
			continue
		}
		f, _ := tabular.AsNumber(v)
		out = append(out, f)
	}
	return out
}

func fixed2(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
