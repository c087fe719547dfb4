package analyses

import (
	"encoding/json"
	"time"
)

// Analysis types.
const (
	TypeChart   = "chart"
	TypeReport  = "report"
	TypeInsight = "insight"
)

// Statuses. An analysis leaves processing exactly once.
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

// Analysis is a derived artifact computed from one uploaded file.
type Analysis struct {
	ID           string          `json:"id"`
	UserID       string          `json:"userId"`
	FileID       string          `json:"fileId"`
	Name         string          `json:"name"`
	Type         string          `json:"type"`
	Config       json.RawMessage `json:"config,omitempty"`
	ChartConfig  json.RawMessage `json:"chartConfig,omitempty"`
	Results      json.RawMessage `json:"results,omitempty"`
	Status       string          `json:"status"`
	ErrorCode    string          `json:"errorCode,omitempty"`
	ErrorMessage string          `json:"errorMessage,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
	StartedAt    *time.Time      `json:"startedAt,omitempty"`
	CompletedAt  *time.Time      `json:"completedAt,omitempty"`
}

// Options is the decoded form of Analysis.Config.
type Options struct {
	ChartType string `json:"chartType,omitempty"`
	XColumn   string `json:"xColumn,omitempty"`
	YColumn   string `json:"yColumn,omitempty"`
	MaxRows   int    `json:"maxRows,omitempty"`
	Focus     string `json:"focus,omitempty"`
	Context   string `json:"context,omitempty"`
	Type      string `json:"type,omitempty"`
	Metrics   string `json:"metrics,omitempty"`
}

// Terminal is the single update that moves an analysis out of processing.
type Terminal struct {
	Status       string
	Results      json.RawMessage
	ChartConfig  json.RawMessage
	ErrorCode    string
	ErrorMessage string
	CompletedAt  time.Time
}

func validType(t string) bool {
	switch t {
	case TypeChart, TypeReport, TypeInsight:
		return true
	}
	return false
}

func decodeOptions(raw json.RawMessage) (Options, error) {
	var opts Options
	if len(raw) == 0 || string(raw) == "null" {
		return opts, nil
	}
	err := json.Unmarshal(raw, &opts)
	return opts, err
}
