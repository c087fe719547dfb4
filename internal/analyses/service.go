package analyses

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"sheetinsight-backend/internal/charts"
	"sheetinsight-backend/internal/files"
	"sheetinsight-backend/internal/history"
	"sheetinsight-backend/internal/insights"
	"sheetinsight-backend/internal/queue"
	"sheetinsight-backend/internal/shared/metrics"
	"sheetinsight-backend/internal/shared/telemetry"
	"sheetinsight-backend/internal/stats"
)

// DefaultResumeLimit bounds how many pending analyses are re-enqueued at startup.
const DefaultResumeLimit = 500

// FileSource loads uploaded files scoped to their owner.
type FileSource interface {
	Get(ctx context.Context, userID, fileID string) (files.File, error)
	List(ctx context.Context, userID string) ([]files.File, error)
}

// Service coordinates analysis lifecycle and processing.
type Service struct {
	Repo     Repo
	Files    FileSource
	Charts   charts.Synthesizer
	Composer *insights.Composer
	Queue    queue.Client
	History  *history.Service
	Now      func() time.Time
}

// CreateInput is the body of an analysis creation request.
type CreateInput struct {
	Name   string
	Type   string
	FileID string
	Config json.RawMessage
}

// UpdateInput carries the user-editable fields of an analysis.
type UpdateInput struct {
	Name   string
	Config json.RawMessage
}

// ChartResults is stored on chart analyses.
type ChartResults struct {
	Data            charts.Meta                    `json:"data"`
	Recommendations *insights.ChartRecommendations `json:"recommendations,omitempty"`
}

// InsightResults is stored on insight analyses.
type InsightResults struct {
	stats.Report
	Insights insights.Insights `json:"insights"`
}

// Create validates the request, stores a processing analysis and enqueues it.
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (Analysis, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Analysis{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if !validType(in.Type) {
		return Analysis{}, fmt.Errorf("%w: type must be one of chart, report, insight", ErrInvalidInput)
	}
	if strings.TrimSpace(in.FileID) == "" {
		return Analysis{}, fmt.Errorf("%w: excelFileId is required", ErrInvalidInput)
	}
	if _, err := decodeOptions(in.Config); err != nil {
		return Analysis{}, fmt.Errorf("%w: config: %v", ErrInvalidInput, err)
	}
	if _, err := s.loadFile(ctx, userID, in.FileID); err != nil {
		return Analysis{}, err
	}

	now := s.now()
	a := Analysis{
		ID:        uuid.NewString(),
		UserID:    userID,
		FileID:    in.FileID,
		Name:      name,
		Type:      in.Type,
		Config:    in.Config,
		Status:    StatusProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Repo.Create(ctx, a); err != nil {
		return Analysis{}, err
	}
	s.History.Record(ctx, history.Record{
		UserID:       userID,
		Action:       history.ActionCreate,
		ResourceType: history.ResourceAnalysis,
		ResourceID:   a.ID,
		Details:      fmt.Sprintf("Created %s analysis: %s", a.Type, a.Name),
	})
	telemetry.Info("analysis.status", map[string]any{
		"request_id":        RequestIDFromContext(ctx),
		"user_id":           userID,
		"file_id":           a.FileID,
		"analysis_id":       a.ID,
		"status":            StatusProcessing,
		"status_transition": "none->queued",
	})

	if err := s.enqueue(ctx, a.ID); err != nil {
		s.failAnalysis(ctx, a, fmt.Errorf("%w: %v", ErrEnqueue, err), nil)
		return Analysis{}, fmt.Errorf("%w: %v", ErrEnqueue, err)
	}
	return a, nil
}

// Get returns an analysis owned by userID.
func (s *Service) Get(ctx context.Context, userID, id string) (Analysis, error) {
	return s.Repo.GetForUser(ctx, userID, id)
}

// List returns the user's analyses, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]Analysis, error) {
	return s.Repo.ListByUser(ctx, userID)
}

// ListSince returns analyses across all users created at or after since.
func (s *Service) ListSince(ctx context.Context, since time.Time) ([]Analysis, error) {
	return s.Repo.ListSince(ctx, since)
}

// Update changes the name or config. Owner, file and status are not editable.
func (s *Service) Update(ctx context.Context, userID, id string, in UpdateInput) (Analysis, error) {
	if len(in.Config) > 0 {
		if _, err := decodeOptions(in.Config); err != nil {
			return Analysis{}, fmt.Errorf("%w: config: %v", ErrInvalidInput, err)
		}
	}
	a, err := s.Repo.UpdateDetails(ctx, userID, id, strings.TrimSpace(in.Name), in.Config, s.now())
	if err != nil {
		return Analysis{}, err
	}
	s.History.Record(ctx, history.Record{
		UserID:       userID,
		Action:       history.ActionUpdate,
		ResourceType: history.ResourceAnalysis,
		ResourceID:   a.ID,
		Details:      fmt.Sprintf("Updated analysis: %s", a.Name),
	})
	return a, nil
}

// Delete removes one analysis.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	a, err := s.Repo.GetForUser(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, userID, id); err != nil {
		return err
	}
	s.History.Record(ctx, history.Record{
		UserID:       userID,
		Action:       history.ActionDelete,
		ResourceType: history.ResourceAnalysis,
		ResourceID:   id,
		Details:      fmt.Sprintf("Deleted analysis: %s", a.Name),
	})
	return nil
}

// DeleteByFile removes every analysis derived from a file.
func (s *Service) DeleteByFile(ctx context.Context, userID, fileID string) (int, error) {
	return s.Repo.DeleteByFile(ctx, userID, fileID)
}

// DeleteAllForUser removes every analysis owned by userID.
func (s *Service) DeleteAllForUser(ctx context.Context, userID string) (int, error) {
	return s.Repo.DeleteByUser(ctx, userID)
}

// ProcessAnalysis computes a queued analysis and records its single terminal
// state. Analyses that are no longer processing are skipped, so duplicate
// deliveries are harmless. The returned error is only for failures that
// could not be recorded on the analysis itself.
func (s *Service) ProcessAnalysis(ctx context.Context, analysisID string) error {
	a, err := s.Repo.GetByID(ctx, analysisID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			telemetry.Info("analysis.skipped", map[string]any{
				"request_id":  RequestIDFromContext(ctx),
				"analysis_id": analysisID,
				"reason":      "not_found",
			})
			return nil
		}
		return fmt.Errorf("analysis lookup: %w", err)
	}
	if a.Status != StatusProcessing {
		telemetry.Info("analysis.skipped", map[string]any{
			"request_id":  RequestIDFromContext(ctx),
			"analysis_id": a.ID,
			"status":      a.Status,
			"reason":      "already_terminal",
		})
		return nil
	}

	startedAt := s.now()
	if a.StartedAt != nil {
		startedAt = *a.StartedAt
	} else if err := s.Repo.MarkStarted(ctx, a.ID, startedAt); err != nil {
		return fmt.Errorf("mark started: %w", err)
	}
	metrics.IncAnalysisStarted()
	telemetry.Info("analysis.status", map[string]any{
		"request_id":        RequestIDFromContext(ctx),
		"user_id":           a.UserID,
		"file_id":           a.FileID,
		"analysis_id":       a.ID,
		"status":            StatusProcessing,
		"status_transition": "queued->processing",
	})

	results, chartConfig, err := s.computeSafely(ctx, a)
	if err != nil {
		return s.failAnalysis(ctx, a, err, &startedAt)
	}

	completedAt := s.now()
	applied, err := s.Repo.Finish(ctx, a.ID, Terminal{
		Status:      StatusCompleted,
		Results:     results,
		ChartConfig: chartConfig,
		CompletedAt: completedAt,
	})
	if err != nil {
		return fmt.Errorf("storage: set analysis result: %w", err)
	}
	if !applied {
		telemetry.Info("analysis.skipped", map[string]any{
			"request_id":  RequestIDFromContext(ctx),
			"analysis_id": a.ID,
			"reason":      "lost_race",
		})
		return nil
	}
	metrics.IncAnalysisCompleted()
	metrics.ObserveAnalysisDurationMs(durationMs(&startedAt, &completedAt))
	telemetry.Info("analysis.status", map[string]any{
		"request_id":        RequestIDFromContext(ctx),
		"user_id":           a.UserID,
		"file_id":           a.FileID,
		"analysis_id":       a.ID,
		"status":            StatusCompleted,
		"status_transition": "processing->completed",
		"duration_ms":       durationMs(&startedAt, &completedAt),
	})
	s.History.Record(ctx, history.Record{
		UserID:       a.UserID,
		Action:       history.ActionComplete,
		ResourceType: history.ResourceAnalysis,
		ResourceID:   a.ID,
		Details:      fmt.Sprintf("Completed %s analysis: %s", a.Type, a.Name),
	})
	return nil
}

// ResumePending re-enqueues analyses left in processing, typically after a restart.
func (s *Service) ResumePending(ctx context.Context) (int, error) {
	pending, err := s.Repo.ListPending(ctx, DefaultResumeLimit)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, a := range pending {
		if err := s.enqueue(ctx, a.ID); err != nil {
			telemetry.Error("analysis.resume_failed", map[string]any{
				"analysis_id": a.ID,
				"error":       err.Error(),
			})
			continue
		}
		n++
	}
	if n > 0 {
		telemetry.Info("analysis.resumed", map[string]any{"count": n})
	}
	return n, nil
}

// ChartInput is the body of a direct chart generation request.
type ChartInput struct {
	FileID    string `json:"fileId"`
	ChartType string `json:"chartType"`
	XColumn   string `json:"xColumn"`
	YColumn   string `json:"yColumn"`
	MaxRows   int    `json:"maxRows"`
}

// GenerateChart builds a chart for a file and persists it as a completed
// chart analysis.
func (s *Service) GenerateChart(ctx context.Context, userID string, in ChartInput) (Analysis, charts.Result, error) {
	if strings.TrimSpace(in.FileID) == "" {
		return Analysis{}, charts.Result{}, fmt.Errorf("%w: File ID is required", ErrInvalidInput)
	}
	f, err := s.loadFile(ctx, userID, in.FileID)
	if err != nil {
		return Analysis{}, charts.Result{}, err
	}
	res, err := s.Charts.Synthesize(f.Dataset(), charts.Request{
		ChartType: in.ChartType,
		XColumn:   in.XColumn,
		YColumn:   in.YColumn,
		MaxRows:   in.MaxRows,
	})
	if err != nil {
		return Analysis{}, charts.Result{}, err
	}

	config, err := json.Marshal(res.Meta)
	if err != nil {
		return Analysis{}, charts.Result{}, err
	}
	chartConfig, err := json.Marshal(res.Config)
	if err != nil {
		return Analysis{}, charts.Result{}, err
	}
	results, err := json.Marshal(ChartResults{Data: res.Meta})
	if err != nil {
		return Analysis{}, charts.Result{}, err
	}
	now := s.now()
	a := Analysis{
		ID:          uuid.NewString(),
		UserID:      userID,
		FileID:      f.ID,
		Name:        "Chart Analysis - " + f.OriginalName,
		Type:        TypeChart,
		Config:      config,
		ChartConfig: chartConfig,
		Results:     results,
		Status:      StatusCompleted,
		CreatedAt:   now,
		UpdatedAt:   now,
		StartedAt:   &now,
		CompletedAt: &now,
	}
	if err := s.Repo.Create(ctx, a); err != nil {
		return Analysis{}, charts.Result{}, fmt.Errorf("storage: create chart analysis: %w", err)
	}
	s.History.Record(ctx, history.Record{
		UserID:       userID,
		Action:       history.ActionCreate,
		ResourceType: history.ResourceAnalysis,
		ResourceID:   a.ID,
		Details:      fmt.Sprintf("Generated %s chart for %s", res.Meta.ChartType, f.OriginalName),
		Metadata: map[string]any{
			"xColumn":       res.Meta.XColumn,
			"yColumn":       res.Meta.YColumn,
			"displayedRows": res.Meta.DisplayedRows,
		},
	})
	return a, res, nil
}

// LatestChart returns the newest chart analysis for a file.
func (s *Service) LatestChart(ctx context.Context, userID, fileID string) (Analysis, error) {
	return s.Repo.LatestForFile(ctx, userID, fileID, TypeChart)
}

// GenerateInsights runs the narrative generation synchronously.
func (s *Service) GenerateInsights(ctx context.Context, userID, fileID string, opts insights.InsightOptions) (insights.Insights, error) {
	f, err := s.loadFile(ctx, userID, fileID)
	if err != nil {
		return insights.Insights{}, err
	}
	return s.Composer.Narrative(ctx, f.Dataset(), opts)
}

// GenerateChartAdvice runs the chart recommendation synchronously.
func (s *Service) GenerateChartAdvice(ctx context.Context, userID, fileID string, opts insights.ChartOptions) (insights.ChartRecommendations, error) {
	f, err := s.loadFile(ctx, userID, fileID)
	if err != nil {
		return insights.ChartRecommendations{}, err
	}
	return s.Composer.ChartAdvice(ctx, f.Dataset(), opts)
}

// Overview returns the user's files and analyses for the history view.
func (s *Service) Overview(ctx context.Context, userID string) ([]files.File, []Analysis, error) {
	fs, err := s.Files.List(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	as, err := s.Repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	return fs, as, nil
}

func (s *Service) computeSafely(ctx context.Context, a Analysis) (results, chartConfig json.RawMessage, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return s.compute(ctx, a)
}

func (s *Service) compute(ctx context.Context, a Analysis) (json.RawMessage, json.RawMessage, error) {
	opts, err := decodeOptions(a.Config)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: config: %v", ErrInvalidInput, err)
	}
	f, err := s.loadFile(ctx, a.UserID, a.FileID)
	if err != nil {
		return nil, nil, err
	}
	ds := f.Dataset()

	switch a.Type {
	case TypeChart:
		res, err := s.Charts.Synthesize(ds, charts.Request{
			ChartType: opts.ChartType,
			XColumn:   opts.XColumn,
			YColumn:   opts.YColumn,
			MaxRows:   opts.MaxRows,
		})
		if err != nil {
			return nil, nil, err
		}
		out := ChartResults{Data: res.Meta}
		if s.Composer.Available() {
			advice, err := s.Composer.ChartAdvice(ctx, ds, insights.ChartOptions{Type: opts.Type, Metrics: opts.Metrics})
			if err == nil {
				out.Recommendations = &advice
			}
		}
		return marshalPair(out, res.Config)
	case TypeInsight:
		narrative, err := s.Composer.Narrative(ctx, ds, insights.InsightOptions{Focus: opts.Focus, Context: opts.Context})
		if err != nil {
			return nil, nil, err
		}
		return marshalPair(InsightResults{Report: s.Composer.Local(f.OriginalName, ds), Insights: narrative}, nil)
	case TypeReport:
		return marshalPair(s.Composer.Local(f.OriginalName, ds), nil)
	default:
		return nil, nil, fmt.Errorf("%w: unknown analysis type %q", ErrInvalidInput, a.Type)
	}
}

func marshalPair(results, chartConfig any) (json.RawMessage, json.RawMessage, error) {
	r, err := json.Marshal(results)
	if err != nil {
		return nil, nil, err
	}
	if chartConfig == nil {
		return r, nil, nil
	}
	c, err := json.Marshal(chartConfig)
	if err != nil {
		return nil, nil, err
	}
	return r, c, nil
}

// failAnalysis records the error state. It returns an error only when the
// terminal update itself fails.
func (s *Service) failAnalysis(ctx context.Context, a Analysis, cause error, startedAt *time.Time) error {
	code := classifyFailure(cause)
	msg := sanitizeError(cause)
	completedAt := s.now()
	applied, err := s.Repo.Finish(context.WithoutCancel(ctx), a.ID, Terminal{
		Status:       StatusError,
		ErrorCode:    code,
		ErrorMessage: msg,
		CompletedAt:  completedAt,
	})
	if err != nil {
		telemetry.Error("analysis.fail_update_failed", map[string]any{
			"analysis_id": a.ID,
			"error":       err.Error(),
			"cause":       msg,
		})
		return fmt.Errorf("storage: set analysis error: %w", err)
	}
	if !applied {
		return nil
	}
	metrics.IncAnalysisFailed()
	if startedAt != nil {
		metrics.ObserveAnalysisDurationMs(durationMs(startedAt, &completedAt))
	}
	telemetry.Info("analysis.status", map[string]any{
		"request_id":        RequestIDFromContext(ctx),
		"user_id":           a.UserID,
		"file_id":           a.FileID,
		"analysis_id":       a.ID,
		"status":            StatusError,
		"status_transition": "processing->error",
		"error_code":        code,
		"duration_ms":       durationMs(startedAt, &completedAt),
	})
	s.History.Record(ctx, history.Record{
		UserID:       a.UserID,
		Action:       history.ActionError,
		ResourceType: history.ResourceAnalysis,
		ResourceID:   a.ID,
		Details:      fmt.Sprintf("Error in %s analysis: %s", a.Type, msg),
		Status:       history.StatusError,
		ErrorMessage: msg,
		ErrorCode:    code,
	})
	return nil
}

func (s *Service) enqueue(ctx context.Context, analysisID string) error {
	if s.Queue == nil {
		return queue.ErrClosed
	}
	return s.Queue.Send(ctx, queue.NewMessage(analysisID, RequestIDFromContext(ctx)))
}

func (s *Service) loadFile(ctx context.Context, userID, fileID string) (files.File, error) {
	f, err := s.Files.Get(ctx, userID, fileID)
	if err != nil {
		if errors.Is(err, files.ErrNotFound) {
			return files.File{}, ErrFileNotFound
		}
		if errors.Is(err, files.ErrInvalidInput) {
			return files.File{}, fmt.Errorf("%w: excelFileId is required", ErrInvalidInput)
		}
		return files.File{}, fmt.Errorf("storage: load file: %w", err)
	}
	return f, nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func durationMs(startedAt, completedAt *time.Time) float64 {
	if startedAt == nil || completedAt == nil {
		return 0
	}
	return float64(completedAt.Sub(*startedAt).Microseconds()) / 1000.0
}

func classifyFailure(err error) string {
	switch {
	case err == nil:
		return ErrorCodeProcessing
	case errors.Is(err, charts.ErrUnknownColumn):
		return ErrorCodeUnknownColumn
	case errors.Is(err, charts.ErrNoNumericData):
		return ErrorCodeNoNumericData
	case errors.Is(err, charts.ErrUnsupportedChartType), errors.Is(err, ErrInvalidInput):
		return ErrorCodeValidation
	case errors.Is(err, insights.ErrInsightGenerationFailed):
		return ErrorCodeInsightGeneration
	case errors.Is(err, ErrFileNotFound), errors.Is(err, ErrEnqueue):
		return ErrorCodeStorage
	case strings.HasPrefix(err.Error(), "storage:"):
		return ErrorCodeStorage
	}
	return ErrorCodeProcessing
}

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	const maxLen = 500
	if len(msg) > maxLen {
		n := maxLen
		for n > 0 && !utf8.RuneStart(msg[n]) {
			n--
		}
		msg = msg[:n]
	}
	return msg
}
