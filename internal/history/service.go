package history

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"sheetinsight-backend/internal/shared/telemetry"
	"sheetinsight-backend/internal/shared/util"
)

// Service records and lists audit history.
type Service struct {
	Repo Repo
	Now  func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repo) *Service {
	return &Service{Repo: repo, Now: time.Now}
}

// Record appends rec. Failures are logged and never returned, so auditing
// cannot fail the operation being audited.
func (s *Service) Record(ctx context.Context, rec Record) {
	if s == nil || s.Repo == nil {
		return
	}
	if !validAction(rec.Action) || !validResourceType(rec.ResourceType) {
		telemetry.FromContext(ctx).Error("history.write_failed", map[string]any{
			"action":        rec.Action,
			"resource_type": rec.ResourceType,
			"error":         "invalid action or resource type",
		})
		return
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Status == "" {
		rec.Status = StatusSuccess
	}
	if rec.IP == "" && rec.UserAgent == "" {
		o := originFromContext(ctx)
		rec.IP, rec.UserAgent = o.IP, o.UserAgent
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	rec.ErrorMessage = util.Truncate(rec.ErrorMessage, 500)
	if err := s.Repo.Append(ctx, rec); err != nil {
		telemetry.FromContext(ctx).Error("history.write_failed", map[string]any{
			"action":        rec.Action,
			"resource_type": rec.ResourceType,
			"resource_id":   rec.ResourceID,
			"error":         err.Error(),
		})
	}
}

// Page is one page of a user's history.
type Page struct {
	History     []Record `json:"history"`
	TotalPages  int      `json:"totalPages"`
	CurrentPage int      `json:"currentPage"`
	Total       int      `json:"total"`
}

// List returns page (1-based) of a user's history.
func (s *Service) List(ctx context.Context, userID string, page, limit int, resourceType string) (Page, error) {
	if userID == "" {
		return Page{}, fmt.Errorf("user id required: %w", ErrInvalidInput)
	}
	if resourceType != "" && !validResourceType(resourceType) {
		return Page{}, fmt.Errorf("unknown resource type %q: %w", resourceType, ErrInvalidInput)
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	records, total, err := s.Repo.List(ctx, Query{
		UserID:       userID,
		ResourceType: resourceType,
		Limit:        limit,
		Offset:       (page - 1) * limit,
	})
	if err != nil {
		return Page{}, err
	}
	return Page{
		History:     records,
		TotalPages:  (total + limit - 1) / limit,
		CurrentPage: page,
		Total:       total,
	}, nil
}

// ForResource returns the history of one resource owned by userID.
func (s *Service) ForResource(ctx context.Context, userID, resourceType, resourceID string) ([]Record, error) {
	if !validResourceType(resourceType) || resourceID == "" {
		return nil, fmt.Errorf("resource type and id required: %w", ErrInvalidInput)
	}
	return s.Repo.ListByResource(ctx, userID, resourceType, resourceID)
}

// DeleteAllForUser removes a user's records. Only account removal uses it.
func (s *Service) DeleteAllForUser(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, fmt.Errorf("user id required: %w", ErrInvalidInput)
	}
	return s.Repo.DeleteByUser(ctx, userID)
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}
