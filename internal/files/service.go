package files

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"sheetinsight-backend/internal/history"
	"sheetinsight-backend/internal/shared/metrics"
	"sheetinsight-backend/internal/shared/storage/object"
	"sheetinsight-backend/internal/shared/telemetry"
	"sheetinsight-backend/internal/shared/util"
	"sheetinsight-backend/internal/tabular"
)

// DefaultMaxBytes is the upload limit when none is configured.
const DefaultMaxBytes int64 = 10 << 20

const sniffLen = 3072

var doubleExtension = regexp.MustCompile(`(?i)\.(xlsx|xls|csv)\.(xlsx|xls|csv)$`)

// AnalysisCleaner removes analyses derived from a file.
type AnalysisCleaner interface {
	DeleteByFile(ctx context.Context, userID, fileID string) (int, error)
}

// Service ingests, serves and removes uploaded spreadsheets.
type Service struct {
	Store    object.ObjectStore
	Repo     Repo
	History  *history.Service
	Analyses AnalysisCleaner
	MaxBytes int64
	Now      func() time.Time
}

// UploadInput is one multipart upload.
type UploadInput struct {
	FileName     string
	DeclaredMIME string
	Size         int64
	Body         io.Reader
}

// Upload validates, parses and stores a spreadsheet. The record is only
// created after the file parses; a failed insert removes the stored object.
func (s *Service) Upload(ctx context.Context, userID string, in UploadInput) (File, error) {
	f, err := s.upload(ctx, userID, in)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrTooLarge) {
			metrics.IncUploadRejected()
		}
		return File{}, err
	}
	return f, nil
}

func (s *Service) upload(ctx context.Context, userID string, in UploadInput) (File, error) {
	name := strings.TrimSpace(in.FileName)
	if name == "" || in.Body == nil {
		return File{}, ErrInvalidName
	}
	if doubleExtension.MatchString(name) {
		return File{}, ErrPreviouslyDownloaded
	}
	if _, err := util.SanitizeFileName(name); err != nil {
		return File{}, ErrInvalidName
	}

	limit := s.maxBytes()
	if in.Size > limit {
		return File{}, ErrTooLarge
	}
	data, err := io.ReadAll(io.LimitReader(in.Body, limit+1))
	if err != nil {
		return File{}, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > limit {
		return File{}, ErrTooLarge
	}

	head := data
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	format, err := tabular.DetectFormat(in.DeclaredMIME, name, head)
	if err != nil {
		return File{}, fmt.Errorf("%w: %v", ErrUnsupportedType, err)
	}

	wb, ds, err := tabular.DecodeDataset(format, bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, tabular.ErrEmptyDataset) {
			return File{}, ErrNoData
		}
		return File{}, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}

	key, size, mimeType, err := s.Store.Save(ctx, userID, name, bytes.NewReader(data))
	if err != nil {
		return File{}, fmt.Errorf("storage: save upload: %w", err)
	}

	f := File{
		ID:           uuid.NewString(),
		UserID:       userID,
		OriginalName: name,
		StorageKey:   key,
		SizeBytes:    size,
		MimeType:     mimeType,
		SheetNames:   wb.SheetNames,
		Columns:      ds.Columns,
		Records:      ds.Records,
		RowCount:     ds.Len(),
		UploadedAt:   s.now(),
	}
	if err := s.Repo.Create(ctx, f); err != nil {
		if delErr := s.Store.Delete(ctx, key); delErr != nil {
			telemetry.FromContext(ctx).Error("upload.cleanup_failed", map[string]any{
				"storage_key": key,
				"error":       delErr.Error(),
			})
		}
		return File{}, fmt.Errorf("storage: create file record: %w", err)
	}

	metrics.ObserveUpload(size)
	telemetry.FromContext(ctx).Info("upload.completed", map[string]any{
		"file_id":    f.ID,
		"format":     string(format),
		"size_bytes": size,
		"rows":       f.RowCount,
		"columns":    len(f.Columns),
	})
	s.History.Record(ctx, history.Record{
		UserID:       userID,
		Action:       history.ActionCreate,
		ResourceType: history.ResourceFile,
		ResourceID:   f.ID,
		Details:      fmt.Sprintf("Uploaded %s", f.OriginalName),
		Metadata:     map[string]any{"size": size, "rows": f.RowCount, "format": string(format)},
	})
	return f, nil
}

// Get returns a file with its records.
func (s *Service) Get(ctx context.Context, userID, fileID string) (File, error) {
	if userID == "" || strings.TrimSpace(fileID) == "" {
		return File{}, fmt.Errorf("file id required: %w", ErrInvalidInput)
	}
	return s.Repo.GetByID(ctx, userID, fileID)
}

// List returns the user's file summaries, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]File, error) {
	return s.Repo.ListByUser(ctx, userID)
}

// ListSince returns file summaries across all users uploaded at or after since.
func (s *Service) ListSince(ctx context.Context, since time.Time) ([]File, error) {
	return s.Repo.ListSince(ctx, since)
}

// Delete removes a file, its analyses and, best effort, its stored object.
func (s *Service) Delete(ctx context.Context, userID, fileID string) error {
	f, err := s.Get(ctx, userID, fileID)
	if err != nil {
		return err
	}
	removed := 0
	if s.Analyses != nil {
		if removed, err = s.Analyses.DeleteByFile(ctx, userID, fileID); err != nil {
			return fmt.Errorf("delete analyses: %w", err)
		}
	}
	if err := s.Repo.Delete(ctx, userID, fileID); err != nil {
		return err
	}
	s.removeObject(ctx, f.StorageKey)
	s.History.Record(ctx, history.Record{
		UserID:       userID,
		Action:       history.ActionDelete,
		ResourceType: history.ResourceFile,
		ResourceID:   fileID,
		Details:      fmt.Sprintf("Deleted %s", f.OriginalName),
		Metadata:     map[string]any{"analysesDeleted": removed},
	})
	return nil
}

// DeleteAllForUser removes every file of userID. Analyses are the caller's concern.
func (s *Service) DeleteAllForUser(ctx context.Context, userID string) (int, error) {
	removed, err := s.Repo.DeleteByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	for _, f := range removed {
		s.removeObject(ctx, f.StorageKey)
	}
	return len(removed), nil
}

// Report renders the stored records as an xlsx workbook.
func (s *Service) Report(ctx context.Context, userID, fileID string) (string, []byte, error) {
	f, err := s.Get(ctx, userID, fileID)
	if err != nil {
		return "", nil, err
	}
	var buf bytes.Buffer
	if err := tabular.EncodeXLSX(f.Dataset(), "Sheet1", &buf); err != nil {
		return "", nil, fmt.Errorf("encode report: %w", err)
	}
	return ReportName(f.OriginalName), buf.Bytes(), nil
}

// ReportName derives the download name, dropping a spreadsheet extension.
func ReportName(original string) string {
	base := strings.TrimSpace(original)
	switch strings.ToLower(filepath.Ext(base)) {
	case ".xlsx", ".xls", ".csv":
		base = base[:len(base)-len(filepath.Ext(base))]
	}
	if base == "" {
		base = "report"
	}
	return base + "_report.xlsx"
}

func (s *Service) removeObject(ctx context.Context, key string) {
	if key == "" || s.Store == nil {
		return
	}
	if err := s.Store.Delete(ctx, key); err != nil && !errors.Is(err, object.ErrNotFound) {
		telemetry.FromContext(ctx).Error("file.object_delete_failed", map[string]any{
			"storage_key": key,
			"error":       err.Error(),
		})
	}
}

func (s *Service) maxBytes() int64 {
	if s.MaxBytes <= 0 {
		return DefaultMaxBytes
	}
	return s.MaxBytes
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}
