package admin

import (
	"context"
	"fmt"
	"sort"
	"time"

	"sheetinsight-backend/internal/analyses"
	"sheetinsight-backend/internal/files"
	"sheetinsight-backend/internal/shared/telemetry"
	"sheetinsight-backend/internal/users"
)

const (
	recentLimit   = 5
	topUsersLimit = 10
	day           = 24 * time.Hour
)

var periods = map[string]time.Duration{
	"7d":  7 * day,
	"30d": 30 * day,
	"90d": 90 * day,
}

// UserStore is the account surface admin needs.
type UserStore interface {
	List(ctx context.Context) ([]users.User, error)
	ListSince(ctx context.Context, since time.Time) ([]users.User, error)
	Get(ctx context.Context, id string) (users.User, error)
	AdminUpdate(ctx context.Context, id string, in users.AdminUpdateInput) (users.User, error)
	Delete(ctx context.Context, id string) error
}

// FileStore is the upload surface admin needs.
type FileStore interface {
	List(ctx context.Context, userID string) ([]files.File, error)
	ListSince(ctx context.Context, since time.Time) ([]files.File, error)
	DeleteAllForUser(ctx context.Context, userID string) (int, error)
}

// AnalysisStore is the analysis surface admin needs.
type AnalysisStore interface {
	List(ctx context.Context, userID string) ([]analyses.Analysis, error)
	ListSince(ctx context.Context, since time.Time) ([]analyses.Analysis, error)
	DeleteAllForUser(ctx context.Context, userID string) (int, error)
}

// HistoryStore removes audit records on account deletion.
type HistoryStore interface {
	DeleteAllForUser(ctx context.Context, userID string) (int, error)
}

// Service answers admin queries by aggregating over the stores.
type Service struct {
	Users    UserStore
	Files    FileStore
	Analyses AnalysisStore
	History  HistoryStore
	Now      func() time.Time
}

// ListUsers returns every user with ownership counts and last activity.
func (s *Service) ListUsers(ctx context.Context) ([]UserSummary, error) {
	all, err := s.Users.List(ctx)
	if err != nil {
		return nil, err
	}
	fs, err := s.Files.ListSince(ctx, time.Time{})
	if err != nil {
		return nil, err
	}
	as, err := s.Analyses.ListSince(ctx, time.Time{})
	if err != nil {
		return nil, err
	}

	type tally struct {
		files, analyses int
		bytes           int64
		last            time.Time
	}
	byUser := map[string]*tally{}
	get := func(id string) *tally {
		t, ok := byUser[id]
		if !ok {
			t = &tally{}
			byUser[id] = t
		}
		return t
	}
	for _, f := range fs {
		t := get(f.UserID)
		t.files++
		t.bytes += f.SizeBytes
		if f.UploadedAt.After(t.last) {
			t.last = f.UploadedAt
		}
	}
	for _, a := range as {
		t := get(a.UserID)
		t.analyses++
		if a.CreatedAt.After(t.last) {
			t.last = a.CreatedAt
		}
	}

	out := make([]UserSummary, 0, len(all))
	for _, u := range all {
		t := get(u.ID)
		last := u.UpdatedAt
		if t.last.After(last) {
			last = t.last
		}
		out = append(out, UserSummary{
			User:          u,
			FilesUploaded: t.files,
			AnalysesCount: t.analyses,
			StorageUsed:   formatGB(t.bytes),
			LastActive:    last,
		})
	}
	return out, nil
}

// UserDetail returns one user with their files and analyses.
func (s *Service) UserDetail(ctx context.Context, id string) (UserDetail, error) {
	u, err := s.Users.Get(ctx, id)
	if err != nil {
		return UserDetail{}, err
	}
	fs, err := s.Files.List(ctx, id)
	if err != nil {
		return UserDetail{}, err
	}
	as, err := s.Analyses.List(ctx, id)
	if err != nil {
		return UserDetail{}, err
	}
	var total int64
	for _, f := range fs {
		total += f.SizeBytes
	}
	return UserDetail{
		User:          u,
		Files:         fs,
		Analyses:      as,
		TotalFiles:    len(fs),
		TotalAnalyses: len(as),
		TotalStorage:  formatGB(total),
	}, nil
}

// UpdateUser edits name, email, role or status.
func (s *Service) UpdateUser(ctx context.Context, id string, in users.AdminUpdateInput) (users.User, error) {
	return s.Users.AdminUpdate(ctx, id, in)
}

// DeleteUser removes the account after its files, analyses and history.
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	if _, err := s.Users.Get(ctx, id); err != nil {
		return err
	}
	nAnalyses, err := s.Analyses.DeleteAllForUser(ctx, id)
	if err != nil {
		return fmt.Errorf("delete analyses: %w", err)
	}
	nFiles, err := s.Files.DeleteAllForUser(ctx, id)
	if err != nil {
		return fmt.Errorf("delete files: %w", err)
	}
	nHistory := 0
	if s.History != nil {
		if nHistory, err = s.History.DeleteAllForUser(ctx, id); err != nil {
			return fmt.Errorf("delete history: %w", err)
		}
	}
	if err := s.Users.Delete(ctx, id); err != nil {
		return err
	}
	telemetry.FromContext(ctx).Info("admin.user_deleted", map[string]any{
		"target_user_id": id,
		"files":          nFiles,
		"analyses":       nAnalyses,
		"history":        nHistory,
	})
	return nil
}

// Stats returns platform totals plus the last day and week of activity.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	now := s.now()
	us, err := s.Users.List(ctx)
	if err != nil {
		return Stats{}, err
	}
	fs, err := s.Files.ListSince(ctx, time.Time{})
	if err != nil {
		return Stats{}, err
	}
	as, err := s.Analyses.ListSince(ctx, time.Time{})
	if err != nil {
		return Stats{}, err
	}

	st := Stats{
		TotalUsers:     len(us),
		TotalFiles:     len(fs),
		TotalAnalyses:  len(as),
		RecentUsers:    []users.User{},
		RecentFiles:    []files.File{},
		RecentAnalyses: []analyses.Analysis{},
	}
	dayAgo, weekAgo := now.Add(-day), now.Add(-7*day)
	var storage int64

	for _, u := range us {
		if u.Status == users.StatusActive {
			st.ActiveUsers++
		}
		if !u.CreatedAt.Before(weekAgo) {
			st.WeeklyStats.NewUsers++
		}
		if !u.CreatedAt.Before(dayAgo) && len(st.RecentUsers) < recentLimit {
			st.RecentUsers = append(st.RecentUsers, u)
		}
	}
	for _, f := range fs {
		storage += f.SizeBytes
		if !f.UploadedAt.Before(weekAgo) {
			st.WeeklyStats.NewFiles++
		}
		if !f.UploadedAt.Before(dayAgo) && len(st.RecentFiles) < recentLimit {
			st.RecentFiles = append(st.RecentFiles, f)
		}
	}
	for _, a := range as {
		if !a.CreatedAt.Before(weekAgo) {
			st.WeeklyStats.NewAnalyses++
		}
		if !a.CreatedAt.Before(dayAgo) && len(st.RecentAnalyses) < recentLimit {
			a.Results = nil
			st.RecentAnalyses = append(st.RecentAnalyses, a)
		}
	}
	st.TotalStorage = formatGB(storage)
	return st, nil
}

// Analytics returns daily series for the period and the most active users overall.
func (s *Service) Analytics(ctx context.Context, period string) (Analytics, error) {
	if period == "" {
		period = "7d"
	}
	window, ok := periods[period]
	if !ok {
		return Analytics{}, ErrInvalidPeriod
	}
	since := s.now().Add(-window)

	fs, err := s.Files.ListSince(ctx, since)
	if err != nil {
		return Analytics{}, err
	}
	us, err := s.Users.ListSince(ctx, since)
	if err != nil {
		return Analytics{}, err
	}
	as, err := s.Analyses.ListSince(ctx, since)
	if err != nil {
		return Analytics{}, err
	}

	uploads := newDailySeries()
	for _, f := range fs {
		uploads.add(f.UploadedAt, f.SizeBytes)
	}
	regs := newDailySeries()
	for _, u := range us {
		regs.add(u.CreatedAt, 0)
	}
	created := newDailySeries()
	for _, a := range as {
		created.add(a.CreatedAt, 0)
	}

	top, err := s.topUsers(ctx)
	if err != nil {
		return Analytics{}, err
	}
	return Analytics{
		FileUploads:       uploads.sorted(),
		UserRegistrations: regs.sorted(),
		AnalysisCreation:  created.sorted(),
		TopUsers:          top,
	}, nil
}

func (s *Service) topUsers(ctx context.Context) ([]TopUser, error) {
	summaries, err := s.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]TopUser, 0, len(summaries))
	for _, u := range summaries {
		out = append(out, TopUser{
			ID:            u.ID,
			Name:          u.Name,
			Email:         u.Email,
			Role:          u.Role,
			Status:        u.Status,
			TotalFiles:    u.FilesUploaded,
			TotalAnalyses: u.AnalysesCount,
			TotalActivity: u.FilesUploaded + u.AnalysesCount,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalActivity > out[j].TotalActivity
	})
	if len(out) > topUsersLimit {
		out = out[:topUsersLimit]
	}
	return out, nil
}

type dailySeries map[string]*DailyCount

func newDailySeries() dailySeries { return dailySeries{} }

func (s dailySeries) add(at time.Time, size int64) {
	key := at.UTC().Format("2006-01-02")
	dc, ok := s[key]
	if !ok {
		dc = &DailyCount{ID: key}
		s[key] = dc
	}
	dc.Count++
	dc.TotalSize += size
}

func (s dailySeries) sorted() []DailyCount {
	out := make([]DailyCount, 0, len(s))
	for _, dc := range s {
		out = append(out, *dc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func formatGB(b int64) string {
	return fmt.Sprintf("%.2f GB", float64(b)/(1<<30))
}
