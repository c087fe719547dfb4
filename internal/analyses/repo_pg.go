package analyses

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const analysisColumns = `id, user_id, file_id, name, type, config, chart_config, results, status,
    error_code, error_message, created_at, updated_at, started_at, completed_at`

func (r *PGRepo) Create(ctx context.Context, a Analysis) error {
	const query = `
INSERT INTO analyses (
    id, user_id, file_id, name, type, config, chart_config, results, status,
    error_code, error_message, created_at, updated_at, started_at, completed_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err := r.DB.ExecContext(ctx, query,
		a.ID,
		a.UserID,
		a.FileID,
		a.Name,
		a.Type,
		nullJSON(a.Config),
		nullJSON(a.ChartConfig),
		nullJSON(a.Results),
		a.Status,
		nullString(a.ErrorCode),
		nullString(a.ErrorMessage),
		a.CreatedAt,
		a.UpdatedAt,
		nullTime(a.StartedAt),
		nullTime(a.CompletedAt),
	)
	return err
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (Analysis, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+analysisColumns+` FROM analyses WHERE id = $1`, id)
	return scanOne(row)
}

func (r *PGRepo) GetForUser(ctx context.Context, userID, id string) (Analysis, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+analysisColumns+` FROM analyses WHERE id = $1 AND user_id = $2`, id, userID)
	return scanOne(row)
}

func (r *PGRepo) ListByUser(ctx context.Context, userID string) ([]Analysis, error) {
	rows, err := r.DB.QueryContext(ctx, `
SELECT `+analysisColumns+`
FROM analyses
WHERE user_id = $1
ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAll(rows)
}

func (r *PGRepo) LatestForFile(ctx context.Context, userID, fileID, analysisType string) (Analysis, error) {
	row := r.DB.QueryRowContext(ctx, `
SELECT `+analysisColumns+`
FROM analyses
WHERE user_id = $1 AND file_id = $2 AND type = $3
ORDER BY created_at DESC
LIMIT 1`, userID, fileID, analysisType)
	return scanOne(row)
}

func (r *PGRepo) ListPending(ctx context.Context, limit int) ([]Analysis, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.DB.QueryContext(ctx, `
SELECT `+analysisColumns+`
FROM analyses
WHERE status = 'processing'
ORDER BY created_at ASC
LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAll(rows)
}

func (r *PGRepo) ListSince(ctx context.Context, since time.Time) ([]Analysis, error) {
	rows, err := r.DB.QueryContext(ctx, `
SELECT `+analysisColumns+`
FROM analyses
WHERE created_at >= $1
ORDER BY created_at DESC`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAll(rows)
}

func (r *PGRepo) UpdateDetails(ctx context.Context, userID, id, name string, config json.RawMessage, updatedAt time.Time) (Analysis, error) {
	row := r.DB.QueryRowContext(ctx, `
UPDATE analyses
SET name = COALESCE(NULLIF($3, ''), name),
    config = COALESCE($4, config),
    updated_at = $5
WHERE id = $1 AND user_id = $2
RETURNING `+analysisColumns, id, userID, name, nullJSON(config), updatedAt)
	return scanOne(row)
}

func (r *PGRepo) MarkStarted(ctx context.Context, id string, startedAt time.Time) error {
	_, err := r.DB.ExecContext(ctx, `
UPDATE analyses
SET started_at = $2, updated_at = $2
WHERE id = $1 AND status = 'processing' AND started_at IS NULL`, id, startedAt)
	return err
}

func (r *PGRepo) Finish(ctx context.Context, id string, t Terminal) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
UPDATE analyses
SET status = $2,
    results = $3,
    chart_config = COALESCE($4, chart_config),
    error_code = $5,
    error_message = $6,
    completed_at = $7,
    updated_at = $7
WHERE id = $1 AND status = 'processing'`,
		id,
		t.Status,
		nullJSON(t.Results),
		nullJSON(t.ChartConfig),
		nullString(t.ErrorCode),
		nullString(t.ErrorMessage),
		t.CompletedAt,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *PGRepo) Delete(ctx context.Context, userID, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM analyses WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) DeleteByFile(ctx context.Context, userID, fileID string) (int, error) {
	return r.deleteCount(ctx, `DELETE FROM analyses WHERE user_id = $1 AND file_id = $2`, userID, fileID)
}

func (r *PGRepo) DeleteByUser(ctx context.Context, userID string) (int, error) {
	return r.deleteCount(ctx, `DELETE FROM analyses WHERE user_id = $1`, userID)
}

func (r *PGRepo) deleteCount(ctx context.Context, query string, args ...any) (int, error) {
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOne(row rowScanner) (Analysis, error) {
	a, err := scanAnalysis(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Analysis{}, ErrNotFound
	}
	return a, err
}

func scanAll(rows *sql.Rows) ([]Analysis, error) {
	out := []Analysis{}
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanAnalysis(row rowScanner) (Analysis, error) {
	var a Analysis
	var config, chartConfig, results []byte
	var errCode, errMsg sql.NullString
	var startedAt, completedAt sql.NullTime
	if err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.FileID,
		&a.Name,
		&a.Type,
		&config,
		&chartConfig,
		&results,
		&a.Status,
		&errCode,
		&errMsg,
		&a.CreatedAt,
		&a.UpdatedAt,
		&startedAt,
		&completedAt,
	); err != nil {
		return Analysis{}, err
	}
	a.Config = rawOrNil(config)
	a.ChartConfig = rawOrNil(chartConfig)
	a.Results = rawOrNil(results)
	a.ErrorCode = errCode.String
	a.ErrorMessage = errMsg.String
	if startedAt.Valid {
		t := startedAt.Time
		a.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		a.CompletedAt = &t
	}
	return a, nil
}

func rawOrNil(b []byte) json.RawMessage {
	if len(b) == 0 {
		return nil
	}
	return json.RawMessage(append([]byte(nil), b...))
}

func nullJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

var _ Repo = (*PGRepo)(nil)
