package files

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"sheetinsight-backend/internal/tabular"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const summaryColumns = `id, user_id, original_name, storage_key, size_bytes, mime_type, sheet_names, columns, row_count, uploaded_at`

// Create inserts a file with its record set.
func (r *PGRepo) Create(ctx context.Context, f File) error {
	const query = `
INSERT INTO uploaded_files (
    id, user_id, original_name, storage_key, size_bytes, mime_type,
    sheet_names, columns, records, row_count, uploaded_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	sheets, err := marshalJSONB(f.SheetNames)
	if err != nil {
		return err
	}
	columns, err := marshalJSONB(f.Columns)
	if err != nil {
		return err
	}
	records, err := marshalJSONB(f.Records)
	if err != nil {
		return err
	}

	_, err = r.DB.ExecContext(ctx, query,
		f.ID,
		f.UserID,
		f.OriginalName,
		f.StorageKey,
		f.SizeBytes,
		f.MimeType,
		sheets,
		columns,
		records,
		f.RowCount,
		f.UploadedAt,
	)
	return err
}

// GetByID returns a file and its records when owned by userID.
func (r *PGRepo) GetByID(ctx context.Context, userID, fileID string) (File, error) {
	const query = `
SELECT ` + summaryColumns + `, records
FROM uploaded_files
WHERE id = $1 AND user_id = $2
LIMIT 1`

	var f File
	var sheets, columns, records []byte
	err := r.DB.QueryRowContext(ctx, query, fileID, userID).Scan(
		&f.ID,
		&f.UserID,
		&f.OriginalName,
		&f.StorageKey,
		&f.SizeBytes,
		&f.MimeType,
		&sheets,
		&columns,
		&f.RowCount,
		&f.UploadedAt,
		&records,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return File{}, ErrNotFound
		}
		return File{}, err
	}
	if err := unmarshalJSONB(sheets, &f.SheetNames); err != nil {
		return File{}, fmt.Errorf("decode sheet_names: %w", err)
	}
	if err := unmarshalJSONB(columns, &f.Columns); err != nil {
		return File{}, fmt.Errorf("decode columns: %w", err)
	}
	var raw []map[string]any
	if err := unmarshalJSONB(records, &raw); err != nil {
		return File{}, fmt.Errorf("decode records: %w", err)
	}
	f.Records = make([]tabular.Record, len(raw))
	for i, rec := range raw {
		f.Records[i] = tabular.Record(rec)
	}
	return f, nil
}

// ListByUser returns a user's file summaries, newest first.
func (r *PGRepo) ListByUser(ctx context.Context, userID string) ([]File, error) {
	rows, err := r.DB.QueryContext(ctx, `
SELECT `+summaryColumns+`
FROM uploaded_files
WHERE user_id = $1
ORDER BY uploaded_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSummaries(rows)
}

// ListSince returns file summaries uploaded at or after since, newest first.
func (r *PGRepo) ListSince(ctx context.Context, since time.Time) ([]File, error) {
	rows, err := r.DB.QueryContext(ctx, `
SELECT `+summaryColumns+`
FROM uploaded_files
WHERE uploaded_at >= $1
ORDER BY uploaded_at DESC`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSummaries(rows)
}

// Delete removes a file owned by userID.
func (r *PGRepo) Delete(ctx context.Context, userID, fileID string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM uploaded_files WHERE id = $1 AND user_id = $2`, fileID, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByUser removes every file of userID and returns their summaries.
func (r *PGRepo) DeleteByUser(ctx context.Context, userID string) ([]File, error) {
	rows, err := r.DB.QueryContext(ctx, `
DELETE FROM uploaded_files
WHERE user_id = $1
RETURNING `+summaryColumns, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSummaries(rows)
}

func scanSummaries(rows *sql.Rows) ([]File, error) {
	out := []File{}
	for rows.Next() {
		var f File
		var sheets, columns []byte
		if err := rows.Scan(
			&f.ID,
			&f.UserID,
			&f.OriginalName,
			&f.StorageKey,
			&f.SizeBytes,
			&f.MimeType,
			&sheets,
			&columns,
			&f.RowCount,
			&f.UploadedAt,
		); err != nil {
			return nil, err
		}
		if err := unmarshalJSONB(sheets, &f.SheetNames); err != nil {
			return nil, fmt.Errorf("decode sheet_names: %w", err)
		}
		if err := unmarshalJSONB(columns, &f.Columns); err != nil {
			return nil, fmt.Errorf("decode columns: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func marshalJSONB(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(b) == "null" {
		return []byte("[]"), nil
	}
	return b, nil
}

func unmarshalJSONB(raw []byte, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

var _ Repo = (*PGRepo)(nil)
