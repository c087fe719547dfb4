package history

import (
	"context"
	"database/sql"
	"encoding/json"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const selectColumns = `id, user_id, action, resource_type, resource_id, details, metadata, ip, user_agent, status, error_message, error_code, created_at`

// Append inserts a record.
func (r *PGRepo) Append(ctx context.Context, rec Record) error {
	const query = `
INSERT INTO history (
    id, user_id, action, resource_type, resource_id, details, metadata,
    ip, user_agent, status, error_message, error_code, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	var metadata any
	if len(rec.Metadata) > 0 {
		raw, err := json.Marshal(rec.Metadata)
		if err != nil {
			return err
		}
		metadata = raw
	}

	_, err := r.DB.ExecContext(ctx, query,
		rec.ID,
		rec.UserID,
		rec.Action,
		rec.ResourceType,
		rec.ResourceID,
		rec.Details,
		metadata,
		rec.IP,
		rec.UserAgent,
		rec.Status,
		nullString(rec.ErrorMessage),
		nullString(rec.ErrorCode),
		rec.CreatedAt,
	)
	return err
}

// List returns one page of a user's history, newest first, plus the total count.
func (r *PGRepo) List(ctx context.Context, q Query) ([]Record, int, error) {
	var total int
	if err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM history WHERE user_id = $1 AND ($2 = '' OR resource_type = $2)`,
		q.UserID, q.ResourceType,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 10
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	rows, err := r.DB.QueryContext(ctx, `
SELECT `+selectColumns+`
FROM history
WHERE user_id = $1 AND ($2 = '' OR resource_type = $2)
ORDER BY created_at DESC
LIMIT $3 OFFSET $4`, q.UserID, q.ResourceType, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out, err := scanRecords(rows)
	return out, total, err
}

// ListByResource returns a user's history for one resource, newest first.
func (r *PGRepo) ListByResource(ctx context.Context, userID, resourceType, resourceID string) ([]Record, error) {
	rows, err := r.DB.QueryContext(ctx, `
SELECT `+selectColumns+`
FROM history
WHERE user_id = $1 AND resource_type = $2 AND resource_id = $3
ORDER BY created_at DESC`, userID, resourceType, resourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

// DeleteByUser removes a user's records.
func (r *PGRepo) DeleteByUser(ctx context.Context, userID string) (int, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM history WHERE user_id = $1`, userID)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	out := []Record{}
	for rows.Next() {
		var rec Record
		var metadata []byte
		var errMsg, errCode sql.NullString
		if err := rows.Scan(
			&rec.ID,
			&rec.UserID,
			&rec.Action,
			&rec.ResourceType,
			&rec.ResourceID,
			&rec.Details,
			&metadata,
			&rec.IP,
			&rec.UserAgent,
			&rec.Status,
			&errMsg,
			&errCode,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &rec.Metadata); err != nil {
				return nil, err
			}
		}
		rec.ErrorMessage = errMsg.String
		rec.ErrorCode = errCode.String
		out = append(out, rec)
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

var _ Repo = (*PGRepo)(nil)
