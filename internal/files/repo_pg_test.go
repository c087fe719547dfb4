package files

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"sheetinsight-backend/internal/tabular"
)

func TestPGRepoCreateEncodesJSONB(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	f := File{
		ID:           "file-1",
		UserID:       "user-1",
		OriginalName: "sales.csv",
		StorageKey:   "abc/sales.csv",
		SizeBytes:    42,
		MimeType:     "text/csv",
		SheetNames:   []string{"Sheet1"},
		Columns:      []string{"Month", "Sales"},
		Records:      []tabular.Record{{"Month": "Jan", "Sales": float64(10)}},
		RowCount:     1,
		UploadedAt:   time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO uploaded_files").
		WithArgs(
			f.ID, f.UserID, f.OriginalName, f.StorageKey, f.SizeBytes, f.MimeType,
			[]byte(`["Sheet1"]`),
			[]byte(`["Month","Sales"]`),
			[]byte(`[{"Month":"Jan","Sales":10}]`),
			f.RowCount,
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Create(context.Background(), f); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetByIDDecodesRecords(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	now := time.Now().UTC()
	mock.ExpectQuery("FROM uploaded_files").
		WithArgs("file-1", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "original_name", "storage_key", "size_bytes", "mime_type",
			"sheet_names", "columns", "row_count", "uploaded_at", "records",
		}).AddRow("file-1", "user-1", "sales.csv", "k", int64(42), "text/csv",
			[]byte(`["Sheet1"]`), []byte(`["Month","Sales"]`), 1, now,
			[]byte(`[{"Month":"Jan","Sales":10}]`)))

	f, err := repo.GetByID(context.Background(), "user-1", "file-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if len(f.Records) != 1 || f.Records[0]["Sales"] != float64(10) || f.Columns[1] != "Sales" {
		t.Fatalf("unexpected file %+v", f)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoDeleteMissingIsNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	mock.ExpectExec("DELETE FROM uploaded_files").
		WithArgs("file-x", "user-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Delete(context.Background(), "user-1", "file-x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
