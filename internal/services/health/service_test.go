package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestStatusWithoutDatabase(t *testing.T) {
	svc := NewService(nil, "local")
	st := svc.Status(context.Background())
	if !st.OK || st.Database != "memory" || st.Queue != "local" {
		t.Fatalf("unexpected status %+v", st)
	}
}

func TestStatusPingsDatabase(t *testing.T) {
	tests := []struct {
		name    string
		pingErr error
		wantOK  bool
		wantDB  string
	}{
		{name: "reachable", wantOK: true, wantDB: "postgres"},
		{name: "unreachable", pingErr: errors.New("connection refused"), wantOK: false, wantDB: "unreachable"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
			if err != nil {
				t.Fatalf("sqlmock: %v", err)
			}
			defer db.Close()
			mock.ExpectPing().WillReturnError(tt.pingErr)

			svc := NewService(db, "sqs")
			svc.Now = func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }
			st := svc.Status(context.Background())
			if st.OK != tt.wantOK || st.Database != tt.wantDB {
				t.Fatalf("unexpected status %+v", st)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatalf("expectations: %v", err)
			}
		})
	}
}
