package health

import (
	"context"
	"database/sql"
	"time"
)

const pingTimeout = 2 * time.Second

// Status is the health payload.
type Status struct {
	OK       bool      `json:"ok"`
	Database string    `json:"database"`
	Queue    string    `json:"queue"`
	Time     time.Time `json:"time"`
}

// Service reports whether the API's backing services are reachable.
type Service struct {
	DB    *sql.DB
	Queue string
	Now   func() time.Time
}

// NewService constructs a health service. A nil db reports "memory".
func NewService(db *sql.DB, queueKind string) *Service {
	return &Service{DB: db, Queue: queueKind, Now: time.Now}
}

// Status pings the database and reports the queue backend in use.
func (s *Service) Status(ctx context.Context) Status {
	st := Status{OK: true, Database: "memory", Queue: s.Queue, Time: s.now()}
	if s.DB == nil {
		return st
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := s.DB.PingContext(ctx); err != nil {
		st.OK = false
		st.Database = "unreachable"
		return st
	}
	st.Database = "postgres"
	return st
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
