package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"sheetinsight-backend/internal/users"
)

// Export formats.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

var exportColumns = []string{"_id", "name", "email", "role", "status", "createdAt", "updatedAt"}

// Export writes every user to w and returns the attachment file name and
// content type.
func (s *Service) Export(ctx context.Context, format string, w io.Writer) (string, string, error) {
	if format == "" {
		format = FormatCSV
	}
	if format != FormatCSV && format != FormatJSON {
		return "", "", ErrInvalidFormat
	}
	all, err := s.Users.List(ctx)
	if err != nil {
		return "", "", err
	}
	if format == FormatJSON {
		if err := json.NewEncoder(w).Encode(all); err != nil {
			return "", "", fmt.Errorf("encode users: %w", err)
		}
		return "users.json", "application/json", nil
	}
	if err := usersFrame(all).WriteCSV(w); err != nil {
		return "", "", fmt.Errorf("write csv: %w", err)
	}
	return "users.csv", "text/csv", nil
}

func usersFrame(all []users.User) dataframe.DataFrame {
	records := make([][]string, 0, len(all)+1)
	records = append(records, exportColumns)
	for _, u := range all {
		records = append(records, []string{
			u.ID,
			u.Name,
			u.Email,
			u.Role,
			u.Status,
			u.CreatedAt.UTC().Format(time.RFC3339),
			u.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}
	if len(all) == 0 {
		cols := make([]series.Series, len(exportColumns))
		for i, name := range exportColumns {
			cols[i] = series.New([]string{}, series.String, name)
		}
		return dataframe.New(cols...)
	}
	return dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
}
