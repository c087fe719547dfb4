package files

import (
	"time"

	"sheetinsight-backend/internal/tabular"
)

// File is an uploaded spreadsheet and its normalized record set.
type File struct {
	ID           string           `json:"id"`
	UserID       string           `json:"userId"`
	OriginalName string           `json:"originalName"`
	StorageKey   string           `json:"-"`
	SizeBytes    int64            `json:"size"`
	MimeType     string           `json:"mimeType"`
	SheetNames   []string         `json:"sheetNames"`
	Columns      []string         `json:"columns"`
	Records      []tabular.Record `json:"data,omitempty"`
	RowCount     int              `json:"rowCount"`
	UploadedAt   time.Time        `json:"uploadedAt"`
}

// Dataset returns the stored record set.
func (f File) Dataset() tabular.Dataset {
	return tabular.Dataset{Columns: f.Columns, Records: f.Records}
}

// Summary drops the record set for listings.
func (f File) Summary() File {
	f.Records = nil
	return f
}
