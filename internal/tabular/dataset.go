package tabular

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

// Record is one normalized row keyed by column name. Values are string,
// float64, ISO-8601 date text, or "".
type Record map[string]any

// Dataset is an ordered column list plus records that all carry exactly those keys.
type Dataset struct {
	Columns []string `json:"columns"`
	Records []Record `json:"records"`
}

// Len returns the number of records.
func (d Dataset) Len() int {
	return len(d.Records)
}

// HasColumn reports whether name is one of the dataset's columns.
func (d Dataset) HasColumn(name string) bool {
	for _, c := range d.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Head returns up to n leading records.
func (d Dataset) Head(n int) []Record {
	if n < 0 || n >= len(d.Records) {
		return d.Records
	}
	return d.Records[:n]
}

// Normalize turns row-major cells whose first non-blank row is the header
// into a Dataset.
func Normalize(rows [][]string) (Dataset, error) {
	var kept [][]string
	width := 0
	for _, row := range rows {
		if isBlankRow(row) {
			continue
		}
		kept = append(kept, row)
		if len(row) > width {
			width = len(row)
		}
	}
	if len(kept) < 2 {
		return Dataset{}, ErrEmptyDataset
	}

	columns := columnNames(kept[0], width)
	records := make([]Record, 0, len(kept)-1)
	for _, row := range kept[1:] {
		rec := make(Record, width)
		for i, col := range columns {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			rec[col] = ParseCell(cell)
		}
		records = append(records, rec)
	}
	return Dataset{Columns: columns, Records: records}, nil
}

// FromRecords builds a Dataset from keyed records. When columns is empty the
// union of record keys is used in sorted order. Missing keys become "".
func FromRecords(columns []string, records []map[string]any) (Dataset, error) {
	if len(records) == 0 {
		return Dataset{}, ErrEmptyDataset
	}
	if len(columns) == 0 {
		seen := map[string]struct{}{}
		for _, rec := range records {
			for k := range rec {
				if _, ok := seen[k]; !ok {
					seen[k] = struct{}{}
					columns = append(columns, k)
				}
			}
		}
		sort.Strings(columns)
	}
	out := make([]Record, 0, len(records))
	for _, rec := range records {
		norm := make(Record, len(columns))
		for _, col := range columns {
			v, ok := rec[col]
			if !ok || v == nil {
				v = ""
			}
			norm[col] = v
		}
		out = append(out, norm)
	}
	return Dataset{Columns: append([]string(nil), columns...), Records: out}, nil
}

func columnNames(header []string, width int) []string {
	names := make([]string, width)
	used := make(map[string]struct{}, width)
	for i := 0; i < width; i++ {
		name := ""
		if i < len(header) {
			name = strings.TrimSpace(header[i])
		}
		if name == "" {
			name = fmt.Sprintf("Column%d", i+1)
		}
		if _, dup := used[name]; dup {
			base := name
			for n := 2; ; n++ {
				candidate := fmt.Sprintf("%s_%d", base, n)
				if _, taken := used[candidate]; !taken {
					name = candidate
					break
				}
			}
		}
		used[name] = struct{}{}
		names[i] = name
	}
	return names
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

var numericPattern = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

var dateLayouts = []string{"2006-01-02", "2006/01/02", "01/02/2006", "1/2/2006"}

var dateTimeLayouts = []string{
	time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02 15:04", "1/2/2006 15:04", "1/2/2006 15:04:05",
}

// ParseCell types a raw cell: numeric text becomes float64, recognised dates
// become ISO-8601 text, blanks become "" and everything else is kept as is.
func ParseCell(raw string) any {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	if numericPattern.MatchString(s) {
		if v, ok := parseFloat(s); ok {
			return v
		}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Format(time.RFC3339)
		}
	}
	return raw
}
