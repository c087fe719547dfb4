package tabular

import "errors"

var (
	// ErrEmptyDataset is returned when a sheet yields no data records.
	ErrEmptyDataset = errors.New("no data found in file")
	// ErrUnreadableWorkbook is returned when a workbook has no readable first sheet.
	ErrUnreadableWorkbook = errors.New("unreadable workbook")
	// ErrUnsupportedFormat is returned for anything that is not xlsx, xls or csv.
	ErrUnsupportedFormat = errors.New("unsupported file format")
)
