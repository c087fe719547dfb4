package files

import "errors"

var (
	ErrNotFound     = errors.New("file not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrTooLarge     = errors.New("file size too large")
)

// Validation failures surfaced to clients verbatim. Each wraps ErrInvalidInput.
var (
	ErrMissingFile          = validation("No file uploaded")
	ErrInvalidName          = validation("Invalid file name")
	ErrPreviouslyDownloaded = validation("Invalid file name detected. This appears to be a previously downloaded file. Please upload the original file instead.")
	ErrUnsupportedType      = validation("Invalid file type. Please upload an Excel file (.xlsx, .xls) or CSV file.")
	ErrUnparseable          = validation("Failed to parse Excel file. Please ensure the file is not corrupted and contains valid data.")
	ErrNoData               = validation("No data found in the Excel file. Please ensure the file contains data in the first sheet.")
)

type validationError struct {
	msg string
}

func validation(msg string) error {
	return &validationError{msg: msg}
}

func (e *validationError) Error() string { return e.msg }

func (e *validationError) Unwrap() error { return ErrInvalidInput }
