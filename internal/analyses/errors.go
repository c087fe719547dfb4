package analyses

import "errors"

var (
	ErrNotFound     = errors.New("analysis not found")
	ErrFileNotFound = errors.New("excel file not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrEnqueue      = errors.New("enqueue analysis")
)

// Failure codes recorded on analyses that end in error.
const (
	ErrorCodeValidation        = "VALIDATION_ERROR"
	ErrorCodeUnknownColumn     = "UNKNOWN_COLUMN"
	ErrorCodeNoNumericData     = "NO_NUMERIC_DATA"
	ErrorCodeInsightGeneration = "INSIGHT_GENERATION_FAILED"
	ErrorCodeStorage           = "STORAGE_ERROR"
	ErrorCodeProcessing        = "PROCESSING_ERROR"
)
