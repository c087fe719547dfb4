package charts

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnsupportedChartType = errors.New("unsupported chart type")
	ErrUnknownColumn        = errors.New("unknown column")
	ErrNoNumericData        = errors.New("no numeric data")
)

// UnknownColumnError names the missing column and the ones that exist.
type UnknownColumnError struct {
	Column    string
	Available []string
}

func (e *UnknownColumnError) Error() string {
	return fmt.Sprintf("Column %q not found. Available columns: %s", e.Column, strings.Join(e.Available, ", "))
}

func (e *UnknownColumnError) Is(target error) bool {
	return target == ErrUnknownColumn
}

// NoNumericDataError reports a Y column with no plottable values after the row cap.
type NoNumericDataError struct {
	Column string
}

func (e *NoNumericDataError) Error() string {
	return fmt.Sprintf("No numeric data found in column %q. Please select a different Y-axis column.", e.Column)
}

func (e *NoNumericDataError) Is(target error) bool {
	return target == ErrNoNumericData
}
