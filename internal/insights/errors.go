package insights

import "errors"

// ErrInsightGenerationFailed marks a failed call to the text-generation service.
var ErrInsightGenerationFailed = errors.New("insight generation failed")

// GenerationError carries the upstream message of a failed generation call.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	if e.Err == nil {
		return ErrInsightGenerationFailed.Error()
	}
	return e.Err.Error()
}

func (e *GenerationError) Unwrap() []error {
	return []error{ErrInsightGenerationFailed, e.Err}
}
