package llm

import (
	"context"
	"errors"
)

// Client is an opaque text-completion service.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ErrNotConfigured is returned when no provider is wired.
var ErrNotConfigured = errors.New("text generation service is not configured")

// Disabled is the client used when LLM_PROVIDER is none.
type Disabled struct{}

// Complete returns ErrNotConfigured.
func (Disabled) Complete(context.Context, string) (string, error) {
	return "", ErrNotConfigured
}

// Enabled reports whether c can reach a provider.
func Enabled(c Client) bool {
	if c == nil {
		return false
	}
	_, disabled := c.(Disabled)
	return !disabled
}
