package history

import "errors"

var ErrInvalidInput = errors.New("invalid input")
