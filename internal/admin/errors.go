package admin

import "errors"

var (
	ErrInvalidPeriod = errors.New("period must be one of 7d, 30d, 90d")
	ErrInvalidFormat = errors.New("format must be csv or json")
)
