package domain

import (
	"errors"
	"fmt"
)

var (
	ErrListingNotFound      = errors.New("listing not found")
	ErrInvalidListingData   = errors.New("invalid listing data")
	ErrInvalidFilter        = errors.New("invalid filter parameters")
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	ErrDecode               = errors.New("image cannot be decoded")
	ErrStoreUnavailable     = errors.New("listing store unavailable")
	ErrIO                   = errors.New("storage write failed")
)

// FilterError describes the query parameter that could not be interpreted.
// It unwraps to ErrInvalidFilter.
type FilterError struct {
	Param  string
	Value  string
	Reason string
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("%s: %s=%q: %s", ErrInvalidFilter, e.Param, e.Value, e.Reason)
}

func (e *FilterError) Unwrap() error {
	return ErrInvalidFilter
}

// IsUserError reports whether err is caused by input the caller can correct.
func IsUserError(err error) bool {
	return errors.Is(err, ErrInvalidFilter) ||
		errors.Is(err, ErrInvalidListingData) ||
		errors.Is(err, ErrUnsupportedMediaType) ||
		errors.Is(err, ErrDecode)
}
