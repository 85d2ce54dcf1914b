package errors

import "errors"

var (
	ErrNotFound    = errors.New("not found")
	ErrInvalid     = errors.New("invalid")
	ErrTooMany     = errors.New("too many requests")
	ErrInternal    = errors.New("internal")
	ErrUpstream    = errors.New("upstream model unavailable")
	ErrRateLimited = errors.New("upstream model rate limited")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsUpstream(err error) bool {
	return errors.Is(err, ErrUpstream)
}

func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}
