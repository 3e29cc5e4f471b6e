package service

import (
	"errors"
	"fmt"
)

var (
	// ErrUpstreamUnavailable wraps every store failure that escapes the engine
	ErrUpstreamUnavailable = errors.New("prompt store unavailable")
	ErrInvalidDate         = errors.New("invalid date, expected YYYY-MM-DD")
	ErrGroupNotFound       = errors.New("group not found")
)

// upstream marks err as an upstream failure while keeping the cause inspectable
func upstream(op string, err error) error {
	return fmt.Errorf("%w: failed to %s: %w", ErrUpstreamUnavailable, op, err)
}
