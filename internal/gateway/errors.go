package gateway

import (
	"errors"
	"fmt"
)

var (
	// ErrNotLinked indicates the Telegram user has no backend account.
	ErrNotLinked = errors.New("gateway: telegram user not linked")
	// ErrLinkCodeInvalid indicates an invalid or expired link code.
	ErrLinkCodeInvalid = errors.New("gateway: invalid or expired link code")
)

// StatusError reports a non-2xx backend response.
type StatusError struct {
	Endpoint string
	Code     int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gateway: %s returned status %d", e.Endpoint, e.Code)
}
