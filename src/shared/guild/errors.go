package guild

import (
	"errors"
	"fmt"
)

var (
	// ErrNoGuild is returned when an operation needs a guild context and has none.
	ErrNoGuild = errors.New("this command can only be used in a server")
	// ErrNoDefaultPrefix means neither the guild nor the process define a prefix.
	ErrNoDefaultPrefix = errors.New("no default prefix is configured")
)

// PermissionError reports a missing Discord permission.
type PermissionError struct {
	Permission string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("you need the %s permission to do that", e.Permission)
}

// ExternalActionError wraps a failed call to the chat platform.
type ExternalActionError struct {
	Op  string
	Err error
}

func (e *ExternalActionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ExternalActionError) Unwrap() error {
	return e.Err
}
