package interfaces

import "errors"

// Errors every repository implementation wraps so callers can match them with errors.Is
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)
