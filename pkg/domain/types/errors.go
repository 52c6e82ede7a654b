package types

import "errors"

// ErrInvalidValue is wrapped by the Parse functions when the input is not a known value
var ErrInvalidValue = errors.New("invalid value")
