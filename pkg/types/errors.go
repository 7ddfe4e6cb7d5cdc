package types

import "errors"

// Operation errors. Callers match them with errors.Is; storage failures wrap
// ErrStorageIO together with the driver or filesystem cause.
var (
	ErrDuplicateName = errors.New("duplicate name")
	ErrNotFound      = errors.New("not found")
	ErrInvalidColumn = errors.New("invalid column")
	ErrSchema        = errors.New("schema error")
	ErrStorageIO     = errors.New("storage failure")
	ErrInvalidName   = errors.New("invalid identifier")
	ErrInvalidChoice = errors.New("value is not one of the configured choices")
	ErrStoreClosed   = errors.New("store is closed")
	ErrInvalidConfig = errors.New("invalid configuration")
)
