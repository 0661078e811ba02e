package gateway

import "errors"

var (
	ErrNotFound = errors.New("record not found")
	ErrNoFields = errors.New("update requires at least one field")
	ErrNoOwner  = errors.New("owner is required")
)
