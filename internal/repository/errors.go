package repository

import "errors"

var (
	// ErrNotFound is returned when a lookup matches no single record.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists is returned when a unique constraint rejects an insert.
	ErrAlreadyExists = errors.New("record already exists")
)
