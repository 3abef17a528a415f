package storage

import "errors"

// Common errors returned by storage implementations.
var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates the provided input is invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDuplicate indicates the record already exists and is active.
	ErrDuplicate = errors.New("resource already exists")
)

// ListOptions controls pagination for list queries.
type ListOptions struct {
	Limit  int // Maximum records to return (default 50)
	Offset int // Records to skip
}

// Normalize applies defaults and clamps out-of-range values.
func (o *ListOptions) Normalize() {
	if o.Limit <= 0 {
		o.Limit = 50
	}
	if o.Limit > 500 {
		o.Limit = 500
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
}

// PaginatedResult wraps a page of records with pagination metadata.
type PaginatedResult[T any] struct {
	Items   []T  `json:"items"`
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}
