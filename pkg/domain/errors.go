package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is wrapped by lookups of missing entities.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is wrapped when creating an entity whose key already exists.
	ErrDuplicate = errors.New("already exists")
)

// NotFoundError names the missing entity.
type NotFoundError struct {
	Entity EntityType
	ID     string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

// Unwrap allows errors.Is(err, ErrNotFound).
func (e NotFoundError) Unwrap() error { return ErrNotFound }

// DuplicateError names the entity whose key is taken.
type DuplicateError struct {
	Entity EntityType
	ID     string
}

func (e DuplicateError) Error() string {
	return fmt.Sprintf("%s %q already exists", e.Entity, e.ID)
}

// Unwrap allows errors.Is(err, ErrDuplicate).
func (e DuplicateError) Unwrap() error { return ErrDuplicate }
