// Package repository provides storage access for catalog and collection
// entities. Repositories populate the entity identity cache as a side
// effect of creating or retrieving entities, so later natural-key
// lookups avoid a storage round-trip.
package repository

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a referenced entity does not exist at
// the point a dependent entity is created. It indicates an ordering
// defect in synchronization rather than a recoverable condition.
var ErrNotFound = errors.New("entity not found")

// StorageError wraps an underlying storage failure with the attempted
// operation and target entity for diagnostics.
type StorageError struct {
	Op     string
	Entity string
	Err    error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Entity, e.Err)
}

// Unwrap lets errors.Is and errors.As reach the underlying error.
func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageErr(op, entity string, err error) error {
	return &StorageError{Op: op, Entity: entity, Err: err}
}
