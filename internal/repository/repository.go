// Package repository defines the narrow gateway this service uses against a
// document store. Implementations live in subpackages (mongo, postgres,
// objectstore, memory).
package repository

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no document has the requested identifier.
	ErrNotFound = errors.New("document not found")
	// ErrInvalidIdentifier is returned when an identifier string is not in
	// the store's native format.
	ErrInvalidIdentifier = errors.New("invalid identifier")
)

// StoreError wraps a failure reported by the underlying store.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// WrapStoreError wraps err in a StoreError unless it is nil or already one of
// the gateway's sentinel errors.
func WrapStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidIdentifier) {
		return err
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}
