package models

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a watchlist entry does not exist
var ErrNotFound = errors.New("not found")

// StoreError means the watchlist store could not serve a request.
// During a check cycle it aborts that cycle only.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// LookupError means metadata for one title could not be resolved
type LookupError struct {
	Title string
	Err   error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("lookup %q: %v", e.Title, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

// DeliveryError means a direct message could not be delivered to one user
type DeliveryError struct {
	UserID string
	Title  string
	Err    error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver %q to user %s: %v", e.Title, e.UserID, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}
