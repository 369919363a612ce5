package chat

import (
	"errors"
	"fmt"
)

// ErrEmptyMessage rejects blank or whitespace-only input before any write.
var ErrEmptyMessage = errors.New("message is required")

// StoreError marks a durable-store failure. Op tells which leg failed.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("store %s: %v", e.Op, e.Err) }
func (e *StoreError) Unwrap() error { return e.Err }

// GenerationError marks a responder failure. The pipeline recovers from it
// locally; it never reaches Submit callers.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string { return fmt.Sprintf("generate reply: %v", e.Err) }
func (e *GenerationError) Unwrap() error { return e.Err }
