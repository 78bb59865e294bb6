package db

import "fmt"

// Op identifies the failing store operation.
type Op string

const (
	OpEnsure Op = "ensure"
	OpExists Op = "exists"
	OpDrop   Op = "drop"
	OpUpsert Op = "upsert"
	OpSearch Op = "search"
	OpPing   Op = "ping"
)

// Error wraps a backend failure with the operation that caused it.
type Error struct {
	Op  Op
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
