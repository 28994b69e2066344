package factstore

import (
	"fmt"
	"time"
)

// NetworkUnavailableError indicates the store could not be reached
type NetworkUnavailableError struct {
	Op    string
	Cause error
}

func (e *NetworkUnavailableError) Error() string {
	return fmt.Sprintf("fact store unreachable during %s: %v", e.Op, e.Cause)
}

func (e *NetworkUnavailableError) Unwrap() error {
	return e.Cause
}

// FetchTimeoutError indicates a fetch exceeded its deadline
type FetchTimeoutError struct {
	Op      string
	Timeout time.Duration
}

func (e *FetchTimeoutError) Error() string {
	if e.Timeout <= 0 {
		return fmt.Sprintf("fact store fetch %s timed out", e.Op)
	}
	return fmt.Sprintf("fact store fetch %s timed out after %s", e.Op, e.Timeout)
}

// DataUnavailableError indicates the store answered but the document is
// missing or failed validation
type DataUnavailableError struct {
	Doc   string
	Cause error
}

func (e *DataUnavailableError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fact store document %s unavailable: %v", e.Doc, e.Cause)
	}
	return fmt.Sprintf("fact store document %s unavailable", e.Doc)
}

func (e *DataUnavailableError) Unwrap() error {
	return e.Cause
}
