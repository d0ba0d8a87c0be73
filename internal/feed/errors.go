package feed

import (
	"errors"
	"fmt"
)

// ErrClosed is returned by operations on a controller after Close.
var ErrClosed = errors.New("feed controller closed")

// errStaleResponse marks a fetch whose result no longer matches the
// controller's mode. It is logged and dropped, never surfaced.
var errStaleResponse = errors.New("stale response discarded")

// ValidationError rejects input before any request is made.
type ValidationError struct {
	Field string
	Min   int
	Got   int
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("Please enter at least %d characters to search", e.Min)
}

// LoadError wraps any failure of the data source: transport, non-2xx
// status, or a payload that would not decode.
type LoadError struct {
	Op  string
	Err error
}

func (e *LoadError) Error() string {
	switch e.Op {
	case opSearch:
		return fmt.Sprintf("Search failed: %v", e.Err)
	case opLoadMore:
		return fmt.Sprintf("Failed to load more news: %v", e.Err)
	default:
		return fmt.Sprintf("Failed to load news: %v", e.Err)
	}
}

func (e *LoadError) Unwrap() error { return e.Err }

const (
	opLoadInitial = "load"
	opLoadMore    = "load more"
	opSearch      = "search"
	opRefresh     = "refresh"
)
