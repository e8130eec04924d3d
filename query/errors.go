package query

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrClosed is returned by operations on a closed cache.
	ErrClosed = errors.New("query: cache is closed")

	// ErrNoFetcher is returned by Read/Prefetch when fetch is nil and the
	// entry has no usable data.
	ErrNoFetcher = errors.New("query: no fetcher provided")

	// ErrNoMutator is returned by Mutate when MutateOptions.Mutator is nil.
	ErrNoMutator = errors.New("query: no mutator provided")
)

// FetchError wraps a terminal remote-read failure. The entry keeps serving
// data from its last successful fetch, if any, alongside StatusError.
type FetchError struct {
	Key      Key
	Attempts int // fetcher invocations made, >= 1
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("query: fetch %s failed after %d attempt(s): %v", e.Key, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// MutationError wraps a remote-write failure after the optimistic value has
// been rolled back to the pre-mutation snapshot.
type MutationError struct {
	Key Key
	Err error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("query: mutation %s failed: %v", e.Key, e.Err)
}

func (e *MutationError) Unwrap() error { return e.Err }
