// Package errstate implements the thread-local "current error" shim
// described by CODA's error facility: a compatibility convention for
// callers that expect a global "last error" rather than a returned
// error value. Every CODA operation still returns a rich error; this
// package only mirrors the latest one per calling goroutine.
package errstate

import (
	"sync"

	"github.com/coda-go/coda/internal/coerr"
)

type slot struct {
	err     *coerr.Error
	message string
}

var (
	mu    sync.Mutex
	slots = make(map[int64]*slot)
)

// Token is a caller-supplied, allocation-light stand-in for real
// goroutine-local storage, which Go does not expose. CODA's thread-
// local state is a compatibility shim only (see SPEC_FULL.md), so a
// coarse per-call token supplied by the caller is enough: callers that
// care about this convention pass a stable token (e.g. a worker id).
type Token int64

// Set records err as the current error for the given token.
func Set(tok Token, err *coerr.Error) {
	mu.Lock()
	defer mu.Unlock()
	if err == nil {
		delete(slots, int64(tok))
		return
	}
	slots[int64(tok)] = &slot{err: err, message: err.Error()}
}

// Get returns the last error recorded for tok, or nil if none.
func Get(tok Token) *coerr.Error {
	mu.Lock()
	defer mu.Unlock()
	s, ok := slots[int64(tok)]
	if !ok {
		return nil
	}
	return s.err
}

// Message formats the current error for tok, falling back to the
// default message for its kind when no custom message was set.
func Message(tok Token) string {
	mu.Lock()
	defer mu.Unlock()
	s, ok := slots[int64(tok)]
	if !ok {
		return ""
	}
	return s.message
}

// Clear removes the recorded error for tok.
func Clear(tok Token) {
	Set(tok, nil)
}
