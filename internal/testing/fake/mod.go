// Package fake provides fake implementations for interfaces commonly used in
// the repository. The implementations offer configuration to return errors
// when it is needed by the unit test.
package fake

import (
	"sync"

	"golang.org/x/xerrors"
)

var fakeErr = xerrors.New("fake error")

// GetError returns the fake error.
func GetError() error {
	return fakeErr
}

// Err returns the expected message of an error wrapping the fake error with
// the given prefix.
func Err(msg string) string {
	return msg + ": " + fakeErr.Error()
}

// Call is a tool to keep track of a function calls.
type Call struct {
	sync.Mutex
	calls [][]interface{}
}

// NewCall returns a new empty call monitor.
func NewCall() *Call {
	return &Call{}
}

// Get returns the nth call ith parameter.
func (c *Call) Get(n, i int) interface{} {
	c.Lock()
	defer c.Unlock()

	return c.calls[n][i]
}

// Len returns the number of calls.
func (c *Call) Len() int {
	c.Lock()
	defer c.Unlock()

	return len(c.calls)
}

// Add adds a call to the list.
func (c *Call) Add(args ...interface{}) {
	c.Lock()
	defer c.Unlock()

	c.calls = append(c.calls, args)
}
