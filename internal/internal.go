package internal

import (
	"fmt"
	"runtime/debug"
)

// CeilDiv returns the ceiling of n divided by d, for positive d.
func CeilDiv(n, d int) int {
	return (n + d - 1) / d
}

// WrapPanic adds stack trace information to a recovered panic.
func WrapPanic(p interface{}) interface{} {
	if p != nil {
		if err, isError := p.(error); isError {
			return fmt.Errorf("%w\n%s\nrethrown at", err, debug.Stack())
		}
		return fmt.Sprintf("%v\n%s\nrethrown at", p, debug.Stack())
	}
	return nil
}
