package module

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound = errors.New("module not found")
	ErrRead     = errors.New("module file not readable")
	ErrCycle    = errors.New("require cycle detected")
)

// NotFoundError reports a specifier for which no candidate file exists.
type NotFoundError struct {
	Specifier string
	Tried     []string
}

func (e *NotFoundError) Error() string {
	if len(e.Tried) == 0 {
		return fmt.Sprintf("module not found: %q", e.Specifier)
	}
	return fmt.Sprintf("module not found: %q (tried %s)", e.Specifier, strings.Join(e.Tried, ", "))
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ReadError reports a resolved module file that could not be read.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("file not found: %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() []error { return []error{ErrRead, e.Err} }

// CycleError reports a module that requires itself, directly or through
// other modules.
type CycleError struct {
	Chain []string
}

func (e *CycleError) Error() string {
	return "require cycle detected: " + strings.Join(e.Chain, " -> ")
}

func (e *CycleError) Unwrap() error { return ErrCycle }
