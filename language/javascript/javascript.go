// Package javascript provides the JavaScript language adapter for scripthost.
package javascript

import (
	_ "embed"
)

//go:embed prelude.js
var prelude string

// JavaScript implements the executor.Language interface.
type JavaScript struct{}

// New returns a JavaScript language adapter.
func New() *JavaScript {
	return &JavaScript{}
}

// Name returns "javascript".
func (j *JavaScript) Name() string {
	return "javascript"
}

// Prelude returns the standard prelude: console.* routed to host.log.
func (j *JavaScript) Prelude() string {
	return prelude
}
